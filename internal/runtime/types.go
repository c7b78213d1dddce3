package runtime

// Wire types for the auth and runtime APIs.

type loginRequest struct {
	APIToken string `json:"apiToken"`
}

type loginResponse struct {
	ID     string `json:"id"`
	TTL    int64  `json:"ttl"`
	UserID string `json:"userId"`
}

type iamTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

type backendsResponse struct {
	Devices []string `json:"devices"`
}

type configurationResponse struct {
	BackendName string   `json:"backend_name"`
	NumQubits   int      `json:"n_qubits"`
	BasisGates  []string `json:"basis_gates"`
	CouplingMap [][]int  `json:"coupling_map"`
}

type nduv struct {
	Name  string  `json:"name"`
	Unit  string  `json:"unit"`
	Value float64 `json:"value"`
}

type gateProperties struct {
	Gate       string `json:"gate"`
	Qubits     []int  `json:"qubits"`
	Parameters []nduv `json:"parameters"`
}

type propertiesResponse struct {
	BackendName string           `json:"backend_name"`
	Qubits      [][]nduv         `json:"qubits"`
	Gates       []gateProperties `json:"gates"`
}

type errorResponse struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	ErrorMessage string `json:"errorMessage"`
}

// codeAndMessage extracts the first error code and message the body carried.
func (r *errorResponse) codeAndMessage() (string, string) {
	if len(r.Errors) > 0 {
		return r.Errors[0].Code, r.Errors[0].Message
	}
	if r.Error.Message != "" {
		return r.Error.Code, r.Error.Message
	}
	return "", r.ErrorMessage
}
