package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/upb/qruntime/internal/simulator"
)

// Channel selects the authentication flow.
type Channel string

const (
	ChannelQuantum Channel = "ibm_quantum"
	ChannelCloud   Channel = "ibm_cloud"
)

const (
	defaultAuthURL    = "https://auth.quantum-computing.ibm.com"
	defaultIAMURL     = "https://iam.cloud.ibm.com"
	defaultRuntimeURL = "https://api.quantum-computing.ibm.com/runtime"

	iamGrantType = "urn:ibm:params:oauth:grant-type:apikey"

	// maxErrorBody bounds how much of an error body is kept in messages.
	maxErrorBody = 512
)

// Config holds the runtime client settings
type Config struct {
	Channel      Channel
	AuthURL      string
	IAMURL       string
	RuntimeURL   string
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	UserAgent    string
}

// Client talks to the runtime service over HTTP. It implements every
// capability the backend selector needs and holds no session state.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
	now        func() time.Time
}

// NewClient creates a runtime client with retrying transport.
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Channel == "" {
		config.Channel = ChannelQuantum
	}
	if config.AuthURL == "" {
		config.AuthURL = defaultAuthURL
	}
	if config.IAMURL == "" {
		config.IAMURL = defaultIAMURL
	}
	if config.RuntimeURL == "" {
		config.RuntimeURL = defaultRuntimeURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryWaitMin == 0 {
		config.RetryWaitMin = 500 * time.Millisecond
	}
	if config.RetryWaitMax == 0 {
		config.RetryWaitMax = 5 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "qruntime"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		config:     config,
		httpClient: buildHTTPClient(config, logger),
		logger:     logger,
		now:        time.Now,
	}
}

// buildHTTPClient wraps a retryablehttp client in a standard *http.Client.
// 429 and 5xx are retried with bounded backoff; the final response is handed
// back unchanged so it can be mapped to an APIError.
func buildHTTPClient(config Config, logger *zap.Logger) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = config.RetryMax
	rc.RetryWaitMin = config.RetryWaitMin
	rc.RetryWaitMax = config.RetryWaitMax
	rc.Logger = nil
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.Warn("retrying runtime request",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("attempt", attempt),
			)
		}
	}

	httpClient := rc.StandardClient()
	httpClient.Timeout = config.Timeout
	return httpClient
}

// Channel returns the configured authentication channel.
func (c *Client) Channel() Channel {
	return c.config.Channel
}

// Connect authenticates with token and verifies that instance is
// accessible.
func (c *Client) Connect(ctx context.Context, token, instance string) (*Session, error) {
	if token == "" || instance == "" {
		return nil, errors.New("runtime: token and instance are required")
	}

	var (
		session *Session
		err     error
	)
	switch c.config.Channel {
	case ChannelCloud:
		session, err = c.loginIAM(ctx, token)
	case ChannelQuantum:
		session, err = c.loginQuantum(ctx, token)
	default:
		return nil, fmt.Errorf("runtime: unsupported channel %q", c.config.Channel)
	}
	if err != nil {
		return nil, err
	}
	session.Instance = instance

	if _, err := c.listDevices(ctx, session); err != nil {
		return nil, fmt.Errorf("instance %q rejected: %w", instance, err)
	}

	c.logger.Debug("runtime session opened", zap.Object("session", session))
	return session, nil
}

func (c *Client) loginQuantum(ctx context.Context, token string) (*Session, error) {
	body, err := json.Marshal(loginRequest{APIToken: token})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.config.AuthURL, "/")+"/api/users/loginWithToken", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp loginResponse
	if err := c.do(req, "login", &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("login: response carried no access token")
	}

	now := c.now()
	s := &Session{
		Channel:     ChannelQuantum,
		Subject:     resp.UserID,
		CreatedAt:   now,
		accessToken: resp.ID,
	}
	if resp.TTL > 0 {
		s.ExpiresAt = now.Add(time.Duration(resp.TTL) * time.Second)
	}
	return s, nil
}

func (c *Client) loginIAM(ctx context.Context, apiKey string) (*Session, error) {
	form := url.Values{}
	form.Set("grant_type", iamGrantType)
	form.Set("apikey", apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.config.IAMURL, "/")+"/identity/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create IAM request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp iamTokenResponse
	if err := c.do(req, "iam token", &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("iam token: response carried no access token")
	}

	now := c.now()
	s := &Session{
		Channel:     ChannelCloud,
		CreatedAt:   now,
		accessToken: resp.AccessToken,
	}
	if resp.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	// IAM tokens are JWTs; the signature is IAM's concern, only exp and sub
	// are read here.
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(resp.AccessToken, claims); err != nil {
		c.logger.Debug("iam token is not a parseable JWT", zap.Error(err))
		return s, nil
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}
	if sub, err := claims.GetSubject(); err == nil {
		s.Subject = sub
	}
	return s, nil
}

// ListBackends returns the backend names visible to the session.
func (c *Client) ListBackends(ctx context.Context, s *Session) ([]string, error) {
	if s == nil {
		return nil, errors.New("runtime: nil session")
	}
	return c.listDevices(ctx, s)
}

func (c *Client) listDevices(ctx context.Context, s *Session) ([]string, error) {
	endpoint := c.runtimeURL("backends")
	if s.Channel == ChannelQuantum {
		endpoint += "?provider=" + url.QueryEscape(s.Instance)
	}

	req, err := c.newRuntimeRequest(ctx, s, endpoint)
	if err != nil {
		return nil, err
	}

	var resp backendsResponse
	if err := c.do(req, "list backends", &resp); err != nil {
		return nil, err
	}
	return resp.Devices, nil
}

// ResolveBackend returns the named backend if the session can see it.
func (c *Client) ResolveBackend(ctx context.Context, s *Session, name string) (*RemoteBackend, error) {
	if s == nil {
		return nil, errors.New("runtime: nil session")
	}
	if name == "" {
		return nil, errors.New("runtime: backend name is required")
	}

	devices, err := c.listDevices(ctx, s)
	if err != nil {
		return nil, err
	}
	if !contains(devices, name) {
		return nil, fmt.Errorf("%w: %q is not available to instance %q", ErrBackendNotFound, name, s.Instance)
	}

	cfg, err := c.configuration(ctx, s, name)
	if err != nil {
		return nil, err
	}

	return NewRemoteBackend(name, cfg.NumQubits, cfg.BasisGates, toPairs(cfg.CouplingMap), s), nil
}

// FetchBackendProfile builds a noise profile from the backend's
// configuration and latest calibration properties.
func (c *Client) FetchBackendProfile(ctx context.Context, s *Session, name string) (*simulator.NoiseProfile, error) {
	if s == nil {
		return nil, errors.New("runtime: nil session")
	}

	cfg, err := c.configuration(ctx, s, name)
	if err != nil {
		return nil, err
	}

	req, err := c.newRuntimeRequest(ctx, s, c.runtimeURL("backends", name, "properties"))
	if err != nil {
		return nil, err
	}
	var props propertiesResponse
	if err := c.do(req, "backend properties", &props); err != nil {
		return nil, err
	}

	profile := &simulator.NoiseProfile{
		BackendName: name,
		NumQubits:   cfg.NumQubits,
		BasisGates:  cfg.BasisGates,
		CouplingMap: toPairs(cfg.CouplingMap),
		Qubits:      make([]simulator.QubitProperties, 0, len(props.Qubits)),
	}
	for _, q := range props.Qubits {
		var qp simulator.QubitProperties
		for _, p := range q {
			switch p.Name {
			case "T1":
				qp.T1 = toMicroseconds(p.Value, p.Unit)
			case "T2":
				qp.T2 = toMicroseconds(p.Value, p.Unit)
			case "readout_error":
				qp.ReadoutError = p.Value
			}
		}
		profile.Qubits = append(profile.Qubits, qp)
	}
	for _, g := range props.Gates {
		for _, p := range g.Parameters {
			if p.Name == "gate_error" {
				profile.GateErrors = append(profile.GateErrors, simulator.GateError{Gate: g.Gate, Qubits: g.Qubits, Error: p.Value})
			}
		}
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}

func (c *Client) configuration(ctx context.Context, s *Session, name string) (*configurationResponse, error) {
	req, err := c.newRuntimeRequest(ctx, s, c.runtimeURL("backends", name, "configuration"))
	if err != nil {
		return nil, err
	}
	var cfg configurationResponse
	if err := c.do(req, "backend configuration", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) runtimeURL(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.TrimRight(c.config.RuntimeURL, "/") + "/" + strings.Join(escaped, "/")
}

func (c *Client) newRuntimeRequest(ctx context.Context, s *Session, endpoint string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.authorize(req)
	return req, nil
}

// do executes req and decodes a 2xx JSON body into out.
func (c *Client) do(req *http.Request, op string, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: failed to read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.handleErrorResponse(op, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: failed to unmarshal response: %w", op, err)
	}
	return nil
}

func (c *Client) handleErrorResponse(op string, status int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return newAPIError(op, status, "", truncate(strings.TrimSpace(string(body))))
	}
	code, message := errResp.codeAndMessage()
	return newAPIError(op, status, code, message)
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}

func contains(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

func toPairs(edges [][]int) [][2]int {
	out := make([][2]int, 0, len(edges))
	for _, e := range edges {
		if len(e) == 2 {
			out = append(out, [2]int{e[0], e[1]})
		}
	}
	return out
}

func toMicroseconds(v float64, unit string) float64 {
	switch unit {
	case "s":
		return v * 1e6
	case "ms":
		return v * 1e3
	case "ns":
		return v / 1e3
	default:
		return v
	}
}
