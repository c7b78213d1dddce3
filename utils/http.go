package utils

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every failed request. The resolution fields
// are set only when a session could not be opened.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`

	// Kind classifies a resolution failure, e.g. "missing_parameter".
	Kind    string `json:"error_type,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	// Missing names the parameters no permitted source supplied.
	Missing []string `json:"missing,omitempty"`
	Sources []string `json:"sources,omitempty"`
	// Attempts holds the labels of the failed candidates, in the order tried.
	Attempts []string `json:"attempts,omitempty"`
	Fallback *bool    `json:"fallback,omitempty"`
}

// SuccessResponse wraps the payload of a successful request
type SuccessResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return nil
	}

	return json.NewEncoder(w).Encode(data)
}

// WriteOK writes a 200 OK response with optional data
func WriteOK(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

// WriteError writes a plain error response for status.
func WriteError(w http.ResponseWriter, status int, message string) error {
	return WriteErrorResponse(w, status, ErrorResponse{Message: message})
}

// WriteErrorResponse writes resp, filling its Error code from status.
func WriteErrorResponse(w http.ResponseWriter, status int, resp ErrorResponse) error {
	resp.Error = StatusCode(status)
	return WriteJSON(w, status, resp)
}

// StatusCode returns the error code reported for an HTTP status.
func StatusCode(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusServiceUnavailable:
		return "session_unavailable"
	default:
		return "internal_error"
	}
}
