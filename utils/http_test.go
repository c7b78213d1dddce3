package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		w := httptest.NewRecorder()
		data := map[string]string{"message": "test"}

		err := WriteJSON(w, http.StatusOK, data)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var response map[string]string
		err = json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, "test", response["message"])
	})

	t.Run("nil data", func(t *testing.T) {
		w := httptest.NewRecorder()

		err := WriteJSON(w, http.StatusNoContent, nil)
		require.NoError(t, err)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())
	})
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()

	err := WriteOK(w, map[string]string{"result": "success"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)

	var response SuccessResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	dataMap := response.Data.(map[string]interface{})
	assert.Equal(t, "success", dataMap["result"])
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name              string
		status            int
		expectedErrorType string
	}{
		{name: "not found", status: http.StatusNotFound, expectedErrorType: "not_found"},
		{name: "unavailable session", status: http.StatusServiceUnavailable, expectedErrorType: "session_unavailable"},
		{name: "unknown status defaults to internal error", status: http.StatusTeapot, expectedErrorType: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			err := WriteError(w, tt.status, "message")
			require.NoError(t, err)

			assert.Equal(t, tt.status, w.Code)
			var response ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedErrorType, response.Error)
			assert.Equal(t, "message", response.Message)
			assert.Empty(t, response.Kind)
		})
	}
}

func TestWriteErrorResponse(t *testing.T) {
	t.Run("resolution failure keeps attempt labels", func(t *testing.T) {
		w := httptest.NewRecorder()
		fallback := true

		err := WriteErrorResponse(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:    "overwritten",
			Message:  "exhausted",
			Kind:     "exhausted",
			Purpose:  "session",
			Attempts: []string{"[1] invocation instance + invocation token"},
			Fallback: &fallback,
		})
		require.NoError(t, err)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "session_unavailable", response["error"])
		assert.Equal(t, "exhausted", response["error_type"])
		assert.Equal(t, []interface{}{"[1] invocation instance + invocation token"}, response["attempts"])
		assert.Equal(t, true, response["fallback"])
		assert.NotContains(t, response, "missing")
	})

	t.Run("plain errors omit resolution fields", func(t *testing.T) {
		w := httptest.NewRecorder()

		require.NoError(t, WriteError(w, http.StatusNotFound, "endpoint not found"))

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Len(t, response, 2)
		assert.Equal(t, "not_found", response["error"])
	})
}
