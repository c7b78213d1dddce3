package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/upb/qruntime/app"
	"github.com/upb/qruntime/config"
	"github.com/upb/qruntime/internal/params"
	"github.com/upb/qruntime/internal/resolver"
	"github.com/upb/qruntime/services/session"
)

// isolateEnv clears every variable the CLI reads so the host environment
// cannot leak into a test.
func isolateEnv(t *testing.T) string {
	t.Helper()
	for _, key := range params.DefaultEnvKeys {
		t.Setenv(key, "")
	}
	for _, key := range []string{
		"IBMQ_CHANNEL", "IBMQ_AUTH_URL", "IBMQ_IAM_URL", "IBMQ_RUNTIME_URL",
		"IBMQ_FALLBACK", "IBMQ_OFFLINE", "IBMQ_PREFER_ENV",
		"DATABASE_URL_AUDIT", "METRICS_ENABLED",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FORMAT", "console")
	return filepath.Join(t.TempDir(), "absent.env")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestResolveCommand(t *testing.T) {
	t.Run("offline without credentials", func(t *testing.T) {
		envFile := isolateEnv(t)

		out, err := execute(t, "resolve", "--offline", "--env-file", envFile)

		require.NoError(t, err)
		assert.Contains(t, out, "local_simulator")
		assert.Contains(t, out, "local")
		assert.Contains(t, out, "noise profile")
	})

	t.Run("root command resolves by default", func(t *testing.T) {
		envFile := isolateEnv(t)

		out, err := execute(t, "--offline", "--env-file", envFile)

		require.NoError(t, err)
		assert.Contains(t, out, "local_simulator")
	})

	t.Run("offline from the environment", func(t *testing.T) {
		envFile := isolateEnv(t)
		t.Setenv("IBMQ_OFFLINE", "true")

		out, err := execute(t, "--env-file", envFile)

		require.NoError(t, err)
		assert.Contains(t, out, "local_simulator")
	})

	t.Run("missing parameter exits with code 2", func(t *testing.T) {
		envFile := isolateEnv(t)

		_, err := execute(t, "resolve", "-t", "secret-token-value", "-i", "hub/group/project", "--env-file", envFile)

		require.Error(t, err)
		assert.True(t, resolver.IsMissingParameter(err))
		assert.Equal(t, exitMissingParameter, exitCode(err))
	})

	t.Run("rejected credentials exit with code 3", func(t *testing.T) {
		envFile := isolateEnv(t)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"AUTH_ERROR","message":"invalid token"}}`))
		}))
		defer srv.Close()
		t.Setenv("IBMQ_AUTH_URL", srv.URL)
		t.Setenv("IBMQ_RUNTIME_URL", srv.URL)

		_, err := execute(t, "resolve", "-t", "secret-token-value", "-i", "hub/group/project", "-b", "ibm_kyiv", "--env-file", envFile)

		require.Error(t, err)
		assert.True(t, resolver.IsExhausted(err))
		assert.Equal(t, exitExhausted, exitCode(err))
		assert.NotContains(t, err.Error(), "secret-token-value")
	})

	t.Run("invalid log level", func(t *testing.T) {
		envFile := isolateEnv(t)

		_, err := execute(t, "--offline", "--log-level", "loud", "--env-file", envFile)

		require.Error(t, err)
		assert.Equal(t, exitError, exitCode(err))
	})
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil", err: nil, expected: exitOK},
		{name: "missing parameter", err: &resolver.MissingParameterError{Purpose: resolver.PurposeSession}, expected: exitMissingParameter},
		{name: "wrapped exhausted", err: fmt.Errorf("open: %w", &resolver.ExhaustedError{Purpose: resolver.PurposeBackend}), expected: exitExhausted},
		{name: "other", err: errors.New("boom"), expected: exitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, exitCode(tt.err))
		})
	}
}

func TestServe(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	isolateEnv(t)

	cfg := config.Load(func(key string) (string, bool) {
		if key == "LOG_LEVEL" {
			return "error", true
		}
		return "", false
	})
	deps, err := app.NewDependencies(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, deps, lis, session.OpenRequest{Offline: true})
	}()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
	base := "http://" + lis.Addr().String()

	require.Eventually(t, func() bool {
		resp, err := client.Get(base + "/readyz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := client.Get(base + "/api/v1/session")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "local_simulator")

	resp, err = client.Get(base + "/metrics")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), "qruntime_backend_selections_total")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
	require.NoError(t, deps.Close(context.Background()))
}
