package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/qruntime/internal/params"
	"github.com/upb/qruntime/internal/resolver"
	"github.com/upb/qruntime/utils"
)

// HandleResolutionError maps a session open failure to an HTTP response.
// Resolver errors carry no raw secrets and are returned verbatim; anything
// else is logged and reported generically.
func HandleResolutionError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	var (
		missing   *resolver.MissingParameterError
		exhausted *resolver.ExhaustedError
	)

	switch {
	case errors.As(err, &missing):
		resp := utils.ErrorResponse{
			Message: err.Error(),
			Kind:    string(missing.Type()),
			Purpose: string(missing.Purpose),
			Missing: namesToStrings(missing.Missing),
			Sources: missing.Sources,
		}
		if err := utils.WriteErrorResponse(w, http.StatusServiceUnavailable, resp); err != nil {
			logger.Error("failed to write missing parameter response", zap.Error(err))
		}

	case errors.As(err, &exhausted):
		fallback := exhausted.Fallback
		resp := utils.ErrorResponse{
			Message:  err.Error(),
			Kind:     string(exhausted.Type()),
			Purpose:  string(exhausted.Purpose),
			Attempts: exhausted.Labels(),
			Fallback: &fallback,
		}
		if err := utils.WriteErrorResponse(w, http.StatusServiceUnavailable, resp); err != nil {
			logger.Error("failed to write exhausted response", zap.Error(err))
		}

	default:
		logger.Error("session failed with an internal error", zap.Error(err))
		if err := utils.WriteError(w, http.StatusInternalServerError, "An internal error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
	}
}

func namesToStrings(names []params.Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
