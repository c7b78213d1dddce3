package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/upb/qruntime/internal/params"
	"github.com/upb/qruntime/utils"
)

// SessionView is the JSON rendering of an opened session. It never carries
// raw secrets: parameter values come from the redacted reports.
type SessionView struct {
	SessionID       string          `json:"session_id"`
	Mode            string          `json:"mode"`
	Backend         string          `json:"backend"`
	NumQubits       int             `json:"num_qubits"`
	Local           bool            `json:"local"`
	Seeded          bool            `json:"seeded"`
	ConnectionLabel string          `json:"connection_label,omitempty"`
	BackendLabel    string          `json:"backend_label,omitempty"`
	Sources         []params.Report `json:"sources"`
	Backends        []string        `json:"available_backends,omitempty"`
	OpenedAt        string          `json:"opened_at"`
}

// SessionHandler serves the status of the current session
type SessionHandler struct {
	state  *SessionState
	logger *zap.Logger
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(state *SessionState, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{state: state, logger: logger}
}

// HandleGetSession handles GET /api/v1/session
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	snap := h.state.Get()

	if snap.Err != nil {
		HandleResolutionError(w, snap.Err, h.logger)
		return
	}

	if snap.Result == nil || snap.Result.Selection == nil {
		_ = utils.WriteError(w, http.StatusNotFound, "no session has been opened")
		return
	}

	res := snap.Result
	sel := res.Selection
	view := SessionView{
		SessionID:       res.SessionID,
		Mode:            string(sel.Mode),
		Backend:         sel.Backend.Name(),
		NumQubits:       sel.Backend.NumQubits(),
		Local:           sel.Backend.Local(),
		Seeded:          sel.Seeded,
		ConnectionLabel: sel.ConnectionLabel,
		BackendLabel:    sel.BackendLabel,
		Sources:         res.Reports,
		Backends:        res.Backends,
		OpenedAt:        res.OpenedAt.UTC().Format(time.RFC3339),
	}

	if err := utils.WriteOK(w, view); err != nil {
		h.logger.Error("failed to write session response", zap.Error(err))
	}
}
