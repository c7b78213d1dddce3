package runtime

import (
	"net/http"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/upb/qruntime/internal/params"
)

// Session is an authenticated connection to the runtime service. It is
// owned by the caller; the client keeps no reference to it.
type Session struct {
	Channel   Channel
	Instance  string
	Subject   string
	ExpiresAt time.Time
	CreatedAt time.Time

	accessToken string
}

// Expired reports whether the access token has expired at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// authorize sets the channel's credential headers on req.
func (s *Session) authorize(req *http.Request) {
	switch s.Channel {
	case ChannelCloud:
		req.Header.Set("Authorization", "Bearer "+s.accessToken)
		req.Header.Set("Service-CRN", s.Instance)
	default:
		req.Header.Set("X-Access-Token", s.accessToken)
	}
}

// MarshalLogObject implements zapcore.ObjectMarshaler. The access token is
// logged redacted.
func (s *Session) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("channel", string(s.Channel))
	enc.AddString("instance", s.Instance)
	enc.AddString("access_token", params.NewValue(params.Token, s.accessToken).Redacted())
	if s.Subject != "" {
		enc.AddString("subject", s.Subject)
	}
	if !s.ExpiresAt.IsZero() {
		enc.AddTime("expires_at", s.ExpiresAt)
	}
	return nil
}
