package params

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Name identifies a resolvable parameter.
type Name string

const (
	Token    Name = "token"
	Instance Name = "instance"
	Backend  Name = "backend_name"
)

// RedactPrefixLen is the number of leading characters of a secret that may
// appear in logs.
const RedactPrefixLen = 8

const (
	absentMarker   = "None"
	ellipsisMarker = "..."
)

// Names lists every recognised parameter in display order.
func Names() []Name {
	return []Name{Token, Instance, Backend}
}

// IsSecret reports whether values of this parameter must be redacted.
func (n Name) IsSecret() bool {
	return n == Token
}

// Value is a named optional string. An absent value is never represented by
// the empty string alone; check Present.
type Value struct {
	name     Name
	raw      string
	present  bool
	secret   bool
	redacted string
}

// NewValue builds a Value. Surrounding whitespace is trimmed and an empty
// result is treated as absent.
func NewValue(name Name, raw string) Value {
	raw = strings.TrimSpace(raw)
	v := Value{
		name:    name,
		raw:     raw,
		present: raw != "",
		secret:  name.IsSecret(),
	}
	v.redacted = redact(v.raw, v.present, v.secret)
	return v
}

// Absent returns the absent value for name.
func Absent(name Name) Value {
	return NewValue(name, "")
}

func redact(raw string, present, secret bool) string {
	switch {
	case !present:
		return absentMarker
	case !secret:
		return raw
	case len(raw) <= RedactPrefixLen:
		return ellipsisMarker
	default:
		return raw[:RedactPrefixLen] + ellipsisMarker
	}
}

// Name returns the parameter name.
func (v Value) Name() Name { return v.name }

// Present reports whether a non-empty value was supplied.
func (v Value) Present() bool { return v.present }

// Secret reports whether the value is redacted in logs.
func (v Value) Secret() bool { return v.secret }

// Raw returns the unredacted value. Only capabilities talking to the remote
// runtime should call it.
func (v Value) Raw() string { return v.raw }

// Redacted returns the log-safe rendering computed at construction.
func (v Value) Redacted() string { return v.redacted }

// String implements fmt.Stringer with the redacted rendering so a Value can
// be formatted without leaking secrets.
func (v Value) String() string { return v.redacted }

// Field returns a zap field carrying the redacted value.
func (v Value) Field() zapcore.Field {
	return zap.String(string(v.name), v.redacted)
}

// Scrub replaces every occurrence of the given secret values in text with
// their redacted form. Empty secrets are ignored.
func Scrub(text string, secrets ...Value) string {
	for _, s := range secrets {
		if !s.present || !s.secret {
			continue
		}
		text = strings.ReplaceAll(text, s.raw, s.redacted)
	}
	return text
}
