package tools

import (
	"errors"

	"github.com/goccy/go-json"

	"github.com/hugr-lab/nest/engine"
	"github.com/hugr-lab/nest/search"
)

var (
	// ErrUnknownTool is returned by Invoke for names no tool answers to.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrInvalidArguments is returned when tool arguments cannot be decoded
	// or a required argument is missing.
	ErrInvalidArguments = errors.New("invalid arguments")
)

// Error payload kinds.
const (
	KindInvalidRequest   = "invalid_request"
	KindQueryFailed      = "query_failed"
	KindConnectionFailed = "connection_failed"
	KindUnknownTool      = "unknown_tool"
	KindInternal         = "internal"
)

// ErrorPayload is the structured error returned to tool callers.
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	// Field names the rejected filter for validation errors.
	Field string `json:"field,omitempty"`
}

// Classify maps an error to its payload kind.
func Classify(err error) string {
	var verr *search.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, ErrInvalidArguments):
		return KindInvalidRequest
	case errors.Is(err, ErrUnknownTool):
		return KindUnknownTool
	case errors.Is(err, engine.ErrConnection):
		return KindConnectionFailed
	case errors.Is(err, engine.ErrExecution):
		return KindQueryFailed
	default:
		return KindInternal
	}
}

// IsClientError reports whether err was caused by the request rather than the
// server.
func IsClientError(err error) bool {
	switch Classify(err) {
	case KindInvalidRequest, KindUnknownTool:
		return true
	}
	return false
}

// NewErrorPayload builds the payload for err.
func NewErrorPayload(err error) ErrorPayload {
	p := ErrorPayload{Error: Classify(err), Message: err.Error()}
	var verr *search.ValidationError
	if errors.As(err, &verr) {
		p.Field = verr.Field
	}
	return p
}

// JSON returns the payload as JSON text.
func (p ErrorPayload) JSON() string {
	out, err := json.Marshal(p)
	if err != nil {
		return `{"error":"internal","message":"failed to encode error"}`
	}
	return string(out)
}
