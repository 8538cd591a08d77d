package flight

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/metadata"

	"github.com/hugr-lab/nest/auth"
)

type contextKey int

const metaKey contextKey = iota

// Metadata header keys used for request correlation.
const (
	// HeaderTraceID is the gRPC metadata header for distributed trace identifier.
	HeaderTraceID = "nest-trace-id"
	// HeaderSessionID is the gRPC metadata header for client session identifier.
	HeaderSessionID = "nest-client-session-id"
)

// ContextMeta holds request metadata collected from gRPC headers.
type ContextMeta struct {
	TraceID   string
	SessionID string
}

// WithContextMeta stores meta in ctx.
func WithContextMeta(ctx context.Context, meta ContextMeta) context.Context {
	return context.WithValue(ctx, metaKey, &meta)
}

// MetaFromContext returns the metadata stored by WithContextMeta, or nil.
func MetaFromContext(ctx context.Context) *ContextMeta {
	meta, _ := ctx.Value(metaKey).(*ContextMeta)
	return meta
}

// EnrichContextMetadata extracts correlation headers from the incoming gRPC
// metadata. If the context is already enriched, it is returned unchanged.
func EnrichContextMetadata(ctx context.Context) context.Context {
	if MetaFromContext(ctx) != nil {
		return ctx
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}

	var meta ContextMeta
	if values := md.Get(HeaderTraceID); len(values) > 0 {
		meta.TraceID = values[0]
	}
	if values := md.Get(HeaderSessionID); len(values) > 0 {
		meta.SessionID = values[0]
	}
	return WithContextMeta(ctx, meta)
}

// requestLogger returns the server logger annotated with the caller identity
// and correlation ids found in ctx.
func (s *Server) requestLogger(ctx context.Context) *slog.Logger {
	logger := s.logger
	if id := auth.IdentityFromContext(ctx); id != "" {
		logger = logger.With("identity", id)
	}
	if meta := MetaFromContext(ctx); meta != nil {
		if meta.TraceID != "" {
			logger = logger.With("trace_id", meta.TraceID)
		}
		if meta.SessionID != "" {
			logger = logger.With("session_id", meta.SessionID)
		}
	}
	return logger
}
