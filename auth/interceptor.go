package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// handshakeMethod is capability negotiation and bypasses the gate.
const handshakeMethod = "/arrow.flight.protocol.FlightService/Handshake"

// metadataHeaders adapts gRPC metadata to Headers.
type metadataHeaders metadata.MD

func (m metadataHeaders) Get(key string) string {
	if v := metadata.MD(m).Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

// ExtractToken extracts the bearer token from gRPC metadata.
// Returns empty string if the header is missing.
func ExtractToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}
	return TokenFromAuthorizationHeader(metadataHeaders(md).Get("authorization"))
}

// authorize applies the gate and then bearer authentication.
func authorize(ctx context.Context, fullMethod string, gate *Gate, authenticator Authenticator) (context.Context, error) {
	if gate.Enabled() && fullMethod != handshakeMethod {
		md, _ := metadata.FromIncomingContext(ctx)
		if !gate.Allow(metadataHeaders(md)) {
			gate.logger.Info("Call rejected by client gate", "method", fullMethod)
			return ctx, status.Error(codes.PermissionDenied, ForbiddenBody)
		}
	}

	if authenticator == nil {
		return ctx, nil
	}
	token, err := ExtractToken(ctx)
	if err != nil {
		return ctx, status.Error(codes.Unauthenticated, err.Error())
	}
	ctx, err = ValidateToken(ctx, token, authenticator)
	if err != nil {
		return ctx, status.Error(codes.Unauthenticated, err.Error())
	}
	return ctx, nil
}

// UnaryServerInterceptor creates a gRPC unary interceptor applying the client
// gate and bearer authentication. Either may be nil to skip it.
func UnaryServerInterceptor(gate *Gate, authenticator Authenticator) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, err := authorize(ctx, info.FullMethod, gate, authenticator)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor is the streaming counterpart of
// UnaryServerInterceptor.
func StreamServerInterceptor(gate *Gate, authenticator Authenticator) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, err := authorize(ss.Context(), info.FullMethod, gate, authenticator)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapper's custom context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// HTTPMiddleware authenticates HTTP requests with bearer tokens. Exempt
// requests pass through. A nil authenticator disables the check.
func HTTPMiddleware(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if authenticator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Exempt(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			token, err := TokenFromAuthorizationHeader(r.Header.Get("Authorization"))
			if err == nil {
				var ctx context.Context
				ctx, err = ValidateToken(r.Context(), token, authenticator)
				if err == nil {
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			if errors.Is(err, ErrTokenIsEmpty) {
				w.Header().Set("WWW-Authenticate", "Bearer")
			}
			body, _ := json.Marshal(errorBody{Error: "unauthenticated", Message: err.Error()})
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write(body)
		})
	}
}

// errorBody has the shape of the error payloads written by the HTTP surface.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
