package flight

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/nest/tools"
)

// toStatus converts a tool error into a gRPC status whose message is the
// JSON error payload.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request deadline exceeded")
	}

	p := tools.NewErrorPayload(err)
	var code codes.Code
	switch p.Error {
	case tools.KindInvalidRequest:
		code = codes.InvalidArgument
	case tools.KindUnknownTool:
		code = codes.Unimplemented
	default:
		code = codes.Internal
	}
	return status.Error(code, p.JSON())
}
