package flight

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/nest/internal/msgpack"
	"github.com/hugr-lab/nest/tools"
)

// ListActions advertises one action per tool.
func (s *Server) ListActions(_ *flight.Empty, stream flight.FlightService_ListActionsServer) error {
	s.logger.Debug("ListActions called")

	for _, d := range s.tools.Descriptors() {
		if err := stream.Send(&flight.ActionType{Type: d.Name, Description: d.Description}); err != nil {
			return status.Errorf(codes.Internal, "failed to send action type: %v", err)
		}
	}
	return nil
}

// DoAction invokes the tool named by the action type.
//
// The body carries the tool arguments as a MessagePack map. Bodies that
// start with '{' are taken as JSON text. The single result holds the tool's
// JSON payload.
func (s *Server) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	ctx := EnrichContextMetadata(stream.Context())
	logger := s.requestLogger(ctx)

	actionType := action.GetType()
	logger.Debug("DoAction called",
		"type", actionType,
		"body_size", len(action.GetBody()),
	)

	args, err := actionArguments(action.GetBody())
	if err != nil {
		logger.Error("Failed to decode action body", "type", actionType, "error", err)
		return toStatus(err)
	}

	out, err := s.tools.Invoke(ctx, actionType, args)
	if err != nil {
		return toStatus(err)
	}

	if err := stream.Send(&flight.Result{Body: []byte(out)}); err != nil {
		logger.Error("Failed to send result", "type", actionType, "error", err)
		return status.Errorf(codes.Internal, "failed to send result: %v", err)
	}
	return nil
}

func actionArguments(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return trimmed, nil
	}
	args, err := msgpack.ToJSON(body)
	if err != nil {
		return nil, fmt.Errorf("%w: action body: %w", tools.ErrInvalidArguments, err)
	}
	return args, nil
}
