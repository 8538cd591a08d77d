// Package flight provides the Arrow Flight handlers of the service.
//
// Tools are invoked through DoAction with the tool name as action type.
// Search results can also be fetched as Arrow record batches: GetFlightInfo
// validates a filter and returns a ticket, DoGet streams the matching rows.
package flight

import (
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/nest/tools"
)

// Server implements the Flight service handlers.
// Embeds BaseFlightServer for forward compatibility with protocol changes.
type Server struct {
	flight.BaseFlightServer

	tools     *tools.Service
	allocator memory.Allocator
	logger    *slog.Logger
	address   string // public address for FlightEndpoint locations
}

// NewServer creates a Flight server over the given tool service.
// The address is advertised in FlightEndpoint locations when not empty.
func NewServer(svc *tools.Service, allocator memory.Allocator, logger *slog.Logger, address string) *Server {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		tools:     svc,
		allocator: allocator,
		logger:    logger,
		address:   address,
	}
}

// RegisterFlightServer registers the Flight service on the provided gRPC server.
func RegisterFlightServer(grpcServer *grpc.Server, flightServer *Server) {
	flight.RegisterFlightServiceServer(grpcServer, flightServer)
}
