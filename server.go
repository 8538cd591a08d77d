package nest

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/nest/auth"
	"github.com/hugr-lab/nest/flight"
)

// NewServer registers the Flight service handlers on the provided gRPC server.
//
// Returns error if config is invalid (e.g., nil Tools).
// Does NOT start the gRPC server - user controls lifecycle via grpcServer.Serve().
//
// Use ServerOptions() to create a gRPC server with the gate and
// authentication interceptors:
//
//	opts := nest.ServerOptions(config)
//	grpcServer := grpc.NewServer(opts...)
//	err := nest.NewServer(grpcServer, config)
func NewServer(grpcServer *grpc.Server, config ServerConfig) error {
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	allocator := config.Allocator
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}

	flightServer := flight.NewServer(config.Tools, allocator, serverLogger(config), config.Address)
	flight.RegisterFlightServer(grpcServer, flightServer)

	serverLogger(config).Info("Flight server registered",
		"table", config.Tools.Model().Table(),
		"variant", config.Tools.Model().Variant(),
		"gate", config.Gate.Enabled(),
		"has_auth", config.Auth != nil,
		"max_message_size", config.MaxMessageSize,
	)
	return nil
}

// validateConfig checks that required ServerConfig fields are valid.
func validateConfig(config ServerConfig) error {
	if config.Tools == nil {
		return fmt.Errorf("tool service is required")
	}
	if config.MaxMessageSize < 0 {
		return fmt.Errorf("max message size must not be negative")
	}
	return nil
}

func serverLogger(config ServerConfig) *slog.Logger {
	if config.Logger != nil {
		return config.Logger
	}
	if config.LogLevel != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: *config.LogLevel}))
	}
	return slog.Default()
}

// ServerOptions returns gRPC server options with the client gate and
// authentication interceptors.
func ServerOptions(config ServerConfig) []grpc.ServerOption {
	var opts []grpc.ServerOption

	if config.Gate.Enabled() || config.Auth != nil {
		opts = append(opts,
			grpc.UnaryInterceptor(auth.UnaryServerInterceptor(config.Gate, config.Auth)),
			grpc.StreamInterceptor(auth.StreamServerInterceptor(config.Gate, config.Auth)),
		)
	}

	if config.MaxMessageSize > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(config.MaxMessageSize),
			grpc.MaxSendMsgSize(config.MaxMessageSize),
		)
	}

	return opts
}
