package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/hugr-lab/nest"
	"github.com/hugr-lab/nest/auth"
	"github.com/hugr-lab/nest/httpapi"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the tools over Arrow Flight and HTTP",
		Long: `Start the Flight gRPC server and the HTTP server.

Both servers stop gracefully on SIGINT or SIGTERM. An empty address in the
configuration disables the corresponding server.

Example:
  nest serve --config nest.yaml
  PORT=9000 nest serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts)
		},
	}
}

func runServe(cmd *cobra.Command, opts *RootOptions) error {
	cfg, logger, err := setup(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if cfg.Server.GRPCAddress == "" && cfg.Server.HTTPAddress == "" {
		return NewExitError(ExitCommandError, "no server address configured")
	}

	svc := newToolService(cfg, logger)
	gate := auth.NewGate(cfg.Gate, logger)
	authenticator := cfg.Authenticator()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	if addr := cfg.Server.GRPCAddress; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to listen", err)
		}
		serverConfig := nest.ServerConfig{
			Tools:          svc,
			Gate:           gate,
			Auth:           authenticator,
			Logger:         logger,
			MaxMessageSize: cfg.Server.MaxMessageSize,
			Address:        lis.Addr().String(),
		}
		grpcServer := grpc.NewServer(nest.ServerOptions(serverConfig)...)
		if err := nest.NewServer(grpcServer, serverConfig); err != nil {
			lis.Close()
			return WrapExitError(ExitCommandError, "failed to register Flight server", err)
		}

		g.Go(func() error {
			logger.Info("Flight server listening", "address", lis.Addr().String())
			return grpcServer.Serve(lis)
		})
		g.Go(func() error {
			<-ctx.Done()
			logger.Info("Stopping Flight server")
			grpcServer.GracefulStop()
			return nil
		})
	}

	if addr := cfg.Server.HTTPAddress; addr != "" {
		srv := &http.Server{
			Addr: addr,
			Handler: httpapi.New(httpapi.Config{
				Tools:  svc,
				Gate:   gate,
				Auth:   authenticator,
				Logger: logger,
			}).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			logger.Info("HTTP server listening", "address", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			logger.Info("Stopping HTTP server")
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}
	logger.Info("Servers stopped")
	return nil
}
