// Package nest serves structured search and read-only SQL over a company
// dataset stored in an embedded DuckDB database.
//
// Callers submit a filter request (name substring, foundation year range,
// industry categories, purpose text, revenue and employee ranges). The
// request is validated and compiled into a single DuckDB SELECT, executed on
// a short-lived database handle and returned as JSON or as Arrow record
// batches.
//
// # Quick Start
//
//	svc := tools.NewService(tools.Config{
//	    Engine: engine.DefaultConfig(),
//	    Model:  schema.Default(),
//	})
//	config := nest.ServerConfig{Tools: svc, Gate: auth.NewGate(auth.DefaultGateConfig(), nil)}
//
//	grpcServer := grpc.NewServer(nest.ServerOptions(config)...)
//	if err := nest.NewServer(grpcServer, config); err != nil {
//	    log.Fatal(err)
//	}
//	lis, _ := net.Listen("tcp", ":8815")
//	grpcServer.Serve(lis)
//
// # Architecture
//
//   - schema: physical table layout, metric catalog, Arrow schema
//   - search: filter validation and SQL compilation
//   - engine: DuckDB handles, JSON and Arrow result conversion, table loading
//   - tools: tool descriptors, name-based dispatch, error payloads
//   - flight and httpapi: the gRPC and HTTP surfaces
//
// # Server Lifecycle
//
// NewServer registers Flight service handlers on a user-provided grpc.Server
// but does NOT manage server lifecycle (start/stop/listen). The nest command
// runs the Flight and HTTP servers together and stops both on SIGINT or
// SIGTERM.
//
// # Authentication
//
// Two independent checks guard the surfaces. The client gate admits requests
// whose User-Agent, Origin or Referer names an accepted client. Optional
// bearer authentication validates tokens from the authorization header:
//
//	config.Auth = nest.StaticTokens(map[string]string{"operator": token})
//
// # Logging
//
// The package uses ServerConfig.Logger, or slog.Default() when it is nil.
// Every tool invocation is logged with a generated invocation id.
//
// # Memory Management
//
// Arrow uses manual reference counting. Callers MUST call Release() on
// RecordReaders returned by tools.Service.SearchRecords.
package nest
