// Package tools implements the query tools the service exposes: raw SQL
// execution and structured company search.
//
// Every invocation opens its own engine handle and closes it before
// returning, so invocations are independent and may run concurrently.
package tools

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/hugr-lab/nest/engine"
	"github.com/hugr-lab/nest/internal/recovery"
	"github.com/hugr-lab/nest/schema"
	"github.com/hugr-lab/nest/search"
)

// Config configures a Service.
type Config struct {
	Engine engine.Config
	Model  *schema.Model
	Search search.Options
	Logger *slog.Logger
}

// Service runs tool invocations. It is safe for concurrent use.
type Service struct {
	engine   engine.Config
	compiler *search.Compiler
	limit    int
	logger   *slog.Logger
}

// NewService returns a Service for cfg.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := cfg.Search.Limit
	if limit <= 0 {
		limit = search.DefaultLimit
	}
	return &Service{
		engine:   cfg.Engine,
		compiler: search.NewCompiler(cfg.Model, &cfg.Search),
		limit:    limit,
		logger:   logger,
	}
}

// Model returns the schema model searches compile against.
func (s *Service) Model() *schema.Model {
	return s.compiler.Model()
}

// Compile compiles a search without running it.
func (s *Service) Compile(req *search.FilterRequest) (*search.Query, error) {
	return s.compiler.Compile(req)
}

// RunRawQuery executes sql verbatim and returns the rows as JSON.
func (s *Service) RunRawQuery(ctx context.Context, sql string) (string, error) {
	if strings.TrimSpace(sql) == "" {
		return "", fmt.Errorf("%w: sql is required", ErrInvalidArguments)
	}
	var out string
	err := s.withEngine(ctx, func(db *engine.DB) error {
		var err error
		out, err = db.QueryJSON(ctx, sql)
		return err
	})
	return out, err
}

// Search compiles req and returns the matching companies as JSON.
// Validation errors are returned before the engine is touched.
func (s *Service) Search(ctx context.Context, req *search.FilterRequest) (string, error) {
	q, err := s.compiler.Compile(req)
	if err != nil {
		return "", err
	}
	s.logger.Debug("Search compiled", "sql", q.SQL, "args", len(q.Args), "ranked", q.Ranked)

	var out string
	err = s.withEngine(ctx, func(db *engine.DB) error {
		if q.Ranked {
			if err := db.LoadSearchExtension(ctx); err != nil {
				return err
			}
		}
		out, err = db.QueryJSON(ctx, q.SQL, q.Args...)
		return err
	})
	return out, err
}

// Describe returns the physical columns of the company table as loaded in the
// database.
func (s *Service) Describe(ctx context.Context) ([]engine.Column, error) {
	var cols []engine.Column
	err := s.withEngine(ctx, func(db *engine.DB) error {
		var err error
		cols, err = db.Describe(ctx, s.Model().Table())
		return err
	})
	return cols, err
}

// ResultSchema returns the Arrow schema of search results for req.
func (s *Service) ResultSchema(req *search.FilterRequest) (*arrow.Schema, error) {
	q, err := s.compiler.Compile(req)
	if err != nil {
		return nil, err
	}
	return s.Model().ArrowSchema(q.Ranked), nil
}

// SearchRecords runs a search and returns the results as Arrow records in the
// model's logical schema. The reader does not hold an engine handle.
func (s *Service) SearchRecords(ctx context.Context, mem memory.Allocator, req *search.FilterRequest) (array.RecordReader, error) {
	q, err := s.compiler.Compile(req)
	if err != nil {
		return nil, err
	}
	sc := s.Model().ArrowSchema(q.Ranked)

	var reader array.RecordReader
	err = s.withEngine(ctx, func(db *engine.DB) error {
		if q.Ranked {
			if err := db.LoadSearchExtension(ctx); err != nil {
				return err
			}
		}
		reader, err = db.QueryRecords(ctx, mem, sc, q.SQL, q.Args...)
		return err
	})
	return reader, err
}

// Invoke dispatches a tool call by name. args is a JSON object.
func (s *Service) Invoke(ctx context.Context, name string, args []byte) (string, error) {
	id := uuid.NewString()
	logger := s.logger.With("tool", name, "invocation_id", id)
	logger.Debug("Tool invoked", "args_size", len(args))

	out, err := recovery.RecoverToValue(logger, name, func() (string, error) {
		switch name {
		case ToolSearch:
			var req search.FilterRequest
			if err := decodeArgs(args, &req); err != nil {
				return "", err
			}
			return s.Search(ctx, &req)
		case ToolRunRawQuery, ToolCompany, ToolCompanyAnnualReport:
			var req struct {
				SQL string `json:"sql"`
			}
			if err := decodeArgs(args, &req); err != nil {
				return "", err
			}
			return s.RunRawQuery(ctx, req.SQL)
		default:
			return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
		}
	})
	if err != nil {
		logger.Info("Tool failed", "kind", Classify(err), "error", err)
		return "", err
	}
	logger.Debug("Tool completed", "result_size", len(out))
	return out, nil
}

func decodeArgs(args []byte, v any) error {
	if len(bytes.TrimSpace(args)) == 0 {
		args = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}
	return nil
}

func (s *Service) withEngine(ctx context.Context, fn func(db *engine.DB) error) error {
	db, err := engine.Open(ctx, s.engine)
	if err != nil {
		return err
	}
	defer recovery.Recover(s.logger, "close", func() {
		if err := db.Close(); err != nil {
			s.logger.Warn("Failed to close database", "error", err)
		}
	})
	return fn(db)
}
