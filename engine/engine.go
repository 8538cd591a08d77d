// Package engine is the boundary to the embedded DuckDB database.
//
// A DB is a short-lived handle: tool invocations open one, run their query
// and close it. There is no pool and nothing is cached between invocations.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"

	"github.com/hugr-lab/nest/schema"

	_ "github.com/duckdb/duckdb-go/v2"
)

var (
	// ErrConnection is returned when the database could not be opened or
	// initialized.
	ErrConnection = errors.New("failed to connect to database")

	// ErrExecution is returned when a statement failed to execute.
	ErrExecution = errors.New("failed to execute query")
)

// DefaultBatchSize is the number of rows per Arrow record produced by
// QueryRecords.
const DefaultBatchSize = 1024

// DB is an open DuckDB handle.
type DB struct {
	db *sqlx.DB
}

// Open opens the database described by cfg and runs its initialization
// statements.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	db, err := sqlx.Open("duckdb", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	// Session settings apply to one connection only.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	for _, stmt := range cfg.bootStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrConnection, stmt, err)
		}
	}
	return &DB{db: db}, nil
}

// Close releases the handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// Exec runs a statement and returns the number of affected rows.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecution, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// QueryJSON runs query and returns its rows as a pretty-printed JSON array of
// objects keyed by column name. An empty result is "[]".
func (d *DB) QueryJSON(ctx context.Context, query string, args ...any) (string, error) {
	rows, err := d.jsonRows(ctx, query, args...)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "[]", nil
	}
	compact, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("%w: format result: %w", ErrExecution, err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "  "); err != nil {
		return "", fmt.Errorf("%w: format result: %w", ErrExecution, err)
	}
	return out.String(), nil
}

// QueryRecords runs query and returns its rows as Arrow records shaped by sc.
// Columns missing from sc are dropped and values are converted to the schema
// types, so callers can use the logical view of a table regardless of its
// physical types.
func (d *DB) QueryRecords(ctx context.Context, mem memory.Allocator, sc *arrow.Schema, query string, args ...any) (array.RecordReader, error) {
	rows, err := d.jsonRows(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	for _, r := range rows {
		buf.Write(r)
		buf.WriteByte('\n')
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return array.NewJSONReader(&buf, sc, array.WithAllocator(mem), array.WithChunk(DefaultBatchSize)), nil
}

// jsonRows serializes each row with to_json inside DuckDB.
func (d *DB) jsonRows(ctx context.Context, query string, args ...any) ([]json.RawMessage, error) {
	wrapped := fmt.Sprintf("SELECT CAST(to_json(row_data) AS VARCHAR) FROM (%s) AS row_data", trimQuery(query))

	rows, err := d.db.QueryContext(ctx, wrapped, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecution, err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrExecution, err)
		}
		out = append(out, json.RawMessage(s))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecution, err)
	}
	return out, nil
}

// trimQuery drops trailing semicolons and whitespace so the query can be
// used as a subquery.
func trimQuery(q string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(q), ";\n"))
}

// Column is one row of DESCRIBE output.
type Column struct {
	Name    string  `db:"column_name" json:"column_name"`
	Type    string  `db:"column_type" json:"column_type"`
	Null    string  `db:"null" json:"null"`
	Key     *string `db:"key" json:"key,omitempty"`
	Default *string `db:"default" json:"default,omitempty"`
	Extra   *string `db:"extra" json:"extra,omitempty"`
}

// Describe returns the columns of a table.
func (d *DB) Describe(ctx context.Context, table string) ([]Column, error) {
	var cols []Column
	if err := d.db.SelectContext(ctx, &cols, "DESCRIBE "+schema.QuoteIdentifier(table)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecution, err)
	}
	return cols, nil
}

// Count returns the number of rows in a table.
func (d *DB) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := d.db.GetContext(ctx, &n, "SELECT count(*) FROM "+schema.QuoteIdentifier(table)); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrExecution, err)
	}
	return n, nil
}

func quoteLiteral(s string) string {
	return schema.QuoteLiteral(s)
}
