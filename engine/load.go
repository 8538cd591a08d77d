package engine

import (
	"context"
	"fmt"

	"github.com/hugr-lab/nest/schema"
)

// LoadCompanies replaces the model's table with the contents of a parquet
// source and returns the number of loaded rows.
func (d *DB) LoadCompanies(ctx context.Context, model *schema.Model, source string) (int64, error) {
	stmts := []string{
		"DROP TABLE IF EXISTS " + schema.QuoteIdentifier(model.Table()),
		model.CreateTableSQL(source),
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("%w: load %s: %w", ErrExecution, model.Table(), err)
		}
	}
	return d.Count(ctx, model.Table())
}

// CreateSearchIndex builds the full-text index over company purposes that
// backs the relevance function used by ranked searches.
func (d *DB) CreateSearchIndex(ctx context.Context, model *schema.Model) error {
	stmts := []string{
		"INSTALL fts",
		"LOAD fts",
		fmt.Sprintf("PRAGMA create_fts_index(%s, %s, %s, overwrite=1)",
			quoteLiteral(model.Table()), quoteLiteral(schema.ColumnID), quoteLiteral(schema.ColumnPurpose)),
	}
	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: create search index: %w", ErrExecution, err)
		}
	}
	return nil
}

// LoadSearchExtension loads the fts extension so relevance functions resolve.
// Ranked searches call it on every fresh handle.
func (d *DB) LoadSearchExtension(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, "LOAD fts"); err != nil {
		return fmt.Errorf("%w: load fts: %w", ErrExecution, err)
	}
	return nil
}
