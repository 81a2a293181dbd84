// Copyright (c) 2026 Freetron
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package export copies processed form records into a PostgreSQL table.
// Rows are upserted by form ID inside one transaction, so re-running an
// export refreshes names and data without duplicating records.
package export

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"freetron/cli/internal/model"
)

// DefaultTable receives exported records unless another table is named.
const DefaultTable = "freetron_forms"

var reIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// DB is the part of a pgx pool the exporter uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Exporter writes forms to one table.
type Exporter struct {
	db    DB
	table string
	close func()
}

// Connect opens a pool on dsn and returns an exporter for table.
func Connect(ctx context.Context, dsn, table string) (*Exporter, error) {
	normalized, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}
	e, err := New(pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	e.close = pool.Close
	return e, nil
}

// New wraps an existing connection.
func New(db DB, table string) (*Exporter, error) {
	if table == "" {
		table = DefaultTable
	}
	if !reIdent.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Exporter{db: db, table: pgx.Identifier{table}.Sanitize(), close: func() {}}, nil
}

// Close releases the pool opened by Connect.
func (e *Exporter) Close() { e.close() }

func (e *Exporter) createSQL() string {
	return `CREATE TABLE IF NOT EXISTS ` + e.table + ` (
	id          BIGINT PRIMARY KEY,
	name        TEXT NOT NULL,
	date        TEXT NOT NULL,
	data        TEXT NOT NULL,
	exported_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
}

func (e *Exporter) upsertSQL() string {
	return `INSERT INTO ` + e.table + ` (id, name, date, data) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, date = EXCLUDED.date, data = EXCLUDED.data, exported_at = now()`
}

// EnsureTable creates the target table when missing.
func (e *Exporter) EnsureTable(ctx context.Context) error {
	if _, err := e.db.Exec(ctx, e.createSQL()); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Export upserts forms and returns the number of rows written.
func (e *Exporter) Export(ctx context.Context, forms []model.Form) (int, error) {
	if len(forms) == 0 {
		return 0, nil
	}
	tx, err := e.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, f := range forms {
		batch.Queue(e.upsertSQL(), f.ID, f.Name, f.Date, f.Data)
	}
	br := tx.SendBatch(ctx, batch)
	written := 0
	for _, f := range forms {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return 0, fmt.Errorf("upsert form %d: %w", f.ID, err)
		}
		written++
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("upsert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}
