package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed scripts/initdb.sql
var initSQL string

// schemaVersion is the flowllm_meta row written by scripts/initdb.sql.
const schemaVersion = 1

// undefinedTable is the Postgres SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// EnsureBootstrapped applies scripts/initdb.sql unless flowllm_meta already
// records schemaVersion. The script is idempotent, so a half-applied schema
// is simply re-run.
func EnsureBootstrapped(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	current, err := schemaCurrent(ctx, db)
	if err != nil {
		return err
	}
	if current {
		slog.Debug("schema up to date", "component", "pgvector", "version", schemaVersion)
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bootstrap tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, initSQL); err != nil {
		return fmt.Errorf("apply initdb.sql: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bootstrap: %w", err)
	}
	slog.Info("bootstrapped schema", "component", "pgvector", "version", schemaVersion)
	return nil
}

// schemaCurrent reports whether the meta table holds schemaVersion.
// A missing meta table means a fresh database.
func schemaCurrent(ctx context.Context, db *sql.DB) (bool, error) {
	var ok bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM flowllm_meta WHERE version = $1)`, schemaVersion).Scan(&ok)
	switch {
	case isUndefinedTable(err):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("schema version check: %w", err)
	}
	return ok, nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}
