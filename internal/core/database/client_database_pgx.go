package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/flowllm/internal/config"
	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/models"
)

// PgVectorStore keeps records in Postgres with the pgvector extension.
type PgVectorStore struct {
	db     *sql.DB
	dim    int
	logger *slog.Logger
}

func NewPgVectorStore(ctx context.Context, cfg *config.Config) (*PgVectorStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &PgVectorStore{
		db:     db,
		dim:    cfg.EmbedDim,
		logger: slog.Default().With("component", "pgvector"),
	}, nil
}

func (c *PgVectorStore) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Upsert writes all records in a single transaction. Existing rows with the
// same (namespace, id) are overwritten.
func (c *PgVectorStore) Upsert(ctx context.Context, namespace string, records []models.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := validateRecords(namespace, records, c.dim); err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO vector_records
			(namespace, id, document_id, text, metadata, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (namespace, id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			text        = EXCLUDED.text,
			metadata    = EXCLUDED.metadata,
			embedding   = EXCLUDED.embedding,
			updated_at  = now()
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode metadata for %s: %w", r.ID, err)
		}

		if _, err := stmt.ExecContext(ctx,
			namespace, r.ID, r.Metadata[models.MetaDocumentID], r.Metadata[models.MetaText], string(meta), pgvector.NewVector(r.Values),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	c.logger.Debug("upserted records", "namespace", namespace, "count", len(records))
	return nil
}

var _ core.VectorStore = (*PgVectorStore)(nil)
