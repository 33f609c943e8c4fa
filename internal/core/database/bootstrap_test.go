package db

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUndefinedTable(t *testing.T) {
	missing := &pgconn.PgError{Code: "42P01", Message: `relation "flowllm_meta" does not exist`}

	assert.True(t, isUndefinedTable(missing))
	assert.True(t, isUndefinedTable(fmt.Errorf("query: %w", missing)))
	assert.False(t, isUndefinedTable(&pgconn.PgError{Code: "42501"}))
	assert.False(t, isUndefinedTable(errors.New("connection refused")))
	assert.False(t, isUndefinedTable(nil))
}

func TestInitSQLWritesSchemaVersion(t *testing.T) {
	assert.Contains(t, initSQL, "CREATE TABLE IF NOT EXISTS flowllm_meta")
	assert.Contains(t, initSQL, "CREATE TABLE IF NOT EXISTS vector_records")
	assert.True(t, strings.Contains(initSQL, fmt.Sprintf("VALUES (%d)", schemaVersion)))
}
