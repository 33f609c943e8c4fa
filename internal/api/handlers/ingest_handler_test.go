package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/flowllm/internal/core/ingestion_engine"
)

type fakeDrainer struct {
	sum   ingestion_engine.Summary
	err   error
	calls int
}

func (f *fakeDrainer) Drain(context.Context) (ingestion_engine.Summary, error) {
	f.calls++
	return f.sum, f.err
}

func TestParseAndEmbed(t *testing.T) {
	d := &fakeDrainer{sum: ingestion_engine.Summary{Processed: 3, Failed: 1, Skipped: 2}}
	h := NewIngestHandler(d)

	rec := httptest.NewRecorder()
	h.ParseAndEmbed(rec, httptest.NewRequest(http.MethodPost, "/api/parse-and-embed", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "All items processed", body["message"])
	assert.EqualValues(t, 3, body["processed"])
	assert.EqualValues(t, 1, body["failed"])
	assert.EqualValues(t, 2, body["skipped"])
	assert.Equal(t, 1, d.calls)
}

func TestParseAndEmbed_QueueError(t *testing.T) {
	d := &fakeDrainer{sum: ingestion_engine.Summary{Processed: 1}, err: errors.New("redis down")}
	rec := httptest.NewRecorder()
	NewIngestHandler(d).ParseAndEmbed(rec, httptest.NewRequest(http.MethodPost, "/api/parse-and-embed", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "redis down")
}

func TestParseAndEmbed_NoQueue(t *testing.T) {
	rec := httptest.NewRecorder()
	NewIngestHandler(nil).ParseAndEmbed(rec, httptest.NewRequest(http.MethodPost, "/api/parse-and-embed", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewIngestHandler(nil).Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
