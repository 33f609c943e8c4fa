package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/markdave123-py/flowllm/internal/core/ingestion_engine"
)

// Drainer processes everything currently queued.
type Drainer interface {
	Drain(ctx context.Context) (ingestion_engine.Summary, error)
}

type IngestHandler struct {
	drainer Drainer
	logger  *slog.Logger
}

func NewIngestHandler(drainer Drainer) *IngestHandler {
	return &IngestHandler{
		drainer: drainer,
		logger:  slog.Default().With("component", "ingest-handler"),
	}
}

type drainResponse struct {
	Message string `json:"message"`
	ingestion_engine.Summary
}

// ParseAndEmbed drains the work queue synchronously and reports the counts.
func (h *IngestHandler) ParseAndEmbed(w http.ResponseWriter, r *http.Request) {
	if h.drainer == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "work queue not configured"})
		return
	}

	sum, err := h.drainer.Drain(r.Context())
	if err != nil {
		h.logger.Error("drain failed", "err", err, "processed", sum.Processed, "failed", sum.Failed)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":     err.Error(),
			"processed": sum.Processed,
			"failed":    sum.Failed,
			"skipped":   sum.Skipped,
		})
		return
	}

	writeJSON(w, http.StatusOK, drainResponse{Message: "All items processed", Summary: sum})
}

// Health reports liveness.
func (h *IngestHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
