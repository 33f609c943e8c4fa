package ingestion_engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/models"
)

// Processor runs one work item end to end.
type Processor interface {
	Process(ctx context.Context, item models.WorkItem) (Outcome, error)
}

// Summary counts what a drain did.
type Summary struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// DocumentIngestor pulls work items off the queue and feeds them to the processor.
//
// processor: runs one item.
// queue:     source of pending items.
// jobs:      in-memory hand-off between the poller and the workers.
type DocumentIngestor struct {
	processor Processor
	queue     core.WorkQueue
	jobs      chan models.WorkItem
	logger    *slog.Logger
}

// NewDocumentIngestor constructs the ingestor with a bounded job queue (64).
func NewDocumentIngestor(processor Processor, queue core.WorkQueue) *DocumentIngestor {
	return &DocumentIngestor{
		processor: processor,
		queue:     queue,
		jobs:      make(chan models.WorkItem, 64),
		logger:    slog.Default().With("component", "ingestor"),
	}
}

// Start runs numWorkers goroutines reading from the jobs channel until ctx ends.
func (i *DocumentIngestor) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					i.logger.Debug("worker shutting down", "worker", w)
					return
				case item := <-i.jobs:
					i.run(ctx, item, w)
				}
			}
		}(w)
	}
}

// Enqueue schedules an item for the workers.
// If the queue is full, this call blocks until space frees up or ctx ends.
func (i *DocumentIngestor) Enqueue(ctx context.Context, item models.WorkItem) error {
	select {
	case i.jobs <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Drain processes queued items one by one until the queue is empty.
// Per-item failures are logged and counted; only queue errors abort the drain.
func (i *DocumentIngestor) Drain(ctx context.Context) (Summary, error) {
	var sum Summary
	for {
		item, err := i.queue.Pop(ctx)
		switch {
		case errors.Is(err, core.ErrQueueEmpty):
			i.logger.Info("queue drained", "processed", sum.Processed, "failed", sum.Failed, "skipped", sum.Skipped)
			return sum, nil
		case errors.Is(err, core.ErrMalformedItem):
			i.logger.Error("invalid queue item", "err", err)
			sum.Skipped++
			continue
		case err != nil:
			return sum, err
		}

		switch i.run(ctx, item, 0) {
		case resultProcessed:
			sum.Processed++
		case resultSkipped:
			sum.Skipped++
		default:
			sum.Failed++
		}
	}
}

// Poll moves queued items to the workers every interval until ctx ends.
// Start must have been called for the items to be consumed.
func (i *DocumentIngestor) Poll(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for {
			item, err := i.queue.Pop(ctx)
			if errors.Is(err, core.ErrQueueEmpty) {
				break
			}
			if errors.Is(err, core.ErrMalformedItem) {
				i.logger.Error("invalid queue item", "err", err)
				continue
			}
			if err != nil {
				i.logger.Error("queue pop failed", "err", err)
				break
			}
			if err := i.Enqueue(ctx, item); err != nil {
				return
			}
		}
	}
}

type itemResult int

const (
	resultProcessed itemResult = iota
	resultSkipped
	resultFailed
)

func (i *DocumentIngestor) run(ctx context.Context, item models.WorkItem, worker int) itemResult {
	logger := i.logger.With("file_url", item.FileURL, "user", item.UserID)
	if worker > 0 {
		logger = logger.With("worker", worker)
	}
	logger.Info("processing item")

	out, err := i.processor.Process(ctx, item)
	switch {
	case err != nil && IsSkippable(err):
		logger.Error("invalid item", "err", err)
		return resultSkipped
	case err != nil:
		logger.Error("item failed", "err", err)
		return resultFailed
	case out.Skipped:
		return resultSkipped
	default:
		return resultProcessed
	}
}
