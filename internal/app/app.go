package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/markdave123-py/flowllm/internal/api/handlers"
	"github.com/markdave123-py/flowllm/internal/config"
	"github.com/markdave123-py/flowllm/internal/core"
	db "github.com/markdave123-py/flowllm/internal/core/database"
	"github.com/markdave123-py/flowllm/internal/core/ingestion_engine"
	"github.com/markdave123-py/flowllm/internal/core/llm"
	objectclient "github.com/markdave123-py/flowllm/internal/core/object-client"
	"github.com/markdave123-py/flowllm/internal/core/ocr"
	"github.com/markdave123-py/flowllm/internal/core/pdf"
	"github.com/markdave123-py/flowllm/internal/core/workerpool"
	"github.com/markdave123-py/flowllm/internal/queue"
)

// App holds every long-lived client and the pipeline built from them.
// Queue and Ingestor are nil when REDIS_URL is empty.
type App struct {
	cfg       *config.Config
	Objects   core.ObjectClient
	Store     core.VectorStore
	Processor *ingestion_engine.DocumentProcessor
	Queue     *queue.RedisQueue
	Ingestor  *ingestion_engine.DocumentIngestor
	Server    *Server

	pool    *workerpool.Pool
	closers []func() error
	logger  *slog.Logger
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{cfg: cfg, logger: slog.Default().With("component", "app")}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	pool, err := workerpool.New(cfg.OCRWorkers)
	if err != nil {
		return nil, err
	}
	a.pool = pool

	a.Objects, err = objectclient.New(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("object client: %w", err)
	}
	a.logger.Info("object client ready", "backend", cfg.BlobBackend)

	a.Store, err = db.NewVectorStore(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}
	a.closers = append(a.closers, a.Store.Close)
	a.logger.Info("vector store ready", "backend", cfg.VectorBackend, "dim", cfg.EmbedDim)

	embedder, vision, err := a.newModels(appCtx)
	if err != nil {
		return nil, err
	}

	deps := ingestion_engine.Dependencies{
		Objects:   a.Objects,
		Store:     a.Store,
		Embedder:  embedder,
		Vision:    vision,
		OCR:       ocr.NewTesseractEngine(pool, strings.Split(cfg.OCRLanguage, "+")...),
		PDFs:      pdf.NewPopplerOpener(pdf.ExecRunner{}, cfg.WorkDir),
		Texts:     ingestion_engine.NewDocconvExtractor(false),
		Pool:      pool,
		UploadSem: semaphore.NewWeighted(int64(cfg.UploadConcurrency)),
	}
	a.Processor = ingestion_engine.NewDocumentProcessor(deps, ingestion_engine.NewIngestConfig(cfg))

	var drainer handlers.Drainer
	if cfg.RedisURL != "" {
		a.Queue, err = queue.NewRedisQueue(appCtx, cfg.RedisURL, cfg.QueueName)
		if err != nil {
			return nil, fmt.Errorf("work queue: %w", err)
		}
		a.closers = append(a.closers, a.Queue.Close)
		a.Ingestor = ingestion_engine.NewDocumentIngestor(a.Processor, a.Queue)
		drainer = a.Ingestor
		a.logger.Info("work queue ready", "queue", cfg.QueueName)
	} else {
		a.logger.Warn("REDIS_URL not set; queue endpoints disabled")
	}

	a.Server = NewServer(cfg, drainer)
	ok = true
	return a, nil
}

func (a *App) newModels(ctx context.Context) (core.EmbeddingProvider, core.VisionProvider, error) {
	switch a.cfg.AIProvider {
	case config.AIOpenAI:
		emb, err := llm.NewOpenAIEmbedder(a.cfg.OpenAIBaseURL, a.cfg.OpenAIAPIKey, a.cfg.OpenAIEmbedder)
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
		}
		vision, err := llm.NewOpenAIVision(a.cfg.OpenAIBaseURL, a.cfg.OpenAIAPIKey, a.cfg.OpenAIModel, a.cfg.LLMRPS)
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't initialize the vision model: %w", err)
		}
		return emb, vision, nil

	default:
		emb, err := llm.NewGeminiEmbedder(ctx, a.cfg.AIAPIKey, a.cfg.EmbedModel)
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
		}
		a.closers = append(a.closers, emb.Close)

		vision, err := llm.NewGeminiVision(ctx, a.cfg.AIAPIKey, a.cfg.VisionModel, a.cfg.LLMRPS)
		if err != nil {
			return nil, nil, fmt.Errorf("couldn't initialize the vision model: %w", err)
		}
		a.closers = append(a.closers, vision.Close)
		return emb, vision, nil
	}
}

// Serve runs the HTTP server and, when QUEUE_POLL_INTERVAL is set, the
// background workers, until ctx ends.
func (a *App) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if a.Ingestor != nil && a.cfg.QueuePollInterval > 0 {
		a.Ingestor.Start(gctx, a.cfg.IngestWorkers)
		g.Go(func() error {
			a.logger.Info("polling work queue", "interval", a.cfg.QueuePollInterval, "workers", a.cfg.IngestWorkers)
			a.Ingestor.Poll(gctx, a.cfg.QueuePollInterval)
			return nil
		})
	}

	g.Go(a.Server.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return a.Server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close releases clients in reverse order of creation.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if a.pool != nil {
		a.pool.Release()
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("errors while closing", "err", err)
	}
}
