package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/core/workerpool"
	"github.com/markdave123-py/flowllm/internal/models"
)

// Dependencies are the collaborators a DocumentProcessor is built from.
// UploadSem may be nil, in which case one sized by UploadConcurrency is created.
type Dependencies struct {
	Objects   core.ObjectClient
	Store     core.VectorStore
	Embedder  core.EmbeddingProvider
	Vision    core.VisionProvider
	OCR       core.OCREngine
	PDFs      core.PDFOpener
	Texts     core.TextExtractor
	Pool      *workerpool.Pool
	UploadSem *semaphore.Weighted
}

// Outcome summarizes one processed document.
type Outcome struct {
	DocumentID string
	Kind       models.FileKind
	Records    int
	Uploaded   int
	Skipped    bool // unsupported kind, nothing done
}

// Vectorized is everything a document produced before commit.
type Vectorized struct {
	Records  []models.VectorRecord
	Uploaded []string
}

// DocumentProcessor turns one stored object into committed vector records.
type DocumentProcessor struct {
	cfg        *IngestConfig
	objects    core.ObjectClient
	store      core.VectorStore
	pdfs       core.PDFOpener
	texts      core.TextExtractor
	pool       *workerpool.Pool
	classifier *AssetClassifier
	pages      *PageProcessor
	chunker    *Chunker
	embedder   *EmbedRequestor
	uploader   *AssetUploader
	logger     *slog.Logger
}

func NewDocumentProcessor(deps Dependencies, cfg *IngestConfig) *DocumentProcessor {
	if cfg == nil {
		cfg = DefaultIngestConfig()
	}
	sem := deps.UploadSem
	if sem == nil {
		sem = semaphore.NewWeighted(int64(limitOrDefault(cfg.UploadConcurrency, 25)))
	}
	classifier := NewAssetClassifier(deps.OCR, deps.Vision, cfg.OCRMinChars)

	return &DocumentProcessor{
		cfg:        cfg,
		objects:    deps.Objects,
		store:      deps.Store,
		pdfs:       deps.PDFs,
		texts:      deps.Texts,
		pool:       deps.Pool,
		classifier: classifier,
		pages:      NewPageProcessor(classifier, cfg.ImageConcurrency),
		chunker:    NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder:   NewEmbedRequestor(deps.Embedder),
		uploader:   NewAssetUploader(deps.Objects, cfg.ImageBucket, sem),
		logger:     slog.Default().With("component", "processor"),
	}
}

// Process runs a queued work item end to end.
func (p *DocumentProcessor) Process(ctx context.Context, item models.WorkItem) (Outcome, error) {
	key, err := item.ObjectKey()
	if err != nil {
		return Outcome{}, err
	}
	return p.ProcessObject(ctx, key, item.UserID)
}

// ProcessObject downloads objectKey, vectorizes it and commits the records
// under namespace. The local copy is always removed. Unsupported kinds are
// skipped without error.
func (p *DocumentProcessor) ProcessObject(ctx context.Context, objectKey, namespace string) (Outcome, error) {
	doc := models.NewDocument(objectKey, namespace)
	out := Outcome{DocumentID: doc.ID, Kind: doc.Kind}
	logger := p.logger.With("doc", doc.ID, "key", objectKey, "namespace", namespace)

	if doc.Kind == models.FileKindUnknown {
		logger.Warn("skipping unsupported file", "object", doc.ObjectName)
		out.Skipped = true
		return out, nil
	}

	dir, err := os.MkdirTemp(p.cfg.WorkDir, "ingest-*")
	if err != nil {
		return out, stageErr(StageDownloading, doc.ID, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("failed to remove working copy", "dir", dir, "err", err)
		}
	}()

	doc.LocalPath = filepath.Join(dir, doc.ObjectName)
	if err := p.objects.DownloadFile(ctx, p.cfg.DocumentBucket, objectKey, doc.LocalPath); err != nil {
		return out, stageErr(StageDownloading, doc.ID, err)
	}
	logger.Info("downloaded document", "kind", doc.Kind)

	v, err := p.Vectorize(ctx, doc)
	if err != nil {
		return out, err
	}
	out.Uploaded = len(v.Uploaded)

	if len(v.Records) == 0 {
		logger.Info("document produced no units, nothing to commit")
		return out, nil
	}
	if err := p.store.Upsert(ctx, namespace, v.Records); err != nil {
		return out, stageErr(StageCommitting, doc.ID, err)
	}
	out.Records = len(v.Records)

	logger.Info("document committed", "records", out.Records, "images", out.Uploaded)
	return out, nil
}

// Vectorize extracts, uploads, embeds and assembles a downloaded document
// without committing it.
func (p *DocumentProcessor) Vectorize(ctx context.Context, doc models.Document) (Vectorized, error) {
	var (
		chunks   []string
		captions []string
		images   []models.ImageAsset
		err      error
	)

	switch doc.Kind {
	case models.FileKindPDF:
		chunks, captions, images, err = p.extractPDF(ctx, doc)
	case models.FileKindImage:
		chunks, captions, err = p.extractImage(ctx, doc)
	case models.FileKindText:
		chunks, err = p.extractText(ctx, doc)
	default:
		return Vectorized{}, stageErr(StageDispatching, doc.ID, fmt.Errorf("%w: %s", ErrUnsupportedFileKind, doc.ObjectName))
	}
	if err != nil {
		return Vectorized{}, stageErr(StageExtracting, doc.ID, err)
	}

	units := buildUnits(chunks, captions)
	p.logger.Debug("extracted document", "doc", doc.ID, "chunks", len(chunks), "captions", len(captions), "images", len(images))
	if len(units) == 0 {
		return Vectorized{}, nil
	}

	var (
		keys    []string
		vectors [][]float32
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if keys, err = p.uploader.UploadAll(gctx, doc.ID, images); err != nil {
			return stageErr(StageUploading, doc.ID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if vectors, err = p.embedder.Embed(gctx, units); err != nil {
			return stageErr(StageEmbedding, doc.ID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Vectorized{}, err
	}

	records, err := Assemble(doc, units, vectors)
	if err != nil {
		return Vectorized{}, stageErr(StageAssembling, doc.ID, err)
	}
	return Vectorized{Records: records, Uploaded: keys}, nil
}

func (p *DocumentProcessor) extractPDF(ctx context.Context, doc models.Document) (chunks, captions []string, images []models.ImageAsset, err error) {
	pdf, err := p.pdfs.Open(ctx, doc.LocalPath)
	if err != nil {
		return nil, nil, nil, err
	}
	defer pdf.Close()

	results := make([]PageResult, pdf.NumPages())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limitOrDefault(p.cfg.PageConcurrency, 8))
	for i := range results {
		g.Go(func() error {
			r, err := p.pages.Process(gctx, pdf, i)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
		images = append(images, r.Images...)
		captions = append(captions, r.Captions...)
	}

	chunks, err = p.chunker.Chunk(strings.Join(texts, "\n"))
	if err != nil {
		return nil, nil, nil, err
	}
	return chunks, captions, images, nil
}

func (p *DocumentProcessor) extractImage(ctx context.Context, doc models.Document) (chunks, captions []string, err error) {
	data, err := os.ReadFile(doc.LocalPath)
	if err != nil {
		return nil, nil, err
	}
	img, err := loadImageAsset(ctx, p.pool, doc.ObjectName, data)
	if err != nil {
		return nil, nil, err
	}

	c, err := p.classifier.Classify(ctx, img)
	if err != nil {
		return nil, nil, err
	}
	if c.NeedsOCR {
		chunks, err = p.chunker.Chunk(c.Text)
		return chunks, nil, err
	}
	return nil, []string{c.Text}, nil
}

func (p *DocumentProcessor) extractText(ctx context.Context, doc models.Document) ([]string, error) {
	text, err := p.texts.ExtractText(ctx, doc.LocalPath)
	if err != nil {
		return nil, err
	}
	return p.chunker.Chunk(text)
}

// IsSkippable reports errors that concern the input rather than the system.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrUnsupportedFileKind) || errors.Is(err, models.ErrInvalidWorkItem)
}
