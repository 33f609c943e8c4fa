package ingestion_engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/core/workerpool"
	"github.com/markdave123-py/flowllm/internal/models"
)

type harness struct {
	objects  *testObjects
	store    *testStore
	embedder *testEmbedder
	vision   *testVision
	ocr      *testOCR
	pdf      *testPDF
	cfg      *IngestConfig
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := DefaultIngestConfig()
	cfg.WorkDir = t.TempDir()
	return &harness{
		objects:  &testObjects{files: map[string][]byte{}},
		store:    &testStore{},
		embedder: &testEmbedder{},
		vision:   &testVision{},
		ocr:      &testOCR{texts: map[string]string{}},
		pdf:      &testPDF{},
		cfg:      cfg,
	}
}

func (h *harness) processor(t *testing.T) *DocumentProcessor {
	t.Helper()
	pool, err := workerpool.New(2)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	return NewDocumentProcessor(Dependencies{
		Objects:  h.objects,
		Store:    h.store,
		Embedder: h.embedder,
		Vision:   h.vision,
		OCR:      h.ocr,
		PDFs:     h.pdf,
		Texts:    NewDocconvExtractor(false),
		Pool:     pool,
	}, h.cfg)
}

// workDirEmpty checks that no working copy survived processing.
func (h *harness) workDirEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.cfg.WorkDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func threePagePDF() *testPDF {
	return &testPDF{pages: []testPage{
		{text: "Page one introduces the quarterly results."},
		{text: "Page two shows revenue by region.", images: []models.ImageAsset{img("chart")}},
		{text: "Page three lists next steps."},
	}}
}

func TestProcess_ThreePagePDFWithOneCaptionedImage(t *testing.T) {
	h := newHarness(t)
	h.pdf = threePagePDF()
	h.objects.files["user-1/f1/report.pdf"] = []byte("%PDF")
	h.ocr.texts["chart"] = "Q1 Q2"

	out, err := h.processor(t).ProcessObject(context.Background(), "user-1/f1/report.pdf", "user-1")
	require.NoError(t, err)

	records := h.store.batches["user-1"]
	require.NotEmpty(t, records)
	n := len(records) - 1 // body chunks

	assert.Equal(t, len(records), out.Records)
	assert.Equal(t, 1, out.Uploaded)
	assert.Equal(t, 1, h.embedder.callCount())
	assert.Len(t, h.embedder.calls[0], len(records))

	for i, r := range records[:n] {
		assert.Equal(t, RecordID("user-1/f1/report", i), r.ID)
		assert.NotContains(t, r.Metadata, models.MetaImagePath)
	}
	caption := records[n]
	assert.Equal(t, RecordID("user-1/f1/report", n), caption.ID)
	assert.Equal(t, "caption of chart", caption.Metadata[models.MetaText])
	assert.Equal(t, "user-1/f1/report/image0.png", caption.Metadata[models.MetaImagePath])
	assert.Equal(t, "report.pdf", caption.Metadata[models.MetaObjectName])

	body := ""
	for _, r := range records[:n] {
		body += r.Metadata[models.MetaText]
	}
	assert.Contains(t, body, "quarterly results")
	assert.Contains(t, body, "next steps")

	assert.Equal(t, map[string]string{"user-1/f1/report/image0.png": "chart"}, h.objects.uploadedKeys())
	assert.Equal(t, h.cfg.ImageBucket, h.objects.uploads[0].bucket)
	assert.True(t, h.pdf.closed.Load())
	h.workDirEmpty(t)
}

func TestProcess_SameFileNameNeverSharesIDsOrImageKeys(t *testing.T) {
	h := newHarness(t)
	h.pdf = threePagePDF()
	h.objects.files["alice/f1/report.pdf"] = []byte("%PDF")
	h.objects.files["bob/f9/report.pdf"] = []byte("%PDF")
	h.objects.files["bob/f2/report.txt"] = []byte("Bob's plain notes.")
	proc := h.processor(t)

	alice, err := proc.ProcessObject(context.Background(), "alice/f1/report.pdf", "alice")
	require.NoError(t, err)
	bob, err := proc.ProcessObject(context.Background(), "bob/f9/report.pdf", "bob")
	require.NoError(t, err)
	notes, err := proc.ProcessObject(context.Background(), "bob/f2/report.txt", "bob")
	require.NoError(t, err)

	assert.Equal(t, "alice/f1/report", alice.DocumentID)
	assert.Equal(t, "bob/f9/report", bob.DocumentID)
	assert.Equal(t, "bob/f2/report", notes.DocumentID)

	seen := map[string]bool{}
	for _, ns := range []string{"alice", "bob"} {
		for _, r := range h.store.batches[ns] {
			assert.False(t, seen[r.ID], "id %s committed twice", r.ID)
			seen[r.ID] = true
		}
	}

	require.Len(t, h.objects.uploads, 2)
	assert.Equal(t, map[string]string{
		"alice/f1/report/image0.png": "chart",
		"bob/f9/report/image0.png":   "chart",
	}, h.objects.uploadedKeys())
}

func TestProcess_PlainText1600Chars(t *testing.T) {
	h := newHarness(t)
	text := cyclic(1600)
	h.objects.files["u/f/notes.txt"] = []byte(text)

	out, err := h.processor(t).Process(context.Background(), models.WorkItem{
		FileURL: "https://cdn.example.com/f/notes.txt",
		UserID:  "u",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out.Records)
	assert.Equal(t, models.FileKindText, out.Kind)

	records := h.store.batches["u"]
	require.Len(t, records, 3)
	assert.Equal(t, text[:800], records[0].Metadata[models.MetaText])
	assert.Equal(t, text[750:1550], records[1].Metadata[models.MetaText])
	assert.Equal(t, text[1500:], records[2].Metadata[models.MetaText])
	assert.Equal(t, []string{h.cfg.DocumentBucket + "/u/f/notes.txt"}, h.objects.downloads)
	h.workDirEmpty(t)
}

func TestProcess_ImageDocument(t *testing.T) {
	t.Run("caption", func(t *testing.T) {
		h := newHarness(t)
		h.objects.files["u/f/photo.png"] = []byte("photo")
		h.ocr.texts["photo"] = "tiny"

		out, err := h.processor(t).ProcessObject(context.Background(), "u/f/photo.png", "u")
		require.NoError(t, err)
		assert.Equal(t, 1, out.Records)
		assert.Zero(t, out.Uploaded)

		r := h.store.batches["u"][0]
		assert.Equal(t, "u/f/photo_0", r.ID)
		assert.Equal(t, "caption of photo", r.Metadata[models.MetaText])
		assert.Equal(t, "u/f/photo.png", r.Metadata[models.MetaImagePath])
		assert.Empty(t, h.objects.uploads)
	})

	t.Run("ocr", func(t *testing.T) {
		h := newHarness(t)
		h.objects.files["u/f/scan.jpg"] = []byte("scan")
		h.ocr.texts["scan"] = ocrText(500)

		out, err := h.processor(t).ProcessObject(context.Background(), "u/f/scan.jpg", "u")
		require.NoError(t, err)
		require.Equal(t, 1, out.Records)

		r := h.store.batches["u"][0]
		assert.Equal(t, "IMAGE CAPTION: scan scan\nIMAGE TEXT: text of scan", r.Metadata[models.MetaText])
		assert.NotContains(t, r.Metadata, models.MetaImagePath)
		assert.Zero(t, h.vision.captioned.Load())
	})
}

func TestProcess_GIFIsNormalizedToPNG(t *testing.T) {
	src := image.NewPaletted(image.Rect(0, 0, 2, 2), []color.Color{color.White, color.Black})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, src, nil))

	h := newHarness(t)
	h.objects.files["u/f/anim.gif"] = buf.Bytes()
	var seen models.ImageAsset
	proc := h.processor(t)
	proc.classifier.ocr = recordingOCR{seen: &seen}

	_, err := proc.ProcessObject(context.Background(), "u/f/anim.gif", "u")
	require.NoError(t, err)
	assert.Equal(t, "png", seen.Format)
	assert.Equal(t, []byte("\x89PNG"), seen.Data[:4])
}

type recordingOCR struct{ seen *models.ImageAsset }

func (r recordingOCR) Recognize(_ context.Context, img models.ImageAsset) (string, error) {
	*r.seen = img
	return "", nil
}

func TestProcess_UnsupportedKindIsSkipped(t *testing.T) {
	h := newHarness(t)
	out, err := h.processor(t).ProcessObject(context.Background(), "u/f/archive.zip", "u")
	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Empty(t, h.objects.downloads)
	assert.Zero(t, h.store.calls)
}

func TestProcess_EmptyDocumentCommitsNothing(t *testing.T) {
	h := newHarness(t)
	h.objects.files["u/f/blank.txt"] = []byte("  \n\n ")

	out, err := h.processor(t).ProcessObject(context.Background(), "u/f/blank.txt", "u")
	require.NoError(t, err)
	assert.Zero(t, out.Records)
	assert.Zero(t, h.embedder.callCount())
	assert.Zero(t, h.store.calls)
	h.workDirEmpty(t)
}

func TestProcess_FailureInjectionCommitsNothing(t *testing.T) {
	boom := errors.New("injected")

	tests := []struct {
		name  string
		stage Stage
		setup func(h *harness)
	}{
		{
			name:  "classifier failure on one image",
			stage: StageExtracting,
			setup: func(h *harness) {
				h.pdf = &testPDF{pages: []testPage{
					{text: "intro"},
					{text: "body", images: []models.ImageAsset{img("ok0"), img("bad"), img("ok2")}},
				}}
				h.ocr.fail = map[string]error{"bad": boom}
			},
		},
		{
			name:  "upload failure",
			stage: StageUploading,
			setup: func(h *harness) {
				h.pdf = threePagePDF()
				h.objects.uploadErr = boom
			},
		},
		{
			name:  "embedding failure",
			stage: StageEmbedding,
			setup: func(h *harness) {
				h.pdf = threePagePDF()
				h.embedder.err = boom
			},
		},
		{
			name:  "vector store failure",
			stage: StageCommitting,
			setup: func(h *harness) {
				h.pdf = threePagePDF()
				h.store.err = boom
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.objects.files["u/f/report.pdf"] = []byte("%PDF")
			tt.setup(h)

			_, err := h.processor(t).ProcessObject(context.Background(), "u/f/report.pdf", "u")
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)

			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.stage, se.Stage)
			assert.Equal(t, "u/f/report", se.DocumentID)

			assert.Zero(t, h.store.committed())
			h.workDirEmpty(t)
		})
	}
}

func TestProcess_DownloadFailure(t *testing.T) {
	h := newHarness(t)
	_, err := h.processor(t).ProcessObject(context.Background(), "u/f/missing.pdf", "u")

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageDownloading, se.Stage)
	h.workDirEmpty(t)
}

func TestProcess_InvalidWorkItem(t *testing.T) {
	h := newHarness(t)
	_, err := h.processor(t).Process(context.Background(), models.WorkItem{FileURL: "x.pdf"})
	assert.ErrorIs(t, err, models.ErrInvalidWorkItem)
	assert.True(t, IsSkippable(err))
}

// Uploading blocks until embedding has started and embedding blocks until
// uploading has started, so the document only completes if both run at once.
func TestVectorize_UploadAndEmbeddingRunConcurrently(t *testing.T) {
	uploadStarted := make(chan struct{})
	embedStarted := make(chan struct{})

	h := newHarness(t)
	h.pdf = threePagePDF()
	h.objects.files["u/f/report.pdf"] = []byte("%PDF")
	h.objects.started = uploadStarted
	h.objects.release = embedStarted
	h.embedder.started = embedStarted
	h.embedder.release = uploadStarted

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out, err := h.processor(t).ProcessObject(ctx, "u/f/report.pdf", "u")
	require.NoError(t, err)
	assert.Equal(t, 1, out.Uploaded)
	assert.Positive(t, out.Records)
}

func TestVectorize_UnsupportedKind(t *testing.T) {
	h := newHarness(t)
	_, err := h.processor(t).Vectorize(context.Background(), models.NewDocument("u/f/a.bin", "u"))
	assert.ErrorIs(t, err, ErrUnsupportedFileKind)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageDispatching, se.Stage)
}

var _ core.VectorStore = (*testStore)(nil)
