package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/models"
)

// img builds an image asset whose bytes double as its identity in the fakes.
func img(name string) models.ImageAsset {
	return models.ImageAsset{Data: []byte(name), Format: "png"}
}

// ocrText returns n non-whitespace characters spread over words and lines.
func ocrText(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(byte('a' + i%26))
		if i%10 == 9 {
			b.WriteString(" \n\t")
		}
	}
	return b.String()
}

// testOCR returns per-image text keyed by the image bytes.
type testOCR struct {
	texts map[string]string
	fail  map[string]error
	calls atomic.Int32
}

func (o *testOCR) Recognize(_ context.Context, img models.ImageAsset) (string, error) {
	o.calls.Add(1)
	if err := o.fail[string(img.Data)]; err != nil {
		return "", err
	}
	return o.texts[string(img.Data)], nil
}

// testVision echoes the image identity so tests can trace where output came from.
type testVision struct {
	captionErr error
	correctErr error
	corrected  atomic.Int32
	captioned  atomic.Int32
}

func (v *testVision) CorrectText(_ context.Context, img models.ImageAsset, _ string) (core.Correction, error) {
	v.corrected.Add(1)
	if v.correctErr != nil {
		return core.Correction{}, v.correctErr
	}
	return core.Correction{
		CleanedText: "text of " + string(img.Data),
		Caption:     "scan " + string(img.Data),
	}, nil
}

func (v *testVision) Caption(_ context.Context, img models.ImageAsset) (string, error) {
	v.captioned.Add(1)
	if v.captionErr != nil {
		return "", v.captionErr
	}
	return "caption of " + string(img.Data), nil
}

// testEmbedder returns a one-element vector holding the text's position.
type testEmbedder struct {
	mu       sync.Mutex
	calls    [][]string
	purposes []core.EmbeddingPurpose
	err      error
	drop     int            // vectors to drop from the end of the result
	started  chan struct{}  // closed on the first call, when set
	release  <-chan struct{} // call blocks until closed, when set
}

func (e *testEmbedder) EmbedTexts(ctx context.Context, texts []string, purpose core.EmbeddingPurpose) ([][]float32, error) {
	e.mu.Lock()
	e.calls = append(e.calls, append([]string(nil), texts...))
	e.purposes = append(e.purposes, purpose)
	e.mu.Unlock()

	if e.started != nil {
		close(e.started)
	}
	if e.release != nil {
		select {
		case <-e.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, 0, len(texts))
	for i := range texts[:len(texts)-e.drop] {
		out = append(out, []float32{float32(i)})
	}
	return out, nil
}

func (e *testEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

type upload struct {
	bucket      string
	key         string
	data        string
	contentType string
}

// testObjects serves downloads from memory and records uploads.
type testObjects struct {
	mu        sync.Mutex
	files     map[string][]byte // key -> content
	uploads   []upload
	uploadErr error
	downloads []string

	inFlight atomic.Int32
	maxSeen  atomic.Int32
	started  chan struct{}   // closed on the first upload, when set
	release  <-chan struct{} // uploads block until closed, when set
	once     sync.Once
}

func (o *testObjects) DownloadFile(_ context.Context, bucket, key, dest string) error {
	o.mu.Lock()
	o.downloads = append(o.downloads, bucket+"/"+key)
	data, ok := o.files[key]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("no such key %s", key)
	}
	return os.WriteFile(dest, data, 0o600)
}

func (o *testObjects) UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	n := o.inFlight.Add(1)
	defer o.inFlight.Add(-1)
	for {
		m := o.maxSeen.Load()
		if n <= m || o.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	if o.started != nil {
		o.once.Do(func() { close(o.started) })
	}
	if o.release != nil {
		select {
		case <-o.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if o.uploadErr != nil {
		return "", o.uploadErr
	}

	o.mu.Lock()
	o.uploads = append(o.uploads, upload{bucket: bucket, key: key, data: string(data), contentType: contentType})
	o.mu.Unlock()
	return "mem://" + bucket + "/" + key, nil
}

func (o *testObjects) uploadedKeys() map[string]string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]string, len(o.uploads))
	for _, u := range o.uploads {
		out[u.key] = u.data
	}
	return out
}

// testStore records committed batches.
type testStore struct {
	mu      sync.Mutex
	batches map[string][]models.VectorRecord
	calls   int
	err     error
}

func (s *testStore) Upsert(_ context.Context, namespace string, records []models.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	if s.batches == nil {
		s.batches = map[string][]models.VectorRecord{}
	}
	s.batches[namespace] = append(s.batches[namespace], records...)
	return nil
}

func (s *testStore) Close() error { return nil }

func (s *testStore) committed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

type testPage struct {
	text   string
	images []models.ImageAsset
}

// testPDF is an in-memory PDF; the opener hands it out for any path.
type testPDF struct {
	pages  []testPage
	closed atomic.Bool
}

func (p *testPDF) Open(context.Context, string) (core.PDFDocument, error) { return p, nil }

func (p *testPDF) NumPages() int { return len(p.pages) }

func (p *testPDF) PageText(_ context.Context, page int) (string, error) {
	if page < 0 || page >= len(p.pages) {
		return "", errors.New("page out of range")
	}
	return p.pages[page].text, nil
}

func (p *testPDF) PageImages(_ context.Context, page int) ([]models.ImageAsset, error) {
	if page < 0 || page >= len(p.pages) {
		return nil, errors.New("page out of range")
	}
	out := make([]models.ImageAsset, len(p.pages[page].images))
	for i, im := range p.pages[page].images {
		im.Page = page
		im.Ordinal = i
		out[i] = im
	}
	return out, nil
}

func (p *testPDF) Close() error {
	p.closed.Store(true)
	return nil
}

// cyclic returns n letters with no separators the chunker could split on.
func cyclic(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('a' + i%26)
	}
	return string(b)
}
