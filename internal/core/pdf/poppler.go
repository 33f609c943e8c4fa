// Package pdf decomposes PDFs into per-page text and embedded images using the
// poppler command-line tools (pdfinfo, pdftotext, pdfimages).
package pdf

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/markdave123-py/flowllm/internal/core"
	"github.com/markdave123-py/flowllm/internal/models"
)

// ErrNoPages is returned when pdfinfo reports no pages.
var ErrNoPages = errors.New("pdf has no pages")

var _ core.PDFOpener = (*PopplerOpener)(nil)

// PopplerOpener opens PDFs through poppler-utils.
type PopplerOpener struct {
	runner  CommandRunner
	workDir string
}

// NewPopplerOpener creates an opener. Extracted images are staged under workDir
// (os.TempDir() when empty).
func NewPopplerOpener(runner CommandRunner, workDir string) *PopplerOpener {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &PopplerOpener{runner: runner, workDir: workDir}
}

// Open reads the page count and prepares a scratch directory for images.
func (o *PopplerOpener) Open(ctx context.Context, path string) (core.PDFDocument, error) {
	out, err := o.runner.Run(ctx, "pdfinfo", path)
	if err != nil {
		return nil, fmt.Errorf("pdfinfo: %w", err)
	}
	pages, err := parsePageCount(out)
	if err != nil {
		return nil, err
	}

	scratch, err := os.MkdirTemp(o.workDir, "pdfimages-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	return &popplerDocument{
		runner:  o.runner,
		path:    path,
		pages:   pages,
		scratch: scratch,
	}, nil
}

type popplerDocument struct {
	runner  CommandRunner
	path    string
	pages   int
	scratch string
}

func (d *popplerDocument) NumPages() int { return d.pages }

// PageText returns the native text of a zero-based page.
func (d *popplerDocument) PageText(ctx context.Context, page int) (string, error) {
	if err := d.checkPage(page); err != nil {
		return "", err
	}
	n := strconv.Itoa(page + 1)
	out, err := d.runner.Run(ctx, "pdftotext", "-f", n, "-l", n, "-enc", "UTF-8", d.path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext page %d: %w", page, err)
	}
	// pdftotext terminates every page with a form feed.
	return strings.TrimRight(string(out), "\f"), nil
}

// PageImages extracts the embedded images of a zero-based page as PNGs, in
// the order poppler encounters them.
func (d *popplerDocument) PageImages(ctx context.Context, page int) ([]models.ImageAsset, error) {
	if err := d.checkPage(page); err != nil {
		return nil, err
	}
	n := strconv.Itoa(page + 1)
	dir := filepath.Join(d.scratch, "p"+n)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create page dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if _, err := d.runner.Run(ctx, "pdfimages", "-f", n, "-l", n, "-png", d.path, filepath.Join(dir, "img")); err != nil {
		return nil, fmt.Errorf("pdfimages page %d: %w", page, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read page images: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".png") {
			names = append(names, e.Name())
		}
	}
	// pdfimages numbers files img-000.png, img-001.png, ... in encounter order;
	// the counter widens past 999, so shorter names sort first.
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) < len(names[j])
		}
		return names[i] < names[j]
	})

	images := make([]models.ImageAsset, 0, len(names))
	for i, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		images = append(images, models.ImageAsset{
			Data:    data,
			Format:  "png",
			Page:    page,
			Ordinal: i,
		})
	}
	return images, nil
}

func (d *popplerDocument) Close() error {
	return os.RemoveAll(d.scratch)
}

func (d *popplerDocument) checkPage(page int) error {
	if page < 0 || page >= d.pages {
		return fmt.Errorf("page %d out of range [0,%d)", page, d.pages)
	}
	return nil
}

// parsePageCount reads the "Pages:" line of pdfinfo output.
func parsePageCount(out []byte) (int, error) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
		if err != nil {
			return 0, fmt.Errorf("parse page count %q: %w", line, err)
		}
		if n <= 0 {
			return 0, ErrNoPages
		}
		return n, nil
	}
	return 0, fmt.Errorf("pdfinfo: no page count in output")
}
