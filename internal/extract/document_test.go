package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/docforge/extractd/internal/ocr"
	"github.com/docforge/extractd/internal/pdf"
)

// fakeDocument serves a fixed page count and lets individual pages fail to
// rasterize.
type fakeDocument struct {
	pages      int
	failPages  map[int]bool
	rendered   []int
	closeCalls int
}

func (d *fakeDocument) PageCount() int { return d.pages }

func (d *fakeDocument) RenderPage(index int, zoomX, zoomY float64) (ocr.Image, error) {
	d.rendered = append(d.rendered, index)
	if d.failPages[index] {
		return ocr.Image{}, errors.New("render failed")
	}
	return ocr.NewImage(10, 10), nil
}

func (d *fakeDocument) Close() error {
	d.closeCalls++
	return nil
}

type fakeOpener struct {
	doc *fakeDocument
	err error
}

func (o fakeOpener) Open(data []byte) (pdf.Document, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

// steadyEngine always detects the same confident boxes, keeping every page
// on the fast path.
type steadyEngine struct {
	err error
}

func (e steadyEngine) Name() string { return "steady" }

func (e steadyEngine) Recognize(ctx context.Context, img ocr.Image) ([]ocr.Box, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []ocr.Box{{Text: "hello", Confidence: 0.95}}, nil
}

func newDocumentExtractor(t *testing.T, opener pdf.Opener, engine ocr.Engine, cfg DocumentConfig) *DocumentExtractor {
	t.Helper()
	logger := zaptest.NewLogger(t)
	pages := NewPageExtractor(engine, PageConfig{}, logger)
	return NewDocumentExtractor(opener, pages, cfg, logger)
}

func TestExtractDocumentHappyPath(t *testing.T) {
	doc := &fakeDocument{pages: 3}
	e := newDocumentExtractor(t, fakeOpener{doc: doc}, steadyEngine{}, DocumentConfig{MaxPages: 20})

	result := e.ExtractDocument(context.Background(), []byte("pdf"), "invoice.pdf")

	assert.Empty(t, result.ErrorMessage)
	assert.Len(t, result.Pages, 3)
	assert.Equal(t, []int{0, 0, 0}, result.Rotations)
	assert.Equal(t, []int{1, 2, 3}, doc.rendered)
	assert.Equal(t, 1, doc.closeCalls)
}

func TestExtractDocumentParseFailure(t *testing.T) {
	e := newDocumentExtractor(t, fakeOpener{err: errors.New("not a pdf")}, steadyEngine{}, DocumentConfig{})

	result := e.ExtractDocument(context.Background(), []byte("junk"), "junk.pdf")

	assert.Contains(t, result.ErrorMessage, "Failed to parse document")
	assert.Empty(t, result.Pages)
	assert.Empty(t, result.Rotations)
}

func TestExtractDocumentZeroPages(t *testing.T) {
	doc := &fakeDocument{pages: 0}
	e := newDocumentExtractor(t, fakeOpener{doc: doc}, steadyEngine{}, DocumentConfig{})

	result := e.ExtractDocument(context.Background(), []byte("pdf"), "empty.pdf")

	assert.Equal(t, EmptyDocumentMessage, result.ErrorMessage)
	assert.Empty(t, result.Pages)
}

func TestExtractDocumentRespectsPageCap(t *testing.T) {
	doc := &fakeDocument{pages: 50}
	e := newDocumentExtractor(t, fakeOpener{doc: doc}, steadyEngine{}, DocumentConfig{MaxPages: 4})

	result := e.ExtractDocument(context.Background(), []byte("pdf"), "long.pdf")

	require.Len(t, result.Pages, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, doc.rendered)
}

func TestExtractDocumentSkipsFailedPages(t *testing.T) {
	doc := &fakeDocument{pages: 3, failPages: map[int]bool{2: true}}
	e := newDocumentExtractor(t, fakeOpener{doc: doc}, steadyEngine{}, DocumentConfig{})

	result := e.ExtractDocument(context.Background(), []byte("pdf"), "partial.pdf")

	// Page 2 is dropped, pages 1 and 3 survive.
	assert.Empty(t, result.ErrorMessage)
	assert.Len(t, result.Pages, 2)
	assert.Len(t, result.Rotations, 2)
	assert.Equal(t, []int{1, 2, 3}, doc.rendered)
}

// expiringEngine delivers one good page, then cancels the context so every
// later OCR call fails on it.
type expiringEngine struct {
	cancel context.CancelFunc
	calls  int
}

func (e *expiringEngine) Name() string { return "expiring" }

func (e *expiringEngine) Recognize(ctx context.Context, img ocr.Image) ([]ocr.Box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.calls++
	defer e.cancel()
	return []ocr.Box{{Text: "hello", Confidence: 0.95}}, nil
}

func TestExtractDocumentReportsExpiredDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	doc := &fakeDocument{pages: 3}
	e := newDocumentExtractor(t, fakeOpener{doc: doc}, &expiringEngine{cancel: cancel}, DocumentConfig{})

	result := e.ExtractDocument(ctx, []byte("pdf"), "slow.pdf")

	// Page 1 made it through before the deadline; the result says why the
	// rest are missing.
	assert.Len(t, result.Pages, 1)
	assert.Len(t, result.Rotations, 1)
	assert.Equal(t, "Document processing timed out.", result.ErrorMessage)
}

func TestExtractDocumentSkipsPagesWithOCRFailure(t *testing.T) {
	doc := &fakeDocument{pages: 2}
	e := newDocumentExtractor(t, fakeOpener{doc: doc}, steadyEngine{err: errors.New("ocr down")}, DocumentConfig{})

	result := e.ExtractDocument(context.Background(), []byte("pdf"), "doc.pdf")

	// Every page failed OCR, but the document itself is not an error.
	assert.Empty(t, result.ErrorMessage)
	assert.Empty(t, result.Pages)
	assert.Empty(t, result.Rotations)
}
