/**
 * Document extractor
 *
 * Drives page rasterization across a document, invokes the page extractor
 * per page and aggregates results. Failures never cross the boundary as
 * errors: a document that cannot be parsed yields a zero-page result with an
 * error message, and a page that fails to rasterize or OCR is logged and
 * skipped without aborting the rest of the document.
 */

package extract

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/docforge/extractd/internal/pdf"
)

// EmptyDocumentMessage is the sentinel for documents with zero pages.
const EmptyDocumentMessage = "EMPTY_DOCUMENT"

// DocumentConfig holds document extraction configuration.
type DocumentConfig struct {
	// MaxPages caps pages processed per document; extra pages are silently
	// truncated to bound latency and memory.
	MaxPages int
	ZoomX    float64
	ZoomY    float64
}

// DocumentExtractor extracts every page of a paged document.
type DocumentExtractor struct {
	opener pdf.Opener
	pages  *PageExtractor
	cfg    DocumentConfig
	logger *zap.Logger
}

// NewDocumentExtractor builds a document extractor.
func NewDocumentExtractor(opener pdf.Opener, pages *PageExtractor, cfg DocumentConfig, logger *zap.Logger) *DocumentExtractor {
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 20
	}
	if cfg.ZoomX <= 0 {
		cfg.ZoomX = 1
	}
	if cfg.ZoomY <= 0 {
		cfg.ZoomY = 1
	}
	return &DocumentExtractor{
		opener: opener,
		pages:  pages,
		cfg:    cfg,
		logger: logger,
	}
}

// ExtractDocument opens the byte buffer as a paged document and extracts
// pages in order up to the page cap. It never returns an error; failure is
// carried in the result's ErrorMessage.
func (e *DocumentExtractor) ExtractDocument(ctx context.Context, data []byte, relativePath string) DocumentResult {
	start := time.Now()
	log := e.logger.With(zap.String("document", relativePath))

	doc, err := e.opener.Open(data)
	if err != nil {
		log.Error("failed to open document", zap.Error(err))
		return FailedDocumentResult(fmt.Sprintf("Failed to parse document: %v", err))
	}
	defer doc.Close()

	pageCount := doc.PageCount()
	if pageCount == 0 {
		log.Warn("document has no pages")
		return FailedDocumentResult(EmptyDocumentMessage)
	}

	limit := pageCount
	if limit > e.cfg.MaxPages {
		log.Debug("truncating document to page cap",
			zap.Int("pages", pageCount),
			zap.Int("max_pages", e.cfg.MaxPages),
		)
		limit = e.cfg.MaxPages
	}

	result := EmptyDocumentResult()
	for page := 1; page <= limit; page++ {
		img, err := doc.RenderPage(page, e.cfg.ZoomX, e.cfg.ZoomY)
		if err != nil {
			log.Error("failed to rasterize page, skipping",
				zap.Int("page", page),
				zap.Error(err),
			)
			continue
		}

		pageResult, err := e.pages.ExtractPage(ctx, img)
		if err != nil {
			log.Error("failed to extract page, skipping",
				zap.Int("page", page),
				zap.Error(err),
			)
			continue
		}

		result.Pages = append(result.Pages, pageResult)
		result.Rotations = append(result.Rotations, pageResult.Rotation)
	}

	// A dead context fails every remaining page the same way; mark the
	// result so callers can tell a truncated document from a blank one.
	if ctx.Err() != nil {
		log.Warn("document processing deadline expired",
			zap.Int("pages_extracted", len(result.Pages)),
			zap.Error(ctx.Err()),
		)
		result.ErrorMessage = "Document processing timed out."
	}

	log.Info("document extraction finished",
		zap.Int("pages_total", pageCount),
		zap.Int("pages_extracted", len(result.Pages)),
		zap.Duration("extract_time", time.Since(start)),
	)
	return result
}
