/**
 * Per-document pipeline
 *
 * Turns a document reference into an extraction result by resolving the
 * storage location to a fetchable URL, downloading the bytes and running
 * document extraction. Every failure mode collapses to an error entry so a
 * bad document never fails its batch.
 */

package orchestrator

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docforge/extractd/internal/extract"
	"github.com/docforge/extractd/internal/resolver"
)

const (
	// downloadFailedMessage is the sentinel recorded when the document
	// bytes could not be fetched after all retries.
	downloadFailedMessage = "Download failed."

	// unsupportedExtensionMessage is the sentinel recorded for documents
	// whose file type the service does not handle.
	unsupportedExtensionMessage = "UNSUPPORTED_FILE_EXTENSION"

	// resolveFailedMessage is the sentinel recorded when the storage
	// resolver could not produce a URL for the document.
	resolveFailedMessage = "Failed to resolve document location."
)

// Fetcher downloads document bytes from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// DocExtractor runs OCR extraction over raw document bytes.
type DocExtractor interface {
	ExtractDocument(ctx context.Context, data []byte, relativePath string) extract.DocumentResult
}

// Pipeline chains resolve, fetch and extract for one document.
type Pipeline struct {
	resolver  resolver.Resolver
	fetcher   Fetcher
	extractor DocExtractor
	timeout   time.Duration
	logger    *zap.Logger
}

// NewPipeline assembles the document pipeline. timeout bounds the work on a
// single document; zero means unbounded.
func NewPipeline(res resolver.Resolver, fetcher Fetcher, extractor DocExtractor, timeout time.Duration, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		resolver:  res,
		fetcher:   fetcher,
		extractor: extractor,
		timeout:   timeout,
		logger:    logger,
	}
}

// Process implements DocumentProcessor.
func (p *Pipeline) Process(ctx context.Context, ref DocumentRef) extract.DocumentResult {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	p.logger.Debug("processing document",
		zap.String("location", ref.Location),
		zap.String("relative_path", ref.RelativePath),
	)

	// Reject unknown file types before spending a download on them.
	ext := strings.ToLower(filepath.Ext(ref.RelativePath))
	if ext != ".pdf" {
		p.logger.Warn("unsupported file extension",
			zap.String("relative_path", ref.RelativePath),
			zap.String("extension", ext),
		)
		return extract.FailedDocumentResult(unsupportedExtensionMessage)
	}

	url, err := p.resolver.Resolve(ctx, ref.Location, ref.RelativePath)
	if err != nil {
		p.logger.Error("resolving document location failed",
			zap.String("location", ref.Location),
			zap.String("relative_path", ref.RelativePath),
			zap.Error(err),
		)
		return extract.FailedDocumentResult(resolveFailedMessage)
	}

	data, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		p.logger.Error("document download failed",
			zap.String("relative_path", ref.RelativePath),
			zap.Error(err),
		)
		return extract.FailedDocumentResult(downloadFailedMessage)
	}

	result := p.extractor.ExtractDocument(ctx, data, ref.RelativePath)
	p.logger.Debug("document processed",
		zap.String("relative_path", ref.RelativePath),
		zap.Duration("document_time", time.Since(start)),
	)
	return result
}
