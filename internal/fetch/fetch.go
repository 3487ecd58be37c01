/**
 * Resilient file fetcher
 *
 * Downloads document bytes over HTTP with a bounded connect timeout, a
 * longer read timeout and fixed-delay retries. Any transport failure or
 * non-2xx status counts as a failed attempt. Exhausting the retry budget
 * yields a FetchError the caller must treat as a per-document failure,
 * never as fatal to the batch.
 */

package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/docforge/extractd/internal/errs"
)

// Config holds fetcher configuration.
type Config struct {
	// Retries is the total number of attempts (default 10).
	Retries int
	// RetryDelay is the fixed wait between attempts (default 2s).
	RetryDelay time.Duration
	// ConnectTimeout bounds connection establishment (default 5s).
	ConnectTimeout time.Duration
	// ReadTimeout bounds the whole request including the body (default 30s).
	ReadTimeout time.Duration
	// MaxBytes caps the response size; <= 0 means 1GB.
	MaxBytes int64
	// VerifyTLS controls certificate validation. The original deployment
	// ran with verification disabled; default here is verified.
	VerifyTLS bool
}

// Client downloads files with retry and backoff.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds a fetcher from config, applying defaults for zero values.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Retries < 1 {
		cfg.Retries = 10
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 1 << 30
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		TLSHandshakeTimeout: cfg.ConnectTimeout,
	}
	if !cfg.VerifyTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.ReadTimeout,
		},
		logger: logger,
	}
}

// Fetch downloads the file at url, fully buffered. On persistent failure the
// returned error unwraps to *errs.Error with code FETCH_FAILED carrying the
// last attempt's cause.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	var lastErr error

	for attempt := 1; attempt <= c.cfg.Retries; attempt++ {
		c.logger.Debug("starting download attempt",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("retries", c.cfg.Retries),
		)

		data, err := c.fetchOnce(ctx, url)
		if err == nil {
			c.logger.Info("download finished",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Int("bytes", len(data)),
				zap.Duration("download_time", time.Since(start)),
			)
			return data, nil
		}

		lastErr = err
		c.logger.Error("download attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("retries", c.cfg.Retries),
			zap.Error(err),
		)

		if attempt < c.cfg.Retries {
			select {
			case <-time.After(c.cfg.RetryDelay):
			case <-ctx.Done():
				return nil, errs.NewFetchError(url, attempt, ctx.Err())
			}
		}
	}

	c.logger.Error("download failed after all attempts",
		zap.String("url", url),
		zap.Int("retries", c.cfg.Retries),
		zap.Error(lastErr),
	)
	return nil, errs.NewFetchError(url, c.cfg.Retries, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4096)
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	if resp.ContentLength > c.cfg.MaxBytes {
		return nil, fmt.Errorf("file size exceeds maximum: %d > %d bytes", resp.ContentLength, c.cfg.MaxBytes)
	}

	// Stream the body, but the result stays fully buffered; the guard keeps
	// lying Content-Length headers from exhausting memory.
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > c.cfg.MaxBytes {
		return nil, fmt.Errorf("file size exceeds maximum: %d bytes", c.cfg.MaxBytes)
	}

	return data, nil
}
