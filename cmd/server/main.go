/**
 * extractd - Main Entry Point
 *
 * HTTP service for asynchronous batch OCR document extraction.
 *
 * Architecture:
 * - chi HTTP server with a submit/poll batch contract
 * - Single-consumer FIFO orchestrator with an in-memory job table
 * - Per-document pipeline: resolve storage URL, download, rasterize, OCR
 * - Tesseract OCR with automatic page rotation correction
 * - MuPDF page rasterization
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/docforge/extractd/internal/config"
	"github.com/docforge/extractd/internal/extract"
	"github.com/docforge/extractd/internal/fetch"
	"github.com/docforge/extractd/internal/ocr"
	"github.com/docforge/extractd/internal/orchestrator"
	"github.com/docforge/extractd/internal/pdf"
	"github.com/docforge/extractd/internal/resolver"
	"github.com/docforge/extractd/internal/server"
	"github.com/docforge/extractd/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, cfg.LogDevelopment); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.Get()
	defer logger.Sync()

	log.Info("extractd starting",
		zap.String("ocr_language", cfg.OCRLanguage),
		zap.Int("max_pages", cfg.MaxPages),
		zap.String("output_format", string(cfg.OutputFormat)),
		zap.String("listen", fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)),
	)

	engine, err := ocr.NewTesseractEngine(ocr.TesseractConfig{
		Language:        cfg.OCRLanguage,
		DetLimitSideLen: cfg.DetLimitSideLen,
		DetUnclipRatio:  cfg.DetUnclipRatio,
	})
	if err != nil {
		log.Fatal("failed to initialize OCR engine", zap.Error(err))
	}

	pages := extract.NewPageExtractor(engine, extract.PageConfig{
		OutputFormat:          cfg.OutputFormat,
		SimpleOutputThreshold: cfg.SimpleOutputThreshold,
	}, log)

	documents := extract.NewDocumentExtractor(pdf.NewMuPDFOpener(log), pages, extract.DocumentConfig{
		MaxPages: cfg.MaxPages,
		ZoomX:    cfg.ZoomX,
		ZoomY:    cfg.ZoomY,
	}, log)

	fetcher := fetch.NewClient(fetch.Config{
		Retries:        cfg.DownloadRetries,
		RetryDelay:     cfg.DownloadRetryDelay,
		ConnectTimeout: cfg.DownloadConnectTimeout,
		ReadTimeout:    cfg.DownloadReadTimeout,
		MaxBytes:       cfg.MaxDownloadBytes,
		VerifyTLS:      cfg.VerifyTLS,
	}, log)

	var res resolver.Resolver = resolver.Passthrough{}
	if cfg.ResolverDSN != "" {
		sqlRes, err := resolver.NewSQLResolver(cfg.ResolverDriver, cfg.ResolverDSN, log)
		if err != nil {
			log.Fatal("failed to connect to storage resolver", zap.Error(err))
		}
		defer sqlRes.Close()
		res = sqlRes
		log.Info("storage resolver connected", zap.String("driver", cfg.ResolverDriver))
	} else {
		log.Info("no resolver configured, treating locations as direct URLs")
	}

	pipeline := orchestrator.NewPipeline(res, fetcher, documents, cfg.DocumentTimeout, log)

	orch := orchestrator.New(pipeline, orchestrator.Config{
		QueueSize: cfg.QueueSize,
		JobTTL:    cfg.JobTTL,
	}, log)
	orch.Start()

	handler := server.NewHandler(orch, cfg.BatchIDHeader, log)
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigChan
	log.Info("shutdown signal received", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}

	orch.Stop()
	log.Info("shutdown complete")
}
