/**
 * Presigned-URL resolution
 *
 * Document references arrive as (stage, relative path) pairs that must be
 * traded for short-lived fetchable URLs through the gateway's SQL function.
 * The resolver is an external collaborator from the extraction pipeline's
 * point of view; deployments without a DSN skip it and treat locations as
 * directly fetchable URLs.
 */

package resolver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Resolver maps a stage+path reference to a fetchable URL.
type Resolver interface {
	Resolve(ctx context.Context, stage, relativePath string) (string, error)
}

// Passthrough treats the location reference itself as the URL.
type Passthrough struct{}

func (Passthrough) Resolve(_ context.Context, stage, _ string) (string, error) {
	return stage, nil
}

// SQLResolver resolves presigned URLs through a GET_PRESIGNED_URL SQL
// function. The driver is registered by the caller (database/sql style).
type SQLResolver struct {
	db      *sql.DB
	logger  *zap.Logger
	timeout time.Duration
}

// NewSQLResolver opens the resolver connection and verifies it.
func NewSQLResolver(driver, dsn string, logger *zap.Logger) (*SQLResolver, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open resolver connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("resolver connection check failed: %w", err)
	}

	return &SQLResolver{
		db:      db,
		logger:  logger,
		timeout: 30 * time.Second,
	}, nil
}

// Resolve trades a stage+path reference for a presigned URL. The URL is
// short-lived, so it is resolved immediately before each download rather
// than ahead of the batch.
func (r *SQLResolver) Resolve(ctx context.Context, stage, relativePath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := fmt.Sprintf("SELECT GET_PRESIGNED_URL('%s','%s')", escapePath(stage), escapePath(relativePath))

	var url sql.NullString
	if err := r.db.QueryRowContext(ctx, query).Scan(&url); err != nil {
		return "", fmt.Errorf("resolve presigned URL for %s: %w", relativePath, err)
	}
	if !url.Valid || url.String == "" {
		return "", fmt.Errorf("no presigned URL returned for %s", relativePath)
	}

	r.logger.Debug("resolved presigned URL",
		zap.String("stage", stage),
		zap.String("relative_path", relativePath),
	)
	return url.String, nil
}

// Close releases the resolver connection.
func (r *SQLResolver) Close() error {
	return r.db.Close()
}

// escapePath escapes single quotes, which otherwise break the generated SQL.
func escapePath(path string) string {
	return strings.ReplaceAll(path, "'", `\'`)
}
