/**
 * Page extractor with rotation correction
 *
 * Runs OCR on the page as rendered, and when the mean box confidence is
 * unconvincing, retries under candidate rotations and keeps the best-scoring
 * orientation. Most pages are upright, so the unrotated baseline gets a small
 * confidence bonus and a fast path that skips the rotated attempts entirely.
 */

package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/docforge/extractd/internal/config"
	"github.com/docforge/extractd/internal/ocr"
)

const (
	// uprightBonus is added to the baseline score only; rotated candidates
	// compete without it.
	uprightBonus = 0.05
	// fastPathScore is the baseline score at which rotations are not tried.
	fastPathScore = 0.9
)

// rotationsToTry is the fixed candidate order, degrees clockwise.
var rotationsToTry = [...]int{90, 180, 270}

// PageConfig holds page extraction configuration.
type PageConfig struct {
	OutputFormat          config.OutputFormat
	SimpleOutputThreshold float64
}

// PageExtractor applies the rotation-correction heuristic to one page raster.
type PageExtractor struct {
	engine ocr.Engine
	cfg    PageConfig
	logger *zap.Logger
}

// NewPageExtractor builds a page extractor over the given OCR engine.
func NewPageExtractor(engine ocr.Engine, cfg PageConfig, logger *zap.Logger) *PageExtractor {
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = config.OutputFull
	}
	return &PageExtractor{
		engine: engine,
		cfg:    cfg,
		logger: logger,
	}
}

type candidate struct {
	score    float64
	count    int
	boxes    []ocr.Box
	rotation int
}

// ExtractPage runs OCR with rotation correction and returns the winning
// result. An error means the baseline OCR call itself failed; a page with no
// detections under any orientation is a valid, empty result.
func (e *PageExtractor) ExtractPage(ctx context.Context, img ocr.Image) (PageResult, error) {
	start := time.Now()

	boxes, err := e.engine.Recognize(ctx, img)
	if err != nil {
		return PageResult{}, fmt.Errorf("baseline OCR: %w", err)
	}

	best := candidate{boxes: boxes, count: len(boxes)}
	if len(boxes) > 0 {
		best.score = meanConfidence(boxes) + uprightBonus
	}

	if best.score < fastPathScore {
		for _, angle := range rotationsToTry {
			rotated := rotate(img, angle)

			rBoxes, rErr := e.engine.Recognize(ctx, rotated)
			var rScore float64
			var rCount int
			if rErr != nil {
				// One bad rotation attempt must not sink the page.
				e.logger.Error("rotated OCR attempt failed",
					zap.Int("rotation", angle),
					zap.Error(rErr),
				)
			} else if len(rBoxes) > 0 {
				rScore = meanConfidence(rBoxes)
				rCount = len(rBoxes)
			}

			// A rotation wins only when it is strictly more confident on
			// average and does not detect fewer regions.
			if rScore > best.score && rCount >= best.count {
				best = candidate{score: rScore, count: rCount, boxes: rBoxes, rotation: angle}
			}
		}
	}

	e.logger.Debug("page OCR finished",
		zap.Int("rotation", best.rotation),
		zap.Int("boxes", best.count),
		zap.Float64("score", best.score),
		zap.Duration("ocr_time", time.Since(start)),
	)

	return e.buildResult(best), nil
}

func (e *PageExtractor) buildResult(best candidate) PageResult {
	if e.cfg.OutputFormat == config.OutputSimple {
		return PageResult{
			Rotation: best.rotation,
			Text:     collapseBoxes(best.boxes, e.cfg.SimpleOutputThreshold),
			Simple:   true,
		}
	}

	boxes := best.boxes
	if boxes == nil {
		boxes = []ocr.Box{}
	}
	return PageResult{
		Rotation: best.rotation,
		Boxes:    boxes,
	}
}

func meanConfidence(boxes []ocr.Box) float64 {
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes))
}

// collapseBoxes joins the text of boxes above the confidence threshold,
// space-separated, in original box order.
func collapseBoxes(boxes []ocr.Box, threshold float64) string {
	parts := make([]string, 0, len(boxes))
	for _, b := range boxes {
		if b.Confidence > threshold {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, " ")
}
