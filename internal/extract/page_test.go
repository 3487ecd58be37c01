package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/docforge/extractd/internal/config"
	"github.com/docforge/extractd/internal/ocr"
)

// scriptedEngine replays a fixed sequence of OCR responses. The page
// extractor probes orientations in a deterministic order, so call order maps
// directly onto baseline, 90, 180, 270.
type scriptedEngine struct {
	responses []scriptedResponse
	calls     int
}

type scriptedResponse struct {
	boxes []ocr.Box
	err   error
}

func (e *scriptedEngine) Name() string { return "scripted" }

func (e *scriptedEngine) Recognize(ctx context.Context, img ocr.Image) ([]ocr.Box, error) {
	if e.calls >= len(e.responses) {
		return nil, errors.New("unexpected OCR call")
	}
	r := e.responses[e.calls]
	e.calls++
	return r.boxes, r.err
}

func boxesWithConfidence(confs ...float64) []ocr.Box {
	boxes := make([]ocr.Box, 0, len(confs))
	for _, c := range confs {
		boxes = append(boxes, ocr.Box{Text: "word", Confidence: c})
	}
	return boxes
}

func newPageExtractor(t *testing.T, engine ocr.Engine, cfg PageConfig) *PageExtractor {
	t.Helper()
	return NewPageExtractor(engine, cfg, zaptest.NewLogger(t))
}

func TestExtractPageFastPathSkipsRotations(t *testing.T) {
	engine := &scriptedEngine{responses: []scriptedResponse{
		{boxes: boxesWithConfidence(0.9, 0.9)},
	}}
	e := newPageExtractor(t, engine, PageConfig{})

	result, err := e.ExtractPage(context.Background(), ocr.NewImage(10, 10))
	require.NoError(t, err)

	// 0.9 mean plus the upright bonus clears the fast path, so only the
	// baseline call happens.
	assert.Equal(t, 1, engine.calls)
	assert.Equal(t, 0, result.Rotation)
	assert.Len(t, result.Boxes, 2)
}

func TestExtractPageRotationWinsOnHigherScoreAndCount(t *testing.T) {
	engine := &scriptedEngine{responses: []scriptedResponse{
		{boxes: boxesWithConfidence(0.3, 0.3)},       // baseline, score 0.35
		{boxes: boxesWithConfidence(0.8, 0.8, 0.8)},  // 90, wins
		{boxes: boxesWithConfidence(0.5, 0.5, 0.5)},  // 180, lower score
		{boxes: boxesWithConfidence(0.9)},            // 270, higher score but fewer boxes
	}}
	e := newPageExtractor(t, engine, PageConfig{})

	result, err := e.ExtractPage(context.Background(), ocr.NewImage(10, 10))
	require.NoError(t, err)

	assert.Equal(t, 4, engine.calls)
	assert.Equal(t, 90, result.Rotation)
	assert.Len(t, result.Boxes, 3)
}

func TestExtractPageRotationNeedsBothConditions(t *testing.T) {
	// Higher mean confidence alone must not win when the rotation detects
	// fewer regions.
	engine := &scriptedEngine{responses: []scriptedResponse{
		{boxes: boxesWithConfidence(0.5, 0.5, 0.5)},
		{boxes: boxesWithConfidence(0.99)},
		{boxes: nil},
		{boxes: nil},
	}}
	e := newPageExtractor(t, engine, PageConfig{})

	result, err := e.ExtractPage(context.Background(), ocr.NewImage(10, 10))
	require.NoError(t, err)

	assert.Equal(t, 0, result.Rotation)
	assert.Len(t, result.Boxes, 3)
}

func TestExtractPageUprightBonusBreaksTies(t *testing.T) {
	// Same mean confidence everywhere; the bonus keeps the page upright.
	engine := &scriptedEngine{responses: []scriptedResponse{
		{boxes: boxesWithConfidence(0.7, 0.7)},
		{boxes: boxesWithConfidence(0.7, 0.7)},
		{boxes: boxesWithConfidence(0.7, 0.7)},
		{boxes: boxesWithConfidence(0.7, 0.7)},
	}}
	e := newPageExtractor(t, engine, PageConfig{})

	result, err := e.ExtractPage(context.Background(), ocr.NewImage(10, 10))
	require.NoError(t, err)

	assert.Equal(t, 0, result.Rotation)
}

func TestExtractPageAllEmptyIsValid(t *testing.T) {
	engine := &scriptedEngine{responses: []scriptedResponse{
		{boxes: nil},
		{boxes: nil},
		{boxes: nil},
		{boxes: nil},
	}}
	e := newPageExtractor(t, engine, PageConfig{})

	result, err := e.ExtractPage(context.Background(), ocr.NewImage(10, 10))
	require.NoError(t, err)

	assert.Equal(t, 0, result.Rotation)
	assert.Empty(t, result.Boxes)
	assert.NotNil(t, result.Boxes)
}

func TestExtractPageBaselineErrorFailsThePage(t *testing.T) {
	engine := &scriptedEngine{responses: []scriptedResponse{
		{err: errors.New("engine exploded")},
	}}
	e := newPageExtractor(t, engine, PageConfig{})

	_, err := e.ExtractPage(context.Background(), ocr.NewImage(10, 10))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "baseline OCR")
}

func TestExtractPageRotatedErrorIsSkipped(t *testing.T) {
	engine := &scriptedEngine{responses: []scriptedResponse{
		{boxes: boxesWithConfidence(0.4, 0.4)},
		{err: errors.New("transient failure")},
		{boxes: boxesWithConfidence(0.9, 0.9)},
		{boxes: nil},
	}}
	e := newPageExtractor(t, engine, PageConfig{})

	result, err := e.ExtractPage(context.Background(), ocr.NewImage(10, 10))
	require.NoError(t, err)

	assert.Equal(t, 180, result.Rotation)
}

func TestExtractPageSimpleOutputFiltersByThreshold(t *testing.T) {
	engine := &scriptedEngine{responses: []scriptedResponse{
		{boxes: []ocr.Box{
			{Text: "keep", Confidence: 0.95},
			{Text: "drop", Confidence: 0.40},
			{Text: "also", Confidence: 0.96},
		}},
	}}
	e := newPageExtractor(t, engine, PageConfig{
		OutputFormat:          config.OutputSimple,
		SimpleOutputThreshold: 0.5,
	})

	result, err := e.ExtractPage(context.Background(), ocr.NewImage(10, 10))
	require.NoError(t, err)

	assert.True(t, result.Simple)
	assert.Equal(t, "keep also", result.Text)
	assert.Nil(t, result.Boxes)
}
