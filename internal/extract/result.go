package extract

import (
	"encoding/json"

	"github.com/docforge/extractd/internal/ocr"
)

// PageResult is the immutable outcome of extracting one page. In full mode
// Boxes carries the winning OCR detections; in simplified mode Text carries
// the collapsed, confidence-filtered string instead.
type PageResult struct {
	Rotation int
	Boxes    []ocr.Box
	Text     string
	Simple   bool
}

// MarshalJSON emits the page payload in the wire shape: a box list in full
// mode, a bare string in simplified mode. The applied rotation travels in the
// document-level PAGE_ROTATIONS array, not here.
func (r PageResult) MarshalJSON() ([]byte, error) {
	if r.Simple {
		return json.Marshal(r.Text)
	}
	if r.Boxes == nil {
		return json.Marshal([]ocr.Box{})
	}
	return json.Marshal(r.Boxes)
}

// DocumentResult aggregates per-page results for one document.
// len(Pages) == len(Rotations) always holds; on failure both are empty and
// ErrorMessage is set.
type DocumentResult struct {
	Pages        []PageResult `json:"OCR_RESULTS"`
	Rotations    []int        `json:"PAGE_ROTATIONS"`
	ErrorMessage string       `json:"ERROR_MESSAGE,omitempty"`
}

// EmptyDocumentResult returns a successful result with no pages.
func EmptyDocumentResult() DocumentResult {
	return DocumentResult{Pages: []PageResult{}, Rotations: []int{}}
}

// FailedDocumentResult returns a zero-page result carrying an error message.
func FailedDocumentResult(message string) DocumentResult {
	return DocumentResult{Pages: []PageResult{}, Rotations: []int{}, ErrorMessage: message}
}
