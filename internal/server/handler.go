/**
 * HTTP handlers
 *
 * Exposes the extraction service: POST /extract submits a batch of document
 * references and returns immediately with a batch id, GET /extract polls
 * for the batch result, GET /health reports liveness. The batch id travels
 * in a request header on both submit and poll so gateway integrations can
 * correlate the two calls without touching the body.
 */

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docforge/extractd/internal/errs"
	"github.com/docforge/extractd/internal/orchestrator"
)

// Handler wires HTTP routes to the orchestrator.
type Handler struct {
	orch          *orchestrator.Orchestrator
	batchIDHeader string
	logger        *zap.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(orch *orchestrator.Orchestrator, batchIDHeader string, logger *zap.Logger) *Handler {
	return &Handler{
		orch:          orch,
		batchIDHeader: batchIDHeader,
		logger:        logger,
	}
}

// Router builds the chi router with logging and recovery middleware.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(h.logger))
	r.Use(Recoverer(h.logger))

	r.Post("/extract", h.handleSubmit)
	r.Get("/extract", h.handlePoll)
	r.Get("/health", h.handleHealth)

	return r
}

// submitRequest is the inbound batch envelope. Each row is a tuple of
// [index, location, relativePath]; the index is an opaque caller token.
type submitRequest struct {
	Data [][]json.RawMessage `json:"data"`
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Data) == 0 {
		respondError(w, http.StatusBadRequest, "Batch must contain at least one document")
		return
	}

	refs := make([]orchestrator.DocumentRef, 0, len(req.Data))
	for _, row := range req.Data {
		if len(row) < 3 {
			respondError(w, http.StatusBadRequest, "Each document entry needs [index, location, relativePath]")
			return
		}
		var location, relativePath string
		if err := json.Unmarshal(row[1], &location); err != nil {
			respondError(w, http.StatusBadRequest, "Document location must be a string")
			return
		}
		if err := json.Unmarshal(row[2], &relativePath); err != nil {
			respondError(w, http.StatusBadRequest, "Document path must be a string")
			return
		}
		refs = append(refs, orchestrator.DocumentRef{
			Index:        row[0],
			Location:     location,
			RelativePath: relativePath,
		})
	}

	batchID := r.Header.Get(h.batchIDHeader)
	if batchID == "" {
		batchID = uuid.New().String()
	}

	if err := h.orch.Submit(batchID, refs); err != nil {
		var svcErr *errs.Error
		if errors.As(err, &svcErr) {
			switch svcErr.Code {
			case errs.ErrorDuplicateBatch:
				respondError(w, http.StatusConflict, "Batch already submitted")
				return
			case errs.ErrorQueueFull:
				respondError(w, http.StatusServiceUnavailable, "Service is at capacity, retry later")
				return
			}
		}
		h.logger.Error("batch submit failed", zap.String("batch_id", batchID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{
		"status":   "QUEUED",
		"batch_id": batchID,
	})
}

func (h *Handler) handlePoll(w http.ResponseWriter, r *http.Request) {
	batchID := r.Header.Get(h.batchIDHeader)
	if batchID == "" {
		respondError(w, http.StatusBadRequest, "Missing batch id header")
		return
	}

	view, err := h.orch.Poll(batchID)
	if err != nil {
		if errs.CodeOf(err) == errs.ErrorUnknownBatch {
			respondError(w, http.StatusNotFound, "Job not found")
			return
		}
		h.logger.Error("batch poll failed", zap.String("batch_id", batchID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !view.Done {
		respondJSON(w, http.StatusAccepted, map[string]interface{}{
			"data": []interface{}{},
		})
		return
	}

	entries := view.Entries
	if entries == nil {
		entries = []orchestrator.DocumentEntry{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"data": entries,
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":              "ok",
		"jobs":                h.orch.JobCount(),
		"documents_processed": h.orch.ProcessedTotal(),
	})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondError keeps the error envelope polite for gateway clients: the
// data array is always present, even when empty.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"data":  []interface{}{},
		"error": message,
	})
}
