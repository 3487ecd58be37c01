/**
 * Batch orchestrator
 *
 * Serializes batches of document references through a single-consumer FIFO
 * queue and tracks job lifecycle in an in-memory table. One background
 * worker processes one batch at a time; submit and poll stay concurrent with
 * it, guarded by a mutex that covers only job-table state transitions, never
 * the fetch/OCR work itself, so polling never blocks on processing.
 *
 * Delivery is at-most-once by design: polling a DONE job returns its result
 * and removes the job in the same critical section. A second poll for the
 * same batch id reports an unknown batch.
 */

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/docforge/extractd/internal/errs"
	"github.com/docforge/extractd/internal/extract"
)

// Status is the job lifecycle state.
type Status string

const (
	StatusQueued  Status = "QUEUED"
	StatusRunning Status = "RUNNING"
	StatusDone    Status = "DONE"
)

// DocumentRef is one client-supplied document reference. Index is an opaque
// caller token passed through to the output untouched.
type DocumentRef struct {
	Index        json.RawMessage
	Location     string
	RelativePath string
}

// DocumentEntry pairs a caller index with its extraction result.
type DocumentEntry struct {
	Index  json.RawMessage
	Result extract.DocumentResult
}

// MarshalJSON emits the wire tuple [index, result].
func (e DocumentEntry) MarshalJSON() ([]byte, error) {
	index := e.Index
	if index == nil {
		index = json.RawMessage("null")
	}
	return json.Marshal([2]interface{}{index, e.Result})
}

// Job is the orchestrator-owned record for one batch. Mutated only under
// the orchestrator mutex.
type Job struct {
	BatchID   string
	Status    Status
	Result    []DocumentEntry
	CreatedAt time.Time
	DoneAt    time.Time
}

// BatchView is what a poll returns: either "still processing" or the final
// entries.
type BatchView struct {
	Done    bool
	Entries []DocumentEntry
}

// DocumentProcessor runs the per-document pipeline (resolve, fetch,
// extract). Implementations must not panic; any failure degrades to an
// error entry in the returned result.
type DocumentProcessor interface {
	Process(ctx context.Context, ref DocumentRef) extract.DocumentResult
}

type batchTask struct {
	batchID string
	refs    []DocumentRef
}

// Config holds orchestrator configuration.
type Config struct {
	// QueueSize bounds the number of batches waiting for the worker.
	QueueSize int
	// JobTTL evicts DONE jobs whose result was never polled. Zero disables
	// eviction, matching deployments where the gateway always polls.
	JobTTL time.Duration
}

// Orchestrator owns the job table, the work queue and the single worker.
type Orchestrator struct {
	mu      sync.Mutex
	jobs    map[string]*Job
	queue   chan batchTask
	stopped bool

	processor DocumentProcessor
	cfg       Config
	logger    *zap.Logger

	processedTotal atomic.Int64

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New creates an orchestrator; call Start to launch the worker.
func New(processor DocumentProcessor, cfg Config, logger *zap.Logger) *Orchestrator {
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 64
	}
	return &Orchestrator{
		jobs:      make(map[string]*Job),
		queue:     make(chan batchTask, cfg.QueueSize),
		processor: processor,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start launches the background worker and, when a TTL is configured, the
// eviction janitor.
func (o *Orchestrator) Start() {
	o.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		o.cancel = cancel

		o.wg.Add(1)
		go o.worker(ctx)

		if o.cfg.JobTTL > 0 {
			o.wg.Add(1)
			go o.janitor(ctx)
		}

		o.logger.Info("orchestrator started",
			zap.Int("queue_size", o.cfg.QueueSize),
			zap.Duration("job_ttl", o.cfg.JobTTL),
		)
	})
}

// Stop shuts the orchestrator down. Queued batches that were not yet
// dequeued are abandoned; in-flight processing finishes its current batch.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		o.mu.Lock()
		o.stopped = true
		o.mu.Unlock()

		if o.cancel != nil {
			o.cancel()
		}
		close(o.queue)
		o.wg.Wait()
		o.logger.Info("orchestrator stopped",
			zap.Int64("documents_processed", o.processedTotal.Load()),
		)
	})
}

// Submit registers a new batch and enqueues it for the worker. It returns
// immediately; the caller learns the outcome by polling.
func (o *Orchestrator) Submit(batchID string, refs []DocumentRef) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.stopped {
		return &errs.Error{Code: errs.ErrorInternal, Message: "orchestrator is shut down"}
	}
	if _, exists := o.jobs[batchID]; exists {
		return errs.NewDuplicateBatchError(batchID)
	}

	select {
	case o.queue <- batchTask{batchID: batchID, refs: refs}:
	default:
		return &errs.Error{Code: errs.ErrorQueueFull, Message: "work queue is full"}
	}

	o.jobs[batchID] = &Job{
		BatchID:   batchID,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
	}

	o.logger.Info("batch submitted",
		zap.String("batch_id", batchID),
		zap.Int("documents", len(refs)),
	)
	return nil
}

// Poll reports batch progress. For a DONE job it returns the entries and
// removes the job atomically; the result is delivered at most once.
func (o *Orchestrator) Poll(batchID string) (*BatchView, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, ok := o.jobs[batchID]
	if !ok {
		return nil, errs.NewUnknownBatchError(batchID)
	}

	switch job.Status {
	case StatusQueued, StatusRunning:
		return &BatchView{Done: false}, nil
	case StatusDone:
		delete(o.jobs, batchID)
		return &BatchView{Done: true, Entries: job.Result}, nil
	default:
		return nil, &errs.Error{
			Code:    errs.ErrorInternal,
			Message: fmt.Sprintf("job %s has unexpected status %q", batchID, job.Status),
		}
	}
}

// ProcessedTotal reports the number of documents processed since startup.
func (o *Orchestrator) ProcessedTotal() int64 {
	return o.processedTotal.Load()
}

// JobCount reports the number of jobs currently tracked.
func (o *Orchestrator) JobCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.jobs)
}

// worker consumes one batch at a time in submission order.
func (o *Orchestrator) worker(ctx context.Context) {
	defer o.wg.Done()

	for task := range o.queue {
		select {
		case <-ctx.Done():
			return
		default:
		}
		o.runBatch(ctx, task)
	}
}

func (o *Orchestrator) runBatch(ctx context.Context, task batchTask) {
	start := time.Now()
	o.transition(task.batchID, StatusRunning, nil)

	entries := make([]DocumentEntry, 0, len(task.refs))
	for _, ref := range task.refs {
		result := o.processDocument(ctx, ref)
		entries = append(entries, DocumentEntry{Index: ref.Index, Result: result})
		o.processedTotal.Add(1)
	}

	o.transition(task.batchID, StatusDone, entries)
	o.logger.Info("batch finished",
		zap.String("batch_id", task.batchID),
		zap.Int("documents", len(entries)),
		zap.Duration("batch_time", time.Since(start)),
		zap.Int64("documents_processed_total", o.processedTotal.Load()),
	)
}

// processDocument isolates one document: the worker must survive anything
// the pipeline does, so a panic degrades to an error entry.
func (o *Orchestrator) processDocument(ctx context.Context, ref DocumentRef) (result extract.DocumentResult) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("document processing panicked",
				zap.String("relative_path", ref.RelativePath),
				zap.Any("panic", r),
			)
			result = extract.FailedDocumentResult(fmt.Sprintf("Unexpected failure: %v", r))
		}
	}()
	return o.processor.Process(ctx, ref)
}

// transition mutates the job table under the lock, holding it only for the
// state change.
func (o *Orchestrator) transition(batchID string, status Status, result []DocumentEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job, ok := o.jobs[batchID]
	if !ok {
		// Evicted or never recorded; drop the result.
		o.logger.Warn("state transition for unknown job",
			zap.String("batch_id", batchID),
			zap.String("status", string(status)),
		)
		return
	}

	job.Status = status
	if status == StatusDone {
		job.Result = result
		job.DoneAt = time.Now()
	}
}

// janitor evicts DONE jobs whose result was never collected.
func (o *Orchestrator) janitor(ctx context.Context) {
	defer o.wg.Done()

	interval := o.cfg.JobTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.evictExpired(time.Now())
		}
	}
}

func (o *Orchestrator) evictExpired(now time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for id, job := range o.jobs {
		if job.Status == StatusDone && now.Sub(job.DoneAt) > o.cfg.JobTTL {
			delete(o.jobs, id)
			o.logger.Warn("evicting unclaimed job",
				zap.String("batch_id", id),
				zap.Duration("age", now.Sub(job.DoneAt)),
			)
		}
	}
}
