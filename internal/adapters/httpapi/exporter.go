package httpapi

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"hydrocore/internal/blob"
	"hydrocore/internal/core"
	"hydrocore/internal/ctxlog"
	"hydrocore/internal/solver/runner"
	"hydrocore/pkg/domain"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportRecord tracks an export request and the deck it produced.
type ExportRecord struct {
	ID          string       `json:"id"`
	Status      ExportStatus `json:"status"`
	Error       string       `json:"error,omitempty"`
	Deck        []string     `json:"deck,omitempty"`
	Artifacts   []blob.Info  `json:"artifacts,omitempty"`
	RequestedBy string       `json:"requested_by"`
	Reason      string       `json:"reason,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	RequestedBy string
	Reason      string
}

// ExportScheduler queues deck exports and exposes their status.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error)
	GetExport(id string) (ExportRecord, bool)
}

// Viewer gives read access to a consistent model snapshot.
type Viewer interface {
	View(ctx context.Context, fn func(domain.TransactionView) error) error
}

// ExportPrefix is the blob key prefix of one export's artifacts.
func ExportPrefix(id string) string {
	return "exports/" + id + "/"
}

// ErrQueueFull is returned when the export backlog is saturated.
var ErrQueueFull = errors.New("export queue full")

// DefaultRetainedExports bounds how many finished export records are kept.
const DefaultRetainedExports = 256

// Worker writes engine decks asynchronously and uploads them to the blob
// store when one is configured. Finished records beyond the retention limit
// are dropped oldest first.
type Worker struct {
	viewer   Viewer
	store    blob.Store
	audit    core.AuditRecorder
	workRoot string

	queue    chan string
	mu       sync.RWMutex
	jobs     map[string]*ExportRecord
	finished []string
	retain   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker constructs an export worker. store and audit may be nil; an
// empty workRoot selects the system temp directory.
func NewWorker(viewer Viewer, store blob.Store, audit core.AuditRecorder, workRoot string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		viewer:   viewer,
		store:    store,
		audit:    audit,
		workRoot: workRoot,
		queue:    make(chan string, 32),
		jobs:     make(map[string]*ExportRecord),
		retain:   DefaultRetainedExports,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetRetention changes how many finished records are kept; values below one
// keep only the latest.
func (w *Worker) SetRetention(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.retain = max(n, 1)
	w.evictLocked()
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(id)
		}
	}
}

// EnqueueExport schedules an export job and returns the queued record.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if w.viewer == nil {
		return ExportRecord{}, errors.New("export viewer not configured")
	}
	now := time.Now().UTC()
	record := ExportRecord{
		ID:          newID(),
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[record.ID] = &record
	queued := record.copy()
	w.mu.Unlock()

	select {
	case w.queue <- record.ID:
	default:
		w.fail(record.ID, ErrQueueFull.Error())
		return ExportRecord{}, ErrQueueFull
	}
	w.record(ctx, record.ID, core.AuditStatusSuccess, "")
	return queued, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(id string) {
	w.update(id, func(r *ExportRecord) { r.Status = ExportStatusRunning })

	dir, err := os.MkdirTemp(w.workRoot, "export-")
	if err != nil {
		w.fail(id, fmt.Sprintf("create work dir: %v", err))
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	var deck []string
	err = w.viewer.View(w.ctx, func(view domain.TransactionView) error {
		deck, err = runner.Stage(w.ctx, view, dir)
		return err
	})
	if err != nil {
		w.fail(id, fmt.Sprintf("export deck: %v", err))
		return
	}

	var artifacts []blob.Info
	if w.store != nil {
		record, _ := w.GetExport(id)
		meta := map[string]string{"export_id": id, "requested_by": record.RequestedBy}
		artifacts, err = blob.UploadDir(w.ctx, w.store, ExportPrefix(id), dir, meta)
		if err != nil {
			w.fail(id, fmt.Sprintf("store artifacts: %v", err))
			return
		}
	}
	w.complete(id, deck, artifacts)
}

func (w *Worker) update(id string, fn func(*ExportRecord)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if record, ok := w.jobs[id]; ok {
		fn(record)
		record.UpdatedAt = time.Now().UTC()
	}
}

func (w *Worker) finish(id string, fn func(*ExportRecord)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	record, ok := w.jobs[id]
	if !ok {
		return
	}
	fn(record)
	now := time.Now().UTC()
	record.UpdatedAt = now
	record.CompletedAt = &now
	w.finished = append(w.finished, id)
	w.evictLocked()
}

func (w *Worker) evictLocked() {
	for len(w.finished) > w.retain {
		delete(w.jobs, w.finished[0])
		w.finished = w.finished[1:]
	}
}

func (w *Worker) complete(id string, deck []string, artifacts []blob.Info) {
	w.finish(id, func(r *ExportRecord) {
		r.Status = ExportStatusSucceeded
		r.Error = ""
		r.Deck = deck
		r.Artifacts = artifacts
	})
	ctxlog.FromContext(w.ctx).Info("deck export finished", "export", id, "files", len(deck), "artifacts", len(artifacts))
	w.record(w.ctx, id, core.AuditStatusSuccess, "")
}

func (w *Worker) fail(id, reason string) {
	w.finish(id, func(r *ExportRecord) {
		r.Status = ExportStatusFailed
		r.Error = reason
	})
	ctxlog.FromContext(w.ctx).Warn("deck export failed", "export", id, "error", reason)
	w.record(w.ctx, id, core.AuditStatusError, reason)
}

func (w *Worker) record(ctx context.Context, id string, status core.AuditStatus, reason string) {
	if w.audit == nil {
		return
	}
	record, _ := w.GetExport(id)
	w.audit.Record(ctx, core.AuditEntry{
		Operation: "export:" + string(record.Status),
		EntityID:  id,
		Status:    status,
		Error:     reason,
		Duration:  record.UpdatedAt.Sub(record.CreatedAt),
		Timestamp: record.UpdatedAt,
	})
}

func (r ExportRecord) copy() ExportRecord {
	clone := r
	clone.Deck = append([]string(nil), r.Deck...)
	clone.Artifacts = append([]blob.Info(nil), r.Artifacts...)
	if r.CompletedAt != nil {
		completed := *r.CompletedAt
		clone.CompletedAt = &completed
	}
	return clone
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}
