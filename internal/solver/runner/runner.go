// Package runner stages a model deck, runs the external engine and collects
// its outputs.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"hydrocore/internal/blob"
	"hydrocore/internal/ctxlog"
	"hydrocore/internal/solver/delwaq"
	"hydrocore/internal/solver/flow1d"
	"hydrocore/pkg/domain"
)

// Run statuses reported through the Publisher.
const (
	StatusStarted   = "started"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// File names written next to the deck.
const (
	LogFile          = "engine.log"
	WaterQualityDir  = "wq"
	HydFile          = "coupling.hyd"
	defaultWorkRoot  = "runs"
	defaultPerMinute = 6
)

// ErrEngineFailed is wrapped when the engine exits with a non-zero status.
var ErrEngineFailed = errors.New("engine failed")

// Config selects the engine binary and the run policy. Args are passed
// before the model file name.
type Config struct {
	Executable    string
	Args          []string
	WorkRoot      string
	Timeout       time.Duration
	RunsPerMinute float64
	Burst         int
	KeepWorkDir   bool
}

// Event describes a run transition.
type Event struct {
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	ExitCode  int       `json:"exit_code"`
	Artifacts []string  `json:"artifacts,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher receives run events. Publishing failures are logged, never fatal.
type Publisher interface {
	PublishRun(ctx context.Context, event Event) error
}

// Run is the outcome of one engine invocation.
type Run struct {
	ID        string
	Dir       string
	Deck      []string
	Outputs   []string
	Artifacts []blob.Info
	ExitCode  int
	Started   time.Time
	Finished  time.Time
}

// History loads a .his output of the run.
func (r Run) History(name string) (*delwaq.History, error) {
	f, err := os.Open(filepath.Join(r.Dir, name)) //nolint:gosec // run directory owned by the runner
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return delwaq.ReadHis(f)
}

// Runner executes engine runs, throttled by a token bucket.
type Runner struct {
	cfg       Config
	limiter   *rate.Limiter
	store     blob.Store
	publisher Publisher
	now       func() time.Time
	seq       atomic.Int64
}

// Option configures a Runner.
type Option func(*Runner)

// WithBlobStore uploads every run directory below blob.RunPrefix.
func WithBlobStore(store blob.Store) Option {
	return func(r *Runner) { r.store = store }
}

// WithPublisher reports run transitions.
func WithPublisher(p Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// New validates cfg and builds a Runner. A negative RunsPerMinute disables
// throttling.
func New(cfg Config, opts ...Option) (*Runner, error) {
	if cfg.Executable == "" {
		return nil, errors.New("runner: engine executable is required")
	}
	if cfg.WorkRoot == "" {
		cfg.WorkRoot = defaultWorkRoot
	}
	if cfg.RunsPerMinute == 0 {
		cfg.RunsPerMinute = defaultPerMinute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	limit := rate.Limit(cfg.RunsPerMinute / 60)
	if cfg.RunsPerMinute < 0 {
		limit = rate.Inf
	}
	r := &Runner{cfg: cfg, limiter: rate.NewLimiter(limit, cfg.Burst), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run exports view, runs the engine and uploads the run directory. The
// returned Run is populated as far as the run got, also on error.
func (r *Runner) Run(ctx context.Context, view domain.RuleView) (Run, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Run{}, fmt.Errorf("runner: wait for slot: %w", err)
	}
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}
	run := Run{ID: r.newID(), Started: r.now()}
	run.Dir = filepath.Join(r.cfg.WorkRoot, run.ID)
	logger := ctxlog.FromContext(ctx).With("run", run.ID)
	ctx = ctxlog.WithLogger(ctx, logger)

	err := r.execute(ctx, view, &run)
	run.Finished = r.now()
	// the run context may have expired with the engine
	ctx = context.WithoutCancel(ctx)
	if r.store != nil {
		artifacts, uploadErr := blob.UploadDir(ctx, r.store, blob.RunPrefix(run.ID), run.Dir, map[string]string{"run": run.ID})
		run.Artifacts = artifacts
		if uploadErr != nil {
			err = errors.Join(err, fmt.Errorf("upload artifacts: %w", uploadErr))
		}
	}
	event := Event{RunID: run.ID, Status: StatusSucceeded, ExitCode: run.ExitCode, At: run.Finished}
	for _, a := range run.Artifacts {
		event.Artifacts = append(event.Artifacts, a.Key)
	}
	if err != nil {
		event.Status, event.Error = StatusFailed, err.Error()
		logger.Error("engine run failed", "error", err, "exit_code", run.ExitCode)
	} else {
		logger.Info("engine run finished", "outputs", len(run.Outputs), "elapsed", run.Finished.Sub(run.Started))
	}
	r.publish(ctx, event)
	if !r.cfg.KeepWorkDir && r.store != nil && err == nil {
		if rmErr := os.RemoveAll(run.Dir); rmErr != nil {
			logger.Warn("remove work dir", "error", rmErr)
		}
	}
	return run, err
}

func (r *Runner) execute(ctx context.Context, view domain.RuleView, run *Run) error {
	deck, err := Stage(ctx, view, run.Dir)
	run.Deck = deck
	if err != nil {
		return err
	}
	r.publish(ctx, Event{RunID: run.ID, Status: StatusStarted, At: run.Started})

	logFile, err := os.Create(filepath.Join(run.Dir, LogFile)) //nolint:gosec // run directory owned by the runner
	if err != nil {
		return fmt.Errorf("create engine log: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	args := append(append([]string(nil), r.cfg.Args...), flow1d.ModelFile)
	cmd := exec.CommandContext(ctx, r.cfg.Executable, args...) //nolint:gosec // executable is operator configuration
	cmd.Dir = run.Dir
	cmd.Stdout, cmd.Stderr = logFile, logFile
	ctxlog.FromContext(ctx).Debug("starting engine", "executable", r.cfg.Executable, "dir", run.Dir)
	runErr := cmd.Run()
	if cmd.ProcessState != nil {
		run.ExitCode = cmd.ProcessState.ExitCode()
	}
	run.Outputs = collectOutputs(run.Dir)
	var exitErr *exec.ExitError
	switch {
	case errors.As(runErr, &exitErr):
		return fmt.Errorf("%w: exit status %d, see %s", ErrEngineFailed, exitErr.ExitCode(), LogFile)
	case runErr != nil:
		return fmt.Errorf("start engine: %w", runErr)
	}
	return nil
}

func (r *Runner) newID() string {
	return fmt.Sprintf("%s-%03d", r.now().UTC().Format("20060102T150405"), r.seq.Add(1))
}

func (r *Runner) publish(ctx context.Context, event Event) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.PublishRun(ctx, event); err != nil {
		ctxlog.FromContext(ctx).Warn("publish run event", "status", event.Status, "error", err)
	}
}
