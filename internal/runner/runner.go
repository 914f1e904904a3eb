// Package runner executes one deduplication run: read the list inputs, run
// the pipeline, export the result. Runs never overlap.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	nctx "github.com/Ramsey-B/nettle/internal/context"
	"github.com/Ramsey-B/nettle/internal/tracing"
	"github.com/Ramsey-B/nettle/pkg/export"
	"github.com/Ramsey-B/nettle/pkg/models"
	"github.com/Ramsey-B/nettle/pkg/pipeline"
	"github.com/Ramsey-B/nettle/pkg/redis"
	"github.com/Ramsey-B/nettle/pkg/sources"
)

// LockKey is the distributed lock held for the duration of a run
const LockKey = "run"

var (
	// ErrNoInputs is returned when a run is started without any list
	ErrNoInputs = errors.New("no inputs")
	// ErrRunInProgress is returned when another run holds the run lock
	ErrRunInProgress = errors.New("a run is already in progress")
)

// Input is one list document
type Input struct {
	Format   string
	List     string
	Encoding string
	Reader   io.Reader
}

// InputError wraps a failure to read one input
type InputError struct {
	List string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("failed to read list %q: %v", e.List, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Locker serializes runs across processes
type Locker interface {
	WithLock(ctx context.Context, key string, ttl, wait time.Duration, fn func(ctx context.Context) error) error
}

// Runner owns the pipeline and the export sinks
type Runner struct {
	logger   ectologger.Logger
	pipeline *pipeline.Pipeline
	exporter *export.Exporter
	locker   Locker
	lockTTL  time.Duration
	lockWait time.Duration

	mu     sync.Mutex
	lastMu sync.RWMutex
	last   *pipeline.Result
}

type Option func(*Runner)

// WithExporter sets the sinks the run is exported to
func WithExporter(exporter *export.Exporter) Option {
	return func(r *Runner) {
		r.exporter = exporter
	}
}

// WithLocker guards every run with a distributed lock
func WithLocker(locker Locker, ttl, wait time.Duration) Option {
	return func(r *Runner) {
		r.locker = locker
		r.lockTTL = ttl
		r.lockWait = wait
	}
}

func New(logger ectologger.Logger, settings pipeline.Settings, opts ...Option) *Runner {
	r := &Runner{
		logger:   logger,
		pipeline: pipeline.New(logger, settings),
		exporter: export.NewExporter(logger),
		lockTTL:  time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Settings returns the pipeline settings
func (r *Runner) Settings() pipeline.Settings {
	return r.pipeline.Settings()
}

// Last returns the most recent result produced by this process, or nil
func (r *Runner) Last() *pipeline.Result {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	return r.last
}

// Run reads the inputs, deduplicates them and exports the result. The result
// is returned even when the export fails.
func (r *Runner) Run(ctx context.Context, inputs []Input) (*pipeline.Result, error) {
	ctx, span := tracing.StartSpan(ctx, "runner.Runner.Run")
	defer span.End()

	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}

	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	if r.locker == nil {
		return r.run(ctx, inputs)
	}

	var (
		result *pipeline.Result
		runErr error
	)
	err := r.locker.WithLock(ctx, LockKey, r.lockTTL, r.lockWait, func(ctx context.Context) error {
		result, runErr = r.run(ctx, inputs)
		return nil
	})
	if errors.Is(err, redis.ErrLockNotAcquired) {
		r.logger.WithContext(ctx).WithError(err).Warn("Run lock is held by another process")
		return nil, fmt.Errorf("%w: %v", ErrRunInProgress, err)
	}
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to acquire run lock")
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	return result, runErr
}

func (r *Runner) run(ctx context.Context, inputs []Input) (*pipeline.Result, error) {
	entities, err := r.read(ctx, inputs)
	if err != nil {
		return nil, err
	}

	result := r.pipeline.Run(ctx, entities)
	ctx = nctx.SetRunID(ctx, result.RunID)

	r.lastMu.Lock()
	r.last = result
	r.lastMu.Unlock()

	summary := result.Summary()
	if summary.Interrupted() {
		r.logger.WithContext(ctx).WithField("run_id", result.RunID).Warn("Exporting partial results of an interrupted run")
	}

	// an interrupted run is exported even though ctx is already cancelled
	if err := r.exporter.Export(context.WithoutCancel(ctx), summary, result.Entities); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("run_id", result.RunID).Error("Failed to export run")
		return result, err
	}
	return result, nil
}

// read collects every input with one allocator so ids never collide across lists
func (r *Runner) read(ctx context.Context, inputs []Input) ([]*models.Entity, error) {
	allocator := models.NewIDAllocator(1)
	var entities []*models.Entity

	for _, input := range inputs {
		src, err := sources.Open(input.Format, input.Reader, sources.Options{
			List:      input.List,
			Allocator: allocator,
			Encoding:  input.Encoding,
		})
		if err != nil {
			return nil, &InputError{List: input.List, Err: err}
		}

		read, err := sources.Collect(ctx, src)
		if err != nil {
			return nil, &InputError{List: input.List, Err: err}
		}

		r.logger.WithContext(ctx).WithFields(map[string]any{
			"list":     input.List,
			"format":   input.Format,
			"entities": len(read),
		}).Info("Read list")
		entities = append(entities, read...)
	}
	return entities, nil
}
