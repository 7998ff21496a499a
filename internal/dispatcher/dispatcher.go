// Package dispatcher polls the queue service for pending jobs and drives
// each one through mark-started, execute and report.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/tool-sidecar/internal/dispatcher/domain"
	"github.com/cuongbtq/tool-sidecar/internal/toolclient"
)

const eventTimeout = 10 * time.Second

// JobQueue is the queue service surface the dispatcher drives
type JobQueue interface {
	ListPending(ctx context.Context, limit int) ([]json.RawMessage, error)
	MarkStarted(ctx context.Context, jobID, webhookSecret string) error
	ReportComplete(ctx context.Context, report domain.CompletionReport) error
}

// Executor runs jobs against the tool service
type Executor interface {
	Execute(ctx context.Context, input map[string]any) domain.ExecutionResult
	Health(ctx context.Context) (*toolclient.HealthStatus, error)
}

// OutcomePublisher receives one event per handled job
type OutcomePublisher interface {
	Publish(ctx context.Context, outcome domain.JobOutcome) error
}

// Config holds dispatcher dependencies and loop settings
type Config struct {
	Logger       *slog.Logger
	Queue        JobQueue
	Executor     Executor
	Publisher    OutcomePublisher
	BatchSize    int
	PollInterval time.Duration
	MinBackoff   time.Duration
	MaxBackoff   time.Duration
}

// CycleStats summarizes one poll cycle
type CycleStats struct {
	Polled    int
	Processed int
	Skipped   int
	Failed    int
}

// Dispatcher is the single-threaded poll loop
type Dispatcher struct {
	id           string
	logger       *slog.Logger
	queue        JobQueue
	executor     Executor
	publisher    OutcomePublisher
	batchSize    int
	pollInterval time.Duration
	minBackoff   time.Duration
	maxBackoff   time.Duration
}

// NewDispatcher creates a dispatcher with a fresh instance id
func NewDispatcher(cfg *Config) *Dispatcher {
	id := uuid.NewString()

	publisher := cfg.Publisher
	if publisher == nil {
		publisher = nopPublisher{}
	}

	minBackoff := cfg.MinBackoff
	if minBackoff <= 0 {
		minBackoff = DefaultMinBackoff
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = DefaultMaxBackoff
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	return &Dispatcher{
		id:           id,
		logger:       cfg.Logger.With(slog.String("dispatcher_id", id)),
		queue:        cfg.Queue,
		executor:     cfg.Executor,
		publisher:    publisher,
		batchSize:    batchSize,
		pollInterval: cfg.PollInterval,
		minBackoff:   minBackoff,
		maxBackoff:   maxBackoff,
	}
}

// ID returns the dispatcher instance id
func (d *Dispatcher) ID() string {
	return d.id
}

// Run polls until ctx is cancelled. A job already in flight when ctx is
// cancelled runs to completion before Run returns.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("Starting dispatcher",
		slog.Duration("poll_interval", d.pollInterval),
		slog.Int("batch_size", d.batchSize),
	)

	d.CheckExecutor(ctx)

	var state loopState
	for {
		if ctx.Err() != nil {
			d.logger.Info("Dispatcher stopped")
			return nil
		}

		_, err := d.safeCycle(ctx)
		wait := state.next(err, d.pollInterval, d.minBackoff, d.maxBackoff)
		if err != nil {
			d.logger.Error("Dispatcher cycle failed",
				slog.Int("consecutive_errors", state.consecutiveErrors),
				slog.Duration("backoff", wait),
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher stopped")
			return nil
		case <-time.After(wait):
		}
	}
}

// CheckExecutor logs the executor's health. An unhealthy executor is only
// a warning; jobs polled meanwhile fail through the normal report path.
func (d *Dispatcher) CheckExecutor(ctx context.Context) {
	status, err := d.executor.Health(ctx)
	if err != nil {
		d.logger.Warn("Executor health check failed",
			slog.String("error", err.Error()),
		)
		return
	}

	d.logger.Info("Executor is healthy",
		slog.String("tool", status.Tool),
		slog.String("version", status.Version),
		slog.String("environment", status.Environment),
	)
}

// safeCycle runs one cycle and converts a panic into a cycle error
func (d *Dispatcher) safeCycle(ctx context.Context) (stats CycleStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatcher cycle panicked: %v", r)
		}
	}()

	return d.RunCycle(ctx)
}

// RunCycle polls once and processes the returned jobs sequentially. An
// unavailable queue counts as an empty poll. The returned error is reserved
// for failures of the cycle itself.
func (d *Dispatcher) RunCycle(ctx context.Context) (CycleStats, error) {
	var stats CycleStats

	items, err := d.queue.ListPending(ctx, d.batchSize)
	if err != nil {
		if errors.Is(err, domain.ErrQueueUnavailable) {
			d.logger.Warn("Failed to poll queue service",
				slog.String("error", err.Error()),
			)
			return stats, nil
		}
		return stats, fmt.Errorf("poll pending jobs: %w", err)
	}

	stats.Polled = len(items)
	if len(items) == 0 {
		d.logger.Debug("No pending jobs")
		return stats, nil
	}

	d.logger.Info("Found pending jobs", slog.Int("count", len(items)))

	jobCtx := context.WithoutCancel(ctx)
	for i, item := range items {
		if ctx.Err() != nil {
			d.logger.Info("Shutdown requested, leaving remaining jobs pending",
				slog.Int("remaining", len(items)-i),
			)
			break
		}

		switch d.processJob(jobCtx, item) {
		case jobProcessed:
			stats.Processed++
		case jobSkipped:
			stats.Skipped++
		case jobPanicked:
			stats.Failed++
		}
	}

	return stats, nil
}

type jobResult int

const (
	jobProcessed jobResult = iota
	jobSkipped
	jobPanicked
)

// processJob handles one polled job inside its own recover boundary
func (d *Dispatcher) processJob(ctx context.Context, data json.RawMessage) (result jobResult) {
	var jobID string
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Job processing panicked",
				slog.String("job_id", jobID),
				slog.Any("panic", r),
			)
			result = jobPanicked
		}
	}()

	job, parseErr := domain.ParseJob(data)
	jobID = job.ID
	if job.ID == "" {
		d.logger.Warn("Skipping job without usable id",
			slog.String("error", parseErr.Error()),
		)
		return jobSkipped
	}

	logger := d.logger.With(slog.String("job_id", job.ID))

	if err := d.queue.MarkStarted(ctx, job.ID, job.WebhookSecret); err != nil {
		logger.Error("Failed to mark job started, skipping",
			slog.String("error", err.Error()),
		)
		return jobSkipped
	}

	logger.Info("Processing job")
	startedAt := time.Now()

	var res domain.ExecutionResult
	if parseErr != nil {
		logger.Warn("Job has invalid input",
			slog.String("error", parseErr.Error()),
		)
		res = domain.ExecutionResult{Success: false, Error: domain.InvalidInputMessage}
	} else {
		res = d.executor.Execute(ctx, job.Input)
	}

	duration := time.Since(startedAt)
	if res.Success {
		logger.Info("Job completed successfully", slog.Duration("duration", duration))
	} else {
		logger.Warn("Job failed",
			slog.Duration("duration", duration),
			slog.String("error", res.Error),
		)
	}

	reported := true
	if err := d.queue.ReportComplete(ctx, domain.NewCompletionReport(job, res)); err != nil {
		reported = false
		logger.Error("Failed to report job completion",
			slog.String("status", res.Status()),
			slog.String("error", err.Error()),
		)
	}

	d.publishOutcome(ctx, logger, domain.JobOutcome{
		EventID:      uuid.NewString(),
		JobID:        job.ID,
		Status:       res.Status(),
		Error:        res.Error,
		Reported:     reported,
		DurationMs:   duration.Milliseconds(),
		DispatcherID: d.id,
		OccurredAt:   time.Now().UTC(),
	})

	return jobProcessed
}

func (d *Dispatcher) publishOutcome(ctx context.Context, logger *slog.Logger, outcome domain.JobOutcome) {
	ctx, cancel := context.WithTimeout(ctx, eventTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, outcome); err != nil {
		logger.Warn("Failed to publish job outcome",
			slog.String("error", err.Error()),
		)
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.JobOutcome) error { return nil }
