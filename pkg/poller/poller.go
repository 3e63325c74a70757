// Package poller waits on asynchronous transcription jobs with a fixed
// interval and a bounded attempt budget.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sidilemine/InsightSprint-sub001/pkg/adapters/transcribe"
	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
	"github.com/sidilemine/InsightSprint-sub001/pkg/logging"
)

// Querier is the subset of the transcription gateway the poller needs.
type Querier interface {
	JobStatus(ctx context.Context, jobID string) (transcribe.Job, error)
}

// ProgressFunc receives one update per attempt. Progress stays below
// 100 until the job actually completes.
type ProgressFunc func(attempt int, progress float64, job transcribe.Job)

type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

type Poller struct {
	querier Querier
	cfg     Config
	logger  *slog.Logger
}

func New(querier Querier, cfg Config, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		querier: querier,
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "poller"),
	}
}

// Progress maps an attempt count onto a capped percentage. The cap
// keeps the bar honest: 100 is reserved for actual completion.
func (p *Poller) Progress(attempt int) float64 {
	progress := float64(attempt) / float64(p.cfg.MaxAttempts) * 100
	if progress > 95 {
		progress = 95
	}
	return progress
}

// Wait queries the job until it reaches a terminal status or the
// attempt budget runs out. The first query happens immediately; each
// subsequent query waits one full interval. A job that completes on
// attempt k costs exactly k queries.
func (p *Poller) Wait(ctx context.Context, jobID string, onProgress ProgressFunc) (transcribe.Job, error) {
	timer := time.NewTimer(p.cfg.Interval)
	defer timer.Stop()

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		job, err := p.querier.JobStatus(ctx, jobID)
		if err != nil {
			return transcribe.Job{}, err
		}

		switch job.Status {
		case transcribe.StatusCompleted:
			if onProgress != nil {
				onProgress(attempt, 100, job)
			}
			p.logger.Info("job_completed",
				slog.String("job_id", jobID),
				slog.Int("attempts", attempt))
			return job, nil
		case transcribe.StatusError:
			p.logger.Error("job_failed",
				slog.String("job_id", jobID),
				slog.String("detail", job.Error))
			return transcribe.Job{}, errorsx.Wrap(fmt.Errorf("transcription failed: %s", job.Error), errorsx.ReasonTranscribeProcessing)
		}

		if onProgress != nil {
			onProgress(attempt, p.Progress(attempt), job)
		}
		if attempt == p.cfg.MaxAttempts {
			break
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(p.cfg.Interval)
		select {
		case <-ctx.Done():
			return transcribe.Job{}, ctx.Err()
		case <-timer.C:
		}
	}

	p.logger.Warn("job_timed_out",
		slog.String("job_id", jobID),
		slog.Int("max_attempts", p.cfg.MaxAttempts))
	return transcribe.Job{}, errorsx.Wrap(
		fmt.Errorf("transcription not finished after %d attempts", p.cfg.MaxAttempts),
		errorsx.ReasonPollingTimeout)
}
