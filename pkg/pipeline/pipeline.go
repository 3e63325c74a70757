// Package pipeline drives one answer attempt end to end: capture,
// upload, and transcript resolution through either the polled or the
// synchronous provider path.
package pipeline

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/sidilemine/InsightSprint-sub001/pkg/adapters/transcribe"
	"github.com/sidilemine/InsightSprint-sub001/pkg/audio"
	"github.com/sidilemine/InsightSprint-sub001/pkg/logging"
	"github.com/sidilemine/InsightSprint-sub001/pkg/metrics"
	"github.com/sidilemine/InsightSprint-sub001/pkg/poller"
	"github.com/sidilemine/InsightSprint-sub001/pkg/recorder"
)

// Strategy selects how a transcript is resolved after upload.
type Strategy string

const (
	// StrategyPoll submits a job and polls status on a fixed interval.
	StrategyPoll Strategy = "poll"
	// StrategySync blocks in a single provider call until the result.
	StrategySync Strategy = "sync"
)

// ProgressUpdate is one poll-loop progress report.
type ProgressUpdate struct {
	Attempt  string
	Poll     int
	Progress float64
	Status   transcribe.Status
}

// ProgressListener observes poll progress for an attempt.
type ProgressListener interface {
	OnPollProgress(update ProgressUpdate)
}

type Config struct {
	Strategy      Strategy
	Options       transcribe.Options
	InsightPrompt string
}

// Pipeline owns the shared machinery; per-answer state lives in Attempt.
type Pipeline struct {
	gateway  transcribe.Gateway
	poll     *poller.Poller
	cfg      Config
	observer metrics.Observer
	logger   *slog.Logger

	stateListeners    []StateListener
	progressListeners []ProgressListener
}

func New(gateway transcribe.Gateway, poll *poller.Poller, cfg Config, observer metrics.Observer, logger *slog.Logger) *Pipeline {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyPoll
	}
	if observer == nil {
		observer = metrics.NoopObserver{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		gateway:  gateway,
		poll:     poll,
		cfg:      cfg,
		observer: observer,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

// AddStateListener registers a listener attached to every new attempt.
func (p *Pipeline) AddStateListener(listener StateListener) {
	p.stateListeners = append(p.stateListeners, listener)
}

// AddProgressListener registers a poll progress listener.
func (p *Pipeline) AddProgressListener(listener ProgressListener) {
	p.progressListeners = append(p.progressListeners, listener)
}

// Attempt is one respondent answer working its way through the pipeline.
type Attempt struct {
	id string
	sm *stateMachine
}

func (a *Attempt) ID() string   { return a.id }
func (a *Attempt) State() State { return a.sm.State() }

// NewAttempt creates an idle attempt wired to the pipeline's listeners.
func (p *Pipeline) NewAttempt(id string) *Attempt {
	sm := newStateMachine(id)
	sm.AddListener(stateMetricsListener{observer: p.observer})
	for _, l := range p.stateListeners {
		sm.AddListener(l)
	}
	return &Attempt{id: id, sm: sm}
}

// StartRecording acquires the device. A failed start leaves the
// attempt idle so the respondent can simply try again.
func (p *Pipeline) StartRecording(ctx context.Context, a *Attempt, rec *recorder.Recorder) error {
	if err := a.sm.Transition(StateRecording, "respondent pressed record"); err != nil {
		return err
	}
	if err := rec.Start(ctx); err != nil {
		_ = a.sm.Transition(StateIdle, "device start failed")
		return err
	}
	return nil
}

// StopRecording releases the device and freezes the capture.
func (p *Pipeline) StopRecording(a *Attempt, rec *recorder.Recorder) (audio.Take, error) {
	take, err := rec.Stop()
	if err != nil {
		return audio.Take{}, err
	}
	if err := a.sm.Transition(StateStopped, "respondent pressed stop"); err != nil {
		return audio.Take{}, err
	}
	return take, nil
}

// Discard drops a stopped take and returns the attempt to idle for a
// re-record.
func (p *Pipeline) Discard(a *Attempt, rec *recorder.Recorder) error {
	if err := rec.Discard(); err != nil {
		return err
	}
	return a.sm.Transition(StateIdle, "respondent discarded take")
}

// Resolve uploads the take and resolves a transcript via the
// configured strategy. On any failure the attempt lands in the error
// state with the phase flag cleared, ready for a retry.
func (p *Pipeline) Resolve(ctx context.Context, a *Attempt, take audio.Take) (transcribe.Result, error) {
	started := time.Now()

	if err := a.sm.Transition(StateUploading, "take accepted"); err != nil {
		return transcribe.Result{}, err
	}
	audioURL, err := p.gateway.Upload(ctx, bytes.NewReader(take.WAV()), "audio/wav")
	if err != nil {
		_ = a.sm.Transition(StateError, "upload failed")
		return transcribe.Result{}, err
	}

	if err := a.sm.Transition(StateProcessing, "audio uploaded"); err != nil {
		return transcribe.Result{}, err
	}

	var result transcribe.Result
	switch p.cfg.Strategy {
	case StrategySync:
		result, err = p.gateway.Process(ctx, audioURL, p.cfg.InsightPrompt, p.cfg.Options)
	default:
		result, err = p.resolveByPolling(ctx, a, audioURL)
	}
	if err != nil {
		_ = a.sm.Transition(StateError, "transcription failed")
		return transcribe.Result{}, err
	}

	if err := a.sm.Transition(StateDone, "transcript resolved"); err != nil {
		return transcribe.Result{}, err
	}

	p.observer.RecordEvent(metrics.MetricsEvent{
		Name:  "transcription_done",
		Time:  time.Now(),
		Value: time.Since(started).Seconds(),
		Tags: map[string]string{
			"attempt":  a.id,
			"strategy": string(p.cfg.Strategy),
			"gateway":  p.gateway.Name(),
		},
	})
	p.logger.Info("attempt_resolved",
		slog.String("attempt", a.id),
		slog.String("strategy", string(p.cfg.Strategy)),
		slog.Duration("elapsed", time.Since(started)))
	return result, nil
}

func (p *Pipeline) resolveByPolling(ctx context.Context, a *Attempt, audioURL string) (transcribe.Result, error) {
	jobID, err := p.gateway.Submit(ctx, audioURL, p.cfg.Options)
	if err != nil {
		return transcribe.Result{}, err
	}

	job, err := p.poll.Wait(ctx, jobID, func(attempt int, progress float64, job transcribe.Job) {
		update := ProgressUpdate{
			Attempt:  a.id,
			Poll:     attempt,
			Progress: progress,
			Status:   job.Status,
		}
		for _, l := range p.progressListeners {
			l.OnPollProgress(update)
		}
		p.observer.RecordEvent(metrics.MetricsEvent{
			Name:  "poll_attempt",
			Time:  time.Now(),
			Value: progress,
			Tags:  map[string]string{"attempt": a.id, "job_id": jobID},
		})
	})
	if err != nil {
		return transcribe.Result{}, err
	}
	return transcribe.Result{Job: job}, nil
}

// Retry moves an errored attempt back to idle.
func (p *Pipeline) Retry(a *Attempt) error {
	return a.sm.Transition(StateIdle, "retry requested")
}

// stateMetricsListener mirrors state changes into the observer stream.
type stateMetricsListener struct {
	observer metrics.Observer
}

func (l stateMetricsListener) OnStateChange(event StateChange) {
	l.observer.RecordEvent(metrics.MetricsEvent{
		Name: "pipeline_state",
		Time: event.Timestamp,
		Tags: map[string]string{
			"attempt": event.Attempt,
			"from":    event.FromState.String(),
			"to":      event.ToState.String(),
		},
		Fields: map[string]any{"reason": event.Reason},
	})
}
