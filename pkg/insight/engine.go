package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sidilemine/InsightSprint-sub001/pkg/adapters/capture"
	"github.com/sidilemine/InsightSprint-sub001/pkg/adapters/transcribe"
	"github.com/sidilemine/InsightSprint-sub001/pkg/httpapi"
	"github.com/sidilemine/InsightSprint-sub001/pkg/logging"
	"github.com/sidilemine/InsightSprint-sub001/pkg/metrics"
	"github.com/sidilemine/InsightSprint-sub001/pkg/pipeline"
	"github.com/sidilemine/InsightSprint-sub001/pkg/poller"
	"github.com/sidilemine/InsightSprint-sub001/pkg/recorder"
	"github.com/sidilemine/InsightSprint-sub001/pkg/redact"
	"github.com/sidilemine/InsightSprint-sub001/pkg/runner"
	"github.com/sidilemine/InsightSprint-sub001/pkg/session"
	"github.com/sidilemine/InsightSprint-sub001/pkg/store"
)

// Engine wires the store, session machine, transcription pipeline, and
// HTTP surface into one runnable service.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	store          session.Store
	issuer         *session.TokenIssuer
	machine        *session.Machine
	gateway        transcribe.Gateway
	poll           *poller.Poller
	pipe           *pipeline.Pipeline
	captureFactory capture.Factory
	hub            *httpapi.Hub
	api            *httpapi.Server
	httpSrv        *http.Server
	observer       metrics.Observer
	asyncObs       *metrics.AsyncObserver
	metricsFile    *os.File
	lifecycle      *runner.LifecycleRunner
}

func NewEngine(cfg Config, registry *ProviderRegistry, logger *slog.Logger) (*Engine, error) {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = logging.InitLogger(logging.ParseLevel(cfg.LogLevel))
		slog.SetDefault(logger)
	}

	redact.SetEnabled(cfg.Privacy.RedactPII)

	e := &Engine{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "engine"),
	}

	if err := e.buildObserver(); err != nil {
		return nil, err
	}
	if err := e.buildStore(); err != nil {
		return nil, err
	}
	if err := e.seedDemoInterview(); err != nil {
		return nil, err
	}

	e.issuer = session.NewTokenIssuer(cfg.Session.TokenSecret,
		time.Duration(cfg.Session.TokenTTLHours)*time.Hour)
	e.machine = session.NewMachine(e.store, e.issuer,
		session.MachineConfig{RequireAllAnswered: cfg.Session.RequireAllAnswered},
		e.observer, logger)

	gateway, err := registry.BuildSpeech(cfg.Vendors.Speech.Provider, cfg, logger)
	if err != nil {
		return nil, err
	}
	e.gateway = gateway

	captureFactory, err := registry.BuildCaptureFactory(cfg.Vendors.Capture.Provider, cfg, logger)
	if err != nil {
		return nil, err
	}
	e.captureFactory = captureFactory

	e.poll = poller.New(gateway, poller.Config{
		Interval:    time.Duration(cfg.Polling.IntervalMS) * time.Millisecond,
		MaxAttempts: cfg.Polling.MaxAttempts,
	}, logger)

	e.hub = httpapi.NewHub(logger)
	e.pipe = pipeline.New(gateway, e.poll, pipeline.Config{
		Strategy: pipeline.Strategy(cfg.Pipeline.Strategy),
		Options: transcribe.Options{
			SentimentAnalysis: cfg.Pipeline.SentimentAnalysis,
			ContentSafety:     cfg.Pipeline.ContentSafety,
		},
		InsightPrompt: cfg.Pipeline.InsightPrompt,
	}, e.observer, logger)
	e.pipe.AddStateListener(e.hub)
	e.pipe.AddProgressListener(e.hub)

	api, err := httpapi.NewServer(httpapi.Config{
		UploadsDir:     cfg.Server.UploadsDir,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
	}, e.machine, e.issuer, gateway, e.poll, e.hub, logger)
	if err != nil {
		return nil, err
	}
	e.api = api
	e.httpSrv = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	e.lifecycle = runner.NewLifecycleRunner(
		runner.DrainerFunc(e.drain),
		runner.Hooks{
			OnStart: func() { e.logger.Info("engine_started", slog.String("addr", cfg.Server.Addr)) },
			OnStop:  func() { e.logger.Info("engine_stopped") },
		},
		time.Duration(cfg.Server.DrainTimeoutMS)*time.Millisecond,
	)
	return e, nil
}

func (e *Engine) buildObserver() error {
	if e.cfg.Observability.MetricsPath == "" {
		e.observer = metrics.NoopObserver{}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(e.cfg.Observability.MetricsPath), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	f, err := os.OpenFile(e.cfg.Observability.MetricsPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open metrics file: %w", err)
	}
	e.metricsFile = f
	e.asyncObs = metrics.NewAsyncObserver(metrics.NewJSONLObserver(f), e.cfg.Observability.AsyncBuffer)
	e.observer = e.asyncObs
	return nil
}

func (e *Engine) buildStore() error {
	switch e.cfg.Storage.Driver {
	case "sqlite":
		s, err := store.NewSQLite(e.cfg.Storage.Path)
		if err != nil {
			return err
		}
		e.store = s
	default:
		e.store = store.NewMemory()
	}
	return nil
}

// seedDemoInterview provisions a fixed interview so a fresh deployment
// is immediately testable end to end.
func (e *Engine) seedDemoInterview() error {
	if !e.cfg.Seed.DemoInterview {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.store.PutInterview(ctx, session.Interview{
		ID:          "mock-interview-id",
		Title:       "Product experience interview",
		Description: "Tell us about your experience in your own words.",
		Questions: []session.Question{
			{ID: "q1", Text: "How would you describe your overall experience with the product?", Order: 1},
			{ID: "q2", Text: "What problem were you hoping it would solve?", Order: 2},
			{ID: "q3", Text: "Walk me through the last time you used it.", Order: 3},
			{ID: "q4", Text: "What almost stopped you from using it?", Order: 4},
			{ID: "q5", Text: "If you could change one thing, what would it be?", Order: 5},
		},
	})
}

// Run serves HTTP and blocks until the context is cancelled or Stop is
// called.
func (e *Engine) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	runCh := make(chan error, 1)
	go func() { runCh <- e.lifecycle.Run(ctx) }()

	select {
	case err := <-errCh:
		_ = e.lifecycle.Stop()
		return err
	case err := <-runCh:
		return err
	}
}

func (e *Engine) Stop() error {
	return e.lifecycle.Stop()
}

func (e *Engine) drain() error {
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(e.cfg.Server.DrainTimeoutMS)*time.Millisecond)
	defer cancel()

	var firstErr error
	if err := e.httpSrv.Shutdown(ctx); err != nil {
		firstErr = err
	}
	e.hub.Close()
	if e.asyncObs != nil {
		e.asyncObs.Close()
	}
	if e.metricsFile != nil {
		if err := e.metricsFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := e.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Health reports liveness details for operational checks.
func (e *Engine) Health() map[string]any {
	return map[string]any{
		"state":    e.lifecycle.State(),
		"gateway":  e.gateway.Name(),
		"strategy": e.cfg.Pipeline.Strategy,
		"storage":  e.cfg.Storage.Driver,
	}
}

// AnswerQuestion runs one local capture attempt end to end: record
// from the configured device for the given duration, resolve a
// transcript, and store the response on the session.
func (e *Engine) AnswerQuestion(ctx context.Context, sessionID, questionID string, duration time.Duration) (session.Response, error) {
	rec := recorder.New(e.captureFactory, e.logger)
	attempt := e.pipe.NewAttempt(sessionID + "/" + questionID)

	if err := e.pipe.StartRecording(ctx, attempt, rec); err != nil {
		return session.Response{}, err
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		_ = e.pipe.Discard(attempt, rec)
		return session.Response{}, ctx.Err()
	case <-timer.C:
	}

	take, err := e.pipe.StopRecording(attempt, rec)
	if err != nil {
		return session.Response{}, err
	}

	result, err := e.pipe.Resolve(ctx, attempt, take)
	if err != nil {
		return session.Response{}, err
	}

	return e.machine.SubmitResponse(ctx, sessionID, session.Response{
		QuestionID:      questionID,
		Transcription:   result.Text,
		DurationSeconds: take.Duration().Seconds(),
		Sentiments:      result.Sentiments,
		SafetyLabels:    result.SafetyLabels,
		Insights:        result.Insights,
	})
}
