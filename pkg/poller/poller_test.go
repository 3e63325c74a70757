package poller

import (
	"context"
	"testing"
	"time"

	"github.com/sidilemine/InsightSprint-sub001/pkg/adapters/transcribe"
	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
	"github.com/sidilemine/InsightSprint-sub001/pkg/providers/mock"
)

func testConfig() Config {
	return Config{Interval: time.Millisecond, MaxAttempts: 30}
}

func submitJob(t *testing.T, gw *mock.Transcriber) string {
	t.Helper()
	id, err := gw.Submit(context.Background(), "mock://audio/x", transcribe.Options{})
	if err != nil {
		t.Fatalf("submit error: %v", err)
	}
	return id
}

func TestWaitCompletesWithExactQueryCount(t *testing.T) {
	statuses := make([]transcribe.Status, 0, 12)
	statuses = append(statuses, transcribe.StatusQueued)
	for i := 0; i < 10; i++ {
		statuses = append(statuses, transcribe.StatusProcessing)
	}
	statuses = append(statuses, transcribe.StatusCompleted)
	gw := mock.NewTranscriber(
		mock.WithStatusSequence(statuses...),
		mock.WithTranscript("the product feels intuitive"),
	)
	id := submitJob(t, gw)

	var attempts int
	var final float64
	job, err := New(gw, testConfig(), nil).Wait(context.Background(), id, func(attempt int, progress float64, _ transcribe.Job) {
		attempts = attempt
		final = progress
	})
	if err != nil {
		t.Fatalf("wait error: %v", err)
	}
	if job.Text != "the product feels intuitive" {
		t.Fatalf("unexpected text %q", job.Text)
	}
	if attempts != 12 {
		t.Fatalf("expected completion on attempt 12, got %d", attempts)
	}
	if got := gw.StatusCalls(id); got != 12 {
		t.Fatalf("expected exactly 12 status queries, got %d", got)
	}
	if final != 100 {
		t.Fatalf("expected final progress 100, got %v", final)
	}
}

func TestProgressIsCappedBeforeCompletion(t *testing.T) {
	p := New(nil, testConfig(), nil)
	if got := p.Progress(1); got < 3.3 || got > 3.4 {
		t.Fatalf("unexpected progress for attempt 1: %v", got)
	}
	if got := p.Progress(15); got != 50 {
		t.Fatalf("unexpected progress for attempt 15: %v", got)
	}
	if got := p.Progress(29); got != 95 {
		t.Fatalf("expected cap at 95, got %v", got)
	}
	if got := p.Progress(30); got != 95 {
		t.Fatalf("expected cap at 95, got %v", got)
	}
}

func TestWaitTimesOutAfterBudget(t *testing.T) {
	gw := mock.NewTranscriber(mock.WithStatusSequence(transcribe.StatusProcessing))
	id := submitJob(t, gw)

	var last float64
	_, err := New(gw, testConfig(), nil).Wait(context.Background(), id, func(_ int, progress float64, _ transcribe.Job) {
		last = progress
	})
	if !errorsx.HasReason(err, errorsx.ReasonPollingTimeout) {
		t.Fatalf("expected polling timeout, got %v", err)
	}
	if got := gw.StatusCalls(id); got != 30 {
		t.Fatalf("expected 30 status queries, got %d", got)
	}
	if last != 95 {
		t.Fatalf("expected last progress 95, got %v", last)
	}
}

func TestWaitSurfacesJobError(t *testing.T) {
	gw := mock.NewTranscriber(
		mock.WithStatusSequence(transcribe.StatusQueued, transcribe.StatusError),
		mock.WithFailure("audio too short"),
	)
	id := submitJob(t, gw)

	_, err := New(gw, testConfig(), nil).Wait(context.Background(), id, nil)
	if !errorsx.HasReason(err, errorsx.ReasonTranscribeProcessing) {
		t.Fatalf("expected processing error, got %v", err)
	}
}

func TestWaitStopsOnContextCancel(t *testing.T) {
	gw := mock.NewTranscriber(mock.WithStatusSequence(transcribe.StatusProcessing))
	id := submitJob(t, gw)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cfg := Config{Interval: 50 * time.Millisecond, MaxAttempts: 30}
	done := make(chan error, 1)
	go func() {
		_, err := New(gw, cfg, nil).Wait(ctx, id, func(int, float64, transcribe.Job) {
			calls++
		})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("wait did not return after cancel")
	}
	if calls != 1 {
		t.Fatalf("expected a single progress callback before cancel, got %d", calls)
	}
}
