// Package recorder owns the capture lifecycle for a single respondent:
// acquiring the device, collecting fragments, and freezing them into a
// take on stop.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sidilemine/InsightSprint-sub001/pkg/adapters/capture"
	"github.com/sidilemine/InsightSprint-sub001/pkg/audio"
	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
	"github.com/sidilemine/InsightSprint-sub001/pkg/logging"
)

// State is the recorder lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopped   State = "stopped"
)

// Recorder drives one capture device at a time. A stopped recorder can
// be reset and reused for the next attempt.
type Recorder struct {
	factory capture.Factory
	logger  *slog.Logger

	mu        sync.Mutex
	state     State
	device    capture.Device
	fragments [][]byte
	collected chan struct{}
}

func New(factory capture.Factory, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		factory: factory,
		logger:  logging.NewComponentLogger(logger, "recorder"),
		state:   StateIdle,
	}
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start acquires a fresh device and begins collecting fragments. On any
// failure the recorder stays idle so the caller can retry.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateIdle {
		state := r.state
		r.mu.Unlock()
		return errorsx.Wrap(fmt.Errorf("cannot start while %s", state), errorsx.ReasonDeviceAccess)
	}
	r.mu.Unlock()

	device, err := r.factory()
	if err != nil {
		r.logger.Error("device_create_failed", slog.String("error", err.Error()))
		return errorsx.Wrap(err, errorsx.ReasonDeviceAccess)
	}
	if err := device.Start(ctx); err != nil {
		r.logger.Error("device_start_failed",
			slog.String("device", device.Name()),
			slog.String("error", err.Error()))
		if errorsx.HasReason(err, errorsx.ReasonDeviceAccess) {
			return err
		}
		return errorsx.Wrap(err, errorsx.ReasonDeviceAccess)
	}

	collected := make(chan struct{})
	r.mu.Lock()
	r.state = StateRecording
	r.device = device
	r.fragments = nil
	r.collected = collected
	r.mu.Unlock()

	go r.collect(device, collected)

	r.logger.Info("recording_started",
		slog.String("device", device.Name()),
		slog.Int("sample_rate", device.SampleRate()))
	return nil
}

// collect drains the device stream until it closes.
func (r *Recorder) collect(device capture.Device, done chan struct{}) {
	defer close(done)
	for chunk := range device.Chunks() {
		r.mu.Lock()
		r.fragments = append(r.fragments, chunk)
		r.mu.Unlock()
	}
}

// Stop releases the device and assembles everything captured so far
// into a take. Every fragment between start and stop is included.
func (r *Recorder) Stop() (audio.Take, error) {
	r.mu.Lock()
	if r.state != StateRecording {
		state := r.state
		r.mu.Unlock()
		return audio.Take{}, errorsx.Wrap(fmt.Errorf("cannot stop while %s", state), errorsx.ReasonDeviceStop)
	}
	device := r.device
	collected := r.collected
	r.mu.Unlock()

	if err := device.Stop(); err != nil {
		r.logger.Error("device_stop_failed", slog.String("error", err.Error()))
		return audio.Take{}, errorsx.Wrap(err, errorsx.ReasonDeviceStop)
	}
	<-collected

	r.mu.Lock()
	take := audio.AssembleTake(r.fragments, device.SampleRate(), device.Channels())
	r.state = StateStopped
	r.device = nil
	r.fragments = nil
	r.collected = nil
	r.mu.Unlock()

	r.logger.Info("recording_stopped",
		slog.String("take_id", take.ID()),
		slog.Duration("duration", take.Duration()))
	return take, nil
}

// Discard drops any in-flight or finished capture and returns to idle.
func (r *Recorder) Discard() error {
	r.mu.Lock()
	device := r.device
	collected := r.collected
	r.mu.Unlock()

	if device != nil {
		if err := device.Stop(); err != nil {
			return errorsx.Wrap(err, errorsx.ReasonDeviceStop)
		}
		<-collected
	}

	r.mu.Lock()
	r.state = StateIdle
	r.device = nil
	r.fragments = nil
	r.collected = nil
	r.mu.Unlock()

	r.logger.Info("recording_discarded")
	return nil
}

// Reset readies a stopped recorder for the next attempt.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateStopped {
		r.state = StateIdle
	}
}
