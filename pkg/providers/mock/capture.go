// Package mock provides in-memory vendor implementations for local
// development and tests.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sidilemine/InsightSprint-sub001/pkg/adapters/capture"
	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
)

// CaptureDevice emits a scripted sequence of PCM fragments.
type CaptureDevice struct {
	fragments  [][]byte
	sampleRate int
	channels   int
	emitDelay  time.Duration
	failStart  bool

	mu      sync.Mutex
	chunks  chan []byte
	stopCh  chan struct{}
	done    chan struct{}
	started bool
	stopped bool
}

// CaptureOption configures a mock device.
type CaptureOption func(*CaptureDevice)

// WithFragments sets the PCM fragments the device will emit after Start.
func WithFragments(fragments [][]byte) CaptureOption {
	return func(d *CaptureDevice) { d.fragments = fragments }
}

// WithEmitDelay spaces fragment emission to mimic a real stream.
func WithEmitDelay(delay time.Duration) CaptureOption {
	return func(d *CaptureDevice) { d.emitDelay = delay }
}

// WithStartFailure makes Start fail with a device access error.
func WithStartFailure() CaptureOption {
	return func(d *CaptureDevice) { d.failStart = true }
}

func NewCaptureDevice(opts ...CaptureOption) *CaptureDevice {
	d := &CaptureDevice{
		sampleRate: 16000,
		channels:   1,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	size := 64
	if len(d.fragments) >= size {
		size = len(d.fragments) + 1
	}
	d.chunks = make(chan []byte, size)
	return d
}

func (d *CaptureDevice) Name() string    { return "mock" }
func (d *CaptureDevice) SampleRate() int { return d.sampleRate }
func (d *CaptureDevice) Channels() int   { return d.channels }

func (d *CaptureDevice) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failStart {
		return errorsx.Wrap(fmt.Errorf("mock device unavailable"), errorsx.ReasonDeviceAccess)
	}
	if d.started {
		return errorsx.Wrap(fmt.Errorf("mock device already started"), errorsx.ReasonDeviceAccess)
	}
	d.started = true

	if d.emitDelay == 0 {
		// Synchronous emit: the buffered channel holds every fragment,
		// so a Stop right after Start still yields the full capture.
		for _, frag := range d.fragments {
			chunk := make([]byte, len(frag))
			copy(chunk, frag)
			d.chunks <- chunk
		}
		close(d.done)
		return nil
	}

	go d.emit(ctx)
	return nil
}

func (d *CaptureDevice) emit(ctx context.Context) {
	defer close(d.done)
	for _, frag := range d.fragments {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case <-time.After(d.emitDelay):
		}
		chunk := make([]byte, len(frag))
		copy(chunk, frag)
		select {
		case d.chunks <- chunk:
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		}
	}
}

func (d *CaptureDevice) Chunks() <-chan []byte { return d.chunks }

// Stop signals the emitter, waits for it to exit, then closes Chunks.
func (d *CaptureDevice) Stop() error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	started := d.started
	d.mu.Unlock()

	close(d.stopCh)
	if started {
		<-d.done
	}
	close(d.chunks)
	return nil
}

var _ capture.Device = (*CaptureDevice)(nil)
