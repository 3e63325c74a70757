// Package pulse implements the capture device contract on top of a
// PulseAudio record stream.
package pulse

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"

	"github.com/sidilemine/InsightSprint-sub001/pkg/adapters/capture"
	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
	"github.com/sidilemine/InsightSprint-sub001/pkg/logging"
)

const chunkSizeBytes = 640 // 20ms @ 16kHz mono s16

type Device struct {
	cfg    capture.Config
	logger *slog.Logger

	client *pulse.Client
	stream *pulse.RecordStream

	chunks chan []byte
	stopCh chan struct{}

	mu       sync.Mutex
	inflight sync.WaitGroup
	pending  []byte
	started  bool
	stopped  bool
}

func New(cfg capture.Config, logger *slog.Logger) *Device {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.NewComponentLogger(logger, "pulse_capture")

	return &Device{
		cfg:    cfg,
		logger: logger,
		chunks: make(chan []byte, 128),
		stopCh: make(chan struct{}),
	}
}

func (d *Device) Name() string    { return "pulse" }
func (d *Device) SampleRate() int { return d.cfg.SampleRate }
func (d *Device) Channels() int   { return d.cfg.Channels }

// Start connects to the Pulse server and begins a record stream on the
// configured source (or the server default).
func (d *Device) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return errorsx.Wrap(fmt.Errorf("capture already started"), errorsx.ReasonDeviceAccess)
	}
	d.started = true
	d.mu.Unlock()

	client, err := pulse.NewClient(
		pulse.ClientApplicationName("insightd"),
		pulse.ClientApplicationIconName("audio-input-microphone"),
	)
	if err != nil {
		d.logger.Error("pulse_connect_failed", slog.String("error", err.Error()))
		return errorsx.Wrap(fmt.Errorf("connect pulse server: %w", err), errorsx.ReasonDeviceAccess)
	}

	source, err := d.resolveSource(client)
	if err != nil {
		client.Close()
		return errorsx.Wrap(err, errorsx.ReasonDeviceAccess)
	}

	writer := pulse.NewWriter(writerFunc(d.onPCM), pulseproto.FormatInt16LE)
	stream, err := client.NewRecord(
		writer,
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(d.cfg.SampleRate),
		pulse.RecordBufferFragmentSize(chunkSizeBytes),
		pulse.RecordMediaName("interview response"),
	)
	if err != nil {
		client.Close()
		d.logger.Error("pulse_record_failed", slog.String("error", err.Error()))
		return errorsx.Wrap(fmt.Errorf("create record stream: %w", err), errorsx.ReasonDeviceAccess)
	}

	d.client = client
	d.stream = stream
	stream.Start()

	go func() {
		<-ctx.Done()
		_ = d.Stop()
	}()

	d.logger.Info("capture_started",
		slog.String("source", source.ID()),
		slog.Int("sample_rate", d.cfg.SampleRate))
	return nil
}

func (d *Device) resolveSource(client *pulse.Client) (*pulse.Source, error) {
	if d.cfg.Source == "" || d.cfg.Source == "default" {
		source, err := client.DefaultSource()
		if err != nil {
			return nil, fmt.Errorf("read default source: %w", err)
		}
		return source, nil
	}
	source, err := client.SourceByID(d.cfg.Source)
	if err != nil {
		if d.cfg.Fallback != "" {
			d.logger.Warn("source_fallback",
				slog.String("requested", d.cfg.Source),
				slog.String("fallback", d.cfg.Fallback))
			return client.SourceByID(d.cfg.Fallback)
		}
		return nil, fmt.Errorf("resolve source %q: %w", d.cfg.Source, err)
	}
	return source, nil
}

func (d *Device) Chunks() <-chan []byte { return d.chunks }

// Stop tears down the stream, flushes any partial chunk, and closes
// the fragment channel exactly once.
func (d *Device) Stop() error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.stopCh)
	d.mu.Unlock()

	if d.stream != nil {
		d.stream.Stop()
		d.stream.Close()
	}
	if d.client != nil {
		d.client.Close()
	}

	// The pulse client delivers onPCM from its own goroutine. A callback
	// that passed the stopped check must finish before chunks can close.
	d.inflight.Wait()

	d.mu.Lock()
	pending := append([]byte(nil), d.pending...)
	d.pending = nil
	d.mu.Unlock()

	if len(pending) > 0 {
		select {
		case d.chunks <- pending:
		default:
		}
	}

	close(d.chunks)
	d.logger.Info("capture_stopped")
	return nil
}

// onPCM accumulates raw Pulse frames and forwards fixed-size slices.
// The inflight Add shares the mutex with the stopped flag so Stop
// cannot observe an empty WaitGroup while a callback is between the
// check and its sends.
func (d *Device) onPCM(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return 0, io.EOF
	}
	d.inflight.Add(1)
	d.pending = append(d.pending, buffer...)
	var out [][]byte
	for len(d.pending) >= chunkSizeBytes {
		chunk := make([]byte, chunkSizeBytes)
		copy(chunk, d.pending[:chunkSizeBytes])
		d.pending = d.pending[chunkSizeBytes:]
		out = append(out, chunk)
	}
	d.mu.Unlock()
	defer d.inflight.Done()

	for _, chunk := range out {
		select {
		case <-d.stopCh:
			return 0, io.EOF
		case d.chunks <- chunk:
		}
	}
	return len(buffer), nil
}

// writerFunc adapts a function to io.Writer for pulse.NewWriter.
type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) { return f(b) }

var _ capture.Device = (*Device)(nil)
