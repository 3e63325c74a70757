package capture

import "context"

// Device defines the contract for any audio capture implementation.
type Device interface {
	// Name returns device name for logging/metrics.
	Name() string
	// Start acquires the underlying input exclusively and begins capture.
	Start(ctx context.Context) error
	// Chunks returns the stream of PCM fragments; closed after Stop.
	Chunks() <-chan []byte
	// Stop releases the input and closes the fragment stream.
	Stop() error
	// SampleRate reports the capture sample rate in Hz.
	SampleRate() int
	// Channels reports the captured channel count.
	Channels() int
}

// Factory produces a fresh Device per recording attempt.
type Factory func() (Device, error)

// Config contains vendor-agnostic capture configuration.
type Config struct {
	Source     string
	Fallback   string
	SampleRate int
	Channels   int
}
