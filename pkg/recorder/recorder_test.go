package recorder

import (
	"bytes"
	"context"
	"testing"

	"github.com/sidilemine/InsightSprint-sub001/pkg/adapters/capture"
	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
	"github.com/sidilemine/InsightSprint-sub001/pkg/providers/mock"
)

func TestStartStopAssemblesAllFragments(t *testing.T) {
	fragments := [][]byte{
		bytes.Repeat([]byte{0x01, 0x00}, 160),
		bytes.Repeat([]byte{0x02, 0x00}, 160),
		bytes.Repeat([]byte{0x03, 0x00}, 160),
	}
	device := mock.NewCaptureDevice(mock.WithFragments(fragments))
	r := New(func() (capture.Device, error) { return device, nil }, nil)

	if r.State() != StateIdle {
		t.Fatalf("expected idle, got %s", r.State())
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}
	if r.State() != StateRecording {
		t.Fatalf("expected recording, got %s", r.State())
	}

	take, err := r.Stop()
	if err != nil {
		t.Fatalf("stop error: %v", err)
	}
	if r.State() != StateStopped {
		t.Fatalf("expected stopped, got %s", r.State())
	}

	want := 0
	for _, f := range fragments {
		want += len(f)
	}
	if got := len(take.PCM()); got != want {
		t.Fatalf("expected %d pcm bytes, got %d", want, got)
	}
}

func TestStartFailureLeavesIdle(t *testing.T) {
	device := mock.NewCaptureDevice(mock.WithStartFailure())
	r := New(func() (capture.Device, error) { return device, nil }, nil)

	err := r.Start(context.Background())
	if !errorsx.HasReason(err, errorsx.ReasonDeviceAccess) {
		t.Fatalf("expected device access error, got %v", err)
	}
	if r.State() != StateIdle {
		t.Fatalf("expected idle after failed start, got %s", r.State())
	}

	// A retry with a healthy device succeeds.
	healthy := mock.NewCaptureDevice(mock.WithFragments([][]byte{{0x01, 0x00}}))
	r2 := New(func() (capture.Device, error) { return healthy, nil }, nil)
	if err := r2.Start(context.Background()); err != nil {
		t.Fatalf("retry start error: %v", err)
	}
	if _, err := r2.Stop(); err != nil {
		t.Fatalf("retry stop error: %v", err)
	}
}

func TestStopWithoutStartFails(t *testing.T) {
	r := New(func() (capture.Device, error) { return mock.NewCaptureDevice(), nil }, nil)
	_, err := r.Stop()
	if !errorsx.HasReason(err, errorsx.ReasonDeviceStop) {
		t.Fatalf("expected device stop error, got %v", err)
	}
}

func TestDoubleStartRejected(t *testing.T) {
	device := mock.NewCaptureDevice()
	r := New(func() (capture.Device, error) { return device, nil }, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}
	if err := r.Start(context.Background()); !errorsx.HasReason(err, errorsx.ReasonDeviceAccess) {
		t.Fatalf("expected rejection of second start, got %v", err)
	}
}

func TestDiscardReturnsToIdle(t *testing.T) {
	device := mock.NewCaptureDevice(mock.WithFragments([][]byte{{0x01, 0x00}}))
	r := New(func() (capture.Device, error) { return device, nil }, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}
	if err := r.Discard(); err != nil {
		t.Fatalf("discard error: %v", err)
	}
	if r.State() != StateIdle {
		t.Fatalf("expected idle after discard, got %s", r.State())
	}
}

func TestResetAfterStop(t *testing.T) {
	device := mock.NewCaptureDevice(mock.WithFragments([][]byte{{0x01, 0x00}}))
	r := New(func() (capture.Device, error) { return device, nil }, nil)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start error: %v", err)
	}
	if _, err := r.Stop(); err != nil {
		t.Fatalf("stop error: %v", err)
	}
	r.Reset()
	if r.State() != StateIdle {
		t.Fatalf("expected idle after reset, got %s", r.State())
	}
}
