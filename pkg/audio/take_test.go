package audio

import (
	"encoding/binary"
	"testing"
	"time"
)

func TestAssembleTakeConcatenatesFragments(t *testing.T) {
	take := AssembleTake([][]byte{{1, 2}, {3, 4}, {5, 6}}, 16000, 1)
	pcm := take.PCM()
	if len(pcm) != 6 {
		t.Fatalf("expected 6 bytes, got %d", len(pcm))
	}
	if take.ID() == "" {
		t.Fatalf("expected take id")
	}
	if take.Empty() {
		t.Fatalf("expected non-empty take")
	}
}

func TestTakeDuration(t *testing.T) {
	// 16000 samples at 16kHz mono s16 = exactly one second.
	pcm := make([]byte, 16000*2)
	take := AssembleTake([][]byte{pcm}, 16000, 1)
	if take.Duration() != time.Second {
		t.Fatalf("expected 1s, got %s", take.Duration())
	}
}

func TestTakeWAVHeader(t *testing.T) {
	take := AssembleTake([][]byte{{1, 2, 3, 4}}, 8000, 1)
	wav := take.WAV()
	if len(wav) != 48 {
		t.Fatalf("expected 48 bytes, got %d", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("bad container magic")
	}
	if binary.LittleEndian.Uint32(wav[24:28]) != 8000 {
		t.Fatalf("bad sample rate in header")
	}
	if binary.LittleEndian.Uint32(wav[40:44]) != 4 {
		t.Fatalf("bad data length in header")
	}
}
