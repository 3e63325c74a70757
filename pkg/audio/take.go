// Package audio assembles captured PCM fragments into immutable takes.
package audio

import (
	"encoding/binary"
	"time"

	"github.com/google/uuid"
)

const bytesPerSample = 2 // s16le

// Take is one finalized recording: every fragment captured between a
// start and a stop, frozen into a single audio object.
type Take struct {
	id       string
	pcm      []byte
	rate     int
	channels int
	created  time.Time
}

// AssembleTake concatenates fragments into an immutable Take.
func AssembleTake(fragments [][]byte, rate, channels int) Take {
	if rate <= 0 {
		rate = 16000
	}
	if channels <= 0 {
		channels = 1
	}
	total := 0
	for _, f := range fragments {
		total += len(f)
	}
	pcm := make([]byte, 0, total)
	for _, f := range fragments {
		pcm = append(pcm, f...)
	}
	return Take{
		id:       uuid.NewString(),
		pcm:      pcm,
		rate:     rate,
		channels: channels,
		created:  time.Now(),
	}
}

func (t Take) ID() string           { return t.id }
func (t Take) Rate() int            { return t.rate }
func (t Take) Channels() int        { return t.channels }
func (t Take) CreatedAt() time.Time { return t.created }
func (t Take) Empty() bool          { return len(t.pcm) == 0 }

// PCM returns a copy of the raw sample data.
func (t Take) PCM() []byte {
	return append([]byte(nil), t.pcm...)
}

// Duration derives playback length from the sample count.
func (t Take) Duration() time.Duration {
	if t.rate == 0 || t.channels == 0 {
		return 0
	}
	samples := len(t.pcm) / (bytesPerSample * t.channels)
	return time.Duration(samples) * time.Second / time.Duration(t.rate)
}

// WAV wraps the PCM data in a RIFF/WAVE container suitable for upload.
func (t Take) WAV() []byte {
	dataLen := len(t.pcm)
	buf := make([]byte, 44+dataLen)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(t.channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(t.rate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(t.rate*t.channels*bytesPerSample))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(t.channels*bytesPerSample))
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))
	copy(buf[44:], t.pcm)
	return buf
}
