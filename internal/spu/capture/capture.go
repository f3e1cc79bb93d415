// Package capture periodically flushes the SPU's two CD-audio capture ring
// buffers (left/right) to a stereo WAV file for offline inspection, the role the
// teacher gives go-audio/wav and go-audio/audio to (recording synthesized
// audio to a file a human can open elsewhere), now pointed at
// internal/spu's capture buffers instead of a television's audio mixer.
package capture

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/jetsetilly/psx/internal/spu"
)

const sampleRate = 44100
const bitDepth = 16
const numChannels = 2

// Dumper accumulates CD-left/CD-right capture samples, interleaving them
// into a stereo buffer, and flushes to a WAV encoder on demand. The two
// voice capture buffers (voice1/voice3, used by games for "solo this
// voice" mixing tricks) are exposed separately since they're mono debug
// taps rather than part of the main stereo picture.
type Dumper struct {
	enc *wav.Encoder
}

// NewDumper wraps an io.WriteSeeker (typically an *os.File) in a WAV
// encoder configured for the SPU's fixed 44100Hz/16-bit/stereo output.
func NewDumper(w io.WriteSeeker) *Dumper {
	return &Dumper{enc: wav.NewEncoder(w, sampleRate, bitDepth, numChannels, 1)}
}

// Flush reads the CD-audio capture pair out of the SPU and appends them to
// the WAV stream as one interleaved stereo chunk.
func (d *Dumper) Flush(s *spu.Spu) error {
	left := s.CaptureBuffer(spu.CaptureCDLeft)
	right := s.CaptureBuffer(spu.CaptureCDRight)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChannels, SampleRate: sampleRate},
		SourceBitDepth: bitDepth,
		Data:           make([]int, 0, len(left)*2),
	}
	for i := range left {
		buf.Data = append(buf.Data, int(left[i]), int(right[i]))
	}

	return d.enc.Write(buf)
}

// Close finalizes the WAV file's header (sample count, chunk sizes).
func (d *Dumper) Close() error {
	return d.enc.Close()
}
