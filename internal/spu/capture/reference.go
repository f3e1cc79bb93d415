package capture

import (
	"encoding/binary"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// DecodeReferenceMP3 decodes an MP3 reference recording (e.g. one dumped
// from real hardware or another emulator) into interleaved int16 stereo
// samples at its native sample rate, for a regression test to diff against
// a Dumper capture. Mirrors the teacher's use of go-mp3 to decode reference
// recordings for comparison, now validating SPU capture output instead of
// TIA output.
func DecodeReferenceMP3(r io.Reader) (samples []int16, sampleRate int, err error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, err
	}

	buf := make([]byte, 4096)
	for {
		n, err := dec.Read(buf)
		for i := 0; i+1 < n; i += 2 {
			samples = append(samples, int16(binary.LittleEndian.Uint16(buf[i:])))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}
	return samples, dec.SampleRate(), nil
}
