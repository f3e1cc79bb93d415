package capture_test

import (
	"bytes"
	"testing"

	"github.com/jetsetilly/psx/internal/spu"
	"github.com/jetsetilly/psx/internal/spu/capture"
	"github.com/jetsetilly/psx/test"
)

// memWriteSeeker adapts a bytes.Buffer to io.WriteSeeker well enough for
// wav.Encoder, which only seeks backward to patch header fields it wrote
// earlier in the same stream.
type memWriteSeeker struct {
	buf *bytes.Buffer
	pos int64
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	b := m.buf.Bytes()
	if int(m.pos) == len(b) {
		n, err := m.buf.Write(p)
		m.pos += int64(n)
		return n, err
	}
	n := copy(b[m.pos:], p)
	if n < len(p) {
		m.buf.Write(p[n:])
	}
	m.pos += int64(len(p))
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		m.pos = offset
	case 1:
		m.pos += offset
	case 2:
		m.pos = int64(m.buf.Len()) + offset
	}
	return m.pos, nil
}

func TestDumperFlushAndCloseProducesNonEmptyWAV(t *testing.T) {
	s := spu.New()
	w := &memWriteSeeker{buf: &bytes.Buffer{}}
	d := capture.NewDumper(w)

	test.ExpectSuccess(t, d.Flush(s))
	test.ExpectSuccess(t, d.Close())

	if w.buf.Len() == 0 {
		t.Fatalf("expected WAV bytes to be written, got 0")
	}
}
