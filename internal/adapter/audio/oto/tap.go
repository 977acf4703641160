package oto

import (
	"encoding/binary"
	"io"
	"sync"
)

// tap is a ring buffer of the most recent mono samples handed to the output.
type tap struct {
	mu   sync.Mutex
	buf  []float64
	pos  int
	full bool
}

func newTap(size int) *tap {
	return &tap{buf: make([]float64, size)}
}

// writePCM appends 16-bit stereo frames, mixed down to mono.
func (t *tap) writePCM(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := 0; i+4 <= len(p); i += 4 {
		l := int16(binary.LittleEndian.Uint16(p[i:]))
		r := int16(binary.LittleEndian.Uint16(p[i+2:]))
		t.buf[t.pos] = (float64(l) + float64(r)) / 65536
		t.pos++
		if t.pos == len(t.buf) {
			t.pos = 0
			t.full = true
		}
	}
}

// read copies the latest len(dst) samples, oldest first, zero padded in front.
func (t *tap) read(dst []float64) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	avail := t.pos
	if t.full {
		avail = len(t.buf)
	}

	n := len(dst)
	if n > avail {
		pad := n - avail
		for i := 0; i < pad; i++ {
			dst[i] = 0
		}
		dst = dst[pad:]
		n = avail
	}

	start := t.pos - n
	if start < 0 {
		start += len(t.buf)
	}
	for i := 0; i < n; i++ {
		dst[i] = t.buf[(start+i)%len(t.buf)]
	}
	return len(dst)
}

func (t *tap) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.buf {
		t.buf[i] = 0
	}
	t.pos = 0
	t.full = false
}

// tapReader feeds everything read through it into a tap and counts bytes.
type tapReader struct {
	src  io.Reader
	tap  *tap
	mu   sync.Mutex
	read int64
	eof  bool
}

func (r *tapReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		// whole frames only; the decoder never splits one
		r.tap.writePCM(p[:n])
	}

	r.mu.Lock()
	r.read += int64(n)
	if err == io.EOF {
		r.eof = true
	}
	r.mu.Unlock()
	return n, err
}

func (r *tapReader) state() (read int64, eof bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read, r.eof
}

func (r *tapReader) rewind(offset int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.read = offset
	r.eof = false
}
