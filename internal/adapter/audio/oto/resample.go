package oto

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/dh1tw/gosamplerate"
)

// resampleChunk is the number of source frames converted per pass.
const resampleChunk = 1024

// resampler converts 16-bit stereo PCM between sample rates through
// libsamplerate. Equal rates pass bytes through untouched.
type resampler struct {
	src   *bufio.Reader
	ratio float64 // output frames per source frame

	conv    gosamplerate.Src
	hasConv bool
	raw     []byte
	in      []float32
	pending []byte
	eof     bool
}

func newResampler(src io.Reader, srcRate, dstRate int) (*resampler, error) {
	r := &resampler{
		src:   bufio.NewReaderSize(src, 16<<10),
		ratio: float64(dstRate) / float64(srcRate),
	}
	if srcRate == dstRate {
		return r, nil
	}

	outLen := resampleChunk * 2 * (int(math.Ceil(r.ratio)) + 1)
	conv, err := gosamplerate.New(gosamplerate.SRC_SINC_FASTEST, 2, outLen)
	if err != nil {
		return nil, err
	}
	r.conv = conv
	r.hasConv = true
	r.raw = make([]byte, resampleChunk*bytesPerFrame)
	r.in = make([]float32, 0, resampleChunk*2)
	return r, nil
}

func (r *resampler) Read(p []byte) (int, error) {
	if !r.hasConv {
		return r.src.Read(p)
	}

	for len(r.pending) == 0 {
		if r.eof {
			return 0, io.EOF
		}
		if err := r.convert(); err != nil {
			return 0, err
		}
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

// convert reads one chunk of source frames and queues the converted bytes.
func (r *resampler) convert() error {
	n, err := io.ReadFull(r.src, r.raw)
	switch err {
	case nil:
	case io.EOF, io.ErrUnexpectedEOF:
		r.eof = true
	default:
		return err
	}
	n -= n % bytesPerFrame

	r.in = r.in[:0]
	for i := 0; i < n; i += 2 {
		r.in = append(r.in, float32(int16(binary.LittleEndian.Uint16(r.raw[i:])))/32768)
	}

	out, err := r.conv.Process(r.in, r.ratio, r.eof)
	if err != nil {
		return err
	}

	buf := r.pending[:0]
	for _, v := range out {
		s := math.Max(math.MinInt16, math.Min(math.MaxInt16, float64(v)*32768))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(int16(s)))
	}
	r.pending = buf
	return nil
}

// reset drops converter state after the source was repositioned.
func (r *resampler) reset(src io.Reader) error {
	r.src.Reset(src)
	r.pending = r.pending[:0]
	r.eof = false
	if r.hasConv {
		return r.conv.Reset()
	}
	return nil
}

// close releases the converter.
func (r *resampler) close() error {
	if !r.hasConv {
		return nil
	}
	r.hasConv = false
	return gosamplerate.Delete(r.conv)
}
