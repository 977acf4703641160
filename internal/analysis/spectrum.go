package analysis

import (
	"math/cmplx"

	"github.com/madelynnblue/go-dsp/fft"
)

// magnitudes writes |X[k]| for the first len(dst) bins of the real signal x.
// len(dst) must not exceed len(x)/2.
func magnitudes(x, dst []float64) {
	spectrum := fft.FFTReal(x)
	for k := range dst {
		dst[k] = cmplx.Abs(spectrum[k])
	}
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
