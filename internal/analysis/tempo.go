package analysis

import (
	"math"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
)

// Tempo search range in beats per minute.
const (
	MinBPM = 90.0
	MaxBPM = 180.0
)

// envelopeRate is the nominal onset envelope resolution in frames per second.
const envelopeRate = 100

// EstimateTempo guesses the tempo of a mono signal. It builds an energy
// envelope, keeps its positive differences as onset strength and picks the
// autocorrelation peak whose lag falls within [MinBPM, MaxBPM].
//
// Returns domain.ErrTempoUndetectable for silent, too short or beatless input.
func EstimateTempo(samples []float64, sampleRate int) (float64, error) {
	if sampleRate <= 0 {
		return 0, domain.ErrTempoUndetectable
	}

	hop := sampleRate / envelopeRate
	if hop == 0 || len(samples) < 4*sampleRate {
		return 0, domain.ErrTempoUndetectable
	}

	fps := float64(sampleRate) / float64(hop)
	frames := len(samples) / hop
	energy := make([]float64, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		for _, s := range samples[f*hop : (f+1)*hop] {
			sum += s * s
		}
		energy[f] = math.Sqrt(sum / float64(hop))
	}

	onset := make([]float64, frames)
	var mean float64
	for f := 1; f < frames; f++ {
		if d := energy[f] - energy[f-1]; d > 0 {
			onset[f] = d
		}
		mean += onset[f]
	}
	mean /= float64(frames)
	if mean == 0 {
		return 0, domain.ErrTempoUndetectable
	}
	for f := range onset {
		onset[f] -= mean
	}

	minLag := int(math.Floor(60 * fps / MaxBPM))
	maxLag := int(math.Ceil(60 * fps / MinBPM))
	if minLag < 2 {
		return 0, domain.ErrTempoUndetectable
	}
	if maxLag+1 >= frames {
		return 0, domain.ErrTempoUndetectable
	}

	corr := make([]float64, maxLag+2)
	for lag := minLag - 1; lag <= maxLag+1; lag++ {
		var sum float64
		for f := lag; f < frames; f++ {
			sum += onset[f] * onset[f-lag]
		}
		corr[lag] = sum / float64(frames-lag)
	}

	best := -1
	for lag := minLag; lag <= maxLag; lag++ {
		if best < 0 || corr[lag] > corr[best] {
			best = lag
		}
	}
	if best < 0 || corr[best] <= 0 {
		return 0, domain.ErrTempoUndetectable
	}

	// parabolic interpolation around the peak
	lag := float64(best)
	l, c, r := corr[best-1], corr[best], corr[best+1]
	if denom := l - 2*c + r; denom != 0 {
		offset := 0.5 * (l - r) / denom
		if math.Abs(offset) < 1 {
			lag += offset
		}
	}

	bpm := 60 * fps / lag
	return math.Round(bpm*10) / 10, nil
}
