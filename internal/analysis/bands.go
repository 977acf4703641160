package analysis

import (
	"math"

	"github.com/tejashwikalptaru/tunescape/internal/domain"
)

// Band edges in bins of a 512-bin snapshot at 44.1 kHz (~43 Hz per bin).
const (
	bassEnd = 6   // ~0-260 Hz
	midEnd  = 48  // ~260 Hz-2 kHz
	highEnd = 256 // ~2-11 kHz
)

// Bass returns the mean low-band magnitude scaled to [0, 1]. Bin 0 (DC) is skipped.
func Bass(snap domain.FrequencySnapshot) float64 {
	return bandMean(snap, 1, bassEnd)
}

// Mid returns the mean mid-band magnitude scaled to [0, 1].
func Mid(snap domain.FrequencySnapshot) float64 {
	return bandMean(snap, bassEnd, midEnd)
}

// High returns the mean high-band magnitude scaled to [0, 1].
func High(snap domain.FrequencySnapshot) float64 {
	return bandMean(snap, midEnd, highEnd)
}

func bandMean(snap domain.FrequencySnapshot, from, to int) float64 {
	if to > len(snap) {
		to = len(snap)
	}
	if from >= to {
		return 0
	}
	var sum int
	for i := from; i < to; i++ {
		sum += int(snap[i])
	}
	return float64(sum) / float64(to-from) / 255
}

// LogBars reduces a snapshot to n bars using logarithmically growing bin
// ranges, taking the peak of each range. Values are scaled to [0, 1].
func LogBars(snap domain.FrequencySnapshot, n int) []float64 {
	bars := make([]float64, n)
	if n == 0 || len(snap) < 2 {
		return bars
	}

	maxExp := math.Log2(float64(len(snap) - 1))
	b0 := 1
	for x := 0; x < n; x++ {
		b1 := int(math.Pow(2, float64(x+1)*maxExp/float64(n)))
		if b1 >= len(snap) {
			b1 = len(snap) - 1
		}
		if b1 < b0 {
			b1 = b0
		}

		var peak uint8
		for b := b0; b <= b1; b++ {
			if snap[b] > peak {
				peak = snap[b]
			}
		}
		bars[x] = float64(peak) / 255
		b0 = b1 + 1
	}
	return bars
}
