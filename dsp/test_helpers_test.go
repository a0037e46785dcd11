package dsp

import (
	"math"
	"math/rand"
)

func maxAbs(samples []float32) float32 {
	var m float32
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > m {
			m = s
		}
	}
	return m
}

func allFinite(samples []float32) bool {
	for _, s := range samples {
		if !IsFinite(s) {
			return false
		}
	}
	return true
}

func randomBuffer(rng *rand.Rand, n int, amp float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = (rng.Float32()*2 - 1) * amp
	}
	return out
}

// measureFundamentalFreq picks the autocorrelation peak between 50 Hz and
// 1 kHz, skipping the first tenth of the buffer.
func measureFundamentalFreq(samples []float32, sampleRate float32) float32 {
	startIdx := len(samples) / 10
	minLag := int(sampleRate / 1000)
	maxLag := int(sampleRate / 50)
	window := len(samples) - startIdx - maxLag - 1
	if window <= 0 || minLag < 1 {
		return 0
	}
	corr := func(lag int) float64 {
		var sum float64
		for i := startIdx; i < startIdx+window; i++ {
			sum += float64(samples[i]) * float64(samples[i+lag])
		}
		return sum
	}
	best, bestLag := math.Inf(-1), 0
	for lag := minLag; lag <= maxLag; lag++ {
		if c := corr(lag); c > best {
			best, bestLag = c, lag
		}
	}
	if bestLag <= minLag || bestLag >= maxLag {
		return sampleRate / float32(bestLag)
	}
	a, b, c := corr(bestLag-1), best, corr(bestLag+1)
	lag := float64(bestLag)
	if den := a - 2*b + c; den != 0 {
		lag += 0.5 * (a - c) / den
	}
	return float32(float64(sampleRate) / lag)
}

func sineBuffer(n int, hz, sampleRate float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * hz * float64(i) / sampleRate))
	}
	return out
}
