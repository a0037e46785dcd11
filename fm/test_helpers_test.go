package fm

import "github.com/cwbudde/algo-drums/dsp"

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
		if !dsp.IsFinite(s) {
			return false
		}
	}
	return true
}
