package dsp

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
)

const (
	// DefaultSampleRate is the rate every table and default duration is
	// calibrated against.
	DefaultSampleRate = 48000
	// DefaultBlockSize is the audio callback size voices preallocate for.
	DefaultBlockSize = 256
	// MaxBlockSize bounds the scratch buffers voices allocate at construction.
	MaxBlockSize = 4096
)

// Config carries the processing sample rate and block size shared by voices.
type Config struct {
	SampleRate int
	BlockSize  int
}

// NewConfig applies algo-dsp processor options on top of the kernel defaults.
func NewConfig(opts ...dspcore.ProcessorOption) Config {
	all := make([]dspcore.ProcessorOption, 0, len(opts)+2)
	all = append(all, dspcore.WithSampleRate(DefaultSampleRate), dspcore.WithBlockSize(DefaultBlockSize))
	all = append(all, opts...)
	pc := dspcore.ApplyProcessorOptions(all...)

	cfg := Config{
		SampleRate: int(math.Round(pc.SampleRate)),
		BlockSize:  pc.BlockSize,
	}
	if cfg.BlockSize > MaxBlockSize {
		cfg.BlockSize = MaxBlockSize
	}
	return cfg
}

// FlushDenormals converts denormal numbers to zero to avoid performance issues
func FlushDenormals(x float32) float32 {
	return float32(dspcore.FlushDenormals(float64(x)))
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}

// Clamp limits x to [lo, hi]. NaN maps to lo.
func Clamp(x, lo, hi float32) float32 {
	if x != x {
		return lo
	}
	return float32(dspcore.Clamp(float64(x), float64(lo), float64(hi)))
}

// RMS returns the root mean square of buf.
func RMS(buf []float32) float32 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, s := range buf {
		v := float64(s)
		sum += v * v
	}
	return float32(math.Sqrt(sum / float64(len(buf))))
}

// Zero clears buf.
func Zero(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}
