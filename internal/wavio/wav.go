// Package wavio reads and writes the WAV files the command-line tools
// exchange, and converts rendered audio between sample rates.
package wavio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-dsp/dsp/core"
	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// BitDepth is the PCM depth of every file written.
const BitDepth = 16

// ReadMono decodes path and averages its channels.
func ReadMono(path string) ([]float32, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < ch; c++ {
			sum += buf.Data[i*ch+c]
		}
		out[i] = sum / float32(ch)
	}
	return out, buf.Format.SampleRate, nil
}

// Resample converts in from fromRate to toRate. Equal rates return in
// unchanged.
func Resample(in []float32, fromRate, toRate int) ([]float32, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid resample rates %d -> %d", fromRate, toRate)
	}
	if fromRate == toRate {
		return in, nil
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	x := make([]float64, len(in))
	for i, v := range in {
		x[i] = float64(v)
	}
	y := r.Process(x)
	out := make([]float32, len(y))
	for i, v := range y {
		out[i] = float32(v)
	}
	return out, nil
}

// ResampleStereo converts both channels and trims them to equal length.
func ResampleStereo(left, right []float32, fromRate, toRate int) ([]float32, []float32, error) {
	l, err := Resample(left, fromRate, toRate)
	if err != nil {
		return nil, nil, err
	}
	r, err := Resample(right, fromRate, toRate)
	if err != nil {
		return nil, nil, err
	}
	n := min(len(l), len(r))
	return l[:n], r[:n], nil
}

// TrimTail cuts the trailing frames whose level stays below thresholdDBFS,
// keeping at least minFrames.
func TrimTail(left, right []float32, thresholdDBFS float64, minFrames int) ([]float32, []float32) {
	n := min(len(left), len(right))
	if math.IsInf(thresholdDBFS, 1) || n == 0 {
		return left[:n], right[:n]
	}
	th := float32(core.DBToLinear(thresholdDBFS))
	end := n
	for end > 0 {
		l, r := left[end-1], right[end-1]
		if l > th || l < -th || r > th || r < -th {
			break
		}
		end--
	}
	end = max(end, min(minFrames, n))
	return left[:end], right[:end]
}

// WriteStereo writes separate left and right channels as one stereo file.
func WriteStereo(path string, left, right []float32, sampleRate int) error {
	if len(left) != len(right) {
		return fmt.Errorf("left/right length mismatch: %d != %d", len(left), len(right))
	}
	data := make([]float32, len(left)*2)
	for i := range left {
		data[i*2] = left[i]
		data[i*2+1] = right[i]
	}
	return write(path, data, 2, sampleRate)
}

// WriteMono writes a single-channel file.
func WriteMono(path string, data []float32, sampleRate int) error {
	return write(path, data, 1, sampleRate)
}

func write(path string, data []float32, channels, sampleRate int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, BitDepth, channels, 1)

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: channels,
		},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return err
	}
	return enc.Close()
}
