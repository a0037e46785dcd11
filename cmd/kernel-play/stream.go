package main

import (
	"encoding/binary"
	"math"

	"github.com/cwbudde/algo-drums/drums"
)

// kitStream adapts a kit to the io.Reader oto pulls interleaved stereo
// float32 frames from. Read runs on oto's audio goroutine.
type kitStream struct {
	kit         *drums.Kit
	left, right []float32
}

func newKitStream(kit *drums.Kit, frames int) *kitStream {
	frames = max(frames, 1)
	return &kitStream{
		kit:   kit,
		left:  make([]float32, frames),
		right: make([]float32, frames),
	}
}

const bytesPerFrame = 8

// Read renders in chunks of the preallocated buffer size, so it never
// allocates however many frames oto asks for.
func (s *kitStream) Read(p []byte) (int, error) {
	frames := len(p) / bytesPerFrame
	for off := 0; off < frames; {
		n := min(frames-off, len(s.left))
		l, r := s.left[:n], s.right[:n]
		s.kit.Process(l, r)
		out := p[off*bytesPerFrame:]
		for i := range l {
			binary.LittleEndian.PutUint32(out[i*bytesPerFrame:], math.Float32bits(clip(l[i])))
			binary.LittleEndian.PutUint32(out[i*bytesPerFrame+4:], math.Float32bits(clip(r[i])))
		}
		off += n
	}
	return frames * bytesPerFrame, nil
}

func clip(x float32) float32 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
