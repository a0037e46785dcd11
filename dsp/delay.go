package dsp

import "github.com/cwbudde/algo-dsp/dsp/interp"

// Interpolation selects the fractional read kernel of a FractionalDelay.
type Interpolation int

const (
	// Linear interpolates between the two nearest ring samples.
	Linear Interpolation = iota
	// Cubic uses a 4-point Hermite kernel.
	Cubic
)

func (i Interpolation) String() string {
	if i == Cubic {
		return "cubic"
	}
	return "linear"
}

const (
	minDelaySamples = 2
	// DelayRampSamples is the glide length for delay-time changes.
	DelayRampSamples = 64
)

// FractionalDelay is a feedback delay line read at a non-integer offset from
// the write head. Excitation injected into it circulates through a damped
// loop, which models a vibrating string.
type FractionalDelay struct {
	buf   []float32
	write int

	delay  *Ramp
	interp Interpolation

	store float32

	dispersion float32
	dx1, dy1   float32
	dx2, dy2   float32
}

// NewFractionalDelay allocates a ring of capacity samples. The longest usable
// delay is capacity-3 samples.
func NewFractionalDelay(capacity int) *FractionalDelay {
	if capacity < minDelaySamples+4 {
		capacity = minDelaySamples + 4
	}
	f := &FractionalDelay{
		buf:   make([]float32, capacity),
		delay: NewRamp(DelayRampSamples),
	}
	f.delay.Reset(float32(capacity) / 2)
	return f
}

// NewStringDelay sizes a delay for the lowest frequency it must reach.
func NewStringDelay(sampleRate int, lowestHz float32) *FractionalDelay {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if !IsFinite(lowestHz) || lowestHz < 1 {
		lowestHz = 1
	}
	return NewFractionalDelay(int(float32(sampleRate)/lowestHz) + 4)
}

// Capacity returns the ring length.
func (f *FractionalDelay) Capacity() int { return len(f.buf) }

// MaxDelay returns the longest delay SetDelaySamples accepts.
func (f *FractionalDelay) MaxDelay() float32 { return float32(len(f.buf) - 3) }

// SetDelaySamples glides the read offset to d samples, clamped to the usable
// range. Non-finite values are ignored.
func (f *FractionalDelay) SetDelaySamples(d float32) {
	if !IsFinite(d) {
		return
	}
	f.delay.Set(Clamp(d, minDelaySamples, f.MaxDelay()))
}

// DelaySamples returns the target delay.
func (f *FractionalDelay) DelaySamples() float32 { return f.delay.Target() }

// CurrentDelay returns the delay in use after smoothing.
func (f *FractionalDelay) CurrentDelay() float32 { return f.delay.Get() }

// SetFrequency sets the delay to one period of hz.
func (f *FractionalDelay) SetFrequency(hz float32, sampleRate int) {
	if sampleRate <= 0 || !IsFinite(hz) || hz <= 0 {
		return
	}
	f.SetDelaySamples(float32(sampleRate) / hz)
}

// Frequency returns the loop frequency for the smoothed delay.
func (f *FractionalDelay) Frequency(sampleRate int) float32 {
	d := f.delay.Get()
	if d <= 0 {
		return 0
	}
	return float32(sampleRate) / d
}

// SetInterpolation changes the read kernel.
func (f *FractionalDelay) SetInterpolation(mode Interpolation) { f.interp = mode }

// SetDispersion maps a stiffness amount [0,1] to a two-stage allpass in the
// loop.
func (f *FractionalDelay) SetDispersion(amount float32) {
	f.dispersion = -0.85 * Clamp(amount, 0, 1)
}

// Process pushes in through the loop and returns the delayed sample read
// before the write. feedback is clamped to [0, MaxFeedback], damp to [0,1].
func (f *FractionalDelay) Process(in, feedback, damp float32) float32 {
	if !IsFinite(in) {
		in = 0
	}
	feedback = Clamp(feedback, 0, MaxFeedback)
	damp = Clamp(damp, 0, 1)

	delayed := f.read(f.delay.Next())
	looped := f.disperse(delayed)
	f.store = FlushDenormals(looped*(1-damp) + f.store*damp)
	f.buf[f.write] = FlushDenormals(in + f.store*feedback)
	f.write++
	if f.write == len(f.buf) {
		f.write = 0
	}
	return delayed
}

// Excite adds a bipolar ramp of amplitude force across a tenth of the loop,
// starting at the fractional position pos in [0,1].
func (f *FractionalDelay) Excite(force, pos float32) {
	if !IsFinite(force) {
		return
	}
	pos = Clamp(pos, 0.01, 0.99)
	loop := int(f.delay.Get())
	if loop < 4 {
		loop = 4
	}
	base := f.write + len(f.buf) - loop + int(float32(loop)*pos)
	width := loop / 10
	if width < 4 {
		width = 4
	}
	for i := 0; i < width; i++ {
		p := (base + i) % len(f.buf)
		f.buf[p] += force * (float32(i)/float32(width-1) - 0.5) * 2
	}
}

// Reset clears the ring and loop filters and snaps the delay to its target.
func (f *FractionalDelay) Reset() {
	Zero(f.buf)
	f.write = 0
	f.store = 0
	f.dx1, f.dy1, f.dx2, f.dy2 = 0, 0, 0, 0
	f.delay.Reset(f.delay.Target())
}

func (f *FractionalDelay) at(k int) float32 {
	n := len(f.buf)
	return f.buf[(f.write-k%n+n)%n]
}

func (f *FractionalDelay) read(d float32) float32 {
	i := int(d)
	frac := d - float32(i)
	if f.interp == Cubic {
		return float32(interp.Hermite4(float64(frac),
			float64(f.at(i-1)), float64(f.at(i)), float64(f.at(i+1)), float64(f.at(i+2))))
	}
	s1 := f.at(i)
	return s1 + frac*(f.at(i+1)-s1)
}

func (f *FractionalDelay) disperse(x float32) float32 {
	a := f.dispersion
	if a == 0 {
		return x
	}
	y := -a*x + f.dx1 + a*f.dy1
	f.dx1 = x
	f.dy1 = y

	z := -a*y + f.dx2 + a*f.dy2
	f.dx2 = y
	f.dy2 = z
	return z
}
