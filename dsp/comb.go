package dsp

const (
	// MaxFeedback keeps feedback loops strictly below unity gain.
	MaxFeedback = 0.999
	// ParamRampSamples is the glide length for feedback and damp changes.
	ParamRampSamples = 64
)

// Comb is a feedback comb filter with a one-pole low-pass in the loop.
type Comb struct {
	buf   []float32
	write int
	store float32

	feedback *Ramp
	damp     *Ramp
}

// NewComb creates a comb filter with a fixed delay of size samples.
func NewComb(size int) *Comb {
	if size < 1 {
		size = 1
	}
	c := &Comb{
		buf:      make([]float32, size),
		feedback: NewRamp(ParamRampSamples),
		damp:     NewRamp(ParamRampSamples),
	}
	c.feedback.Reset(0.5)
	c.damp.Reset(0.2)
	return c
}

// Size returns the delay length in samples.
func (c *Comb) Size() int { return len(c.buf) }

// SetFeedback sets the loop gain, clamped to [0, MaxFeedback].
func (c *Comb) SetFeedback(fb float32) {
	c.feedback.Set(Clamp(fb, 0, MaxFeedback))
}

// Feedback returns the target loop gain.
func (c *Comb) Feedback() float32 { return c.feedback.Target() }

// SetDamp sets the loop low-pass coefficient, clamped to [0, 1].
func (c *Comb) SetDamp(d float32) {
	c.damp.Set(Clamp(d, 0, 1))
}

// Damp returns the target damping coefficient.
func (c *Comb) Damp() float32 { return c.damp.Target() }

// Process filters one sample and returns the delayed output.
func (c *Comb) Process(in float32) float32 {
	if !IsFinite(in) {
		in = 0
	}
	fb := c.feedback.Next()
	damp := c.damp.Next()

	delayed := c.buf[c.write]
	c.store = FlushDenormals(c.store*damp + delayed*(1-damp))
	c.buf[c.write] = FlushDenormals(in + c.store*fb)
	c.write++
	if c.write == len(c.buf) {
		c.write = 0
	}
	return delayed
}

// ProcessMix adds the comb output for in to out.
func (c *Comb) ProcessMix(in, out []float32) {
	n := min(len(in), len(out))
	for i := 0; i < n; i++ {
		out[i] += c.Process(in[i])
	}
}

// ProcessReplace overwrites out with the comb output for in.
func (c *Comb) ProcessReplace(in, out []float32) {
	n := min(len(in), len(out))
	for i := 0; i < n; i++ {
		out[i] = c.Process(in[i])
	}
}

// Reset clears the ring and the loop filter. Parameter targets are kept and
// applied without a glide.
func (c *Comb) Reset() {
	Zero(c.buf)
	c.write = 0
	c.store = 0
	c.feedback.Reset(c.feedback.Target())
	c.damp.Reset(c.damp.Target())
}
