package dsp

// Ramp smooths control changes into a linear glide of a fixed number of
// samples. The first value ever set is taken immediately.
type Ramp struct {
	current   float32
	target    float32
	step      float32
	remaining int
	length    int
	primed    bool
}

// NewRamp creates a ramp that glides over length samples (minimum 1).
func NewRamp(length int) *Ramp {
	r := &Ramp{}
	r.SetLength(length)
	return r
}

// SetLength changes the glide length used by subsequent Set calls.
func (r *Ramp) SetLength(length int) {
	if length < 1 {
		length = 1
	}
	r.length = length
}

// Length returns the glide length in samples.
func (r *Ramp) Length() int { return r.length }

// Set starts a glide from the current value toward target. A target equal to
// the current value stops any glide in progress. Non-finite targets are
// ignored.
func (r *Ramp) Set(target float32) {
	if !IsFinite(target) {
		return
	}
	if !r.primed {
		r.Reset(target)
		return
	}
	if target == r.current {
		r.target = target
		r.step = 0
		r.remaining = 0
		return
	}
	if target == r.target && r.remaining > 0 {
		return
	}
	r.target = target
	r.step = (target - r.current) / float32(r.length)
	r.remaining = r.length
}

// Next advances one sample and returns the new value.
func (r *Ramp) Next() float32 {
	if r.remaining <= 0 {
		return r.current
	}
	r.remaining--
	if r.remaining == 0 {
		r.current = r.target
	} else {
		r.current += r.step
	}
	return r.current
}

// Get returns the current value without advancing.
func (r *Ramp) Get() float32 { return r.current }

// Target returns the value the ramp is heading toward.
func (r *Ramp) Target() float32 { return r.target }

// IsRamping reports whether a glide is in progress.
func (r *Ramp) IsRamping() bool { return r.remaining > 0 }

// Reset jumps to value and cancels any glide.
func (r *Ramp) Reset(value float32) {
	if !IsFinite(value) {
		value = 0
	}
	r.current = value
	r.target = value
	r.step = 0
	r.remaining = 0
	r.primed = true
}
