package dsp

// Freeverb tunings at 44.1 kHz; scaled to the running sample rate.
var (
	combTunings    = [...]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	allpassTunings = [...]int{556, 441, 341, 225}
)

const (
	stereoSpread    = 23
	allpassFeedback = 0.5
	reverbInputGain = 0.015
)

// Allpass is a Schroeder allpass diffuser.
type Allpass struct {
	buf      []float32
	write    int
	feedback float32
}

// NewAllpass creates an allpass with a delay of size samples.
func NewAllpass(size int, feedback float32) *Allpass {
	if size < 1 {
		size = 1
	}
	return &Allpass{buf: make([]float32, size), feedback: Clamp(feedback, 0, MaxFeedback)}
}

// Process filters one sample.
func (a *Allpass) Process(in float32) float32 {
	delayed := a.buf[a.write]
	out := delayed - in
	a.buf[a.write] = FlushDenormals(in + delayed*a.feedback)
	a.write++
	if a.write == len(a.buf) {
		a.write = 0
	}
	return out
}

// Reset clears the delay.
func (a *Allpass) Reset() {
	Zero(a.buf)
	a.write = 0
}

// Reverb is a stereo bank of parallel decorrelated combs followed by serial
// allpass diffusers.
type Reverb struct {
	combsL, combsR     []*Comb
	allpassL, allpassR []*Allpass
	wet                *Ramp
	roomSize, damp     float32
}

// NewReverb builds the bank for sampleRate.
func NewReverb(sampleRate int) *Reverb {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	scale := func(n int) int {
		s := n * sampleRate / 44100
		if s < 1 {
			s = 1
		}
		return s
	}
	r := &Reverb{
		wet: NewRamp(ParamRampSamples),
	}
	for _, n := range combTunings {
		r.combsL = append(r.combsL, NewComb(scale(n)))
		r.combsR = append(r.combsR, NewComb(scale(n+stereoSpread)))
	}
	for _, n := range allpassTunings {
		r.allpassL = append(r.allpassL, NewAllpass(scale(n), allpassFeedback))
		r.allpassR = append(r.allpassR, NewAllpass(scale(n+stereoSpread), allpassFeedback))
	}
	r.SetRoomSize(0.5)
	r.SetDamp(0.5)
	r.wet.Reset(0.3)
	return r
}

// SetRoomSize maps size in [0,1] onto the comb feedback range.
func (r *Reverb) SetRoomSize(size float32) {
	size = Clamp(size, 0, 1)
	fb := 0.7 + 0.28*size
	for i := range r.combsL {
		r.combsL[i].SetFeedback(fb)
		r.combsR[i].SetFeedback(fb)
	}
	r.roomSize = size
}

// RoomSize returns the current room size.
func (r *Reverb) RoomSize() float32 { return r.roomSize }

// SetDamp sets high-frequency absorption in [0,1].
func (r *Reverb) SetDamp(d float32) {
	d = Clamp(d, 0, 1)
	for i := range r.combsL {
		r.combsL[i].SetDamp(d * 0.4)
		r.combsR[i].SetDamp(d * 0.4)
	}
	r.damp = d
}

// Damp returns the current absorption setting.
func (r *Reverb) Damp() float32 { return r.damp }

// SetWet sets the output level of the reverberated signal.
func (r *Reverb) SetWet(w float32) { r.wet.Set(Clamp(w, 0, 1)) }

// Wet returns the target wet level.
func (r *Reverb) Wet() float32 { return r.wet.Target() }

// ProcessMix reads the mono send in and adds the stereo reverb to left/right.
func (r *Reverb) ProcessMix(in, left, right []float32) {
	n := min(len(in), len(left), len(right))
	for i := 0; i < n; i++ {
		x := in[i] * reverbInputGain
		var l, rr float32
		for k := range r.combsL {
			l += r.combsL[k].Process(x)
			rr += r.combsR[k].Process(x)
		}
		for k := range r.allpassL {
			l = r.allpassL[k].Process(l)
			rr = r.allpassR[k].Process(rr)
		}
		wet := r.wet.Next()
		left[i] += l * wet
		right[i] += rr * wet
	}
}

// Reset clears every delay in the bank.
func (r *Reverb) Reset() {
	for k := range r.combsL {
		r.combsL[k].Reset()
		r.combsR[k].Reset()
	}
	for k := range r.allpassL {
		r.allpassL[k].Reset()
		r.allpassR[k].Reset()
	}
}
