package drums

import (
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/cwbudde/algo-drums/dsp"
	"github.com/cwbudde/algo-drums/envelope"
)

// Slots is the number of drums a kit holds.
const Slots = 8

// TriggerQueueSize is the capacity of a kit's trigger ring.
const TriggerQueueSize = 256

// ErrQueueFull is returned by Kit.Trigger when the audio goroutine has
// fallen behind and the trigger ring has no room.
var ErrQueueFull = errors.New("trigger queue full")

// ReverbSettings are the kit's send effect parameters, each in [0,1].
type ReverbSettings struct {
	Room float32
	Damp float32
	Wet  float32
}

// DefaultReverb is the send effect of a new kit.
var DefaultReverb = ReverbSettings{Room: 0.5, Damp: 0.5, Wet: 0.3}

// Event is one hit at a frame offset, used for offline rendering.
type Event struct {
	Frame    int
	Slot     int
	Velocity float32
}

// Kit mixes a fixed set of drums through a shared reverb send and a master
// gain. Trigger, SetSend, SetMaster, SetReverb and Silence may be called from
// one control goroutine while another runs Process.
type Kit struct {
	cfg   dsp.Config
	drums [Slots]Drum
	queue *TriggerQueue

	sends   [Slots]atomic.Uint32
	master  atomic.Uint32
	silence atomic.Bool
	dropped atomic.Uint64

	room, damp, wet atomic.Uint32
	reverbSeq       atomic.Uint64
	reverbApplied   uint64

	reverb     *dsp.Reverb
	masterRamp *dsp.Ramp
	returnFade *dsp.Ramp
	clearing   bool

	slotL, slotR []float32
	send         []float32
	wetL, wetR   []float32
}

// NewKit returns an empty kit with unity master gain.
func NewKit(cfg dsp.Config) *Kit {
	cfg = withDefaults(cfg)
	n := cfg.BlockSize
	k := &Kit{
		cfg:        cfg,
		queue:      NewTriggerQueue(TriggerQueueSize),
		reverb:     dsp.NewReverb(cfg.SampleRate),
		masterRamp: dsp.NewRamp(gainRampSamples),
		returnFade: dsp.NewRamp(envelope.MsToSamples(SilenceFadeMs, cfg.SampleRate)),
		slotL:      make([]float32, n),
		slotR:      make([]float32, n),
		send:       make([]float32, n),
		wetL:       make([]float32, n),
		wetR:       make([]float32, n),
	}
	storeFloat(&k.master, 1)
	k.masterRamp.Reset(1)
	k.returnFade.Reset(1)
	k.SetReverb(DefaultReverb)
	k.applyReverb()
	return k
}

// Config returns the kit's processing configuration.
func (k *Kit) Config() dsp.Config { return k.cfg }

// SetDrum installs d in slot. A nil drum empties the slot. Not safe while
// Process runs.
func (k *Kit) SetDrum(slot int, d Drum) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	k.drums[slot] = d
	return nil
}

// Drum returns the drum in slot, or nil.
func (k *Kit) Drum(slot int) Drum {
	if checkSlot(slot) != nil {
		return nil
	}
	return k.drums[slot]
}

func checkSlot(slot int) error {
	if slot < 0 || slot >= Slots {
		return fmt.Errorf("slot %d out of range [0, %d)", slot, Slots)
	}
	return nil
}

// Trigger queues a hit for the next Process call.
func (k *Kit) Trigger(slot int, velocity float32) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	if k.drums[slot] == nil {
		return fmt.Errorf("slot %d is empty", slot)
	}
	if !k.queue.Push(Hit{Slot: slot, Velocity: velocity}) {
		k.dropped.Add(1)
		return ErrQueueFull
	}
	return nil
}

// Dropped returns how many triggers were rejected because the ring was full.
func (k *Kit) Dropped() uint64 { return k.dropped.Load() }

// SetSend sets the reverb send level of slot, clamped to [0,1].
func (k *Kit) SetSend(slot int, level float32) error {
	if err := checkSlot(slot); err != nil {
		return err
	}
	storeFloat(&k.sends[slot], dsp.Clamp(level, 0, 1))
	return nil
}

// Send returns the reverb send level of slot.
func (k *Kit) Send(slot int) float32 {
	if checkSlot(slot) != nil {
		return 0
	}
	return loadFloat(&k.sends[slot])
}

// SetMaster sets the output gain in [0, MaxVolume].
func (k *Kit) SetMaster(gain float32) error {
	if !(gain >= 0 && gain <= MaxVolume) {
		return fmt.Errorf("master gain %g out of range [0, %d]", gain, MaxVolume)
	}
	storeFloat(&k.master, gain)
	return nil
}

// Master returns the output gain.
func (k *Kit) Master() float32 { return loadFloat(&k.master) }

// SetReverb replaces the send effect parameters. Values are clamped to [0,1].
func (k *Kit) SetReverb(r ReverbSettings) {
	storeFloat(&k.room, dsp.Clamp(r.Room, 0, 1))
	storeFloat(&k.damp, dsp.Clamp(r.Damp, 0, 1))
	storeFloat(&k.wet, dsp.Clamp(r.Wet, 0, 1))
	k.reverbSeq.Add(1)
}

// Reverb returns the current send effect parameters.
func (k *Kit) Reverb() ReverbSettings {
	return ReverbSettings{Room: loadFloat(&k.room), Damp: loadFloat(&k.damp), Wet: loadFloat(&k.wet)}
}

func (k *Kit) applyReverb() {
	seq := k.reverbSeq.Load()
	if seq == k.reverbApplied {
		return
	}
	k.reverbApplied = seq
	r := k.Reverb()
	k.reverb.SetRoomSize(r.Room)
	k.reverb.SetDamp(r.Damp)
	k.reverb.SetWet(r.Wet)
}

// Silence fades every drum and the reverb tail out and clears their state.
func (k *Kit) Silence() {
	for _, d := range k.drums {
		if d != nil {
			d.Silence()
		}
	}
	k.silence.Store(true)
}

// IsSounding reports whether any drum is still producing output.
func (k *Kit) IsSounding() bool {
	for _, d := range k.drums {
		if d != nil && d.IsSounding() {
			return true
		}
	}
	return false
}

// Reset stops every drum and clears the reverb at once.
func (k *Kit) Reset() {
	for _, d := range k.drums {
		if d != nil {
			d.Reset()
		}
	}
	for {
		if _, ok := k.queue.Pop(); !ok {
			break
		}
	}
	k.reverb.Reset()
	k.returnFade.Reset(1)
	k.clearing = false
}

func (k *Kit) drain() {
	for {
		h, ok := k.queue.Pop()
		if !ok {
			return
		}
		if d := k.drums[h.Slot]; d != nil {
			d.Trigger(h.Velocity)
		}
	}
}

// Process overwrites left and right with the kit output. Queued triggers
// land at the first frame.
func (k *Kit) Process(left, right []float32) {
	k.drain()
	k.processBlock(left, right)
}

func (k *Kit) processBlock(left, right []float32) {
	n := min(len(left), len(right))
	dsp.Zero(left[:n])
	dsp.Zero(right[:n])

	if k.silence.Swap(false) {
		k.returnFade.Set(0)
		k.clearing = true
	}
	k.applyReverb()
	if m := loadFloat(&k.master); m != k.masterRamp.Target() {
		k.masterRamp.Set(m)
	}

	for off := 0; off < n; off += k.cfg.BlockSize {
		m := min(n-off, k.cfg.BlockSize)
		k.mix(left[off:off+m], right[off:off+m])
	}
}

func (k *Kit) mix(left, right []float32) {
	m := len(left)
	send := k.send[:m]
	dsp.Zero(send)
	for slot, d := range k.drums {
		if d == nil || !d.IsSounding() {
			continue
		}
		level := loadFloat(&k.sends[slot])
		if level <= 0 {
			d.Process(left, right)
			continue
		}
		l, r := k.slotL[:m], k.slotR[:m]
		dsp.Zero(l)
		dsp.Zero(r)
		d.Process(l, r)
		for i := range l {
			left[i] += l[i]
			right[i] += r[i]
			send[i] += 0.5 * (l[i] + r[i]) * level
		}
	}

	wl, wr := k.wetL[:m], k.wetR[:m]
	dsp.Zero(wl)
	dsp.Zero(wr)
	k.reverb.ProcessMix(send, wl, wr)
	for i := range left {
		g := k.masterRamp.Next()
		fade := k.returnFade.Next()
		left[i] = (left[i] + wl[i]*fade) * g
		right[i] = (right[i] + wr[i]*fade) * g
	}
	if k.clearing && !k.returnFade.IsRamping() {
		k.reverb.Reset()
		k.returnFade.Reset(1)
		k.clearing = false
	}
}

// Render plays events offline and returns frames of stereo output. Events
// may be unsorted; each lands on its exact frame. Not safe while Process
// runs on another goroutine.
func (k *Kit) Render(events []Event, frames int) (left, right []float32, err error) {
	evs, err := sortedEvents(events, frames)
	if err != nil {
		return nil, nil, err
	}
	for _, e := range evs {
		if k.drums[e.Slot] == nil {
			return nil, nil, fmt.Errorf("event at frame %d: slot %d is empty", e.Frame, e.Slot)
		}
	}
	left = make([]float32, frames)
	right = make([]float32, frames)
	pos := 0
	for _, e := range evs {
		if e.Frame > pos {
			k.processBlock(left[pos:e.Frame], right[pos:e.Frame])
			pos = e.Frame
		}
		k.drums[e.Slot].Trigger(e.Velocity)
	}
	k.processBlock(left[pos:], right[pos:])
	return left, right, nil
}

// RenderStem plays the events addressed to slot through d alone, dry and
// without master gain. It is the per-slot counterpart of Kit.Render and
// allocates its own buffers, so stems of separate drums can render
// concurrently.
func RenderStem(d Drum, slot int, events []Event, frames, blockSize int) (left, right []float32, err error) {
	if d == nil {
		return nil, nil, errors.New("nil drum")
	}
	if blockSize <= 0 {
		blockSize = dsp.DefaultBlockSize
	}
	evs, err := sortedEvents(events, frames)
	if err != nil {
		return nil, nil, err
	}
	left = make([]float32, frames)
	right = make([]float32, frames)
	run := func(from, to int) {
		for off := from; off < to; off += blockSize {
			end := min(off+blockSize, to)
			d.Process(left[off:end], right[off:end])
		}
	}
	pos := 0
	for _, e := range evs {
		if e.Slot != slot {
			continue
		}
		run(pos, e.Frame)
		pos = max(pos, e.Frame)
		d.Trigger(e.Velocity)
	}
	run(pos, frames)
	return left, right, nil
}

func sortedEvents(events []Event, frames int) ([]Event, error) {
	if frames < 0 {
		return nil, fmt.Errorf("negative frame count %d", frames)
	}
	for _, e := range events {
		if e.Frame < 0 || e.Frame >= frames {
			return nil, fmt.Errorf("event frame %d out of range [0, %d)", e.Frame, frames)
		}
		if err := checkSlot(e.Slot); err != nil {
			return nil, err
		}
	}
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b Event) int { return a.Frame - b.Frame })
	return out, nil
}
