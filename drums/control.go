package drums

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-drums/envelope"
)

// MaxKnobs bounds the knob count of any drum.
const MaxKnobs = 8

// Controls carries control-goroutine edits to the audio goroutine. Writers
// store values and bump seq; the audio goroutine compares seq once per buffer
// and applies everything when it moved.
type Controls struct {
	seq         atomic.Uint64
	knobs       [MaxKnobs]atomic.Uint32
	fundamental atomic.Uint32
	volume      atomic.Uint32
	pan         atomic.Uint32
	freqs       atomic.Pointer[Freqs]
	env         atomic.Pointer[envelope.Settings]
	silence     atomic.Bool
}

func storeFloat(a *atomic.Uint32, v float32) { a.Store(math.Float32bits(v)) }
func loadFloat(a *atomic.Uint32) float32     { return math.Float32frombits(a.Load()) }

func (c *Controls) setKnob(i int, v float32) {
	storeFloat(&c.knobs[i], v)
	c.seq.Add(1)
}

func (c *Controls) knob(i int) float32 { return loadFloat(&c.knobs[i]) }

func (c *Controls) setFundamental(hz float32) {
	storeFloat(&c.fundamental, hz)
	c.seq.Add(1)
}

func (c *Controls) setGain(g Gain) {
	storeFloat(&c.volume, g.Volume)
	storeFloat(&c.pan, g.Pan)
	c.seq.Add(1)
}

func (c *Controls) gain() Gain {
	return Gain{Volume: loadFloat(&c.volume), Pan: loadFloat(&c.pan)}
}

func (c *Controls) setFreqs(f Freqs) {
	c.freqs.Store(&f)
	c.seq.Add(1)
}

// setEnvelope publishes s. Callers never modify s afterwards.
func (c *Controls) setEnvelope(s envelope.Settings) {
	c.env.Store(&s)
	c.seq.Add(1)
}

func (c *Controls) envelope() envelope.Settings { return *c.env.Load() }

// Seq returns the edit counter.
func (c *Controls) Seq() uint64 { return c.seq.Load() }

// requestSilence flags a fade-out for the next buffer.
func (c *Controls) requestSilence() { c.silence.Store(true) }

// takeSilence clears and returns the silence flag.
func (c *Controls) takeSilence() bool { return c.silence.Swap(false) }

// Hit is one queued trigger.
type Hit struct {
	Slot     int
	Velocity float32
}

// TriggerQueue is a bounded single-producer single-consumer ring. Push
// belongs to one control goroutine, Pop to the audio goroutine.
type TriggerQueue struct {
	buf  []Hit
	mask uint64
	head atomic.Uint64
	tail atomic.Uint64
}

// NewTriggerQueue allocates a ring holding at least capacity hits.
func NewTriggerQueue(capacity int) *TriggerQueue {
	n := 1
	for n < capacity {
		n <<= 1
	}
	return &TriggerQueue{buf: make([]Hit, n), mask: uint64(n - 1)}
}

// Push appends h and reports false when the ring is full.
func (q *TriggerQueue) Push(h Hit) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() >= uint64(len(q.buf)) {
		return false
	}
	q.buf[tail&q.mask] = h
	q.tail.Store(tail + 1)
	return true
}

// Pop removes the oldest hit.
func (q *TriggerQueue) Pop() (Hit, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return Hit{}, false
	}
	h := q.buf[head&q.mask]
	q.head.Store(head + 1)
	return h, true
}

// Len returns the number of queued hits.
func (q *TriggerQueue) Len() int { return int(q.tail.Load() - q.head.Load()) }

// Cap returns the ring size.
func (q *TriggerQueue) Cap() int { return len(q.buf) }
