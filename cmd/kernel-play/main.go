package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ebitengine/oto/v3"
	"golang.org/x/term"

	"github.com/cwbudde/algo-drums/drums"
	"github.com/cwbudde/algo-drums/pattern"
)

func main() {
	patternPath := flag.String("pattern", "", "Pattern JSON file (optional, built-in groove when empty)")
	sampleRate := flag.Int("sample-rate", 48000, "Output sample rate in Hz")
	blockSize := flag.Int("block-size", 256, "Processing block size in frames")
	velocity := flag.Float64("velocity", 1, "Velocity of keyboard hits")
	loop := flag.Bool("loop", false, "Start with the pattern sequencer running")
	flag.Parse()

	p := pattern.Default()
	if *patternPath != "" {
		var err error
		p, err = pattern.LoadJSON(*patternPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading pattern %q: %v\n", *patternPath, err)
			os.Exit(1)
		}
	}
	p.SampleRate = *sampleRate
	kit, err := p.Build(p.Config(*blockSize))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building kit: %v\n", err)
		os.Exit(1)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   p.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   20 * time.Millisecond,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening audio output: %v\n", err)
		os.Exit(1)
	}
	<-ready
	player := ctx.NewPlayer(newKitStream(kit, *blockSize*4))
	player.Play()
	defer player.Close()

	if err := run(kit, p, float32(*velocity), *loop); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run owns the kit's control side: it is the only goroutine that triggers,
// so the kit's single-producer trigger ring is respected.
func run(kit *drums.Kit, p *pattern.Pattern, velocity float32, loop bool) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("stdin is not a terminal")
	}
	old, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("raw mode: %w", err)
	}
	defer func() { _ = term.Restore(fd, old) }()

	fmt.Print("keys 1-8 trigger slots, p toggles the pattern, space silences, q quits\r\n")
	for i := 0; i < drums.Slots; i++ {
		if d := kit.Drum(i); d != nil {
			fmt.Printf("  %d: %-6s %v\r\n", i+1, d.Type(), d.Knobs())
		}
	}

	keys := make(chan byte, 16)
	go readKeys(keys)

	step := time.Duration(p.FramesPerStep()) * time.Second / time.Duration(p.SampleRate)
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	seq := newSequencer(p)

	for {
		select {
		case b, ok := <-keys:
			if !ok {
				return nil
			}
			switch {
			case b == 'q' || b == 3:
				return nil
			case b == ' ':
				kit.Silence()
			case b == 'p':
				loop = !loop
				seq.rewind()
			case b >= '1' && b < '1'+drums.Slots:
				slot := int(b - '1')
				if kit.Drum(slot) == nil {
					continue
				}
				if err := kit.Trigger(slot, velocity); err != nil {
					fmt.Printf("slot %d: %v\r\n", slot+1, err)
				}
			}
		case <-ticker.C:
			if !loop {
				continue
			}
			for _, h := range seq.next() {
				_ = kit.Trigger(h.Slot, h.Velocity)
			}
		}
	}
}

func readKeys(out chan<- byte) {
	defer close(out)
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n > 0 {
			out <- buf[0]
		}
	}
}

// sequencer walks a pattern's step grid in real time.
type sequencer struct {
	p    *pattern.Pattern
	step int
	hits []drums.Hit
}

func newSequencer(p *pattern.Pattern) *sequencer {
	return &sequencer{p: p, hits: make([]drums.Hit, 0, drums.Slots)}
}

func (s *sequencer) rewind() { s.step = 0 }

func (s *sequencer) next() []drums.Hit {
	s.hits = s.hits[:0]
	for slot, sl := range s.p.Slots {
		if sl == nil || len(sl.Hits) == 0 {
			continue
		}
		if v := sl.Hits[s.step%len(sl.Hits)]; v > 0 {
			s.hits = append(s.hits, drums.Hit{Slot: slot, Velocity: v})
		}
	}
	s.step = (s.step + 1) % s.p.TotalSteps()
	return s.hits
}
