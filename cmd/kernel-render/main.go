package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-drums/analysis"
	"github.com/cwbudde/algo-drums/drums"
	"github.com/cwbudde/algo-drums/dsp"
	"github.com/cwbudde/algo-drums/internal/wavio"
	"github.com/cwbudde/algo-drums/pattern"
)

func main() {
	patternPath := flag.String("pattern", "", "Pattern JSON file path (built-in groove when empty)")
	sampleRate := flag.Int("sample-rate", 0, "Render sample rate in Hz (0 keeps the pattern's rate)")
	outputRate := flag.Int("output-rate", 0, "Output WAV sample rate in Hz (0 keeps the render rate)")
	blockSize := flag.Int("block-size", 256, "Processing block size in frames")
	output := flag.String("output", "output.wav", "Output WAV file path")
	stemsDir := flag.String("stems", "", "Also write one dry WAV per slot into this directory")
	decayDBFS := flag.Float64("decay-dbfs", math.Inf(1), "Trim the tail below this level in dBFS (e.g. -90). Disabled by default")
	workers := flag.Int("workers", runtime.NumCPU(), "Parallel stem renders")
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
	if *sampleRate > 0 {
		p.SampleRate = *sampleRate
	}
	if err := p.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid pattern: %v\n", err)
		os.Exit(1)
	}
	outRate := p.SampleRate
	if *outputRate > 0 {
		outRate = *outputRate
	}

	cfg := p.Config(*blockSize)
	events := p.Events()
	frames := p.Frames()
	fmt.Printf("Rendering %d bars of %d steps at %.1f BPM, %d events, %d frames at %d Hz...\n",
		p.Bars, p.Steps, p.Tempo, len(events), frames, p.SampleRate)

	kit, err := p.Build(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building kit: %v\n", err)
		os.Exit(1)
	}
	left, right, err := kit.Render(events, frames)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering: %v\n", err)
		os.Exit(1)
	}
	left, right = wavio.TrimTail(left, right, *decayDBFS, p.TotalSteps()*p.FramesPerStep())
	if err := writeStereo(*output, left, right, p.SampleRate, outRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", *output, err)
		os.Exit(1)
	}
	fmt.Printf("Successfully wrote %s (%d frames at %d Hz)\n", *output, len(left), outRate)
	fmt.Printf("  mix %s\n", summary(left, p.SampleRate))

	if *stemsDir == "" {
		return
	}
	if err := renderStems(p, cfg, events, len(left), *stemsDir, outRate, *workers); err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering stems: %v\n", err)
		os.Exit(1)
	}
}

// renderStems renders every occupied slot with its own drum instance so the
// slots can run in parallel.
func renderStems(p *pattern.Pattern, cfg dsp.Config, events []drums.Event, frames int, dir string, outRate, workers int) error {
	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for slot, s := range p.Slots {
		if s == nil {
			continue
		}
		g.Go(func() error {
			d, err := p.NewDrum(cfg, slot)
			if err != nil {
				return err
			}
			l, r, err := drums.RenderStem(d, slot, events, frames, cfg.BlockSize)
			if err != nil {
				return fmt.Errorf("slot %d: %w", slot, err)
			}
			path := filepath.Join(dir, fmt.Sprintf("%d-%s.wav", slot+1, s.Setup.Type))
			if err := writeStereo(path, l, r, p.SampleRate, outRate); err != nil {
				return fmt.Errorf("slot %d: %w", slot, err)
			}
			fmt.Printf("  stem %s: %s\n", path, summary(l, p.SampleRate))
			return nil
		})
	}
	return g.Wait()
}

func writeStereo(path string, left, right []float32, renderRate, outRate int) error {
	l, r, err := wavio.ResampleStereo(left, right, renderRate, outRate)
	if err != nil {
		return err
	}
	return wavio.WriteStereo(path, l, r, outRate)
}

func summary(x []float32, sampleRate int) string {
	m := analysis.Measure(analysis.ToFloat64(x), sampleRate)
	return fmt.Sprintf("peak %.3f rms %.4f crest %.1f dB centroid %.0f Hz tail %d frames",
		m.Peak, m.RMS, m.CrestDB, m.CentroidHz, m.TailFrames)
}
