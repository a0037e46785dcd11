// Command noise-calibrate reports how far each noise colour's FFT band RMS
// sits from dsp.TargetRMS and which trim would close the gap. It is a
// diagnostic: dsp calibrates its own gains when a Noise is created.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/cwbudde/mayfly"
	"golang.org/x/sync/errgroup"

	"github.com/cwbudde/algo-drums/analysis"
	"github.com/cwbudde/algo-drums/dsp"
	"github.com/cwbudde/algo-drums/internal/wavio"
)

// Trims are searched on a log2 scale in [minTrimOct, maxTrimOct].
const (
	minTrimOct = -2.0
	maxTrimOct = 2.0
)

type options struct {
	sampleRate int
	samples    int
	variant    string
	pop        int
	iters      int
	seed       int64
}

type result struct {
	colour dsp.Colour
	gain   float32
	trim   float32
	rms    float64
	cost   float64
	evals  int
}

func main() {
	sampleRate := flag.Int("sample-rate", 48000, "Sample rate in Hz")
	samples := flag.Int("samples", 1<<15, "Samples rendered per evaluation")
	variant := flag.String("variant", "ma", "Mayfly variant: ma, desma, olce, eobbma, gsasma, mpma, aoblmoa")
	pop := flag.Int("pop", 10, "Mayfly population size")
	iters := flag.Int("iters", 30, "Mayfly iterations per colour")
	seed := flag.Int64("seed", 1, "Random seed")
	dump := flag.String("dump", "", "Write one trimmed WAV per colour into this directory")
	workers := flag.Int("workers", runtime.NumCPU(), "Colours calibrated in parallel")
	flag.Parse()

	opts := options{
		sampleRate: *sampleRate,
		samples:    *samples,
		variant:    strings.ToLower(*variant),
		pop:        *pop,
		iters:      *iters,
		seed:       *seed,
	}
	if opts.sampleRate <= 0 || opts.samples < analysis.DefaultFFTSize || opts.pop < 2 || opts.iters < 1 {
		fmt.Fprintln(os.Stderr, "Error: need sample-rate > 0, samples >= 4096, pop >= 2, iters >= 1")
		os.Exit(1)
	}

	results, err := calibrateAll(opts, *workers)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Noise calibration at %d Hz, band %.0f-%.0f Hz, target RMS %.3f\n",
		opts.sampleRate, dsp.CalibrationLoCut, hiCut(opts.sampleRate), dsp.TargetRMS)
	fmt.Printf("%-8s %10s %8s %10s %10s %6s\n", "colour", "gain", "trim", "band rms", "cost", "evals")
	for _, r := range results {
		fmt.Printf("%-8s %10.4f %8.4f %10.5f %10.6f %6d\n", r.colour, r.gain, r.trim, r.rms, r.cost, r.evals)
	}

	if *dump == "" {
		return
	}
	for _, r := range results {
		buf := renderNoise(r.colour, r.trim, opts.sampleRate, opts.samples, uint64(opts.seed))
		path := filepath.Join(*dump, r.colour.String()+".wav")
		if err := wavio.WriteMono(path, buf, opts.sampleRate); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", path)
	}
}

func calibrateAll(opts options, workers int) ([]result, error) {
	colours := dsp.Colours()
	results := make([]result, len(colours))
	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for i, c := range colours {
		g.Go(func() error {
			r, err := calibrateColour(c, opts)
			if err != nil {
				return fmt.Errorf("%s: %w", c, err)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// calibrateColour searches the trim that brings the FFT band RMS of colour c
// to dsp.TargetRMS.
func calibrateColour(c dsp.Colour, opts options) (result, error) {
	cfg, err := newMayflyConfig(opts.variant, opts.pop, 1, opts.iters)
	if err != nil {
		return result{}, err
	}
	cfg.Rand = rand.New(rand.NewSource(opts.seed + int64(c)*7919))

	var (
		mu   sync.Mutex
		best = result{colour: c, cost: math.Inf(1)}
	)
	lo, hi := dsp.CalibrationLoCut, hiCut(opts.sampleRate)
	cfg.ObjectiveFunc = func(pos []float64) float64 {
		if len(pos) != 1 || math.IsNaN(pos[0]) {
			return math.Inf(1)
		}
		trim := trimFromPos(pos[0])
		buf := renderNoise(c, trim, opts.sampleRate, opts.samples, uint64(opts.seed))
		rms := analysis.BandRMS(analysis.ToFloat64(buf), opts.sampleRate, lo, hi)
		cost := math.Inf(1)
		if rms > 0 {
			cost = math.Abs(math.Log(rms / dsp.TargetRMS))
		}

		mu.Lock()
		best.evals++
		if cost < best.cost {
			best.trim, best.rms, best.cost = trim, rms, cost
		}
		mu.Unlock()
		return cost
	}

	if _, err := runMayfly(cfg); err != nil {
		return result{}, err
	}
	if math.IsInf(best.cost, 1) {
		return result{}, fmt.Errorf("no finite evaluation in %d tries", best.evals)
	}
	n := dsp.NewNoise(opts.sampleRate, uint64(opts.seed))
	n.SetTrim(c, best.trim)
	best.gain = n.Gain(c)
	return best, nil
}

func trimFromPos(pos float64) float32 {
	pos = math.Max(0, math.Min(1, pos))
	return float32(math.Exp2(minTrimOct + pos*(maxTrimOct-minTrimOct)))
}

func hiCut(sampleRate int) float64 {
	return math.Min(dsp.CalibrationHiCut, 0.45*float64(sampleRate))
}

func renderNoise(c dsp.Colour, trim float32, sampleRate, samples int, seed uint64) []float32 {
	n := dsp.NewNoise(sampleRate, seed)
	n.SetColour(c)
	n.SetTrim(c, trim)
	buf := make([]float32, samples)
	n.Fill(buf, 0, samples)
	return buf
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0
	cfg.UpperBound = 1
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	// NC/2 parent pairs are drawn from both populations.
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}
