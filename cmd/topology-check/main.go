package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/algo-drums/dsp"
	"github.com/cwbudde/algo-drums/fm"
)

func main() {
	ops := flag.Int("ops", 0, "Operator count to check (4 or 6, 0 checks both)")
	samples := flag.Int("samples", 4096, "Samples rendered per algorithm (0 skips rendering)")
	sampleRate := flag.Int("sample-rate", dsp.DefaultSampleRate, "Render sample rate in Hz")
	flag.Parse()

	counts := []int{4, 6}
	if *ops != 0 {
		counts = []int{*ops}
	}
	if problems := check(os.Stdout, counts, *sampleRate, *samples); problems > 0 {
		fmt.Fprintf(os.Stderr, "%d problem(s)\n", problems)
		os.Exit(1)
	}
}

// check prints every built-in algorithm for the given operator counts and
// returns the number of problems found.
func check(w io.Writer, opCounts []int, sampleRate, samples int) int {
	problems := 0
	for _, n := range opCounts {
		count := fm.Count(n)
		if count == 0 {
			fmt.Fprintf(w, "%d-op: no built-in algorithms\n", n)
			problems++
			continue
		}
		fmt.Fprintf(w, "%d-op: %d algorithms\n", n, count)
		for i := 0; i < count; i++ {
			a, err := fm.Lookup(n, i)
			if err != nil {
				fmt.Fprintf(w, "  %2d  %v\n", i+1, err)
				problems++
				continue
			}
			fmt.Fprintf(w, "  %2d  order %v  carriers %v  %s\n", i+1, oneBased(a.EvalOrder()), oneBased(a.Carriers()), a)
			for _, p := range fm.Validate(a, n) {
				fmt.Fprintf(w, "      %s\n", p)
				problems++
			}
			if samples > 0 {
				if err := render(a, sampleRate, samples); err != nil {
					fmt.Fprintf(w, "      %v\n", err)
					problems++
				}
			}
		}
	}
	return problems
}

// render plays a at full index and checks the output stays finite and
// audible.
func render(a *fm.Algorithm, sampleRate, samples int) error {
	v, err := fm.NewVoice(sampleRate, a)
	if err != nil {
		return err
	}
	v.SetIndex(fm.MaxIndex)
	v.Trigger()
	out := make([]float32, samples)
	v.Process(out, 220)
	var peak float32
	for i, x := range out {
		if !dsp.IsFinite(x) {
			return fmt.Errorf("sample %d is not finite", i)
		}
		peak = max(peak, x, -x)
	}
	if peak == 0 {
		return fmt.Errorf("silent after trigger")
	}
	return nil
}

func oneBased(ops []int) []int {
	out := make([]int, len(ops))
	for i, op := range ops {
		out[i] = op + 1
	}
	return out
}
