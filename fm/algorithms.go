package fm

import "fmt"

// layout lists modulation edges as {modulator, target} pairs with 1-based
// operator numbers. fb is the 1-based feedback operator, 0 for none.
type layout struct {
	edges [][2]int
	fb    int
}

// Four-operator layouts in the order of the classic 4-op chips. Operator 1
// modulates itself.
var fourOpLayouts = [...]layout{
	{edges: [][2]int{{1, 1}, {1, 2}, {2, 3}, {3, 4}}, fb: 1},
	{edges: [][2]int{{1, 1}, {1, 3}, {2, 3}, {3, 4}}, fb: 1},
	{edges: [][2]int{{1, 1}, {1, 4}, {2, 3}, {3, 4}}, fb: 1},
	{edges: [][2]int{{1, 1}, {1, 2}, {2, 4}, {3, 4}}, fb: 1},
	{edges: [][2]int{{1, 1}, {1, 2}, {3, 4}}, fb: 1},
	{edges: [][2]int{{1, 1}, {1, 2}, {1, 3}, {1, 4}}, fb: 1},
	{edges: [][2]int{{1, 1}, {1, 2}}, fb: 1},
	{edges: [][2]int{{1, 1}}, fb: 1},
}

// Six-operator layouts numbered as on the classic 6-op keyboards. Operator 1
// is always an output.
var sixOpLayouts = [...]layout{
	{edges: [][2]int{{2, 1}, {4, 3}, {5, 4}, {6, 5}, {6, 6}}, fb: 6},
	{edges: [][2]int{{2, 1}, {2, 2}, {4, 3}, {5, 4}, {6, 5}}, fb: 2},
	{edges: [][2]int{{2, 1}, {3, 2}, {5, 4}, {6, 5}, {6, 6}}, fb: 6},
	{edges: [][2]int{{2, 1}, {3, 2}, {5, 4}, {6, 5}, {4, 6}}, fb: 6},
	{edges: [][2]int{{2, 1}, {4, 3}, {6, 5}, {6, 6}}, fb: 6},
	{edges: [][2]int{{2, 1}, {4, 3}, {6, 5}, {5, 6}}, fb: 6},
	{edges: [][2]int{{2, 1}, {4, 3}, {5, 3}, {6, 5}, {6, 6}}, fb: 6},
	{edges: [][2]int{{2, 1}, {4, 3}, {4, 4}, {5, 3}, {6, 5}}, fb: 4},
	{edges: [][2]int{{2, 1}, {2, 2}, {4, 3}, {5, 3}, {6, 5}}, fb: 2},
	{edges: [][2]int{{2, 1}, {3, 2}, {3, 3}, {5, 4}, {6, 4}}, fb: 3},
	{edges: [][2]int{{2, 1}, {3, 2}, {5, 4}, {6, 4}, {6, 6}}, fb: 6},
	{edges: [][2]int{{2, 1}, {2, 2}, {4, 3}, {5, 3}, {6, 3}}, fb: 2},
	{edges: [][2]int{{2, 1}, {4, 3}, {5, 3}, {6, 3}, {6, 6}}, fb: 6},
	{edges: [][2]int{{2, 1}, {4, 3}, {5, 4}, {6, 4}, {6, 6}}, fb: 6},
	{edges: [][2]int{{2, 1}, {2, 2}, {4, 3}, {5, 4}, {6, 4}}, fb: 2},
	{edges: [][2]int{{2, 1}, {3, 1}, {5, 1}, {4, 3}, {6, 5}, {6, 6}}, fb: 6},
	{edges: [][2]int{{2, 1}, {2, 2}, {3, 1}, {5, 1}, {4, 3}, {6, 5}}, fb: 2},
	{edges: [][2]int{{2, 1}, {3, 1}, {3, 3}, {4, 1}, {5, 4}, {6, 5}}, fb: 3},
	{edges: [][2]int{{2, 1}, {3, 2}, {6, 4}, {6, 5}, {6, 6}}, fb: 6},
	{edges: [][2]int{{3, 1}, {3, 2}, {3, 3}, {5, 4}, {6, 4}}, fb: 3},
	{edges: [][2]int{{3, 1}, {3, 2}, {3, 3}, {6, 4}, {6, 5}}, fb: 3},
	{edges: [][2]int{{2, 1}, {6, 3}, {6, 4}, {6, 5}, {6, 6}}, fb: 6},
	{edges: [][2]int{{3, 2}, {6, 4}, {6, 5}, {6, 6}}, fb: 6},
	{edges: [][2]int{{6, 3}, {6, 4}, {6, 5}, {6, 6}}, fb: 6},
	{edges: [][2]int{{6, 4}, {6, 5}, {6, 6}}, fb: 6},
	{edges: [][2]int{{3, 2}, {5, 4}, {6, 4}, {6, 6}}, fb: 6},
	{edges: [][2]int{{3, 2}, {3, 3}, {5, 4}, {6, 4}}, fb: 3},
	{edges: [][2]int{{2, 1}, {4, 3}, {5, 4}, {5, 5}}, fb: 5},
	{edges: [][2]int{{4, 3}, {6, 5}, {6, 6}}, fb: 6},
	{edges: [][2]int{{4, 3}, {5, 4}, {5, 5}}, fb: 5},
	{edges: [][2]int{{6, 5}, {6, 6}}, fb: 6},
	{edges: [][2]int{{6, 6}}, fb: 6},
}

// Built-in algorithm tables, built once at init and never modified.
var (
	fourOp = mustBuildAll(4, fourOpLayouts[:])
	sixOp  = mustBuildAll(6, sixOpLayouts[:])
)

// FourOp returns the eight built-in four-operator algorithms.
func FourOp() []*Algorithm { return append([]*Algorithm(nil), fourOp...) }

// SixOp returns the 32 built-in six-operator algorithms.
func SixOp() []*Algorithm { return append([]*Algorithm(nil), sixOp...) }

func (l layout) build(opCount int) (*Algorithm, error) {
	mods := make([][]int, opCount)
	for _, e := range l.edges {
		from, to := e[0]-1, e[1]-1
		if to < 0 || to >= opCount {
			return nil, fmt.Errorf("edge %d->%d: target out of range", e[0], e[1])
		}
		mods[to] = append(mods[to], from)
	}
	return Build(opCount,
		func(op int) []int { return mods[op] },
		nil,
		func(op int) bool { return op == l.fb-1 })
}

func mustBuildAll(opCount int, layouts []layout) []*Algorithm {
	out := make([]*Algorithm, len(layouts))
	for i, l := range layouts {
		a, err := l.build(opCount)
		if err != nil {
			panic(fmt.Sprintf("fm: built-in %d-op algorithm %d: %v", opCount, i+1, err))
		}
		out[i] = a
	}
	return out
}

func table(opCount int) []*Algorithm {
	switch opCount {
	case 4:
		return fourOp
	case 6:
		return sixOp
	}
	return nil
}

// Count returns the number of built-in algorithms for opCount operators.
func Count(opCount int) int { return len(table(opCount)) }

// Lookup returns the built-in algorithm at index (0-based) for opCount
// operators.
func Lookup(opCount, index int) (*Algorithm, error) {
	algs := table(opCount)
	if algs == nil {
		return nil, fmt.Errorf("no built-in algorithms for %d operators", opCount)
	}
	if index < 0 || index >= len(algs) {
		return nil, fmt.Errorf("algorithm %d out of range [0, %d)", index, len(algs))
	}
	return algs[index], nil
}
