// Package fm builds and evaluates frequency-modulation operator graphs.
//
// An Algorithm is validated once at control rate and then shared read-only
// with the audio goroutine, which walks its precomputed evaluation order
// every sample.
package fm

import (
	"fmt"
	"math"
	"strings"
)

// MaxOperators bounds the operator count of every Algorithm.
const MaxOperators = 8

// ModulatorsFunc lists the operators that modulate op.
type ModulatorsFunc func(op int) []int

// ScaleFunc returns the depth of the edge mod -> op.
type ScaleFunc func(op, mod int) float32

// FeedbackFunc reports whether op may close a modulation loop.
type FeedbackFunc func(op int) bool

// TopologyError carries every problem found while building an Algorithm.
type TopologyError struct {
	Problems []string
}

func (e *TopologyError) Error() string {
	return "fm: invalid topology: " + strings.Join(e.Problems, "; ")
}

type edge struct {
	from     uint8
	scale    float32
	feedback bool
}

// Algorithm is an immutable operator graph with its evaluation order.
type Algorithm struct {
	n       int
	edges   [MaxOperators][MaxOperators]edge
	nEdges  [MaxOperators]uint8
	fb      [MaxOperators]bool
	carrier [MaxOperators]bool
	order   [MaxOperators]uint8

	carrierGain float32
}

// Build validates the graph described by the three functions and computes
// its evaluation order. Edges into a feedback-flagged operator that close a
// loop back onto it are feedback edges: they read the previous sample and
// are excluded from ordering. nil scale means 1, nil feedback means none.
func Build(opCount int, modulators ModulatorsFunc, scale ScaleFunc, feedback FeedbackFunc) (*Algorithm, error) {
	a, problems := build(opCount, modulators, scale, feedback)
	if len(problems) > 0 {
		return nil, &TopologyError{Problems: problems}
	}
	return a, nil
}

func build(opCount int, modulators ModulatorsFunc, scale ScaleFunc, feedback FeedbackFunc) (*Algorithm, []string) {
	if opCount < 1 || opCount > MaxOperators {
		return nil, []string{fmt.Sprintf("operator count %d out of range [1, %d]", opCount, MaxOperators)}
	}
	a := &Algorithm{n: opCount}
	var problems []string

	for op := 0; op < opCount; op++ {
		if feedback != nil {
			a.fb[op] = feedback(op)
		}
		if modulators == nil {
			continue
		}
		var seen [MaxOperators]bool
		for _, m := range modulators(op) {
			if m < 0 || m >= opCount {
				problems = append(problems, fmt.Sprintf("operator %d: modulator %d out of range", op, m))
				continue
			}
			if seen[m] {
				problems = append(problems, fmt.Sprintf("operator %d: duplicate modulator %d", op, m))
				continue
			}
			seen[m] = true
			s := float32(1)
			if scale != nil {
				s = scale(op, m)
			}
			if math.IsNaN(float64(s)) || math.IsInf(float64(s), 0) {
				problems = append(problems, fmt.Sprintf("operator %d: scale from %d is not finite", op, m))
				continue
			}
			a.edges[op][a.nEdges[op]] = edge{from: uint8(m), scale: s}
			a.nEdges[op]++
		}
	}

	for op := 0; op < opCount; op++ {
		if !a.fb[op] {
			continue
		}
		for e := 0; e < int(a.nEdges[op]); e++ {
			m := int(a.edges[op][e].from)
			if m == op || a.reaches(op, m) {
				a.edges[op][e].feedback = true
			}
		}
	}

	order, ordered := a.sort()
	a.order = order
	if ordered < opCount {
		var stuck []string
		placed := make(map[int]bool, ordered)
		for i := 0; i < ordered; i++ {
			placed[int(order[i])] = true
		}
		for op := 0; op < opCount; op++ {
			if !placed[op] {
				stuck = append(stuck, fmt.Sprint(op))
			}
		}
		problems = append(problems,
			fmt.Sprintf("non-feedback cycle through operators [%s]", strings.Join(stuck, " ")),
			fmt.Sprintf("ordered %d of %d operators", ordered, opCount))
	}
	if len(problems) > 0 {
		return nil, problems
	}

	carriers := 0
	for op := 0; op < opCount; op++ {
		a.carrier[op] = true
	}
	for op := 0; op < opCount; op++ {
		for e := 0; e < int(a.nEdges[op]); e++ {
			if ed := a.edges[op][e]; !ed.feedback {
				a.carrier[ed.from] = false
			}
		}
	}
	for op := 0; op < opCount; op++ {
		if a.carrier[op] {
			carriers++
		}
	}
	if carriers > 0 {
		a.carrierGain = 1 / float32(carriers)
	}
	return a, nil
}

// reaches reports whether from modulates to, passing only through operators
// without the feedback flag.
func (a *Algorithm) reaches(from, to int) bool {
	var visited [MaxOperators]bool
	var stack [MaxOperators]int
	sp := 0
	stack[sp] = from
	sp++
	visited[from] = true
	for sp > 0 {
		sp--
		cur := stack[sp]
		for op := 0; op < a.n; op++ {
			if visited[op] {
				continue
			}
			if _, ok := a.find(op, cur); !ok {
				continue
			}
			if op == to {
				return true
			}
			if a.fb[op] {
				continue
			}
			visited[op] = true
			stack[sp] = op
			sp++
		}
	}
	return false
}

// sort is Kahn's algorithm over non-feedback edges, picking the lowest ready
// operator first.
func (a *Algorithm) sort() ([MaxOperators]uint8, int) {
	var order [MaxOperators]uint8
	var indegree [MaxOperators]int
	var done [MaxOperators]bool
	for op := 0; op < a.n; op++ {
		for e := 0; e < int(a.nEdges[op]); e++ {
			if !a.edges[op][e].feedback {
				indegree[op]++
			}
		}
	}
	count := 0
	for count < a.n {
		next := -1
		for op := 0; op < a.n; op++ {
			if !done[op] && indegree[op] == 0 {
				next = op
				break
			}
		}
		if next < 0 {
			break
		}
		done[next] = true
		order[count] = uint8(next)
		count++
		for op := 0; op < a.n; op++ {
			for e := 0; e < int(a.nEdges[op]); e++ {
				if ed := a.edges[op][e]; !ed.feedback && int(ed.from) == next {
					indegree[op]--
				}
			}
		}
	}
	return order, count
}

// Validate checks a against opCount and returns the problems found. An empty
// result means the algorithm is safe to evaluate.
func Validate(a *Algorithm, opCount int) []string {
	if a == nil {
		return []string{"algorithm is nil"}
	}
	var problems []string
	if a.n != opCount {
		problems = append(problems, fmt.Sprintf("algorithm has %d operators, want %d", a.n, opCount))
	}
	if a.n < 1 || a.n > MaxOperators {
		return append(problems, fmt.Sprintf("operator count %d out of range [1, %d]", a.n, MaxOperators))
	}

	var pos [MaxOperators]int
	var seen [MaxOperators]bool
	for i := 0; i < a.n; i++ {
		op := int(a.order[i])
		if op >= a.n || seen[op] {
			problems = append(problems, fmt.Sprintf("evaluation order slot %d holds invalid operator %d", i, op))
			continue
		}
		seen[op] = true
		pos[op] = i
	}
	if len(problems) > 0 {
		return problems
	}
	for op := 0; op < a.n; op++ {
		for e := 0; e < int(a.nEdges[op]); e++ {
			ed := a.edges[op][e]
			m := int(ed.from)
			switch {
			case m >= a.n:
				problems = append(problems, fmt.Sprintf("operator %d: modulator %d out of range", op, m))
			case math.IsNaN(float64(ed.scale)) || math.IsInf(float64(ed.scale), 0):
				problems = append(problems, fmt.Sprintf("operator %d: scale from %d is not finite", op, m))
			case !ed.feedback && pos[m] >= pos[op]:
				problems = append(problems, fmt.Sprintf("operator %d evaluated before its modulator %d", op, m))
			}
		}
	}
	return problems
}

// OpCount returns the number of operators.
func (a *Algorithm) OpCount() int { return a.n }

// EvalOrder returns the operators in evaluation order.
func (a *Algorithm) EvalOrder() []int {
	out := make([]int, a.n)
	for i := range out {
		out[i] = int(a.order[i])
	}
	return out
}

// Modulators lists the operators feeding op, feedback edges included.
func (a *Algorithm) Modulators(op int) []int {
	if op < 0 || op >= a.n {
		return nil
	}
	out := make([]int, a.nEdges[op])
	for e := range out {
		out[e] = int(a.edges[op][e].from)
	}
	return out
}

// Scale returns the depth of the edge mod -> op, or 0 when there is none.
func (a *Algorithm) Scale(op, mod int) float32 {
	if e, ok := a.find(op, mod); ok {
		return e.scale
	}
	return 0
}

// Feedback reports whether op carries the feedback flag.
func (a *Algorithm) Feedback(op int) bool {
	return op >= 0 && op < a.n && a.fb[op]
}

// IsFeedbackEdge reports whether mod -> op reads the previous sample.
func (a *Algorithm) IsFeedbackEdge(op, mod int) bool {
	e, ok := a.find(op, mod)
	return ok && e.feedback
}

// IsCarrier reports whether op is mixed to the output.
func (a *Algorithm) IsCarrier(op int) bool {
	return op >= 0 && op < a.n && a.carrier[op]
}

// Carriers lists the output operators in index order.
func (a *Algorithm) Carriers() []int {
	var out []int
	for op := 0; op < a.n; op++ {
		if a.carrier[op] {
			out = append(out, op)
		}
	}
	return out
}

func (a *Algorithm) find(op, mod int) (edge, bool) {
	if op < 0 || op >= a.n {
		return edge{}, false
	}
	for e := 0; e < int(a.nEdges[op]); e++ {
		if int(a.edges[op][e].from) == mod {
			return a.edges[op][e], true
		}
	}
	return edge{}, false
}

// String describes the graph with 1-based operator numbers.
func (a *Algorithm) String() string {
	var b strings.Builder
	for op := 0; op < a.n; op++ {
		for e := 0; e < int(a.nEdges[op]); e++ {
			ed := a.edges[op][e]
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			arrow := "->"
			if ed.feedback {
				arrow = "~>"
			}
			fmt.Fprintf(&b, "%d%s%d", ed.from+1, arrow, op+1)
		}
	}
	order := make([]string, a.n)
	for i := range order {
		order[i] = fmt.Sprint(a.order[i] + 1)
	}
	carriers := make([]string, 0, a.n)
	for _, c := range a.Carriers() {
		carriers = append(carriers, fmt.Sprint(c+1))
	}
	if b.Len() == 0 {
		b.WriteString("-")
	}
	fmt.Fprintf(&b, " | order %s | out %s", strings.Join(order, ","), strings.Join(carriers, ","))
	return b.String()
}
