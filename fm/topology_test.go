package fm

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestBuiltinAlgorithmsValidate(t *testing.T) {
	for _, tc := range []struct {
		opCount int
		algs    []*Algorithm
		want    int
	}{
		{4, FourOp(), 8},
		{6, SixOp(), 32},
	} {
		if len(tc.algs) != tc.want {
			t.Fatalf("%d-op table: got=%d algorithms want=%d", tc.opCount, len(tc.algs), tc.want)
		}
		for i, a := range tc.algs {
			if problems := Validate(a, tc.opCount); len(problems) > 0 {
				t.Fatalf("%d-op algorithm %d: %v", tc.opCount, i+1, problems)
			}
			order := a.EvalOrder()
			if len(order) != tc.opCount {
				t.Fatalf("%d-op algorithm %d: order length got=%d want=%d", tc.opCount, i+1, len(order), tc.opCount)
			}
			if len(a.Carriers()) == 0 {
				t.Fatalf("%d-op algorithm %d has no carrier", tc.opCount, i+1)
			}
		}
	}
}

func TestLookup(t *testing.T) {
	if Count(4) != 8 || Count(6) != 32 || Count(5) != 0 {
		t.Fatalf("unexpected counts: %d %d %d", Count(4), Count(6), Count(5))
	}
	a, err := Lookup(6, 31)
	if err != nil || a.OpCount() != 6 {
		t.Fatalf("Lookup(6, 31): %v %v", a, err)
	}
	if _, err := Lookup(6, 32); err == nil {
		t.Fatalf("expected error for index past the table")
	}
	if _, err := Lookup(3, 0); err == nil {
		t.Fatalf("expected error for unsupported operator count")
	}
}

func TestTablesAreCopies(t *testing.T) {
	algs := FourOp()
	algs[0] = nil
	if FourOp()[0] == nil {
		t.Fatalf("FourOp must return a fresh slice")
	}
}

func TestEvalOrderTieBreak(t *testing.T) {
	tests := []struct {
		name string
		mods map[int][]int
		want []int
	}{
		{"independent", nil, []int{0, 1, 2}},
		{"last modulates first", map[int][]int{0: {2}}, []int{1, 2, 0}},
		{"chain", map[int][]int{0: {1}, 1: {2}}, []int{2, 1, 0}},
		{"fan in", map[int][]int{1: {3, 2}}, []int{0, 2, 3, 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n := len(tc.want)
			a, err := Build(n, func(op int) []int { return tc.mods[op] }, nil, nil)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if got := a.EvalOrder(); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("order: got=%v want=%v", got, tc.want)
			}
		})
	}
}

func TestBuildRejectsInvalidGraphs(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name    string
		opCount int
		mods    map[int][]int
		scale   ScaleFunc
		want    string
	}{
		{"cycle", 2, map[int][]int{0: {1}, 1: {0}}, nil, "non-feedback cycle"},
		{"out of range", 3, map[int][]int{0: {5}}, nil, "out of range"},
		{"negative", 3, map[int][]int{1: {-1}}, nil, "out of range"},
		{"duplicate", 3, map[int][]int{0: {1, 1}}, nil, "duplicate"},
		{"nan scale", 2, map[int][]int{0: {1}}, func(op, mod int) float32 { return nan }, "not finite"},
		{"too many operators", MaxOperators + 1, nil, nil, "operator count"},
		{"no operators", 0, nil, nil, "operator count"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, err := Build(tc.opCount, func(op int) []int { return tc.mods[op] }, tc.scale, nil)
			if err == nil || a != nil {
				t.Fatalf("expected error, got algorithm %v", a)
			}
			var te *TopologyError
			if !errors.As(err, &te) {
				t.Fatalf("expected *TopologyError, got %T", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestCycleReportsOrderedCount(t *testing.T) {
	_, err := Build(3, func(op int) []int {
		switch op {
		case 1:
			return []int{2}
		case 2:
			return []int{1}
		}
		return nil
	}, nil, nil)
	var te *TopologyError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TopologyError, got %v", err)
	}
	if len(te.Problems) != 2 || !strings.Contains(te.Problems[1], "ordered 1 of 3") {
		t.Fatalf("unexpected problems: %q", te.Problems)
	}
}

func TestFeedbackFlagBreaksLoop(t *testing.T) {
	mods := map[int][]int{0: {1}, 1: {0}}
	a, err := Build(2, func(op int) []int { return mods[op] }, nil, func(op int) bool { return op == 0 })
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !a.IsFeedbackEdge(0, 1) {
		t.Fatalf("edge 1->0 should read the previous sample")
	}
	if a.IsFeedbackEdge(1, 0) {
		t.Fatalf("edge 0->1 should be a normal edge")
	}
	if got := a.EvalOrder(); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Fatalf("order: got=%v want=[0 1]", got)
	}
	if got := a.Carriers(); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("carriers: got=%v want=[1]", got)
	}
}

func TestSixOpLoopFeedback(t *testing.T) {
	tests := []struct {
		index    int
		op, mod  int
		carriers []int
		order    []int
	}{
		{3, 5, 3, []int{0, 3}, []int{2, 1, 0, 5, 4, 3}},
		{5, 5, 4, []int{0, 2, 4}, []int{1, 0, 3, 2, 5, 4}},
	}
	for _, tc := range tests {
		a, err := Lookup(6, tc.index)
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if !a.IsFeedbackEdge(tc.op, tc.mod) {
			t.Fatalf("algorithm %d: edge %d->%d should be feedback (%s)", tc.index+1, tc.mod, tc.op, a)
		}
		if got := a.Carriers(); !reflect.DeepEqual(got, tc.carriers) {
			t.Fatalf("algorithm %d: carriers got=%v want=%v", tc.index+1, got, tc.carriers)
		}
		if got := a.EvalOrder(); !reflect.DeepEqual(got, tc.order) {
			t.Fatalf("algorithm %d: order got=%v want=%v", tc.index+1, got, tc.order)
		}
	}
}

func TestSelfFeedbackDoesNotBlockCarrier(t *testing.T) {
	a, err := Lookup(4, 7)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got := a.Carriers(); !reflect.DeepEqual(got, []int{0, 1, 2, 3}) {
		t.Fatalf("carriers: got=%v", got)
	}
	if a.carrierGain != 0.25 {
		t.Fatalf("carrier gain: got=%f want=0.25", a.carrierGain)
	}
	if got, want := a.String(), "1~>1 | order 1,2,3,4 | out 1,2,3,4"; got != want {
		t.Fatalf("String: got=%q want=%q", got, want)
	}
}

func TestAccessorsRoundTripThroughBuild(t *testing.T) {
	src, err := Lookup(6, 16)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	rebuilt, err := Build(src.OpCount(), src.Modulators, src.Scale, src.Feedback)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if !reflect.DeepEqual(rebuilt.EvalOrder(), src.EvalOrder()) {
		t.Fatalf("order: got=%v want=%v", rebuilt.EvalOrder(), src.EvalOrder())
	}
	if rebuilt.String() != src.String() {
		t.Fatalf("String: got=%q want=%q", rebuilt, src)
	}
}

func TestScaleIsStored(t *testing.T) {
	a, err := Build(2, func(op int) []int {
		if op == 0 {
			return []int{1}
		}
		return nil
	}, func(op, mod int) float32 { return 0.5 }, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := a.Scale(0, 1); got != 0.5 {
		t.Fatalf("Scale(0,1): got=%f want=0.5", got)
	}
	if got := a.Scale(1, 0); got != 0 {
		t.Fatalf("missing edge scale: got=%f want=0", got)
	}
}

func TestValidateDetectsMismatch(t *testing.T) {
	a := FourOp()[0]
	if problems := Validate(a, 6); len(problems) == 0 {
		t.Fatalf("expected operator count mismatch")
	}
	if problems := Validate(nil, 4); len(problems) == 0 {
		t.Fatalf("expected problem for nil algorithm")
	}
	broken := *a
	broken.order[0], broken.order[3] = broken.order[3], broken.order[0]
	if problems := Validate(&broken, 4); len(problems) == 0 {
		t.Fatalf("expected ordering problem")
	}
}
