package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cwbudde/algo-drums/fm"
)

func TestCheckBuiltInsHaveNoProblems(t *testing.T) {
	var buf bytes.Buffer
	if got := check(&buf, []int{4, 6}, 48000, 1024); got != 0 {
		t.Fatalf("problems=%d want=0\n%s", got, buf.String())
	}
	out := buf.String()
	for _, want := range []string{"4-op:", "6-op:", "order ["} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	lines := strings.Count(out, "  order ")
	if want := fm.Count(4) + fm.Count(6); lines != want {
		t.Fatalf("listed %d algorithms want %d", lines, want)
	}
}

func TestCheckReportsUnknownOperatorCount(t *testing.T) {
	var buf bytes.Buffer
	if got := check(&buf, []int{5}, 48000, 0); got != 1 {
		t.Fatalf("problems=%d want=1", got)
	}
}

func TestOneBased(t *testing.T) {
	got := oneBased([]int{3, 0, 2})
	want := []int{4, 1, 3}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("oneBased=%v want=%v", got, want)
		}
	}
}
