package analyzer

import (
	"testing"

	"alma.local/scuffer/tracer"
)

func trace(pairs ...[2]int64) []tracer.Observation {
	out := make([]tracer.Observation, len(pairs))
	for i, p := range pairs {
		out[i] = tracer.Observation{Site: uint64(p[0]), Value: p[1]}
	}
	return out
}

func TestScoreSeenTraceIsLow(t *testing.T) {
	a := New()
	baseline := trace([2]int64{1, 10}, [2]int64{2, 20}, [2]int64{3, 30})
	for i := 0; i < 50; i++ {
		a.Observe(baseline)
	}

	same := a.Score(baseline)
	diverged := a.Score(trace([2]int64{1, 10}, [2]int64{2, 99}, [2]int64{7, 1}))
	if same >= diverged {
		t.Errorf("seen trace scored %v, novel trace %v; want seen < novel", same, diverged)
	}
}

func TestEmptyTraceScoresZero(t *testing.T) {
	a := New()
	if got := a.Score(nil); got != 0.0 {
		t.Errorf("empty trace scored %v, want 0", got)
	}
}

func TestScoreDoesNotUpdateModel(t *testing.T) {
	a := New()
	a.Observe(trace([2]int64{1, 10}))

	novel := trace([2]int64{5, 50})
	first := a.Score(novel)
	second := a.Score(novel)
	if first != second {
		t.Errorf("scoring mutated the model: %v then %v", first, second)
	}
}

func TestNovelSites(t *testing.T) {
	a := New()
	a.Observe(trace([2]int64{1, 10}, [2]int64{2, 20}))

	got := a.NovelSites(trace([2]int64{1, 99}, [2]int64{4, 1}, [2]int64{4, 2}, [2]int64{9, 0}))
	if len(got) != 2 || got[0] != 4 || got[1] != 9 {
		t.Errorf("novel sites = %v, want [4 9]", got)
	}
	if len(a.Sites()) != 2 {
		t.Errorf("model grew during NovelSites: %v", a.Sites())
	}
}

func TestHistogramProbability(t *testing.T) {
	h := NewHistogram()
	if h.Probability(1) != 0.0 {
		t.Error("empty histogram should give zero probability")
	}
	h.Add(5)
	h.Add(5)
	h.Add(6)
	if got := h.Probability(5); got < 0.66 || got > 0.67 {
		t.Errorf("P(5) = %v, want 2/3", got)
	}
}
