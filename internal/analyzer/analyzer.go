// Package analyzer scores probe traces against a statistical model of
// past runs. A campaign feeds it canonical-decode traces to build the
// model, then scores each mutation's trace: a high divergence means the
// mutation steered the decoder somewhere the canonical inputs never go,
// which localizes the check that fired.
package analyzer

import (
	"math"
	"sync"

	"alma.local/scuffer/tracer"
)

// Histogram tracks the value distribution one probe site has produced.
type Histogram struct {
	Counts map[int64]uint64
	Total  uint64
}

func NewHistogram() *Histogram {
	return &Histogram{Counts: make(map[int64]uint64)}
}

func (h *Histogram) Add(val int64) {
	h.Counts[val]++
	h.Total++
}

// Probability is the raw observed frequency of val at this site.
func (h *Histogram) Probability(val int64) float64 {
	if h.Total == 0 {
		return 0.0
	}
	return float64(h.Counts[val]) / float64(h.Total)
}

// Analyzer accumulates per-site histograms across runs. Safe for
// concurrent use.
type Analyzer struct {
	model       map[uint64]*Histogram
	totalEvents uint64
	mu          sync.RWMutex
}

func New() *Analyzer {
	return &Analyzer{model: make(map[uint64]*Histogram)}
}

// Sites returns the probe sites the model has seen so far.
func (a *Analyzer) Sites() []uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]uint64, 0, len(a.model))
	for k := range a.model {
		keys = append(keys, k)
	}
	return keys
}

// Observe folds a trace into the model without scoring it. Baseline runs
// go through here.
func (a *Analyzer) Observe(trace []tracer.Observation) {
	a.ScoreBatch([][]tracer.Observation{trace}, true)
}

// Score computes one trace's divergence from the model. The model is not
// updated, so repeated mutations score against the same baseline.
func (a *Analyzer) Score(trace []tracer.Observation) float64 {
	return a.ScoreBatch([][]tracer.Observation{trace}, false)
}

// ScoreBatch computes the KL divergence of a batch of traces against the
// model, over (site, value) pairs. Unseen pairs are Laplace-smoothed so a
// novel observation scores high instead of dividing by zero. When update
// is set the batch is folded into the model afterwards.
func (a *Analyzer) ScoreBatch(traces [][]tracer.Observation, update bool) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	batchCounts := make(map[tracer.Observation]uint64)
	var totalBatch uint64
	for _, trace := range traces {
		for _, obs := range trace {
			batchCounts[obs]++
			totalBatch++
		}
	}
	if totalBatch == 0 {
		return 0.0
	}

	const alpha = 1.0
	denom := float64(a.totalEvents) + alpha*float64(len(batchCounts))
	kl := 0.0
	for obs, cnt := range batchCounts {
		pBatch := float64(cnt) / float64(totalBatch)
		var seen uint64
		if hist, ok := a.model[obs.Site]; ok {
			seen = hist.Counts[obs.Value]
		}
		pModel := (float64(seen) + alpha) / denom
		kl += pBatch * math.Log(pBatch/pModel)
	}

	if update {
		for obs, cnt := range batchCounts {
			hist, ok := a.model[obs.Site]
			if !ok {
				hist = NewHistogram()
				a.model[obs.Site] = hist
			}
			hist.Counts[obs.Value] += cnt
			hist.Total += cnt
		}
		a.totalEvents += totalBatch
	}
	return kl
}

// NovelSites returns the probe sites in trace the model has never seen
// fire. After a rejection, these point straight at the rejecting check.
func (a *Analyzer) NovelSites(trace []tracer.Observation) []uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	seen := make(map[uint64]bool)
	var novel []uint64
	for _, obs := range trace {
		if seen[obs.Site] {
			continue
		}
		seen[obs.Site] = true
		if _, ok := a.model[obs.Site]; !ok {
			novel = append(novel, obs.Site)
		}
	}
	return novel
}
