// Package campaign drives a directive catalog against the hardened decoder
// and checks every verdict against the category's expectation. One mutated
// clone per directive: a directive's effect is an in-place buffer mutation,
// so applications are serialized over independent copies and never share a
// buffer (parallelizing across root structures is fine, sharing one buffer
// is not).
package campaign

import (
	"bytes"
	"fmt"

	"github.com/sirupsen/logrus"

	"alma.local/scuffer/internal/analyzer"
	"alma.local/scuffer/memptr"
	"alma.local/scuffer/oracle"
	"alma.local/scuffer/schema"
	"alma.local/scuffer/scuff"
	"alma.local/scuffer/tracer"
)

// Expectation is the verdict a category should produce from a decoder that
// masks padding but enforces bounds and ranges.
type Expectation uint8

const (
	ExpectTolerate Expectation = iota
	ExpectReject
)

func (e Expectation) String() string {
	if e == ExpectReject {
		return "reject"
	}
	return "tolerate"
}

// Expected classifies one directive. DirtyBits never changes a logical
// value, so it must be tolerated. HeadOverflow always escapes the buffer.
// MaxValue depends on the target: an enum whose narrow max is not a legal
// member, or a length word (2^32-1 elements never fit a real buffer), must
// be rejected; full-width and address maxima are legal values.
func Expected(d scuff.Directive) Expectation {
	switch d.Category {
	case scuff.HeadOverflow:
		return ExpectReject
	case scuff.DirtyBits:
		return ExpectTolerate
	case scuff.MaxValue:
		if d.Node.IsDynamic() {
			// Length-word maximum.
			return ExpectReject
		}
		if d.Node.Kind() == schema.KindEnum {
			narrowMax := uint64(1)<<d.Bits - 1
			if narrowMax > d.Node.EnumMax() {
				return ExpectReject
			}
		}
		return ExpectTolerate
	}
	return ExpectReject
}

// Verdict is what the decoder actually did with a mutated buffer.
type Verdict uint8

const (
	Tolerated Verdict = iota
	Rejected
)

func (v Verdict) String() string {
	if v == Rejected {
		return "rejected"
	}
	return "tolerated"
}

// Result records one directive's outcome.
type Result struct {
	Directive scuff.Directive
	Expected  Expectation
	Verdict   Verdict
	// Err is the decoder's rejection reason, nil when tolerated.
	Err error
	// LostValue is set when a tolerated mutation's decoded values no longer
	// re-encode to the expected canonical form: the baseline for DirtyBits
	// (only padding changed), the mutated buffer itself for MaxValue (a
	// boundary value is canonical on its own).
	LostValue bool
	// Divergence scores the mutation's probe trace against the canonical
	// trace model. Zero unless the runner has tracing enabled and the
	// decoder is instrumented.
	Divergence float64
}

// Match reports whether the outcome met the expectation.
func (r Result) Match() bool {
	if r.Expected == ExpectReject {
		return r.Verdict == Rejected
	}
	return r.Verdict == Tolerated && !r.LostValue
}

// Runner owns one campaign over a single signature.
type Runner struct {
	Sig    *schema.Signature
	Policy scuff.OverflowPolicy
	Log    *logrus.Entry

	// Model, when set, scores each mutation's probe trace against the
	// canonical decode's trace. Only meaningful when the decoder has been
	// rewritten by the instrumentor; otherwise every trace is empty and
	// every score zero.
	Model *analyzer.Analyzer
}

// WithTracing attaches a fresh trace model to the runner.
func (r *Runner) WithTracing() *Runner {
	r.Model = analyzer.New()
	return r
}

// New builds a runner with a tagged logger.
func New(sig *schema.Signature, policy scuff.OverflowPolicy) *Runner {
	return &Runner{
		Sig:    sig,
		Policy: policy,
		Log: logrus.WithFields(logrus.Fields{
			"signature": sig.Name,
			"policy":    policy.String(),
		}),
	}
}

// Run enumerates the canonical buffer's directives and applies each one to
// a fresh clone, collecting verdicts in catalog order. The canonical buffer
// itself is never mutated.
func (r *Runner) Run(canonical *memptr.Buffer) ([]Result, error) {
	dirs, err := scuff.GetDirectivesForCalldata(canonical, r.Sig)
	if err != nil {
		return nil, fmt.Errorf("campaign: enumerating directives: %w", err)
	}
	baseline := canonical.Bytes()
	if r.Model != nil {
		tracer.Reset()
	}
	if _, err := oracle.DecodeCalldata(canonical, r.Sig); err != nil {
		return nil, fmt.Errorf("campaign: baseline buffer does not decode: %w", err)
	}
	if r.Model != nil {
		r.Model.Observe(tracer.Snapshot())
	}

	results := make([]Result, 0, len(dirs))
	for _, d := range dirs {
		clone := canonical.Clone()
		bound := d.Rebind(clone)
		if err := bound.Apply(r.Policy); err != nil {
			return nil, fmt.Errorf("campaign: applying %s: %w", bound, err)
		}

		res := Result{Directive: d, Expected: Expected(d)}
		if r.Model != nil {
			tracer.Reset()
		}
		vals, decErr := oracle.DecodeCalldata(clone, r.Sig)
		if r.Model != nil {
			res.Divergence = r.Model.Score(tracer.Snapshot())
		}
		if decErr != nil {
			res.Verdict = Rejected
			res.Err = decErr
		} else {
			res.Verdict = Tolerated
			want := baseline
			if d.Category == scuff.MaxValue {
				// A boundary value is a legitimate value change, so the
				// mutated buffer is its own canonical form.
				want = clone.Bytes()
			}
			out, encErr := oracle.Reencode(r.Sig, vals)
			if encErr != nil || !bytes.Equal(out, want) {
				res.LostValue = true
			}
		}

		if !res.Match() {
			r.Log.WithFields(logrus.Fields{
				"kind":     int(d.Kind),
				"path":     d.Positions.Path,
				"category": d.Category.String(),
				"expected": res.Expected.String(),
				"verdict":  res.Verdict.String(),
				"err":      res.Err,
			}).Warn("decoder verdict diverged from expectation")
		}
		results = append(results, res)
	}
	return results, nil
}

// Stats aggregates a campaign's results.
type Stats struct {
	Total     int
	Tolerated int
	Rejected  int
	Diverged  int
}

// Summarize folds results into counters.
func Summarize(results []Result) Stats {
	var s Stats
	s.Total = len(results)
	for _, r := range results {
		if r.Verdict == Rejected {
			s.Rejected++
		} else {
			s.Tolerated++
		}
		if !r.Match() {
			s.Diverged++
		}
	}
	return s
}
