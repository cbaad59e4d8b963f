package campaign_test

import (
	"bytes"
	"testing"

	"alma.local/scuffer/campaign"
	"alma.local/scuffer/orders"
	"alma.local/scuffer/scuff"
)

func TestFulfillOrderCampaignMatchesExpectations(t *testing.T) {
	for _, policy := range []scuff.OverflowPolicy{scuff.OverflowNearBound, scuff.OverflowFarSentinel} {
		t.Run(policy.String(), func(t *testing.T) {
			buf, _, err := orders.FulfillOrderCalldata(orders.SampleOrder())
			if err != nil {
				t.Fatalf("encoding fixture: %v", err)
			}
			before := append([]byte(nil), buf.Bytes()...)

			runner := campaign.New(orders.FulfillOrderSig, policy)
			results, err := runner.Run(buf)
			if err != nil {
				t.Fatalf("campaign run: %v", err)
			}

			// The fixture populates every array to capacity, so the catalog
			// covers the schema's full reserved range.
			wantTotal := scuff.RootRange(orders.FulfillOrderSig.Tuple())
			if len(results) != wantTotal {
				t.Fatalf("got %d results, want %d", len(results), wantTotal)
			}
			for i, res := range results {
				if !res.Match() {
					t.Errorf("directive %s: expected %s, got verdict %s (err=%v, lost=%v)",
						res.Directive, res.Expected, res.Verdict, res.Err, res.LostValue)
				}
				if i > 0 && results[i-1].Directive.Kind >= res.Directive.Kind {
					t.Errorf("results out of catalog order at %d: kind %d then %d",
						i, results[i-1].Directive.Kind, res.Directive.Kind)
				}
			}

			stats := campaign.Summarize(results)
			if stats.Diverged != 0 {
				t.Errorf("%d directives diverged from expectation", stats.Diverged)
			}
			if stats.Total != wantTotal {
				t.Errorf("stats total = %d, want %d", stats.Total, wantTotal)
			}
			if stats.Tolerated == 0 || stats.Rejected == 0 {
				t.Errorf("want both verdicts represented, got tolerated=%d rejected=%d",
					stats.Tolerated, stats.Rejected)
			}

			// Every mutation ran on a clone; the baseline must survive intact.
			if !bytes.Equal(before, buf.Bytes()) {
				t.Error("canonical buffer was mutated by the campaign")
			}
		})
	}
}

func TestTracingWithoutInstrumentedDecoder(t *testing.T) {
	buf, _, err := orders.FulfillOrderCalldata(orders.SampleOrder())
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}

	// The decoder in this build carries no probes, so every trace is empty
	// and every divergence score must be exactly zero.
	runner := campaign.New(orders.FulfillOrderSig, scuff.OverflowNearBound).WithTracing()
	results, err := runner.Run(buf)
	if err != nil {
		t.Fatalf("campaign run: %v", err)
	}
	for _, res := range results {
		if res.Divergence != 0 {
			t.Fatalf("directive %s scored %v without instrumentation", res.Directive, res.Divergence)
		}
	}
}

func TestExpectedClassification(t *testing.T) {
	buf, _, err := orders.FulfillOrderCalldata(orders.SampleOrder())
	if err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	dirs, err := scuff.GetDirectivesForCalldata(buf, orders.FulfillOrderSig)
	if err != nil {
		t.Fatalf("enumerating directives: %v", err)
	}

	byName := make(map[string]scuff.Directive, len(dirs))
	for _, d := range dirs {
		byName[d.Positions.Path+"."+d.Category.String()] = d
	}
	cases := []struct {
		name string
		want campaign.Expectation
	}{
		// Offsets that no longer land in bounds must always be refused.
		{"order.parameters.HeadOverflow", campaign.ExpectReject},
		{"order.signature.HeadOverflow", campaign.ExpectReject},
		// High-bit garbage is masked off during decoding.
		{"order.parameters.offerer.DirtyBits", campaign.ExpectTolerate},
		{"order.signature.length.DirtyBits", campaign.ExpectTolerate},
		// A 3-bit max (7) exceeds the item-type range; a 2-bit max (3) is
		// exactly the last order type.
		{"order.parameters.offer[0].itemType.MaxValue", campaign.ExpectReject},
		{"order.parameters.orderType.MaxValue", campaign.ExpectTolerate},
		// A maxed length word points the element area past the buffer.
		{"order.parameters.offer.length.MaxValue", campaign.ExpectReject},
		// Full-word fields have no invalid bit patterns.
		{"order.parameters.salt.MaxValue", campaign.ExpectTolerate},
	}
	for _, tc := range cases {
		d, ok := byName[tc.name]
		if !ok {
			t.Errorf("no directive named %q in catalog", tc.name)
			continue
		}
		if got := campaign.Expected(d); got != tc.want {
			t.Errorf("Expected(%s) = %s, want %s", tc.name, got, tc.want)
		}
	}
}
