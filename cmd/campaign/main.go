// Command campaign encodes a canonical fixture, mutates it one directive at
// a time, and checks every decoder verdict against expectation. Exits
// nonzero if any verdict diverges, so it can gate CI.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"alma.local/scuffer/campaign"
	"alma.local/scuffer/memptr"
	"alma.local/scuffer/orders"
	"alma.local/scuffer/schema"
	"alma.local/scuffer/scuff"
)

var (
	flagSig     = flag.String("sig", "fulfillOrder", "signature to campaign: fulfillOrder or validate")
	flagPolicy  = flag.String("policy", "near", "head overflow policy: near or far")
	flagVerbose = flag.Bool("verbose", false, "log every directive, not just divergences")
	flagTrace   = flag.Bool("trace", false, "score probe traces per mutation (needs an instrumented decoder)")
)

func main() {
	flag.Parse()
	log := logrus.WithField("cmd", "campaign")

	policy, ok := parsePolicy(*flagPolicy)
	if !ok {
		log.Fatalf("unknown policy %q", *flagPolicy)
	}
	sig, buf, err := fixture(*flagSig)
	if err != nil {
		log.WithError(err).Fatal("building fixture")
	}

	runner := campaign.New(sig, policy)
	if *flagTrace {
		runner = runner.WithTracing()
	}
	results, err := runner.Run(buf)
	if err != nil {
		log.WithError(err).Fatal("campaign run")
	}

	if *flagVerbose {
		for _, res := range results {
			fields := logrus.Fields{
				"directive": res.Directive.String(),
				"expected":  res.Expected.String(),
				"verdict":   res.Verdict.String(),
			}
			if *flagTrace {
				fields["divergence"] = res.Divergence
			}
			log.WithFields(fields).Info("directive result")
		}
	}

	stats := campaign.Summarize(results)
	log.WithFields(logrus.Fields{
		"total":     stats.Total,
		"tolerated": stats.Tolerated,
		"rejected":  stats.Rejected,
		"diverged":  stats.Diverged,
	}).Info("campaign complete")

	if stats.Diverged > 0 {
		os.Exit(1)
	}
}

func parsePolicy(name string) (scuff.OverflowPolicy, bool) {
	switch name {
	case "near":
		return scuff.OverflowNearBound, true
	case "far":
		return scuff.OverflowFarSentinel, true
	}
	return 0, false
}

func fixture(name string) (*schema.Signature, *memptr.Buffer, error) {
	switch name {
	case "fulfillOrder":
		buf, _, err := orders.FulfillOrderCalldata(orders.SampleOrder())
		return orders.FulfillOrderSig, buf, err
	case "validate":
		batch := []orders.Order{orders.SampleOrder(), orders.SampleOrder()}
		buf, _, err := orders.ValidateCalldata(batch)
		return orders.ValidateSig, buf, err
	default:
		return nil, nil, fmt.Errorf("unknown signature %q", name)
	}
}
