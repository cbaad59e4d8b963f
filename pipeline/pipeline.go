// Package pipeline runs decoded order batches through sequential helper
// stages: structural validation, criteria resolution, and fulfillment
// summaries. Stages are independent and side-effect the shared context;
// the first error aborts the run.
package pipeline

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"alma.local/scuffer/orders"
)

// Context carries a batch through the stages. Stages read what earlier
// stages produced and append their own results.
type Context struct {
	Orders []orders.Order

	// Resolutions are supplied by the caller before the criteria stage
	// runs; it consumes them and rewrites the matching items in place.
	Resolutions []CriteriaResolution

	// Summaries is filled by the summary stage, one entry per order.
	Summaries []FulfillmentSummary
}

// Stage is one step of the run.
type Stage interface {
	Name() string
	Run(*Context) error
}

// Run executes the stages in order against the context.
func Run(ctx *Context, stages ...Stage) error {
	for _, s := range stages {
		if err := s.Run(ctx); err != nil {
			return errors.Wrapf(err, "stage %s", s.Name())
		}
	}
	return nil
}

// Side distinguishes the two item lists of an order.
type Side uint8

const (
	SideOffer Side = iota
	SideConsideration
)

// CriteriaResolution names one criteria item and the concrete identifier
// plus membership proof that discharges it.
type CriteriaResolution struct {
	OrderIndex int
	Side       Side
	ItemIndex  int
	Identifier *big.Int
	// Index is the identifier's leaf position in the criteria tree;
	// Proof is its sibling path, leaf layer first.
	Index int
	Proof [][32]byte
}

// FulfillmentSummary aggregates one order's two sides.
type FulfillmentSummary struct {
	OfferItems         int
	ConsiderationItems int
	OfferStartTotal    *uint256.Int
	ConsiderationTotal *uint256.Int
}
