package pipeline

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"alma.local/scuffer/orders"
)

// ValidateStage checks each order's static fields before anything else
// touches the batch.
type ValidateStage struct{}

func (ValidateStage) Name() string { return "validate" }

func (ValidateStage) Run(ctx *Context) error {
	for i, o := range ctx.Orders {
		p := o.Parameters
		if p.Offerer == (common.Address{}) {
			return errors.Errorf("order %d: zero offerer", i)
		}
		if p.StartTime == nil || p.EndTime == nil || p.StartTime.Cmp(p.EndTime) >= 0 {
			return errors.Errorf("order %d: start time not before end time", i)
		}
		if orders.OrderType(p.OrderType) > orders.PartialRestricted {
			return errors.Errorf("order %d: order type %d out of range", i, p.OrderType)
		}
		if len(o.Signature) != 64 && len(o.Signature) != 65 {
			return errors.Errorf("order %d: signature is %d bytes, want 64 or 65", i, len(o.Signature))
		}
		for j, item := range p.Offer {
			if err := checkItem(item.ItemType, item.IdentifierOrCriteria, item.StartAmount, item.EndAmount); err != nil {
				return errors.Wrapf(err, "order %d: offer item %d", i, j)
			}
		}
		for j, item := range p.Consideration {
			if err := checkItem(item.ItemType, item.IdentifierOrCriteria, item.StartAmount, item.EndAmount); err != nil {
				return errors.Wrapf(err, "order %d: consideration item %d", i, j)
			}
		}
	}
	return nil
}

func checkItem(itemType uint8, id, start, end *big.Int) error {
	if orders.ItemType(itemType) > orders.ItemERC1155WithCriteria {
		return errors.Errorf("item type %d out of range", itemType)
	}
	if id == nil || start == nil || end == nil {
		return errors.New("nil amount or identifier")
	}
	if start.Sign() < 0 || end.Sign() < 0 {
		return errors.New("negative amount")
	}
	return nil
}

// CriteriaStage discharges every criteria-based item in the batch using
// the context's resolutions. A resolution proves its identifier against the
// root the item carries, then rewrites the item to the concrete type with
// the proven identifier. A zero root is a wildcard: any identifier resolves
// without a proof. Leftover criteria items after the stage are an error.
type CriteriaStage struct{}

func (CriteriaStage) Name() string { return "criteria" }

func (CriteriaStage) Run(ctx *Context) error {
	for i, res := range ctx.Resolutions {
		if res.OrderIndex < 0 || res.OrderIndex >= len(ctx.Orders) {
			return errors.Errorf("resolution %d: order index %d out of range", i, res.OrderIndex)
		}
		p := &ctx.Orders[res.OrderIndex].Parameters

		var itemType *uint8
		var identifier **big.Int
		switch res.Side {
		case SideOffer:
			if res.ItemIndex < 0 || res.ItemIndex >= len(p.Offer) {
				return errors.Errorf("resolution %d: offer index %d out of range", i, res.ItemIndex)
			}
			item := &p.Offer[res.ItemIndex]
			itemType, identifier = &item.ItemType, &item.IdentifierOrCriteria
		case SideConsideration:
			if res.ItemIndex < 0 || res.ItemIndex >= len(p.Consideration) {
				return errors.Errorf("resolution %d: consideration index %d out of range", i, res.ItemIndex)
			}
			item := &p.Consideration[res.ItemIndex]
			itemType, identifier = &item.ItemType, &item.IdentifierOrCriteria
		default:
			return errors.Errorf("resolution %d: unknown side %d", i, res.Side)
		}

		if !orders.ItemType(*itemType).HasCriteria() {
			return errors.Errorf("resolution %d: item carries no criteria", i)
		}
		root := *identifier
		if root.Sign() != 0 {
			var rootWord [32]byte
			root.FillBytes(rootWord[:])
			if !VerifyCriteriaProof(rootWord, res.Identifier, res.Index, res.Proof) {
				return errors.Errorf("resolution %d: invalid criteria proof", i)
			}
		}

		*itemType = concreteItemType(*itemType)
		*identifier = new(big.Int).Set(res.Identifier)
	}

	// Everything criteria-based must have been resolved above.
	for i, o := range ctx.Orders {
		for j, item := range o.Parameters.Offer {
			if orders.ItemType(item.ItemType).HasCriteria() {
				return errors.Errorf("order %d: offer item %d left unresolved", i, j)
			}
		}
		for j, item := range o.Parameters.Consideration {
			if orders.ItemType(item.ItemType).HasCriteria() {
				return errors.Errorf("order %d: consideration item %d left unresolved", i, j)
			}
		}
	}
	return nil
}

func concreteItemType(t uint8) uint8 {
	switch orders.ItemType(t) {
	case orders.ItemERC721WithCriteria:
		return uint8(orders.ItemERC721)
	case orders.ItemERC1155WithCriteria:
		return uint8(orders.ItemERC1155)
	}
	return t
}

// SummaryStage totals each order's sides. Runs after criteria resolution so
// the counts reflect concrete items only.
type SummaryStage struct{}

func (SummaryStage) Name() string { return "summary" }

func (SummaryStage) Run(ctx *Context) error {
	ctx.Summaries = make([]FulfillmentSummary, len(ctx.Orders))
	for i, o := range ctx.Orders {
		sum := FulfillmentSummary{
			OfferItems:         len(o.Parameters.Offer),
			ConsiderationItems: len(o.Parameters.Consideration),
			OfferStartTotal:    new(uint256.Int),
			ConsiderationTotal: new(uint256.Int),
		}
		for j, item := range o.Parameters.Offer {
			if err := addAmount(sum.OfferStartTotal, item.StartAmount); err != nil {
				return errors.Wrapf(err, "order %d: offer item %d", i, j)
			}
		}
		for j, item := range o.Parameters.Consideration {
			if err := addAmount(sum.ConsiderationTotal, item.StartAmount); err != nil {
				return errors.Wrapf(err, "order %d: consideration item %d", i, j)
			}
		}
		ctx.Summaries[i] = sum
	}
	return nil
}

func addAmount(total *uint256.Int, amount *big.Int) error {
	word, overflow := uint256.FromBig(amount)
	if overflow {
		return errors.New("amount does not fit a word")
	}
	if _, carry := total.AddOverflow(total, word); carry {
		return errors.New("side total overflows a word")
	}
	return nil
}
