// Package orders declares the representative marketplace-order structures
// the tooling is exercised against: a head/tail layout with static scalars,
// dynamic arrays of static structs, and a dynamic struct carrying further
// dynamic members. The Go structs mirror the schemas field-for-field so
// go-ethereum's packer can encode them directly.
package orders

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"alma.local/scuffer/schema"
)

// ItemType discriminates what an offer or consideration item transfers.
type ItemType uint8

const (
	ItemNative ItemType = iota
	ItemERC20
	ItemERC721
	ItemERC1155
	ItemERC721WithCriteria
	ItemERC1155WithCriteria

	itemTypeCount = 6
)

// OrderType selects fill and restriction semantics.
type OrderType uint8

const (
	FullOpen OrderType = iota
	PartialOpen
	FullRestricted
	PartialRestricted

	orderTypeCount = 4
)

// OfferItem is one item promised by the offerer.
type OfferItem struct {
	ItemType             uint8
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
}

// ConsiderationItem is an OfferItem with an explicit recipient.
type ConsiderationItem struct {
	ItemType             uint8
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
	Recipient            common.Address
}

// OrderParameters is the static-plus-dynamic core of an order.
type OrderParameters struct {
	Offerer                         common.Address
	Zone                            common.Address
	Offer                           []OfferItem
	Consideration                   []ConsiderationItem
	OrderType                       uint8
	StartTime                       *big.Int
	EndTime                         *big.Int
	ZoneHash                        [32]byte
	Salt                            *big.Int
	ConduitKey                      [32]byte
	TotalOriginalConsiderationItems *big.Int
}

// Order pairs parameters with the offerer's signature.
type Order struct {
	Parameters OrderParameters
	Signature  []byte
}

// Array capacities reserved for directive numbering. Instances may be
// longer; only the first this-many elements receive directives.
const (
	OfferCapacity         = 3
	ConsiderationCapacity = 3
	OrdersCapacity        = 2
)

// Schemas. Declared once at init; layout arithmetic and directive ordinals
// all derive from these trees.
var (
	ItemTypeSchema  = schema.Enum(itemTypeCount)
	OrderTypeSchema = schema.Enum(orderTypeCount)

	OfferItemSchema = schema.Struct("OfferItem",
		schema.Fld("itemType", ItemTypeSchema),
		schema.Fld("token", schema.Address()),
		schema.Fld("identifierOrCriteria", schema.Uint(256)),
		schema.Fld("startAmount", schema.Uint(256)),
		schema.Fld("endAmount", schema.Uint(256)),
	)

	ConsiderationItemSchema = schema.Struct("ConsiderationItem",
		schema.Fld("itemType", ItemTypeSchema),
		schema.Fld("token", schema.Address()),
		schema.Fld("identifierOrCriteria", schema.Uint(256)),
		schema.Fld("startAmount", schema.Uint(256)),
		schema.Fld("endAmount", schema.Uint(256)),
		schema.Fld("recipient", schema.Address()),
	)

	OrderParametersSchema = schema.Struct("OrderParameters",
		schema.Fld("offerer", schema.Address()),
		schema.Fld("zone", schema.Address()),
		schema.Fld("offer", schema.Array(OfferItemSchema, OfferCapacity)),
		schema.Fld("consideration", schema.Array(ConsiderationItemSchema, ConsiderationCapacity)),
		schema.Fld("orderType", OrderTypeSchema),
		schema.Fld("startTime", schema.Uint(256)),
		schema.Fld("endTime", schema.Uint(256)),
		schema.Fld("zoneHash", schema.Bytes32()),
		schema.Fld("salt", schema.Uint(256)),
		schema.Fld("conduitKey", schema.Bytes32()),
		schema.Fld("totalOriginalConsiderationItems", schema.Uint(256)),
	)

	OrderSchema = schema.Struct("Order",
		schema.Fld("parameters", OrderParametersSchema),
		schema.Fld("signature", schema.Bytes()),
	)
)

// Function entry points whose calldata the tooling mutates.
var (
	FulfillOrderSig = schema.NewSignature("fulfillOrder",
		schema.Fld("order", OrderSchema),
		schema.Fld("fulfillerConduitKey", schema.Bytes32()),
	)

	ValidateSig = schema.NewSignature("validate",
		schema.Fld("orders", schema.Array(OrderSchema, OrdersCapacity)),
	)
)

// HasCriteria reports whether the item type resolves its identifier through
// a criteria merkle proof.
func (t ItemType) HasCriteria() bool {
	return t == ItemERC721WithCriteria || t == ItemERC1155WithCriteria
}
