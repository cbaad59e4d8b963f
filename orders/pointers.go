package orders

import (
	"alma.local/scuffer/memptr"
	"alma.local/scuffer/scuff"
)

// Named field-pointer wrappers. These are thin veneers over the generic
// typed layer so call sites read like the per-structure pointer libraries
// of the source contracts; all offset arithmetic lives in the schema trees.

// Field indices, kept next to the schemas they index into.
const (
	offerItemItemType = iota
	offerItemToken
	offerItemIdentifierOrCriteria
	offerItemStartAmount
	offerItemEndAmount
)

const (
	paramsOfferer = iota
	paramsZone
	paramsOffer
	paramsConsideration
	paramsOrderType
	paramsStartTime
	paramsEndTime
	paramsZoneHash
	paramsSalt
	paramsConduitKey
	paramsTotalOriginalConsiderationItems
)

const (
	orderParameters = iota
	orderSignature
)

// OfferItemPointer navigates one OfferItem's five static slots.
type OfferItemPointer struct {
	tp scuff.TypedPointer
}

// WrapOfferItem reinterprets a raw pointer as an OfferItem block.
func WrapOfferItem(p memptr.MemoryPointer) OfferItemPointer {
	return OfferItemPointer{tp: scuff.Wrap(OfferItemSchema, p)}
}

func (p OfferItemPointer) Unwrap() memptr.MemoryPointer { return p.tp.Unwrap() }

func (p OfferItemPointer) ItemType() memptr.MemoryPointer {
	return p.tp.FieldHead(offerItemItemType)
}

func (p OfferItemPointer) Token() memptr.MemoryPointer {
	return p.tp.FieldHead(offerItemToken)
}

func (p OfferItemPointer) IdentifierOrCriteria() memptr.MemoryPointer {
	return p.tp.FieldHead(offerItemIdentifierOrCriteria)
}

func (p OfferItemPointer) StartAmount() memptr.MemoryPointer {
	return p.tp.FieldHead(offerItemStartAmount)
}

func (p OfferItemPointer) EndAmount() memptr.MemoryPointer {
	return p.tp.FieldHead(offerItemEndAmount)
}

// OrderParametersPointer navigates an OrderParameters head block.
type OrderParametersPointer struct {
	tp scuff.TypedPointer
}

// WrapOrderParameters reinterprets a raw pointer as an OrderParameters
// block (the tail of a resolved dynamic struct).
func WrapOrderParameters(p memptr.MemoryPointer) OrderParametersPointer {
	return OrderParametersPointer{tp: scuff.Wrap(OrderParametersSchema, p)}
}

func (p OrderParametersPointer) Unwrap() memptr.MemoryPointer { return p.tp.Unwrap() }

func (p OrderParametersPointer) Offerer() memptr.MemoryPointer {
	return p.tp.FieldHead(paramsOfferer)
}

func (p OrderParametersPointer) Zone() memptr.MemoryPointer {
	return p.tp.FieldHead(paramsZone)
}

// OfferHead returns the offer array's head slot (the relative offset word).
func (p OrderParametersPointer) OfferHead() memptr.MemoryPointer {
	return p.tp.FieldHead(paramsOffer)
}

// Offer resolves the offer array's tail.
func (p OrderParametersPointer) Offer() (scuff.TypedPointer, error) {
	return p.tp.Field(paramsOffer)
}

// OfferItem resolves element i of the offer array. The caller bounds i by
// the array length first.
func (p OrderParametersPointer) OfferItem(i uint64) (OfferItemPointer, error) {
	arr, err := p.tp.Field(paramsOffer)
	if err != nil {
		return OfferItemPointer{}, err
	}
	elem, err := arr.Element(i)
	if err != nil {
		return OfferItemPointer{}, err
	}
	return OfferItemPointer{tp: elem}, nil
}

// ConsiderationHead returns the consideration array's head slot.
func (p OrderParametersPointer) ConsiderationHead() memptr.MemoryPointer {
	return p.tp.FieldHead(paramsConsideration)
}

// Consideration resolves the consideration array's tail.
func (p OrderParametersPointer) Consideration() (scuff.TypedPointer, error) {
	return p.tp.Field(paramsConsideration)
}

func (p OrderParametersPointer) OrderType() memptr.MemoryPointer {
	return p.tp.FieldHead(paramsOrderType)
}

func (p OrderParametersPointer) StartTime() memptr.MemoryPointer {
	return p.tp.FieldHead(paramsStartTime)
}

func (p OrderParametersPointer) EndTime() memptr.MemoryPointer {
	return p.tp.FieldHead(paramsEndTime)
}

func (p OrderParametersPointer) ZoneHash() memptr.MemoryPointer {
	return p.tp.FieldHead(paramsZoneHash)
}

func (p OrderParametersPointer) Salt() memptr.MemoryPointer {
	return p.tp.FieldHead(paramsSalt)
}

func (p OrderParametersPointer) ConduitKey() memptr.MemoryPointer {
	return p.tp.FieldHead(paramsConduitKey)
}

func (p OrderParametersPointer) TotalOriginalConsiderationItems() memptr.MemoryPointer {
	return p.tp.FieldHead(paramsTotalOriginalConsiderationItems)
}

// OrderPointer navigates an Order (a dynamic struct: parameters tail plus a
// signature bytes tail).
type OrderPointer struct {
	tp scuff.TypedPointer
}

// WrapOrder reinterprets a raw pointer as an Order head block.
func WrapOrder(p memptr.MemoryPointer) OrderPointer {
	return OrderPointer{tp: scuff.Wrap(OrderSchema, p)}
}

func (p OrderPointer) Unwrap() memptr.MemoryPointer { return p.tp.Unwrap() }

// ParametersHead returns the slot holding the parameters tail offset.
func (p OrderPointer) ParametersHead() memptr.MemoryPointer {
	return p.tp.FieldHead(orderParameters)
}

// Parameters resolves the parameters struct.
func (p OrderPointer) Parameters() (OrderParametersPointer, error) {
	tail, err := p.tp.Field(orderParameters)
	if err != nil {
		return OrderParametersPointer{}, err
	}
	return OrderParametersPointer{tp: tail}, nil
}

// SignatureHead returns the slot holding the signature tail offset.
func (p OrderPointer) SignatureHead() memptr.MemoryPointer {
	return p.tp.FieldHead(orderSignature)
}

// Signature resolves the signature bytes tail.
func (p OrderPointer) Signature() (scuff.TypedPointer, error) {
	return p.tp.Field(orderSignature)
}

// FulfillOrderPointer is the typed view of fulfillOrder calldata.
type FulfillOrderPointer struct {
	tp scuff.TypedPointer
}

// FulfillOrderFromCalldata locates the argument tuple after the selector.
func FulfillOrderFromCalldata(buf *memptr.Buffer) (FulfillOrderPointer, error) {
	tp, err := scuff.FromCalldata(buf, FulfillOrderSig)
	if err != nil {
		return FulfillOrderPointer{}, err
	}
	return FulfillOrderPointer{tp: tp}, nil
}

func (p FulfillOrderPointer) Unwrap() memptr.MemoryPointer { return p.tp.Unwrap() }

// Order resolves the order argument.
func (p FulfillOrderPointer) Order() (OrderPointer, error) {
	tail, err := p.tp.Field(0)
	if err != nil {
		return OrderPointer{}, err
	}
	return OrderPointer{tp: tail}, nil
}

// FulfillerConduitKey returns the second argument's inline slot.
func (p FulfillOrderPointer) FulfillerConduitKey() memptr.MemoryPointer {
	return p.tp.FieldHead(1)
}

// ScuffDirectives enumerates the full directive catalog for this calldata.
func (p FulfillOrderPointer) ScuffDirectives() ([]scuff.Directive, error) {
	return scuff.GetDirectives(p.tp)
}

// ValidatePointer is the typed view of validate calldata.
type ValidatePointer struct {
	tp scuff.TypedPointer
}

// ValidateFromCalldata locates the argument tuple after the selector.
func ValidateFromCalldata(buf *memptr.Buffer) (ValidatePointer, error) {
	tp, err := scuff.FromCalldata(buf, ValidateSig)
	if err != nil {
		return ValidatePointer{}, err
	}
	return ValidatePointer{tp: tp}, nil
}

func (p ValidatePointer) Unwrap() memptr.MemoryPointer { return p.tp.Unwrap() }

// Orders resolves the order array's tail.
func (p ValidatePointer) Orders() (scuff.TypedPointer, error) {
	return p.tp.Field(0)
}

// Order resolves element i of the order array.
func (p ValidatePointer) Order(i uint64) (OrderPointer, error) {
	arr, err := p.tp.Field(0)
	if err != nil {
		return OrderPointer{}, err
	}
	elem, err := arr.Element(i)
	if err != nil {
		return OrderPointer{}, err
	}
	return OrderPointer{tp: elem}, nil
}

// ScuffDirectives enumerates the full directive catalog for this calldata.
func (p ValidatePointer) ScuffDirectives() ([]scuff.Directive, error) {
	return scuff.GetDirectives(p.tp)
}
