package orders

import (
	"testing"

	"github.com/holiman/uint256"

	"alma.local/scuffer/scuff"
)

func TestFulfillOrderNavigation(t *testing.T) {
	o := SampleOrder()
	buf, fp, err := FulfillOrderCalldata(o)
	if err != nil {
		t.Fatalf("encoding fixture failed: %v", err)
	}

	op, err := fp.Order()
	if err != nil {
		t.Fatalf("resolving order failed: %v", err)
	}
	params, err := op.Parameters()
	if err != nil {
		t.Fatalf("resolving parameters failed: %v", err)
	}

	offererWord, err := params.Offerer().ReadWord()
	if err != nil {
		t.Fatalf("reading offerer failed: %v", err)
	}
	want := new(uint256.Int).SetBytes(o.Parameters.Offerer.Bytes())
	if !offererWord.Eq(want) {
		t.Fatalf("offerer mismatch: got %s, want %s", offererWord.Hex(), want.Hex())
	}

	item, err := params.OfferItem(1)
	if err != nil {
		t.Fatalf("resolving offer[1] failed: %v", err)
	}
	ident, err := item.IdentifierOrCriteria().ReadWord()
	if err != nil {
		t.Fatalf("reading identifier failed: %v", err)
	}
	if !ident.Eq(uint256.NewInt(1001)) {
		t.Fatalf("offer[1] identifier: got %s, want 1001", ident.Hex())
	}

	sigTail, err := op.Signature()
	if err != nil {
		t.Fatalf("resolving signature failed: %v", err)
	}
	data, err := sigTail.BytesData()
	if err != nil {
		t.Fatalf("reading signature failed: %v", err)
	}
	if len(data) != 65 || data[0] != 0x01 || data[64] != 0x41 {
		t.Fatalf("unexpected signature payload: %d bytes, first %#x", len(data), data[0])
	}

	// The conduit key argument sits right after the order's offset slot.
	if got := fp.FulfillerConduitKey().Position(); got != 4+32 {
		t.Fatalf("fulfillerConduitKey slot at %d, want 36", got)
	}
	_ = buf
}

func TestFulfillOrderCatalogIsComplete(t *testing.T) {
	_, fp, err := FulfillOrderCalldata(SampleOrder())
	if err != nil {
		t.Fatalf("encoding fixture failed: %v", err)
	}
	dirs, err := fp.ScuffDirectives()
	if err != nil {
		t.Fatalf("ScuffDirectives failed: %v", err)
	}

	root := FulfillOrderSig.Tuple()
	if len(dirs) != scuff.RootRange(root) {
		t.Fatalf("fully populated order: expected %d directives, got %d", scuff.RootRange(root), len(dirs))
	}
	seen := make(map[scuff.Kind]bool, len(dirs))
	for _, d := range dirs {
		if seen[d.Kind] {
			t.Fatalf("ordinal %d appears twice", d.Kind)
		}
		seen[d.Kind] = true
	}

	// Spot-check the flattened naming deep inside the nesting.
	k, ok := scuff.KindFromString(root, "order.parameters.offer[2].startAmount.MaxValue")
	if !ok {
		t.Fatalf("expected deep kind name to be reserved")
	}
	d := dirs[int(k)]
	if d.Positions.Path != "order.parameters.offer[2].startAmount" || d.Category != scuff.MaxValue {
		t.Fatalf("ordinal %d resolves to %s.%s", k, d.Positions.Path, d.Category)
	}
}

func TestValidateBatchCatalog(t *testing.T) {
	batch := []Order{SampleOrder(), SampleOrder()}
	_, vp, err := ValidateCalldata(batch)
	if err != nil {
		t.Fatalf("encoding batch failed: %v", err)
	}

	second, err := vp.Order(1)
	if err != nil {
		t.Fatalf("resolving orders[1] failed: %v", err)
	}
	params, err := second.Parameters()
	if err != nil {
		t.Fatalf("resolving parameters failed: %v", err)
	}
	salt, err := params.Salt().ReadWord()
	if err != nil {
		t.Fatalf("reading salt failed: %v", err)
	}
	if !salt.Eq(uint256.NewInt(0x5a17)) {
		t.Fatalf("orders[1] salt: got %s", salt.Hex())
	}

	dirs, err := vp.ScuffDirectives()
	if err != nil {
		t.Fatalf("ScuffDirectives failed: %v", err)
	}
	if len(dirs) != scuff.RootRange(ValidateSig.Tuple()) {
		t.Fatalf("expected %d directives, got %d", scuff.RootRange(ValidateSig.Tuple()), len(dirs))
	}

	// Both elements expand to the same per-order range, shifted by one
	// reserved order range.
	perOrder := scuff.ReservedRange(OrderSchema)
	k0, ok0 := scuff.KindFromString(ValidateSig.Tuple(), "orders[0].signature.length.MaxValue")
	k1, ok1 := scuff.KindFromString(ValidateSig.Tuple(), "orders[1].signature.length.MaxValue")
	if !ok0 || !ok1 {
		t.Fatalf("signature length kinds missing from enumeration")
	}
	if int(k1)-int(k0) != perOrder {
		t.Fatalf("element ranges not contiguous: %d vs %d, want gap %d", k0, k1, perOrder)
	}
}
