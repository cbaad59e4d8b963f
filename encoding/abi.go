// Package encoding produces canonical call buffers from logical argument
// values. It drives go-ethereum's ABI packer from a schema tree, so the
// "known-good" baseline a campaign mutates is encoded by an independent,
// production-grade codec rather than by our own layout arithmetic. The
// reference encoder in internal/abiref cross-checks it in tests.
package encoding

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"alma.local/scuffer/memptr"
	"alma.local/scuffer/schema"
	"alma.local/scuffer/scuff"
)

// FromArgs canonical-encodes the signature's arguments and returns the
// backing buffer plus a typed pointer at the argument tuple's base. Values
// follow go-ethereum's conventions: *big.Int for uint256, uint8 for enums,
// common.Address, [32]byte, []byte, slices for arrays and Go structs
// (exported fields matching the schema field names) for tuples.
func FromArgs(sig *schema.Signature, vals ...interface{}) (*memptr.Buffer, scuff.TypedPointer, error) {
	args, err := Arguments(sig)
	if err != nil {
		return nil, scuff.TypedPointer{}, err
	}
	packed, err := args.Pack(vals...)
	if err != nil {
		return nil, scuff.TypedPointer{}, fmt.Errorf("encoding: packing %s: %w", sig.Name, err)
	}

	sel := sig.Selector()
	buf := memptr.NewBuffer(append(sel[:], packed...))
	tp, err := scuff.FromCalldata(buf, sig)
	if err != nil {
		return nil, scuff.TypedPointer{}, err
	}
	return buf, tp, nil
}

// Arguments translates a signature's parameter schemas into go-ethereum
// argument types.
func Arguments(sig *schema.Signature) (abi.Arguments, error) {
	args := make(abi.Arguments, 0, len(sig.Params))
	for _, p := range sig.Params {
		m := marshalingFor(p.Type, p.Name)
		t, err := abi.NewType(m.Type, "", m.Components)
		if err != nil {
			return nil, fmt.Errorf("encoding: param %q: %w", p.Name, err)
		}
		args = append(args, abi.Argument{Name: p.Name, Type: t})
	}
	return args, nil
}

// Method builds the go-ethereum method descriptor for a signature. Used by
// tests to confirm our selector derivation agrees with geth's.
func Method(sig *schema.Signature) (abi.Method, error) {
	args, err := Arguments(sig)
	if err != nil {
		return abi.Method{}, err
	}
	return abi.NewMethod(sig.Name, sig.Name, abi.Function, "", false, false, args, nil), nil
}

func marshalingFor(t *schema.Type, name string) abi.ArgumentMarshaling {
	switch t.Kind() {
	case schema.KindStruct:
		comps := make([]abi.ArgumentMarshaling, 0, len(t.Fields()))
		for _, f := range t.Fields() {
			comps = append(comps, marshalingFor(f.Type, f.Name))
		}
		return abi.ArgumentMarshaling{Name: name, Type: "tuple", Components: comps}
	case schema.KindArray:
		inner := marshalingFor(t.Elem(), name)
		return abi.ArgumentMarshaling{Name: name, Type: inner.Type + "[]", Components: inner.Components}
	default:
		return abi.ArgumentMarshaling{Name: name, Type: t.ABIType()}
	}
}
