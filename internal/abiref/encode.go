// Package abiref is a small reference implementation of the canonical
// head/tail encoding, driven directly by a schema tree. It exists to
// cross-check the production encoder and to re-encode decoded values when a
// campaign verifies that a tolerated corruption still decodes to the
// canonical bytes. Simplicity over speed.
package abiref

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"alma.local/scuffer/schema"
)

// Encode returns the canonical encoding of one value of type t. For dynamic
// types this is the tail (length word plus payload); the enclosing block's
// offset word is the caller's concern.
func Encode(t *schema.Type, v any) ([]byte, error) {
	switch t.Kind() {
	case schema.KindUint, schema.KindEnum:
		w, err := asWord(v)
		if err != nil {
			return nil, fmt.Errorf("abiref: %s: %w", t, err)
		}
		word := w.Bytes32()
		return word[:], nil

	case schema.KindAddress:
		addr, err := asAddress(v)
		if err != nil {
			return nil, fmt.Errorf("abiref: address: %w", err)
		}
		out := make([]byte, schema.WordSize)
		copy(out[schema.WordSize-common.AddressLength:], addr[:])
		return out, nil

	case schema.KindBytes32:
		h, ok := v.([32]byte)
		if !ok {
			return nil, fmt.Errorf("abiref: bytes32 wants [32]byte, got %T", v)
		}
		out := make([]byte, schema.WordSize)
		copy(out, h[:])
		return out, nil

	case schema.KindBytes:
		data, ok := v.([]byte)
		if !ok {
			return nil, fmt.Errorf("abiref: bytes wants []byte, got %T", v)
		}
		out := encodeWord(uint64(len(data)))
		out = append(out, data...)
		if pad := len(data) % schema.WordSize; pad != 0 {
			out = append(out, make([]byte, schema.WordSize-pad)...)
		}
		return out, nil

	case schema.KindArray:
		elems, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("abiref: array wants []any, got %T", v)
		}
		out := encodeWord(uint64(len(elems)))
		body, err := encodeBlock(elemFields(t.Elem(), len(elems)), elems)
		if err != nil {
			return nil, err
		}
		return append(out, body...), nil

	case schema.KindStruct:
		vals, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("abiref: struct %s wants []any, got %T", t.Name(), v)
		}
		return encodeBlock(t.Fields(), vals)
	}
	return nil, fmt.Errorf("abiref: unsupported kind %s", t.Kind())
}

// EncodeCall encodes a full call buffer: selector, then the argument tuple.
func EncodeCall(sig *schema.Signature, vals ...any) ([]byte, error) {
	body, err := encodeBlock(sig.Params, vals)
	if err != nil {
		return nil, fmt.Errorf("abiref: %s: %w", sig.Name, err)
	}
	sel := sig.Selector()
	return append(sel[:], body...), nil
}

// encodeBlock lays out one head block plus its tails: static components
// inline, dynamic components as offset words (relative to the block start)
// pointing into the appended tail region.
func encodeBlock(fields []schema.Field, vals []any) ([]byte, error) {
	if len(fields) != len(vals) {
		return nil, fmt.Errorf("abiref: %d fields, %d values", len(fields), len(vals))
	}

	var headSize uint64
	for _, f := range fields {
		if f.Type.IsDynamic() {
			headSize += schema.WordSize
		} else {
			headSize += f.Type.HeadSize()
		}
	}

	head := make([]byte, 0, headSize)
	var tail []byte
	offset := headSize

	for i, f := range fields {
		enc, err := Encode(f.Type, vals[i])
		if err != nil {
			return nil, fmt.Errorf("abiref: field %q: %w", f.Name, err)
		}
		if f.Type.IsDynamic() {
			head = append(head, encodeWord(offset)...)
			tail = append(tail, enc...)
			offset += uint64(len(enc))
		} else {
			head = append(head, enc...)
		}
	}
	return append(head, tail...), nil
}

// elemFields presents n array elements as anonymous fields so the element
// area reuses the block layout rules (offsets relative to the area start).
func elemFields(elem *schema.Type, n int) []schema.Field {
	fields := make([]schema.Field, n)
	for i := range fields {
		fields[i] = schema.Field{Name: fmt.Sprintf("[%d]", i), Type: elem}
	}
	return fields
}

func encodeWord(v uint64) []byte {
	word := uint256.NewInt(v).Bytes32()
	return word[:]
}

func asWord(v any) (*uint256.Int, error) {
	switch x := v.(type) {
	case *uint256.Int:
		return x, nil
	case uint64:
		return uint256.NewInt(x), nil
	case uint8:
		return uint256.NewInt(uint64(x)), nil
	case int:
		if x < 0 {
			return nil, fmt.Errorf("negative value %d", x)
		}
		return uint256.NewInt(uint64(x)), nil
	}
	return nil, fmt.Errorf("cannot use %T as a word", v)
}

func asAddress(v any) (common.Address, error) {
	switch x := v.(type) {
	case common.Address:
		return x, nil
	case [20]byte:
		return common.Address(x), nil
	}
	return common.Address{}, fmt.Errorf("cannot use %T as an address", v)
}
