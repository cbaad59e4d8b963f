// Package oracle is the hardened reference decoder the directive campaigns
// feed mutated buffers to. Unlike the pointer layer, which deliberately
// never validates, the oracle enforces every bound: truncated input, head
// offsets escaping the buffer and enum values above their declared range
// are rejected, while garbage in the unused high bits of narrow values is
// masked off exactly as a tolerant production decoder would.
package oracle

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"alma.local/scuffer/memptr"
	"alma.local/scuffer/schema"
)

var (
	// ErrTruncatedInput: the buffer is shorter than the schema's minimum.
	ErrTruncatedInput = errors.New("oracle: truncated input")
	// ErrOutOfBounds: a head offset or length resolves past the buffer end.
	ErrOutOfBounds = errors.New("oracle: reference escapes buffer")
	// ErrEnumRange: a masked enum value exceeds its declared maximum.
	ErrEnumRange = errors.New("oracle: enum value out of range")
	// ErrSelectorMismatch: the calldata targets a different function.
	ErrSelectorMismatch = errors.New("oracle: selector mismatch")
)

// lengthMask keeps the low 32 bits of a length word; everything above is
// treated as padding the decoder tolerates.
const lengthMask = 0xffffffff

// Value is one decoded node. Exactly one payload field is set, per Type's
// kind; composites fill Elems in declaration order.
type Value struct {
	Type  *schema.Type
	Word  *uint256.Int
	Addr  common.Address
	Hash  [32]byte
	Data  []byte
	Elems []Value
}

// DecodeCalldata strictly decodes a full call buffer for the given
// signature, selector included.
func DecodeCalldata(buf *memptr.Buffer, sig *schema.Signature) ([]Value, error) {
	if buf.Len() < sig.MinCalldataSize() {
		return nil, fmt.Errorf("%w: %d bytes, signature needs %d", ErrTruncatedInput, buf.Len(), sig.MinCalldataSize())
	}
	sel, err := buf.Ref(0).ReadBytes(schema.SelectorSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedInput, err)
	}
	want := sig.Selector()
	if !bytes.Equal(sel, want[:]) {
		return nil, fmt.Errorf("%w: got %x, want %x", ErrSelectorMismatch, sel, want)
	}
	return decodeBlock(sig.Params, buf.Ref(schema.SelectorSize))
}

// decodeBlock decodes one head block plus the tails it references. base is
// the origin relative offsets are measured from.
func decodeBlock(fields []schema.Field, base memptr.MemoryPointer) ([]Value, error) {
	out := make([]Value, 0, len(fields))
	var headOff uint64
	for _, f := range fields {
		slot := base.Offset(headOff)
		if f.Type.IsDynamic() {
			tail, err := resolveTail(base, slot)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			v, err := decodeTail(f.Type, tail)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			out = append(out, v)
			headOff += schema.WordSize
		} else {
			v, err := decodeStatic(f.Type, slot)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			out = append(out, v)
			headOff += f.Type.HeadSize()
		}
	}
	return out, nil
}

// resolveTail follows a head slot's relative offset and verifies the tail's
// length word is addressable.
func resolveTail(base, slot memptr.MemoryPointer) (memptr.MemoryPointer, error) {
	rel, overflow, err := slot.ReadUint64()
	if err != nil {
		return memptr.MemoryPointer{}, fmt.Errorf("%w: %v", ErrOutOfBounds, err)
	}
	if overflow {
		return memptr.MemoryPointer{}, fmt.Errorf("%w: head offset exceeds 64 bits", ErrOutOfBounds)
	}
	// Reject before deriving: base+rel must not wrap around uint64, and a
	// tail cannot start past the buffer in the first place.
	if rel > base.Buffer().Len() {
		return memptr.MemoryPointer{}, fmt.Errorf("%w: relative offset %d beyond buffer", ErrOutOfBounds, rel)
	}
	tail := base.Offset(rel)
	if !tail.InBounds(schema.WordSize) {
		return memptr.MemoryPointer{}, fmt.Errorf("%w: tail at %d+%d", ErrOutOfBounds, base.Position(), rel)
	}
	return tail, nil
}

func decodeStatic(t *schema.Type, slot memptr.MemoryPointer) (Value, error) {
	if t.Kind() == schema.KindStruct {
		elems := make([]Value, 0, len(t.Fields()))
		for i, f := range t.Fields() {
			v, err := decodeStatic(f.Type, slot.Offset(t.FieldOffset(i)))
			if err != nil {
				return Value{}, fmt.Errorf("field %q: %w", f.Name, err)
			}
			elems = append(elems, v)
		}
		return Value{Type: t, Elems: elems}, nil
	}

	word, err := slot.ReadWord()
	if err != nil {
		return Value{}, fmt.Errorf("%w: %v", ErrOutOfBounds, err)
	}

	switch t.Kind() {
	case schema.KindUint:
		return Value{Type: t, Word: maskTo(word, t.Bits())}, nil
	case schema.KindEnum:
		masked := maskTo(word, t.Bits())
		if masked.Uint64() > t.EnumMax() {
			return Value{}, fmt.Errorf("%w: %d > %d", ErrEnumRange, masked.Uint64(), t.EnumMax())
		}
		return Value{Type: t, Word: masked}, nil
	case schema.KindAddress:
		masked := maskTo(word, schema.AddressBits)
		raw := masked.Bytes32()
		return Value{Type: t, Addr: common.BytesToAddress(raw[12:])}, nil
	case schema.KindBytes32:
		return Value{Type: t, Hash: word.Bytes32()}, nil
	}
	return Value{}, fmt.Errorf("oracle: unsupported static kind %s", t.Kind())
}

func decodeTail(t *schema.Type, tail memptr.MemoryPointer) (Value, error) {
	switch t.Kind() {
	case schema.KindBytes:
		n, err := readLength(tail)
		if err != nil {
			return Value{}, err
		}
		raw, err := tail.Offset(schema.WordSize).ReadBytes(n)
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrOutOfBounds, err)
		}
		// Copy: the backing buffer is mutated between campaign steps.
		data := make([]byte, n)
		copy(data, raw)
		return Value{Type: t, Data: data}, nil

	case schema.KindArray:
		n, err := readLength(tail)
		if err != nil {
			return Value{}, err
		}
		elem := t.Elem()
		area := tail.Offset(schema.WordSize)
		// Check the whole element area before allocating anything: a huge
		// length word must fail bounds, not memory.
		slotWidth := elem.HeadSize()
		if elem.IsDynamic() {
			slotWidth = schema.WordSize
		}
		if n > 0 && !area.InBounds(n*slotWidth) {
			return Value{}, fmt.Errorf("%w: %d elements exceed buffer", ErrOutOfBounds, n)
		}
		elems := make([]Value, 0, n)
		for i := uint64(0); i < n; i++ {
			var v Value
			if elem.IsDynamic() {
				elemTail, err := resolveTail(area, area.Offset(i*schema.WordSize))
				if err != nil {
					return Value{}, fmt.Errorf("element %d: %w", i, err)
				}
				v, err = decodeTail(elem, elemTail)
				if err != nil {
					return Value{}, fmt.Errorf("element %d: %w", i, err)
				}
			} else {
				slot := area.Offset(i * elem.HeadSize())
				if !slot.InBounds(elem.HeadSize()) {
					return Value{}, fmt.Errorf("%w: element %d past buffer", ErrOutOfBounds, i)
				}
				var err error
				v, err = decodeStatic(elem, slot)
				if err != nil {
					return Value{}, fmt.Errorf("element %d: %w", i, err)
				}
			}
			elems = append(elems, v)
		}
		return Value{Type: t, Elems: elems}, nil

	case schema.KindStruct:
		elems, err := decodeBlock(t.Fields(), tail)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: t, Elems: elems}, nil
	}
	return Value{}, fmt.Errorf("oracle: %s has no tail", t)
}

// readLength reads a tail's length word, masking the high bits off.
func readLength(tail memptr.MemoryPointer) (uint64, error) {
	w, err := tail.ReadWord()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrOutOfBounds, err)
	}
	return w.Uint64() & lengthMask, nil
}

func maskTo(w *uint256.Int, bits uint16) *uint256.Int {
	if bits >= 256 {
		return w
	}
	mask := new(uint256.Int).SetAllOne()
	mask.Rsh(mask, uint(256-bits))
	return mask.And(mask, w)
}
