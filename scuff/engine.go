package scuff

import (
	"fmt"

	"alma.local/scuffer/memptr"
	"alma.local/scuffer/schema"
)

// GetDirectives walks the typed pointer's layout depth-first, in field
// declaration order, and returns one directive per reachable (field,
// category) pair. The catalog is deterministic: the same buffer contents
// yield a bit-for-bit identical sequence, and each directive's Kind ordinal
// is the position the static Kinds enumeration reserves for it. Arrays
// shorter than their declared capacity simply leave the absent elements'
// ordinal ranges unused.
//
// The buffer is assumed canonical; a head offset or length word that cannot
// be followed aborts generation with an error rather than producing a
// partial catalog.
func GetDirectives(tp TypedPointer) ([]Directive, error) {
	out := make([]Directive, 0, RootRange(tp.Type()))
	if tp.Type().Kind() != schema.KindStruct {
		if err := addComponent(tp.Type(), tp.Unwrap(), tp.Unwrap(), &out, 0, Positions{Path: "arg"}); err != nil {
			return nil, err
		}
		return out, nil
	}
	if err := addStructFields(tp, &out, 0, Positions{}); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDirectivesForCalldata composes FromCalldata and GetDirectives.
func GetDirectivesForCalldata(buf *memptr.Buffer, sig *schema.Signature) ([]Directive, error) {
	tp, err := FromCalldata(buf, sig)
	if err != nil {
		return nil, err
	}
	return GetDirectives(tp)
}

// addStructFields appends the directives of every field of a struct block
// whose base is tp's pointer. kindOffset is the first ordinal reserved for
// this block; each field advances it by the field's reserved range so a
// directive generated arbitrarily deep still lands on its statically
// assigned ordinal.
func addStructFields(tp TypedPointer, out *[]Directive, kindOffset int, pos Positions) error {
	base := tp.Unwrap()
	for i, f := range tp.Type().Fields() {
		slot := base.Offset(tp.Type().FieldOffset(i))
		if err := addComponent(f.Type, base, slot, out, kindOffset, pos.Field(f.Name)); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
		kindOffset += ReservedRange(f.Type)
	}
	return nil
}

// addComponent appends the directives of one component of an enclosing
// block. base is the block origin relative offsets are measured from; slot
// is the component's head slot within that block.
func addComponent(t *schema.Type, base, slot memptr.MemoryPointer, out *[]Directive, kindOffset int, pos Positions) error {
	if t.IsDynamic() {
		// The component's own head offset word gets HeadOverflow, then the
		// tail is expanded with the ordinal right after it.
		*out = append(*out, Directive{
			Kind:      Kind(kindOffset),
			Category:  HeadOverflow,
			Target:    slot,
			Base:      base,
			Bits:      256,
			Positions: pos,
			Node:      t,
		})
		rel, overflow, err := slot.ReadUint64()
		if err != nil {
			return err
		}
		if overflow {
			return fmt.Errorf("head offset at %d exceeds 64 bits", slot.Position())
		}
		return addTail(t, base.Offset(rel), out, kindOffset+1, pos)
	}

	switch t.Kind() {
	case schema.KindStruct:
		// Static struct: fields inline directly into the enclosing block.
		for i, f := range t.Fields() {
			if err := addComponent(f.Type, base, slot.Offset(t.FieldOffset(i)), out, kindOffset, pos.Field(f.Name)); err != nil {
				return err
			}
			kindOffset += ReservedRange(f.Type)
		}
		return nil
	default:
		for i, c := range scalarCategories(t) {
			*out = append(*out, Directive{
				Kind:      Kind(kindOffset + i),
				Category:  c,
				Target:    slot,
				Base:      base,
				Bits:      t.Bits(),
				Positions: pos,
				Node:      t,
			})
		}
		return nil
	}
}

// addTail appends the directives of a dynamic component's tail region.
func addTail(t *schema.Type, tail memptr.MemoryPointer, out *[]Directive, kindOffset int, pos Positions) error {
	switch t.Kind() {
	case schema.KindBytes:
		appendLength(t, out, tail, kindOffset, pos)
		return nil

	case schema.KindArray:
		appendLength(t, out, tail, kindOffset, pos)
		kindOffset += len(lengthCategories)

		n, overflow, err := tail.ReadUint64()
		if err != nil {
			return err
		}
		if overflow {
			return fmt.Errorf("array length at %d exceeds 64 bits", tail.Position())
		}
		if n > t.Capacity() {
			n = t.Capacity()
		}

		elem := t.Elem()
		area := tail.Offset(memptr.WordSize)
		for i := uint64(0); i < n; i++ {
			elemOffset := kindOffset + int(i)*ReservedRange(elem)
			var slot memptr.MemoryPointer
			if elem.IsDynamic() {
				slot = area.Offset(i * memptr.WordSize)
			} else {
				slot = area.Offset(i * elem.HeadSize())
			}
			if err := addComponent(elem, area, slot, out, elemOffset, pos.Index(i)); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil

	case schema.KindStruct:
		// Dynamic struct: the tail is the struct's own head block.
		return addStructFields(Wrap(t, tail), out, kindOffset, pos)
	}
	return fmt.Errorf("scuff: %s has no tail", t)
}

func appendLength(t *schema.Type, out *[]Directive, tail memptr.MemoryPointer, kindOffset int, pos Positions) {
	for i, c := range lengthCategories {
		*out = append(*out, Directive{
			Kind:      Kind(kindOffset + i),
			Category:  c,
			Target:    tail,
			Base:      tail,
			Bits:      LengthBits,
			Positions: pos.Length(),
			Node:      t,
		})
	}
}
