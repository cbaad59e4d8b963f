// Package scuff implements the typed calldata pointer layer and the
// mutation-directive engine. Given a schema and a canonical buffer it
// enumerates every way one field's encoding can be corrupted while staying
// superficially well-formed, as a flat deterministic directive catalog.
package scuff

import (
	"fmt"

	"alma.local/scuffer/memptr"
	"alma.local/scuffer/schema"
)

// TypedPointer tags a raw pointer with a layout. For static types it points
// at the first byte of the fixed slot block; for dynamic types it points at
// the tail (the length word of bytes/arrays, the head block of a dynamic
// struct). Wrapping performs no validation: reinterpreting a pointer under
// the wrong schema is a caller error this layer cannot detect.
type TypedPointer struct {
	typ *schema.Type
	ptr memptr.MemoryPointer
}

// Wrap reinterprets a raw pointer as the given type. Zero cost, no checks.
func Wrap(t *schema.Type, p memptr.MemoryPointer) TypedPointer {
	return TypedPointer{typ: t, ptr: p}
}

// Unwrap returns the raw pointer. Inverse of Wrap.
func (tp TypedPointer) Unwrap() memptr.MemoryPointer {
	return tp.ptr
}

// Type returns the layout the pointer is tagged with.
func (tp TypedPointer) Type() *schema.Type {
	return tp.typ
}

// FieldHead returns the raw pointer to field i's head slot. For a static
// field that is the field's inline storage; for a dynamic field it is the
// slot holding the relative tail offset.
func (tp TypedPointer) FieldHead(i int) memptr.MemoryPointer {
	return tp.ptr.Offset(tp.typ.FieldOffset(i))
}

// Field resolves field i to a typed pointer. Static fields resolve to their
// inline slots; dynamic fields follow the head slot's relative offset into
// the tail. The offset is taken relative to the struct base, per the
// encoding's indirection rule.
func (tp TypedPointer) Field(i int) (TypedPointer, error) {
	ft := tp.typ.Fields()[i].Type
	head := tp.FieldHead(i)
	if !ft.IsDynamic() {
		return Wrap(ft, head), nil
	}
	rel, overflow, err := head.ReadUint64()
	if err != nil {
		return TypedPointer{}, fmt.Errorf("scuff: resolving field %q: %w", tp.typ.Fields()[i].Name, err)
	}
	if overflow {
		return TypedPointer{}, fmt.Errorf("scuff: field %q head offset exceeds 64 bits", tp.typ.Fields()[i].Name)
	}
	return Wrap(ft, tp.ptr.Offset(rel)), nil
}

// Length reads the element count (or byte length) word of a dynamic tail.
func (tp TypedPointer) Length() (uint64, error) {
	if !tp.typ.IsDynamic() {
		return 0, fmt.Errorf("scuff: Length on static type %s", tp.typ)
	}
	n, overflow, err := tp.ptr.ReadUint64()
	if err != nil {
		return 0, err
	}
	if overflow {
		return 0, fmt.Errorf("scuff: length word of %s exceeds 64 bits", tp.typ)
	}
	return n, nil
}

// ElementHead returns the raw pointer to element i's slot in an array tail:
// the inline block for static elements, the relative-offset word for dynamic
// ones. The caller must bound i by the read length first; this layer does
// not validate indices.
func (tp TypedPointer) ElementHead(i uint64) memptr.MemoryPointer {
	elem := tp.typ.Elem()
	area := tp.ptr.Offset(memptr.WordSize)
	if elem.IsDynamic() {
		return area.Offset(i * memptr.WordSize)
	}
	return area.Offset(i * elem.HeadSize())
}

// Element resolves element i of an array tail. For dynamic elements the
// per-element offset word is relative to the start of the element area
// (just past the length word), one indirection deeper than the array's own
// head.
func (tp TypedPointer) Element(i uint64) (TypedPointer, error) {
	elem := tp.typ.Elem()
	head := tp.ElementHead(i)
	if !elem.IsDynamic() {
		return Wrap(elem, head), nil
	}
	rel, overflow, err := head.ReadUint64()
	if err != nil {
		return TypedPointer{}, fmt.Errorf("scuff: resolving element %d: %w", i, err)
	}
	if overflow {
		return TypedPointer{}, fmt.Errorf("scuff: element %d offset exceeds 64 bits", i)
	}
	return Wrap(elem, tp.ptr.Offset(memptr.WordSize).Offset(rel)), nil
}

// BytesData returns the payload of a dynamic bytes tail.
func (tp TypedPointer) BytesData() ([]byte, error) {
	n, err := tp.Length()
	if err != nil {
		return nil, err
	}
	return tp.ptr.Offset(memptr.WordSize).ReadBytes(n)
}

// FromCalldata locates the argument tuple inside a full call buffer by
// skipping the fixed 4-byte selector. The selector is NOT verified: the
// typed layer resolves layout, identity checks belong to the consumer.
func FromCalldata(buf *memptr.Buffer, sig *schema.Signature) (TypedPointer, error) {
	if buf.Len() < schema.SelectorSize {
		return TypedPointer{}, fmt.Errorf("scuff: calldata %d bytes, shorter than the selector", buf.Len())
	}
	return Wrap(sig.Tuple(), buf.Ref(schema.SelectorSize)), nil
}
