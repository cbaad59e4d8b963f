// Package schema describes the head/tail calldata layout of a structure as a
// declarative tree. One schema value replaces the per-structure pointer
// libraries of the source contracts: the typed pointer layer and the scuff
// engine both traverse the same tree, so field resolution and directive
// generation can never disagree about a layout.
//
// Layout rules (bit-exact ABI):
//   - every static field occupies one or more 32-byte slots, in declaration
//     order, at a constant offset from the enclosing block's base;
//   - a dynamic field's head slot holds a big-endian byte offset, relative to
//     the start of the enclosing block, to its tail;
//   - a tail begins with a 32-byte length word (element count or byte
//     length), followed by the payload laid out by the same rules.
package schema

import "fmt"

// Kind discriminates the layout node variants.
type Kind uint8

const (
	KindUint Kind = iota
	KindAddress
	KindEnum
	KindBytes32
	KindBytes
	KindArray
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindUint:
		return "uint"
	case KindAddress:
		return "address"
	case KindEnum:
		return "enum"
	case KindBytes32:
		return "bytes32"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// WordSize mirrors memptr.WordSize; schema is layout arithmetic only and
// does not import the pointer layer.
const WordSize = 32

// AddressBits is the logical width of an address inside its 32-byte slot.
const AddressBits = 160

// Type is one node of a layout tree. Types are built once at package init
// and never mutated afterwards; they are safe for concurrent readers.
type Type struct {
	kind    Kind
	bits    uint16 // logical bit width for Uint/Enum/Address
	members uint64 // enum member count
	name    string // struct name, informational
	fields  []Field
	elem    *Type
	cap     uint64 // array capacity reserved for ordinal numbering
}

// Field is a named member of a struct layout.
type Field struct {
	Name string
	Type *Type
}

// Fld is a small constructor helper so struct layouts read declaratively.
func Fld(name string, t *Type) Field {
	return Field{Name: name, Type: t}
}

// Uint declares an unsigned integer of the given logical bit width, stored
// in a full 32-byte slot. Width 256 means the slot has no unused bits.
func Uint(bits uint16) *Type {
	if bits == 0 || bits > 256 || bits%8 != 0 {
		panic(fmt.Sprintf("schema: invalid uint width %d", bits))
	}
	return &Type{kind: KindUint, bits: bits}
}

// Address declares a 160-bit address in a 32-byte slot.
func Address() *Type {
	return &Type{kind: KindAddress, bits: AddressBits}
}

// Enum declares an enumeration with the given member count. Its logical bit
// width is the minimum number of bits that can hold members-1; everything
// above is padding a tolerant decoder must mask.
func Enum(members uint64) *Type {
	if members == 0 {
		panic("schema: enum needs at least one member")
	}
	bits := uint16(1)
	for v := members - 1; v > 1; v >>= 1 {
		bits++
	}
	return &Type{kind: KindEnum, bits: bits, members: members}
}

// Bytes32 declares an opaque full-width 32-byte value.
func Bytes32() *Type {
	return &Type{kind: KindBytes32, bits: 256}
}

// Bytes declares variable-length raw bytes (dynamic, length-prefixed).
func Bytes() *Type {
	return &Type{kind: KindBytes}
}

// Array declares a dynamic-length array of elem. The capacity bounds how
// many element ordinal ranges are reserved in the scuff-kind numbering; an
// instance longer than cap is still a legal encoding, but only the first
// cap elements receive directives.
func Array(elem *Type, capacity uint64) *Type {
	if capacity == 0 {
		panic("schema: array capacity must be positive")
	}
	return &Type{kind: KindArray, elem: elem, cap: capacity}
}

// Struct declares a named tuple of fields in declaration order.
func Struct(name string, fields ...Field) *Type {
	return &Type{kind: KindStruct, name: name, fields: fields}
}

func (t *Type) Kind() Kind      { return t.kind }
func (t *Type) Name() string    { return t.name }
func (t *Type) Fields() []Field { return t.fields }
func (t *Type) Elem() *Type     { return t.elem }
func (t *Type) Capacity() uint64 { return t.cap }

// Bits returns the logical bit width of a scalar slot. Full-width slots
// (uint256, bytes32) report 256.
func (t *Type) Bits() uint16 {
	return t.bits
}

// EnumMax returns the largest legal member ordinal of an enum.
func (t *Type) EnumMax() uint64 {
	return t.members - 1
}

// IsDynamic reports whether the type is encoded via a head offset and a
// trailing length-prefixed tail. A struct is dynamic iff any field is.
func (t *Type) IsDynamic() bool {
	switch t.kind {
	case KindBytes, KindArray:
		return true
	case KindStruct:
		for _, f := range t.fields {
			if f.Type.IsDynamic() {
				return true
			}
		}
	}
	return false
}

// HeadSize returns the size in bytes of the head block at the start of the
// type's own encoding: for scalars one slot, for structs one slot per field
// (static fields inline their full width, dynamic fields one offset slot).
func (t *Type) HeadSize() uint64 {
	switch t.kind {
	case KindStruct:
		var total uint64
		for _, f := range t.fields {
			total += slotSize(f.Type)
		}
		return total
	case KindBytes, KindArray:
		// Head of the tail is the length word.
		return WordSize
	default:
		return WordSize
	}
}

// slotSize is the head-block footprint of a type used as a component of an
// enclosing struct: dynamic components occupy one offset slot, static
// components inline their full head size.
func slotSize(t *Type) uint64 {
	if t.IsDynamic() {
		return WordSize
	}
	return t.HeadSize()
}

// FieldOffset returns the constant byte offset of field i's slot from the
// struct's base.
func (t *Type) FieldOffset(i int) uint64 {
	if t.kind != KindStruct {
		panic(fmt.Sprintf("schema: FieldOffset on %s", t.kind))
	}
	var off uint64
	for j := 0; j < i; j++ {
		off += slotSize(t.fields[j].Type)
	}
	return off
}

// MinSize returns the minimal canonical encoding size of the type: the head
// block plus, for every dynamic member, the smallest possible tail (a zero
// length word). A buffer shorter than this is truncated for any instance.
func (t *Type) MinSize() uint64 {
	switch t.kind {
	case KindBytes, KindArray:
		return WordSize
	case KindStruct:
		total := t.HeadSize()
		for _, f := range t.fields {
			if f.Type.IsDynamic() {
				total += f.Type.MinSize()
			}
		}
		return total
	default:
		return WordSize
	}
}

// ABIType returns the canonical type string used in function signatures.
// Structs stringify as parenthesized component lists, matching the selector
// convention of the source domain.
func (t *Type) ABIType() string {
	switch t.kind {
	case KindUint:
		// Calldata signatures use the declared storage width.
		return fmt.Sprintf("uint%d", t.bits)
	case KindAddress:
		return "address"
	case KindEnum:
		return "uint8"
	case KindBytes32:
		return "bytes32"
	case KindBytes:
		return "bytes"
	case KindArray:
		return t.elem.ABIType() + "[]"
	case KindStruct:
		s := "("
		for i, f := range t.fields {
			if i > 0 {
				s += ","
			}
			s += f.Type.ABIType()
		}
		return s + ")"
	}
	panic(fmt.Sprintf("schema: ABIType on %s", t.kind))
}

// String renders a short human-readable description of the node.
func (t *Type) String() string {
	switch t.kind {
	case KindStruct:
		if t.name != "" {
			return t.name
		}
		return "tuple"
	case KindArray:
		return t.elem.String() + "[]"
	case KindEnum:
		return fmt.Sprintf("enum(%d)", t.members)
	case KindUint:
		return fmt.Sprintf("uint%d", t.bits)
	default:
		return t.kind.String()
	}
}
