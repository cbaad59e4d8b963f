package scuff

import (
	"fmt"

	"alma.local/scuffer/schema"
)

// Category is one corruption recipe family. Which categories a field
// receives depends on its semantic width versus its 32-byte storage slot.
type Category uint8

const (
	// DirtyBits sets the unused high bits of a narrow value (address, enum,
	// length word) to garbage while keeping the logical value. Probes that a
	// decoder masks instead of misreading.
	DirtyBits Category = iota
	// MaxValue replaces the logical value with the maximum of its declared
	// narrow range, high bits clean. Probes boundary handling.
	MaxValue
	// HeadOverflow replaces a dynamic field's relative-offset word so the
	// resolved tail lands outside the buffer. Probes bounds detection.
	HeadOverflow
)

func (c Category) String() string {
	switch c {
	case DirtyBits:
		return "DirtyBits"
	case MaxValue:
		return "MaxValue"
	case HeadOverflow:
		return "HeadOverflow"
	}
	return fmt.Sprintf("Category(%d)", uint8(c))
}

// Kind is the flattened ordinal of one (field path, category) pair inside a
// root schema's directive enumeration. Ordinals are contiguous per nested
// sub-structure: a child block's kinds live at parentOffset + localOrdinal.
type Kind int

// LengthBits is the logical bit width attributed to a tail's length word.
// Lengths are unbounded in the encoding but no realistic instance exceeds
// 32 bits, so everything above is treated as dirtyable padding.
const LengthBits = 32

// scalarCategories returns the categories applicable to a static slot.
// Full-width slots have no unused bits, so DirtyBits does not apply.
func scalarCategories(t *schema.Type) []Category {
	switch t.Kind() {
	case schema.KindUint:
		if t.Bits() < 256 {
			return []Category{DirtyBits, MaxValue}
		}
		return []Category{MaxValue}
	case schema.KindAddress, schema.KindEnum:
		return []Category{DirtyBits, MaxValue}
	case schema.KindBytes32:
		return []Category{MaxValue}
	}
	panic(fmt.Sprintf("scuff: %s is not a scalar", t))
}

var lengthCategories = []Category{DirtyBits, MaxValue}

// ReservedRange returns the number of kind ordinals one component of an
// enclosing block occupies: its own categories plus the full recursive
// expansion of its tail. Arrays reserve their declared capacity's worth of
// element ranges so ordinals never depend on instance length.
func ReservedRange(t *schema.Type) int {
	if t.IsDynamic() {
		return 1 + tailRange(t) // the component's own HeadOverflow first
	}
	switch t.Kind() {
	case schema.KindStruct:
		total := 0
		for _, f := range t.Fields() {
			total += ReservedRange(f.Type)
		}
		return total
	default:
		return len(scalarCategories(t))
	}
}

func tailRange(t *schema.Type) int {
	switch t.Kind() {
	case schema.KindBytes:
		return len(lengthCategories)
	case schema.KindArray:
		return len(lengthCategories) + int(t.Capacity())*ReservedRange(t.Elem())
	case schema.KindStruct:
		total := 0
		for _, f := range t.Fields() {
			total += ReservedRange(f.Type)
		}
		return total
	}
	panic(fmt.Sprintf("scuff: %s has no tail", t))
}

// RootRange returns the total ordinal count reserved by a root tuple: the
// value GetDirectives is complete against on a fully-populated instance.
func RootRange(root *schema.Type) int {
	if root.Kind() != schema.KindStruct {
		return ReservedRange(root)
	}
	total := 0
	for _, f := range root.Fields() {
		total += ReservedRange(f.Type)
	}
	return total
}

// KindInfo names one reserved ordinal: the field path it targets and the
// category applied there. Used for reporting only, never for correctness.
type KindInfo struct {
	Kind     Kind
	Path     string
	Category Category
}

func (ki KindInfo) String() string {
	return ki.Path + "." + ki.Category.String()
}

// Kinds enumerates every reserved ordinal of a root tuple in generation
// order. The walk is purely static: arrays contribute their full declared
// capacity, with element paths rendered as path[i].
func Kinds(root *schema.Type) []KindInfo {
	out := make([]KindInfo, 0, RootRange(root))
	if root.Kind() != schema.KindStruct {
		appendKinds(root, "arg", &out)
		return out
	}
	for _, f := range root.Fields() {
		appendKinds(f.Type, f.Name, &out)
	}
	return out
}

func appendKinds(t *schema.Type, path string, out *[]KindInfo) {
	if t.IsDynamic() {
		add(out, path, HeadOverflow)
		appendTailKinds(t, path, out)
		return
	}
	switch t.Kind() {
	case schema.KindStruct:
		for _, f := range t.Fields() {
			appendKinds(f.Type, path+"."+f.Name, out)
		}
	default:
		for _, c := range scalarCategories(t) {
			add(out, path, c)
		}
	}
}

func appendTailKinds(t *schema.Type, path string, out *[]KindInfo) {
	switch t.Kind() {
	case schema.KindBytes:
		for _, c := range lengthCategories {
			add(out, path+".length", c)
		}
	case schema.KindArray:
		for _, c := range lengthCategories {
			add(out, path+".length", c)
		}
		for i := uint64(0); i < t.Capacity(); i++ {
			appendKinds(t.Elem(), fmt.Sprintf("%s[%d]", path, i), out)
		}
	case schema.KindStruct:
		for _, f := range t.Fields() {
			appendKinds(f.Type, path+"."+f.Name, out)
		}
	}
}

func add(out *[]KindInfo, path string, c Category) {
	*out = append(*out, KindInfo{Kind: Kind(len(*out)), Path: path, Category: c})
}

// KindString returns the stable textual name of an ordinal within a root
// schema, e.g. "offer[1].startAmount.MaxValue".
func KindString(root *schema.Type, k Kind) string {
	kinds := Kinds(root)
	if k < 0 || int(k) >= len(kinds) {
		return fmt.Sprintf("unknown(%d)", int(k))
	}
	return kinds[k].String()
}

// KindFromString resolves a textual kind name back to its ordinal.
func KindFromString(root *schema.Type, name string) (Kind, bool) {
	for _, ki := range Kinds(root) {
		if ki.String() == name {
			return ki.Kind, true
		}
	}
	return 0, false
}
