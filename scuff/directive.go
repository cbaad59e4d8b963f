package scuff

import (
	"fmt"

	"github.com/holiman/uint256"

	"alma.local/scuffer/memptr"
	"alma.local/scuffer/schema"
)

// Positions is the read-only context threaded down the generation
// recursion: the dotted field path from the root and the nesting depth.
// Each recursive call extends it into a derived child context; a Positions
// value is never mutated in place.
type Positions struct {
	Path  string
	Depth int
}

// Field derives the context for a named struct member.
func (p Positions) Field(name string) Positions {
	if p.Path == "" {
		return Positions{Path: name, Depth: p.Depth}
	}
	return Positions{Path: p.Path + "." + name, Depth: p.Depth}
}

// Index derives the context for array element i, one nesting level deeper.
func (p Positions) Index(i uint64) Positions {
	return Positions{Path: fmt.Sprintf("%s[%d]", p.Path, i), Depth: p.Depth + 1}
}

// Length derives the context for a tail's length word.
func (p Positions) Length() Positions {
	return Positions{Path: p.Path + ".length", Depth: p.Depth}
}

// OverflowPolicy selects the replacement value a HeadOverflow directive
// writes. The source domain leaves the choice ambiguous, so it is a
// parameter; campaigns cover both.
type OverflowPolicy uint8

const (
	// OverflowNearBound picks the smallest relative offset whose resolved
	// tail word still crosses the buffer end. Probes off-by-one bounds math.
	OverflowNearBound OverflowPolicy = iota
	// OverflowFarSentinel writes the largest offset that still decodes as a
	// number (2^64-1). Probes addition-overflow handling.
	OverflowFarSentinel
)

func (p OverflowPolicy) String() string {
	if p == OverflowFarSentinel {
		return "far"
	}
	return "near"
}

// Directive is one corruption recipe: overwrite the word at Target so that
// the Category's property holds. Base is the enclosing block's origin, kept
// so HeadOverflow can compute offsets relative to the right tail origin.
// Bits is the logical bit width of the slot's value (the bit-range
// descriptor: the value occupies the low Bits bits, everything above is
// padding).
type Directive struct {
	Kind      Kind
	Category  Category
	Target    memptr.MemoryPointer
	Base      memptr.MemoryPointer
	Bits      uint16
	Positions Positions

	// Node is the schema node the directive targets: the scalar itself, or
	// the dynamic type for head and length corruptions. Consumers use it to
	// predict whether a decoder should tolerate or reject the mutation.
	Node *schema.Type
}

func (d Directive) String() string {
	return fmt.Sprintf("#%d %s.%s @%d", int(d.Kind), d.Positions.Path, d.Category, d.Target.Position())
}

// Rebind retargets the directive onto another buffer at the same offsets.
// Campaigns generate one catalog against the canonical buffer and rebind
// each directive onto a fresh clone before applying it.
func (d Directive) Rebind(buf *memptr.Buffer) Directive {
	d.Target = buf.Ref(d.Target.Position())
	d.Base = buf.Ref(d.Base.Position())
	return d
}

// Apply mutates the buffer in place at the directive's target. Applying two
// directives to the same buffer compounds corruptions; campaigns clone the
// canonical buffer before each application instead.
func (d Directive) Apply(policy OverflowPolicy) error {
	switch d.Category {
	case DirtyBits:
		orig, err := d.Target.ReadWord()
		if err != nil {
			return err
		}
		dirty := new(uint256.Int).SetAllOne()
		dirty.Lsh(dirty, uint(d.Bits))
		return d.Target.WriteWord(dirty.Or(dirty, orig))

	case MaxValue:
		max := new(uint256.Int).SetAllOne()
		if d.Bits < 256 {
			// (1 << bits) - 1, high bits clean.
			max.Rsh(max, uint(256-d.Bits))
		}
		return d.Target.WriteWord(max)

	case HeadOverflow:
		return d.Target.WriteWord(d.overflowValue(policy))
	}
	return fmt.Errorf("scuff: unknown category %s", d.Category)
}

func (d Directive) overflowValue(policy OverflowPolicy) *uint256.Int {
	if policy == OverflowFarSentinel {
		return uint256.NewInt(^uint64(0))
	}
	// Smallest offset whose tail length word still crosses the buffer end:
	// base+rel+32 > len. With span = len-base that is rel = span-31, or 1
	// when the base already sits within a word of the end.
	bufLen := d.Base.Buffer().Len()
	span := bufLen - d.Base.Position()
	if bufLen < d.Base.Position() || span < memptr.WordSize {
		return uint256.NewInt(1)
	}
	return uint256.NewInt(span - (memptr.WordSize - 1))
}
