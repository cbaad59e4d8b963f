package scuff

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"

	"alma.local/scuffer/internal/abiref"
	"alma.local/scuffer/memptr"
	"alma.local/scuffer/schema"
)

// scenarioA: one narrow enum plus one dynamic array of full-width words.
var scenarioA = schema.Struct("ScenarioA",
	schema.Fld("kind", schema.Enum(6)),
	schema.Fld("values", schema.Array(schema.Uint(256), 2)),
)

func encodeA(t *testing.T) *memptr.Buffer {
	t.Helper()
	enc, err := abiref.Encode(scenarioA, []any{
		uint64(3),
		[]any{uint256.NewInt(100), uint256.NewInt(200)},
	})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	return memptr.NewBuffer(enc)
}

func TestScenarioAOrdering(t *testing.T) {
	buf := encodeA(t)
	dirs, err := GetDirectives(Wrap(scenarioA, buf.Ref(0)))
	if err != nil {
		t.Fatalf("GetDirectives failed: %v", err)
	}

	want := []struct {
		path string
		cat  Category
	}{
		{"kind", DirtyBits},
		{"kind", MaxValue},
		{"values", HeadOverflow},
		{"values.length", DirtyBits},
		{"values.length", MaxValue},
		{"values[0]", MaxValue},
		{"values[1]", MaxValue},
	}
	if len(dirs) != len(want) {
		t.Fatalf("expected %d directives, got %d", len(want), len(dirs))
	}
	for i, w := range want {
		d := dirs[i]
		if int(d.Kind) != i {
			t.Errorf("directive %d: expected kind %d, got %d", i, i, d.Kind)
		}
		if d.Positions.Path != w.path || d.Category != w.cat {
			t.Errorf("directive %d: expected %s.%s, got %s.%s", i, w.path, w.cat, d.Positions.Path, d.Category)
		}
	}

	// Target geometry: enum slot at 0, array head slot at 32, length word at
	// the head-block end (64), elements right after.
	if dirs[0].Target.Position() != 0 || dirs[2].Target.Position() != 32 {
		t.Errorf("unexpected head slot targets: %d, %d", dirs[0].Target.Position(), dirs[2].Target.Position())
	}
	if dirs[3].Target.Position() != 64 {
		t.Errorf("expected length word at 64, got %d", dirs[3].Target.Position())
	}
	if dirs[5].Target.Position() != 96 || dirs[6].Target.Position() != 128 {
		t.Errorf("unexpected element targets: %d, %d", dirs[5].Target.Position(), dirs[6].Target.Position())
	}
}

// scenarioB: an array of structs each holding two further dynamic arrays.
var (
	scenarioBElem = schema.Struct("Pair",
		schema.Fld("a", schema.Array(schema.Uint(256), 2)),
		schema.Fld("b", schema.Array(schema.Uint(256), 2)),
	)
	scenarioB = schema.Struct("ScenarioB",
		schema.Fld("orders", schema.Array(scenarioBElem, 2)),
	)
)

func encodeB(t *testing.T) *memptr.Buffer {
	t.Helper()
	pair := func(a0, a1, b0, b1 uint64) []any {
		return []any{
			[]any{uint256.NewInt(a0), uint256.NewInt(a1)},
			[]any{uint256.NewInt(b0), uint256.NewInt(b1)},
		}
	}
	enc, err := abiref.Encode(scenarioB, []any{
		[]any{pair(1, 2, 3, 4), pair(5, 6, 7, 8)},
	})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	return memptr.NewBuffer(enc)
}

func TestScenarioBNestedOrdinals(t *testing.T) {
	// Reserved ranges: a Pair is 1 (its own head) + 2*5 for the two inner
	// arrays; the root array is 1 + 2 + 2 Pair ranges.
	innerRange := ReservedRange(schema.Array(schema.Uint(256), 2))
	if innerRange != 5 {
		t.Fatalf("expected inner array range 5, got %d", innerRange)
	}
	if got := ReservedRange(scenarioBElem); got != 11 {
		t.Fatalf("expected Pair range 11, got %d", got)
	}
	if got := RootRange(scenarioB); got != 25 {
		t.Fatalf("expected root range 25, got %d", got)
	}

	// Element 1's field block starts after the array's own three kinds, one
	// full element range, and the element's own head-overflow ordinal.
	elem1Fields := 3 + ReservedRange(scenarioBElem) + 1
	wantKind := Kind(elem1Fields + innerRange + 3) // b's head, two lengths, then b[0]

	ki, ok := KindFromString(scenarioB, "orders[1].b[0].MaxValue")
	if !ok {
		t.Fatalf("kind name not found in enumeration")
	}
	if ki != wantKind {
		t.Fatalf("expected ordinal %d for orders[1].b[0].MaxValue, got %d", wantKind, ki)
	}

	buf := encodeB(t)
	dirs, err := GetDirectives(Wrap(scenarioB, buf.Ref(0)))
	if err != nil {
		t.Fatalf("GetDirectives failed: %v", err)
	}
	d := dirs[int(wantKind)]
	if d.Kind != wantKind || d.Positions.Path != "orders[1].b[0]" || d.Category != MaxValue {
		t.Fatalf("directive at ordinal %d is %s", wantKind, d)
	}
	if d.Positions.Depth != 2 {
		t.Fatalf("expected depth 2 for a doubly nested element, got %d", d.Positions.Depth)
	}
}

func TestCompletenessAndUniqueness(t *testing.T) {
	for _, tc := range []struct {
		name string
		root *schema.Type
		buf  func(*testing.T) *memptr.Buffer
	}{
		{"scenarioA", scenarioA, encodeA},
		{"scenarioB", scenarioB, encodeB},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dirs, err := GetDirectives(Wrap(tc.root, tc.buf(t).Ref(0)))
			if err != nil {
				t.Fatalf("GetDirectives failed: %v", err)
			}
			reserved := RootRange(tc.root)
			if len(dirs) != reserved {
				t.Fatalf("fully populated instance: expected %d directives, got %d", reserved, len(dirs))
			}
			seen := make(map[Kind]bool, len(dirs))
			for i, d := range dirs {
				if seen[d.Kind] {
					t.Fatalf("ordinal %d appears twice", d.Kind)
				}
				seen[d.Kind] = true
				if int(d.Kind) != i {
					t.Errorf("directive %d carries ordinal %d", i, d.Kind)
				}
			}

			// The static enumeration and the generated catalog must agree on
			// every (path, category) pair.
			kinds := Kinds(tc.root)
			if len(kinds) != reserved {
				t.Fatalf("Kinds enumerates %d ordinals, reserved %d", len(kinds), reserved)
			}
			for i, d := range dirs {
				if kinds[i].Path != d.Positions.Path || kinds[i].Category != d.Category {
					t.Errorf("ordinal %d: enumeration says %s, engine generated %s.%s",
						i, kinds[i], d.Positions.Path, d.Category)
				}
			}
		})
	}
}

func TestDeterminism(t *testing.T) {
	buf := encodeB(t)
	first, err := GetDirectives(Wrap(scenarioB, buf.Ref(0)))
	if err != nil {
		t.Fatalf("GetDirectives failed: %v", err)
	}
	second, err := GetDirectives(Wrap(scenarioB, buf.Ref(0)))
	if err != nil {
		t.Fatalf("GetDirectives failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("catalog length changed between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("directive %d differs between runs: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestPartiallyPopulatedArraySkipsAbsentElements(t *testing.T) {
	enc, err := abiref.Encode(scenarioA, []any{
		uint64(1),
		[]any{uint256.NewInt(9)}, // capacity 2, length 1
	})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	dirs, err := GetDirectives(Wrap(scenarioA, memptr.NewBuffer(enc).Ref(0)))
	if err != nil {
		t.Fatalf("GetDirectives failed: %v", err)
	}
	// One element range (a single MaxValue) is unused.
	if len(dirs) != RootRange(scenarioA)-1 {
		t.Fatalf("expected %d directives, got %d", RootRange(scenarioA)-1, len(dirs))
	}
	last := dirs[len(dirs)-1]
	if last.Positions.Path != "values[0]" {
		t.Fatalf("expected last directive on values[0], got %s", last.Positions.Path)
	}
	// The absent element's ordinal stays reserved, not reassigned.
	if int(last.Kind) != RootRange(scenarioA)-2 {
		t.Fatalf("expected ordinal %d, got %d", RootRange(scenarioA)-2, last.Kind)
	}
}

func TestFromCalldataLocatesBase(t *testing.T) {
	sig := schema.NewSignature("probeScenarioA",
		schema.Fld("kind", schema.Enum(6)),
		schema.Fld("values", schema.Array(schema.Uint(256), 2)),
	)
	enc, err := abiref.EncodeCall(sig, uint64(4), []any{uint256.NewInt(7), uint256.NewInt(8)})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	// Overwrite the selector with unrelated bytes: FromCalldata must still
	// land on the head block right after the fixed prefix.
	copy(enc[:4], []byte{0xaa, 0xbb, 0xcc, 0xdd})
	buf := memptr.NewBuffer(enc)

	tp, err := FromCalldata(buf, sig)
	if err != nil {
		t.Fatalf("FromCalldata failed: %v", err)
	}
	if tp.Unwrap().Position() != schema.SelectorSize {
		t.Fatalf("expected base at %d, got %d", schema.SelectorSize, tp.Unwrap().Position())
	}

	arr, err := tp.Field(1)
	if err != nil {
		t.Fatalf("resolving values failed: %v", err)
	}
	// Head size is two slots, so the tail begins at 4 + 64.
	if arr.Unwrap().Position() != 4+64 {
		t.Fatalf("expected tail at 68, got %d", arr.Unwrap().Position())
	}
	n, err := arr.Length()
	if err != nil || n != 2 {
		t.Fatalf("expected length 2, got %d (%v)", n, err)
	}

	dirs, err := GetDirectivesForCalldata(buf, sig)
	if err != nil {
		t.Fatalf("GetDirectivesForCalldata failed: %v", err)
	}
	if len(dirs) != RootRange(sig.Tuple()) {
		t.Fatalf("expected %d directives, got %d", RootRange(sig.Tuple()), len(dirs))
	}
}

func TestKindStringStability(t *testing.T) {
	kinds := Kinds(scenarioB)
	for _, ki := range kinds {
		if KindString(scenarioB, ki.Kind) != ki.String() {
			t.Errorf("KindString(%d) != %s", ki.Kind, ki)
		}
		back, ok := KindFromString(scenarioB, ki.String())
		if !ok || back != ki.Kind {
			t.Errorf("round trip of %s failed: got %d, ok=%v", ki, back, ok)
		}
	}
	if s := KindString(scenarioB, Kind(len(kinds))); s != "unknown(25)" {
		t.Errorf("out-of-range ordinal should render as unknown, got %q", s)
	}
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	buf := memptr.NewBuffer(make([]byte, 64))
	for _, off := range []uint64{0, 4, 32, 1000} {
		p := buf.Ref(off)
		if got := Wrap(scenarioA, p).Unwrap(); !got.Equal(p) {
			t.Errorf("unwrap(wrap(p)) at %d: got offset %d", off, got.Position())
		}
	}
}

func TestReferenceEncoderMatchesHandLayout(t *testing.T) {
	// Keep one fully hand-written layout as the anchor for everything the
	// reference encoder produces.
	buf := encodeA(t)
	var want []byte
	word := func(v uint64) []byte {
		w := uint256.NewInt(v).Bytes32()
		return w[:]
	}
	want = append(want, word(3)...)   // enum inline
	want = append(want, word(64)...)  // head offset to the array tail
	want = append(want, word(2)...)   // length
	want = append(want, word(100)...) // values[0]
	want = append(want, word(200)...) // values[1]
	if !bytes.Equal(buf.Bytes(), want) {
		t.Fatalf("layout mismatch:\n got %x\nwant %x", buf.Bytes(), want)
	}
}
