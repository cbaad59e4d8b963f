package memptr

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestOffsetDerivation(t *testing.T) {
	buf := NewBuffer(make([]byte, 128))
	p := buf.Ref(0)

	q := p.Offset(32).Offset(8)
	if q.Position() != 40 {
		t.Fatalf("expected offset 40, got %d", q.Position())
	}
	if !p.SameBuffer(q) {
		t.Fatalf("derived pointer lost buffer identity")
	}

	// Navigation past the end must succeed; only access may fail.
	far := p.Offset(1 << 20)
	if far.Position() != 1<<20 {
		t.Fatalf("expected unchecked derivation, got %d", far.Position())
	}
	if _, err := far.ReadWord(); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds reading far pointer, got %v", err)
	}
}

func TestWordRoundTrip(t *testing.T) {
	buf := NewBuffer(make([]byte, 64))
	p := buf.Ref(32)

	want := uint256.NewInt(0).SetBytes([]byte{0xde, 0xad, 0xbe, 0xef})
	if err := p.WriteWord(want); err != nil {
		t.Fatalf("WriteWord failed: %v", err)
	}
	got, err := p.ReadWord()
	if err != nil {
		t.Fatalf("ReadWord failed: %v", err)
	}
	if !got.Eq(want) {
		t.Fatalf("word mismatch: want %s, got %s", want.Hex(), got.Hex())
	}

	// Big-endian layout: the low byte of the value lands at the end of the slot.
	if buf.Bytes()[63] != 0xef {
		t.Fatalf("expected big-endian word, byte 63 = %#x", buf.Bytes()[63])
	}
}

func TestBoundaryAccess(t *testing.T) {
	buf := NewBuffer(make([]byte, 64))

	// A word read ending exactly at the buffer end is legal.
	if _, err := buf.Ref(32).ReadWord(); err != nil {
		t.Fatalf("read ending at buffer end should succeed: %v", err)
	}
	// One byte further is not.
	if _, err := buf.Ref(33).ReadWord(); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	if err := buf.Ref(33).WriteWord(uint256.NewInt(1)); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds on write, got %v", err)
	}
}

func TestCloneIsolation(t *testing.T) {
	buf := NewBuffer(make([]byte, 32))
	dup := buf.Clone()

	if err := dup.Ref(0).WriteWord(uint256.NewInt(7)); err != nil {
		t.Fatalf("write to clone failed: %v", err)
	}
	orig, _ := buf.Ref(0).ReadWord()
	if !orig.IsZero() {
		t.Fatalf("mutating a clone leaked into the original buffer")
	}
	if buf.Ref(0).SameBuffer(dup.Ref(0)) {
		t.Fatalf("clone should be a distinct buffer identity")
	}
}

func TestReadUint64Overflow(t *testing.T) {
	buf := NewBuffer(make([]byte, 32))
	big := new(uint256.Int).Lsh(uint256.NewInt(1), 100)
	big.Or(big, uint256.NewInt(42))
	if err := buf.Ref(0).WriteWord(big); err != nil {
		t.Fatalf("WriteWord failed: %v", err)
	}

	v, overflow, err := buf.Ref(0).ReadUint64()
	if err != nil {
		t.Fatalf("ReadUint64 failed: %v", err)
	}
	if !overflow {
		t.Fatalf("expected overflow flag for a >64-bit word")
	}
	if v != 42 {
		t.Fatalf("expected truncated low bits 42, got %d", v)
	}
}
