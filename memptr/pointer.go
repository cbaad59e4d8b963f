// Package memptr provides the raw buffer/pointer primitive underneath the
// typed calldata layer. A MemoryPointer is just (buffer, byte offset); it can
// be derived to ANY offset, including past the end of the buffer. That is
// deliberate: the mutation engine needs to construct out-of-range references,
// so navigation never validates. Only an actual read or write that would
// cross the buffer end fails, with ErrOutOfBounds.
package memptr

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// WordSize is the slot width of the encoding: every head slot, length word
// and scalar occupies exactly 32 bytes.
const WordSize = 32

// ErrOutOfBounds signals a read or write whose end crosses the buffer length.
var ErrOutOfBounds = errors.New("memptr: access past buffer end")

// Buffer is a caller-owned linear byte region. The pointer layer never grows,
// shrinks or reallocates it; directives mutate it strictly in place.
type Buffer struct {
	data []byte
}

// NewBuffer wraps data. The Buffer takes ownership for its lifetime.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Len returns the buffer length in bytes.
func (b *Buffer) Len() uint64 {
	return uint64(len(b.data))
}

// Bytes exposes the underlying storage. Mutations through the returned slice
// are visible to every pointer into the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Clone copies the buffer. Campaigns apply each directive to a fresh clone so
// mutations never accumulate.
func (b *Buffer) Clone() *Buffer {
	dup := make([]byte, len(b.data))
	copy(dup, b.data)
	return &Buffer{data: dup}
}

// Ref returns a pointer at the given absolute offset. No bounds check.
func (b *Buffer) Ref(off uint64) MemoryPointer {
	return MemoryPointer{buf: b, off: off}
}

// MemoryPointer is an opaque (buffer, offset) handle. Value type, freely
// copyable. The zero value is a null pointer and every access through it
// fails.
type MemoryPointer struct {
	buf *Buffer
	off uint64
}

// Offset derives a new pointer n bytes further into the buffer. Unchecked.
func (p MemoryPointer) Offset(n uint64) MemoryPointer {
	return MemoryPointer{buf: p.buf, off: p.off + n}
}

// Position returns the absolute byte offset of the pointer.
func (p MemoryPointer) Position() uint64 {
	return p.off
}

// Buffer returns the buffer the pointer refers into.
func (p MemoryPointer) Buffer() *Buffer {
	return p.buf
}

// SameBuffer reports whether both pointers refer into the same buffer.
// Ordering or distance between pointers from different buffers is a
// programmer error; callers should check this first.
func (p MemoryPointer) SameBuffer(q MemoryPointer) bool {
	return p.buf == q.buf
}

// Equal reports pointer identity (same buffer, same offset).
func (p MemoryPointer) Equal(q MemoryPointer) bool {
	return p.buf == q.buf && p.off == q.off
}

// Before orders two pointers into the same buffer.
func (p MemoryPointer) Before(q MemoryPointer) bool {
	return p.off < q.off
}

// InBounds reports whether a width-byte access at p stays inside the buffer.
func (p MemoryPointer) InBounds(width uint64) bool {
	return p.buf != nil && p.off+width <= p.buf.Len() && p.off+width >= p.off
}

// ReadBytes returns the width bytes at p.
func (p MemoryPointer) ReadBytes(width uint64) ([]byte, error) {
	if !p.InBounds(width) {
		return nil, fmt.Errorf("%w: read [%d,%d) of %d", ErrOutOfBounds, p.off, p.off+width, p.bufLen())
	}
	return p.buf.data[p.off : p.off+width], nil
}

// WriteBytes stores data at p.
func (p MemoryPointer) WriteBytes(data []byte) error {
	if !p.InBounds(uint64(len(data))) {
		return fmt.Errorf("%w: write [%d,%d) of %d", ErrOutOfBounds, p.off, p.off+uint64(len(data)), p.bufLen())
	}
	copy(p.buf.data[p.off:], data)
	return nil
}

// ReadWord reads the 32-byte big-endian word at p.
func (p MemoryPointer) ReadWord() (*uint256.Int, error) {
	raw, err := p.ReadBytes(WordSize)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(raw), nil
}

// WriteWord stores a 32-byte big-endian word at p.
func (p MemoryPointer) WriteWord(w *uint256.Int) error {
	word := w.Bytes32()
	return p.WriteBytes(word[:])
}

// ReadUint64 reads the word at p and narrows it to uint64. The overflow flag
// reports whether any of the upper 192 bits were set.
func (p MemoryPointer) ReadUint64() (uint64, bool, error) {
	w, err := p.ReadWord()
	if err != nil {
		return 0, false, err
	}
	v, overflow := w.Uint64WithOverflow()
	return v, overflow, nil
}

func (p MemoryPointer) bufLen() uint64 {
	if p.buf == nil {
		return 0
	}
	return p.buf.Len()
}
