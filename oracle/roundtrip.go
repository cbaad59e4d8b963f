package oracle

import (
	"bytes"
	"errors"
	"fmt"

	"alma.local/scuffer/internal/abiref"
	"alma.local/scuffer/memptr"
	"alma.local/scuffer/schema"
)

// ErrNonCanonical signals that a buffer decoded successfully but is not the
// canonical encoding of its own logical values: re-encoding produced
// different bytes. For a tolerant decoder this is exactly the dirty-bits
// case, so campaigns treat it as information, not as a failure.
var ErrNonCanonical = errors.New("oracle: accepted non-canonical input")

// Reencode canonically re-encodes decoded argument values through the
// reference encoder.
func Reencode(sig *schema.Signature, vals []Value) ([]byte, error) {
	anys := make([]any, len(vals))
	for i := range vals {
		anys[i] = vals[i].refValue()
	}
	return abiref.EncodeCall(sig, anys...)
}

// RoundTrip enforces Encode(Decode(buf)) == buf. A canonical buffer passes;
// a mutated-but-tolerated one fails with ErrNonCanonical, carrying the
// canonical bytes for comparison.
func RoundTrip(buf *memptr.Buffer, sig *schema.Signature) error {
	vals, err := DecodeCalldata(buf, sig)
	if err != nil {
		return err
	}
	out, err := Reencode(sig, vals)
	if err != nil {
		return fmt.Errorf("oracle: re-encode failed: %w", err)
	}
	if !bytes.Equal(out, buf.Bytes()) {
		return fmt.Errorf("%w: input %d bytes, canonical form %d bytes", ErrNonCanonical, buf.Len(), len(out))
	}
	return nil
}

// refValue converts a decoded node to the value shape the reference encoder
// consumes.
func (v Value) refValue() any {
	switch v.Type.Kind() {
	case schema.KindUint, schema.KindEnum:
		return v.Word
	case schema.KindAddress:
		return v.Addr
	case schema.KindBytes32:
		return v.Hash
	case schema.KindBytes:
		return v.Data
	default: // array, struct
		anys := make([]any, len(v.Elems))
		for i := range v.Elems {
			anys[i] = v.Elems[i].refValue()
		}
		return anys
	}
}
