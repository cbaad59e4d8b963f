package schema

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

// SelectorSize is the fixed function-identity prefix of a call buffer.
const SelectorSize = 4

// Signature identifies one function entry point: a name plus the parameter
// tuple whose head block follows the 4-byte selector in calldata.
type Signature struct {
	Name   string
	Params []Field

	tuple *Type
}

// NewSignature builds a function signature. The parameter list behaves like
// an anonymous struct for layout purposes.
func NewSignature(name string, params ...Field) *Signature {
	return &Signature{
		Name:   name,
		Params: params,
		tuple:  Struct(name+".args", params...),
	}
}

// Tuple returns the argument tuple layout. Offsets inside the tuple's head
// block are relative to the tuple base, i.e. to calldata position 4.
func (s *Signature) Tuple() *Type {
	return s.tuple
}

// CanonicalString renders the selector preimage, e.g.
// "fulfillOrder((address,...),bytes32)".
func (s *Signature) CanonicalString() string {
	str := s.Name + "("
	for i, p := range s.Params {
		if i > 0 {
			str += ","
		}
		str += p.Type.ABIType()
	}
	return str + ")"
}

// Selector returns the first four bytes of the keccak256 of the canonical
// signature string.
func (s *Signature) Selector() [SelectorSize]byte {
	var sel [SelectorSize]byte
	copy(sel[:], crypto.Keccak256([]byte(s.CanonicalString()))[:SelectorSize])
	return sel
}

// MinCalldataSize is the smallest legal call buffer for this signature:
// selector plus the argument tuple's minimal encoding.
func (s *Signature) MinCalldataSize() uint64 {
	return SelectorSize + s.tuple.MinSize()
}

func (s *Signature) String() string {
	sel := s.Selector()
	return fmt.Sprintf("%s [%x]", s.CanonicalString(), sel)
}
