package pipeline

import (
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// CriteriaTree is a fixed binary keccak256 merkle tree over token
// identifiers. A criteria item commits to the tree's root; the fulfiller
// later names one identifier and proves membership.
//
// Leaves are keccak256 of the identifier as a 32-byte big-endian word.
// The leaf layer is padded with zero-word hashes up to a power of two, and
// internal nodes hash left||right without sorting.
type CriteriaTree struct {
	count  int
	layers [][][32]byte
}

// NewCriteriaTree builds the tree for the given identifiers.
func NewCriteriaTree(ids []*big.Int) (*CriteriaTree, error) {
	if len(ids) == 0 {
		return nil, errors.New("criteria tree needs at least one identifier")
	}

	width := 1
	for width < len(ids) {
		width *= 2
	}

	leaves := make([][32]byte, width)
	for i, id := range ids {
		leaf, err := leafHash(id)
		if err != nil {
			return nil, errors.Wrapf(err, "identifier %d", i)
		}
		leaves[i] = leaf
	}
	// Padding leaves hash the zero word, so absent slots are still
	// well-defined nodes.
	zero := keccakConcat(make([]byte, 32))
	for i := len(ids); i < width; i++ {
		leaves[i] = zero
	}

	layers := [][][32]byte{leaves}
	for len(leaves) > 1 {
		parents := make([][32]byte, len(leaves)/2)
		for i := range parents {
			parents[i] = keccakConcat(leaves[2*i][:], leaves[2*i+1][:])
		}
		layers = append(layers, parents)
		leaves = parents
	}
	return &CriteriaTree{count: len(ids), layers: layers}, nil
}

// Root returns the commitment a criteria item carries in place of a
// concrete identifier.
func (t *CriteriaTree) Root() [32]byte {
	top := t.layers[len(t.layers)-1]
	return top[0]
}

// Prove returns the sibling path for the identifier at the given index,
// leaf layer first.
func (t *CriteriaTree) Prove(index int) ([][32]byte, error) {
	if index < 0 || index >= t.count {
		return nil, errors.Errorf("identifier index %d out of range [0,%d)", index, t.count)
	}
	proof := make([][32]byte, 0, len(t.layers)-1)
	for _, layer := range t.layers[:len(t.layers)-1] {
		proof = append(proof, layer[index^1])
		index >>= 1
	}
	return proof, nil
}

// VerifyCriteriaProof checks that id sits at index under root.
func VerifyCriteriaProof(root [32]byte, id *big.Int, index int, proof [][32]byte) bool {
	node, err := leafHash(id)
	if err != nil || index < 0 {
		return false
	}
	for _, sibling := range proof {
		if index&1 == 0 {
			node = keccakConcat(node[:], sibling[:])
		} else {
			node = keccakConcat(sibling[:], node[:])
		}
		index >>= 1
	}
	return index == 0 && node == root
}

func leafHash(id *big.Int) ([32]byte, error) {
	if id == nil {
		return [32]byte{}, errors.New("nil identifier")
	}
	word, overflow := uint256.FromBig(id)
	if overflow {
		return [32]byte{}, errors.New("identifier does not fit a word")
	}
	w := word.Bytes32()
	return keccakConcat(w[:]), nil
}

func keccakConcat(parts ...[]byte) [32]byte {
	var out [32]byte
	copy(out[:], crypto.Keccak256(parts...))
	return out
}
