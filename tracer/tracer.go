// Package tracer collects lightweight observations from an instrumented
// decoder. The instrumentor rewrites the decode path to call Probe at
// branch points and bounds checks; a campaign can then diff snapshots
// between a canonical buffer and its mutations to see which check actually
// fired.
package tracer

import (
	"reflect"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Observation is one probe firing: which site, and what scalar it saw.
type Observation struct {
	Site  uint64
	Value int64
}

// BufferSize is a power of two so wrapping is a mask, not a division.
const BufferSize = 1 << 18

var (
	ring [BufferSize]Observation
	next uint64
)

// Probe records one observation. Sites are hashes of source location plus
// expression text, assigned by the instrumentor.
//
//go:noinline
func Probe(site uint64, val int64) {
	idx := atomic.AddUint64(&next, 1)
	ring[(idx-1)&(BufferSize-1)] = Observation{Site: site, Value: val}
}

// Reset discards all recorded observations.
func Reset() {
	atomic.StoreUint64(&next, 0)
}

// Snapshot returns the recorded observations in order. After the ring has
// wrapped, only the most recent BufferSize survive and ordering within the
// returned slice is by buffer position, not by time.
func Snapshot() []Observation {
	n := atomic.LoadUint64(&next)
	if n == 0 {
		return nil
	}
	if n > BufferSize {
		out := make([]Observation, BufferSize)
		copy(out, ring[:])
		return out
	}
	out := make([]Observation, n)
	copy(out, ring[:n])
	return out
}

// Sites folds a snapshot into the set of probe sites that fired, with hit
// counts. Campaigns compare these between runs to find the rejecting check.
func Sites(obs []Observation) map[uint64]int {
	hits := make(map[uint64]int, len(obs))
	for _, o := range obs {
		hits[o.Site]++
	}
	return hits
}

// ToScalar collapses the decoder's working values into an int64 the probe
// can record. Offsets and lengths pass through; words and addresses keep
// their low bits, which is enough to distinguish a masked value from a
// dirty one.
func ToScalar(v any) int64 {
	if v == nil {
		return 0
	}
	switch val := v.(type) {
	case uint64:
		return int64(val)
	case int:
		return int64(val)
	case int64:
		return val
	case uint32:
		return int64(val)
	case bool:
		if val {
			return 1
		}
		return 0
	case *uint256.Int:
		if val == nil {
			return 0
		}
		return int64(val.Uint64())
	case uint256.Int:
		return int64(val.Uint64())
	case common.Address:
		return tailScalar(val[:])
	case [32]byte:
		return tailScalar(val[:])
	case []byte:
		return tailScalar(val)
	case error:
		if val == nil {
			return 0
		}
		return hashString(val.Error())
	case string:
		return hashString(val)
	}

	// Anything else the decoder touches is a container; its size is the
	// interesting part.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return int64(rv.Len())
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return 0
		}
		return 1
	}
	return 0
}

// tailScalar packs the last eight bytes big-endian. Words and addresses in
// calldata are right-aligned, so the tail carries the value.
func tailScalar(b []byte) int64 {
	var v uint64
	start := 0
	if len(b) > 8 {
		start = len(b) - 8
	}
	for _, c := range b[start:] {
		v = v<<8 | uint64(c)
	}
	return int64(v)
}

func hashString(s string) int64 {
	const (
		fnvOffset64 = 1469598103934665603
		fnvPrime64  = 1099511628211
	)
	h := uint64(fnvOffset64)
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime64
	}
	return int64(h)
}
