// Package seed provides the seeded random-sequence primitive shared by the
// genome engine and the arbiter.
//
// Every stochastic decision in the evolution core draws from a Stream built
// from an explicit Seed. Sub-decisions never share a stream: callers derive a
// child seed from (parent seed, label, step) and open a new stream on it, so
// results do not depend on call order or goroutine scheduling.
//
// A Stream is counter based: block i is SHA-256(key || i) where key is the
// SHA-256 of the seed. Only integer arithmetic is used, so the same seed yields
// the same sequence on every platform.
package seed

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

const (
	deriveDomain = "evolve/seed/derive/v1"
	streamDomain = "evolve/seed/stream/v1"
)

// Seed identifies a deterministic random sequence. Every string is a valid seed.
type Seed string

// String returns the seed text.
func (s Seed) String() string {
	return string(s)
}

// Derive returns the child seed for a labelled sub-decision at step.
func Derive(parent Seed, label string, step uint64) Seed {
	h := sha256.New()
	writeField(h, []byte(deriveDomain))
	writeField(h, []byte(parent))
	writeField(h, []byte(label))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], step)
	_, _ = h.Write(buf[:])
	return Seed(hex.EncodeToString(h.Sum(nil)))
}

type writer interface {
	Write(p []byte) (int, error)
}

// writeField length-prefixes value so adjacent fields cannot collide.
func writeField(w writer, value []byte) {
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(value)))
	_, _ = w.Write(size[:])
	_, _ = w.Write(value)
}

// Stream is a deterministic sequence of pseudo-random values.
//
// A Stream is not safe for concurrent use; open one per decision instead.
type Stream struct {
	key     [sha256.Size]byte
	counter uint64
	block   [sha256.Size]byte
	offset  int
}

// NewStream opens the stream for s.
func NewStream(s Seed) *Stream {
	h := sha256.New()
	writeField(h, []byte(streamDomain))
	writeField(h, []byte(s))
	stream := &Stream{offset: sha256.Size}
	copy(stream.key[:], h.Sum(nil))
	return stream
}

// Open is shorthand for NewStream(Derive(parent, label, step)).
func Open(parent Seed, label string, step uint64) *Stream {
	return NewStream(Derive(parent, label, step))
}

func (s *Stream) refill() {
	var buf [sha256.Size + 8]byte
	copy(buf[:], s.key[:])
	binary.BigEndian.PutUint64(buf[sha256.Size:], s.counter)
	s.block = sha256.Sum256(buf[:])
	s.counter++
	s.offset = 0
}

// Uint64 returns the next 64 bits of the stream.
func (s *Stream) Uint64() uint64 {
	if s.offset+8 > len(s.block) {
		s.refill()
	}
	value := binary.BigEndian.Uint64(s.block[s.offset : s.offset+8])
	s.offset += 8
	return value
}

// Intn returns a uniform value in [0, n). It panics if n <= 0.
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("seed: invalid argument to Intn: %d", n))
	}
	bound := uint64(n)
	// Reject the low values that would bias the modulo.
	threshold := -bound % bound
	for {
		v := s.Uint64()
		if v >= threshold {
			return int(v % bound)
		}
	}
}

// Between returns a uniform value in [lo, hi]. Bounds are swapped when hi < lo.
func (s *Stream) Between(lo, hi int64) int64 {
	if hi < lo {
		lo, hi = hi, lo
	}
	span := uint64(hi - lo)
	if span == ^uint64(0) {
		return int64(s.Uint64())
	}
	bound := span + 1
	threshold := -bound % bound
	for {
		v := s.Uint64()
		if v >= threshold {
			return lo + int64(v%bound)
		}
	}
}

// Roll returns a die result in [1, sides].
func (s *Stream) Roll(sides int) int {
	return s.Intn(sides) + 1
}

// Bell returns centred integer noise in [-spread, spread].
//
// The value is the truncated mean of four uniform draws, which concentrates
// results near zero without floating point.
func (s *Stream) Bell(spread int64) int64 {
	if spread <= 0 {
		return 0
	}
	var sum int64
	for range 4 {
		sum += s.Between(-spread, spread)
	}
	return sum / 4
}
