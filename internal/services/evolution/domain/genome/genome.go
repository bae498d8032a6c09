// Package genome is the genome engine: the canonical genetic record, its
// versioned schemas and the pure functions that generate, validate, breed,
// mutate and diff genomes.
//
// Every function here is deterministic in its explicit inputs and never
// modifies a Genome it receives. Trait values are integers (fixed-point for
// continuous traits) so results are identical on every platform.
package genome

import (
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Genome is the genetic record for one individual.
type Genome struct {
	SchemaVersion int     `cbor:"1,keyasint" json:"schema_version" yaml:"schema_version"`
	Generation    uint32  `cbor:"2,keyasint" json:"generation" yaml:"generation"`
	Values        []int64 `cbor:"3,keyasint" json:"values" yaml:"values"`
	Checksum      uint64  `cbor:"4,keyasint" json:"checksum" yaml:"checksum"`
}

// Checksum hashes a genome's schema version, generation and values.
func Checksum(schemaVersion int, generation uint32, values []int64) uint64 {
	buf := make([]byte, 0, 12+8*len(values))
	buf = binary.BigEndian.AppendUint64(buf, uint64(schemaVersion))
	buf = binary.BigEndian.AppendUint32(buf, generation)
	for _, value := range values {
		buf = binary.BigEndian.AppendUint64(buf, uint64(value))
	}
	return xxhash.Sum64(buf)
}

// New builds a genome with a consistent checksum. values is copied.
func New(schemaVersion int, generation uint32, values []int64) Genome {
	cloned := slices.Clone(values)
	return Genome{
		SchemaVersion: schemaVersion,
		Generation:    generation,
		Values:        cloned,
		Checksum:      Checksum(schemaVersion, generation, cloned),
	}
}

// Clone returns a deep copy of g.
func (g Genome) Clone() Genome {
	g.Values = slices.Clone(g.Values)
	return g
}

// Equal reports whether g and other are field-for-field identical.
func (g Genome) Equal(other Genome) bool {
	return g.SchemaVersion == other.SchemaVersion &&
		g.Generation == other.Generation &&
		g.Checksum == other.Checksum &&
		slices.Equal(g.Values, other.Values)
}

// ChecksumValid reports whether the stored checksum matches the fields.
func (g Genome) ChecksumValid() bool {
	return g.Checksum == Checksum(g.SchemaVersion, g.Generation, g.Values)
}

// Params tunes the seeded mutation pass.
type Params struct {
	// MutationRate is the per-trait mutation probability in thousandths.
	MutationRate int `json:"mutation_rate" yaml:"mutation_rate"`
	// MutationScale scales each trait's mutation drift, in percent.
	MutationScale int `json:"mutation_scale" yaml:"mutation_scale"`
}

// DefaultParams mutates one trait in ten at full drift.
func DefaultParams() Params {
	return Params{MutationRate: 100, MutationScale: 100}
}

// Intensity names the preset mutation rates.
type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityModerate Intensity = "moderate"
	IntensityHigh     Intensity = "high"
	IntensityExtreme  Intensity = "extreme"
)

// ParamsFor returns the preset for intensity at full drift.
func ParamsFor(intensity Intensity) (Params, bool) {
	rates := map[Intensity]int{
		IntensityLow:      50,
		IntensityModerate: 100,
		IntensityHigh:     200,
		IntensityExtreme:  300,
	}
	rate, ok := rates[intensity]
	if !ok {
		return Params{}, false
	}
	return Params{MutationRate: rate, MutationScale: 100}, true
}

// Normalized clamps p into its documented bounds: rate [0,1000], scale [0,1000].
func (p Params) Normalized() Params {
	return Params{
		MutationRate:  min(max(p.MutationRate, 0), 1000),
		MutationScale: min(max(p.MutationScale, 0), 1000),
	}
}
