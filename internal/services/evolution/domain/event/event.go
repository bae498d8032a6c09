package event

import (
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/arbiter"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"
)

// Kind identifies what produced a lineage event.
type Kind string

const (
	// KindGenesis records a wild baseline genome. Only valid at seq 1.
	KindGenesis Kind = "genesis"
	// KindBreeding records a child of two parents. Only valid at seq 1.
	KindBreeding Kind = "breeding"
	// KindMutation records a mutation of the lineage's previous genome.
	KindMutation Kind = "mutation"
	// KindOutcome records an arbiter outcome that touched the lineage.
	KindOutcome Kind = "outcome"
)

// ParentCount returns how many parents events of kind k carry.
func (k Kind) ParentCount() int {
	switch k {
	case KindBreeding:
		return 2
	case KindMutation, KindOutcome:
		return 1
	default:
		return 0
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindGenesis, KindBreeding, KindMutation, KindOutcome:
		return true
	}
	return false
}

// ParentRef points at a recorded event and pins its signature.
type ParentRef struct {
	LineageID string `cbor:"1,keyasint" json:"lineage_id" yaml:"lineage_id"`
	Seq       uint64 `cbor:"2,keyasint" json:"seq" yaml:"seq"`
	Signature string `cbor:"3,keyasint" json:"signature" yaml:"signature"`
}

// Inputs are the parameters an event was produced from. Replaying them
// through the genome engine reproduces the recorded genome.
type Inputs struct {
	Seed          string           `cbor:"1,keyasint" json:"seed" yaml:"seed"`
	MutationRate  int              `cbor:"2,keyasint,omitempty" json:"mutation_rate,omitempty" yaml:"mutation_rate,omitempty"`
	MutationScale int              `cbor:"3,keyasint,omitempty" json:"mutation_scale,omitempty" yaml:"mutation_scale,omitempty"`
	Outcome       *arbiter.Outcome `cbor:"4,keyasint,omitempty" json:"outcome,omitempty" yaml:"outcome,omitempty"`
}

// Content is the signed body of an event.
//
// Genesis events carry the full Genome. Every other kind carries a Diff
// against its first parent's genome.
type Content struct {
	Kind           Kind                `cbor:"1,keyasint" json:"kind" yaml:"kind"`
	SchemaVersion  int                 `cbor:"2,keyasint" json:"schema_version" yaml:"schema_version"`
	Parents        []ParentRef         `cbor:"3,keyasint,omitempty" json:"parents,omitempty" yaml:"parents,omitempty"`
	Inputs         Inputs              `cbor:"4,keyasint" json:"inputs" yaml:"inputs"`
	Genome         *genome.Genome      `cbor:"5,keyasint,omitempty" json:"genome,omitempty" yaml:"genome,omitempty"`
	Diff           *genome.CompactDiff `cbor:"6,keyasint,omitempty" json:"diff,omitempty" yaml:"diff,omitempty"`
	GenomeChecksum uint64              `cbor:"7,keyasint" json:"genome_checksum" yaml:"genome_checksum"`
}

// Event is one entry of a lineage.
type Event struct {
	LineageID string `json:"lineage_id" yaml:"lineage_id"`
	Seq       uint64 `json:"seq" yaml:"seq"`
	Content   `yaml:",inline"`

	Hash          string `json:"hash" yaml:"hash"`
	PrevSignature string `json:"prev_signature,omitempty" yaml:"prev_signature,omitempty"`
	Signature     string `json:"signature" yaml:"signature"`
	Seal          string `json:"seal" yaml:"seal"`
	SealKeyID     string `json:"seal_key_id" yaml:"seal_key_id"`
}

// Ref returns a parent reference to e.
func (e Event) Ref() ParentRef {
	return ParentRef{LineageID: e.LineageID, Seq: e.Seq, Signature: e.Signature}
}

// FirstParent returns the parent a diff applies to.
func (e Event) FirstParent() (ParentRef, bool) {
	if len(e.Parents) == 0 {
		return ParentRef{}, false
	}
	return e.Parents[0], true
}
