package genome

import "slices"

// Change sets the trait at Index to Value.
type Change struct {
	Index int   `cbor:"1,keyasint" json:"index" yaml:"index"`
	Value int64 `cbor:"2,keyasint" json:"value" yaml:"value"`
}

// CompactDiff records how a child genome differs from its parent. Changes
// are sorted by Index and only list traits whose value changed.
type CompactDiff struct {
	SchemaVersion int      `cbor:"1,keyasint" json:"schema_version" yaml:"schema_version"`
	BaseChecksum  uint64   `cbor:"2,keyasint" json:"base_checksum" yaml:"base_checksum"`
	Generation    uint32   `cbor:"3,keyasint" json:"generation" yaml:"generation"`
	Changes       []Change `cbor:"4,keyasint,omitempty" json:"changes,omitempty" yaml:"changes,omitempty"`
}

// Diff returns the compact difference from parent to child.
func Diff(parent, child Genome) (CompactDiff, error) {
	if parent.SchemaVersion != child.SchemaVersion {
		return CompactDiff{}, schemaMismatch("cannot diff schema %d against schema %d", child.SchemaVersion, parent.SchemaVersion)
	}
	if len(parent.Values) != len(child.Values) {
		return CompactDiff{}, schemaMismatch("cannot diff %d traits against %d traits", len(child.Values), len(parent.Values))
	}
	diff := CompactDiff{
		SchemaVersion: child.SchemaVersion,
		BaseChecksum:  parent.Checksum,
		Generation:    child.Generation,
	}
	for i, value := range child.Values {
		if parent.Values[i] != value {
			diff.Changes = append(diff.Changes, Change{Index: i, Value: value})
		}
	}
	return diff, nil
}

// ApplyDiff rebuilds the child genome from parent and diff.
//
// ApplyDiff(A, Diff(A, B)) equals B for every pair of genomes A and B of
// one schema whose checksums are consistent.
func ApplyDiff(parent Genome, diff CompactDiff) (Genome, error) {
	if parent.SchemaVersion != diff.SchemaVersion {
		return Genome{}, schemaMismatch("diff for schema %d cannot apply to schema %d", diff.SchemaVersion, parent.SchemaVersion)
	}
	if parent.Checksum != diff.BaseChecksum {
		return Genome{}, diffMismatch("diff base checksum %016x does not match parent %016x", diff.BaseChecksum, parent.Checksum)
	}
	values := slices.Clone(parent.Values)
	last := -1
	for _, change := range diff.Changes {
		if change.Index <= last || change.Index >= len(values) {
			return Genome{}, diffMismatch("diff change index %d is out of order or range", change.Index)
		}
		values[change.Index] = change.Value
		last = change.Index
	}
	return New(diff.SchemaVersion, diff.Generation, values), nil
}

// Empty reports whether the diff changes no trait values.
func (d CompactDiff) Empty() bool {
	return len(d.Changes) == 0
}
