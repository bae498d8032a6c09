// Package storage defines persistence contracts for lineage events and
// genome snapshots.
//
// Stores are deliberately dumb: they persist records the lineage log has
// already hashed, signed and sealed, and only enforce that each append
// lands at the next sequence of its lineage. Implementations live in
// subpackages (sqlite, badger) and in the domain journal and checkpoint
// packages for memory.
//
// Common error types:
//   - ErrNotFound: requested record is missing
//   - ErrSequenceConflict: an append did not land at the lineage head + 1
package storage
