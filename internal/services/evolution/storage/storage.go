package storage

import (
	"context"
	"io"

	apperrors "github.com/louisbranch/evolving.space/internal/platform/errors"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"
)

// ErrNotFound indicates a requested persistence record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// ErrSequenceConflict indicates an append raced another writer or skipped a
// sequence number.
var ErrSequenceConflict = apperrors.New(apperrors.CodeSequenceConflict, "lineage sequence conflict")

// EventStore persists lineage event records.
type EventStore interface {
	// AppendRecord atomically stores rec. rec.Seq must be exactly one past
	// the lineage head, otherwise ErrSequenceConflict is returned and
	// nothing is written.
	AppendRecord(ctx context.Context, rec event.Record) error
	// GetRecord retrieves one record. Returns ErrNotFound if missing.
	GetRecord(ctx context.Context, lineageID string, seq uint64) (event.Record, error)
	// ListRecords returns up to limit records after afterSeq, ordered by
	// sequence ascending.
	ListRecords(ctx context.Context, lineageID string, afterSeq uint64, limit int) ([]event.Record, error)
	// LatestSeq returns the lineage head. Returns 0 if the lineage is empty.
	LatestSeq(ctx context.Context, lineageID string) (uint64, error)
	// ListLineages returns every lineage id with at least one record, sorted.
	ListLineages(ctx context.Context) ([]string, error)
}

// Snapshot is a cached full genome at one lineage position. Snapshots are
// accelerators for reconstruction, not the source of authority.
type Snapshot struct {
	LineageID string
	Seq       uint64
	Genome    genome.Genome
}

// SnapshotStore persists genome snapshots.
type SnapshotStore interface {
	// PutSnapshot stores snap, replacing any snapshot at the same position.
	PutSnapshot(ctx context.Context, snap Snapshot) error
	// LatestSnapshot returns the newest snapshot at or before seq.
	// Returns ErrNotFound if there is none.
	LatestSnapshot(ctx context.Context, lineageID string, atOrBefore uint64) (Snapshot, error)
}

// Store bundles the event and snapshot contracts of one backend.
type Store interface {
	EventStore
	SnapshotStore
}

// CloseIfSupported closes v when it implements io.Closer.
func CloseIfSupported(v any) error {
	if closer, ok := v.(io.Closer); ok && closer != nil {
		return closer.Close()
	}
	return nil
}
