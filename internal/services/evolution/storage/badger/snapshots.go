package badger

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage"
)

// PutSnapshot stores snap, replacing one at the same sequence.
func (s *Store) PutSnapshot(ctx context.Context, snap storage.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lineageID := strings.TrimSpace(snap.LineageID)
	if lineageID == "" {
		return fmt.Errorf("lineage id is required")
	}
	value, err := event.Marshal(snap.Genome)
	if err != nil {
		return fmt.Errorf("encode snapshot genome: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(seqKey(snapshotPrefix, lineageID, snap.Seq), value)
	}); err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the newest snapshot at or before atOrBefore.
func (s *Store) LatestSnapshot(ctx context.Context, lineageID string, atOrBefore uint64) (storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return storage.Snapshot{}, err
	}
	lineageID = strings.TrimSpace(lineageID)
	prefix := seqPrefix(snapshotPrefix, lineageID)

	snap := storage.Snapshot{LineageID: lineageID}
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode Seek lands on the largest key at or before the target.
		for it.Seek(seqKey(snapshotPrefix, lineageID, atOrBefore)); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			seq, ok := seqFromKey(item.Key(), prefix)
			if !ok || seq > atOrBefore {
				continue
			}
			snap.Seq = seq
			found = true
			return item.Value(func(val []byte) error {
				return event.Unmarshal(val, &snap.Genome)
			})
		}
		return nil
	})
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	if !found {
		return storage.Snapshot{}, storage.ErrNotFound
	}
	return snap, nil
}
