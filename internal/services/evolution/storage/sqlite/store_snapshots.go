package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage"
)

// PutSnapshot stores snap, replacing one at the same sequence.
func (s *Store) PutSnapshot(ctx context.Context, snap storage.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	lineageID := strings.TrimSpace(snap.LineageID)
	if lineageID == "" {
		return fmt.Errorf("lineage id is required")
	}
	payload, err := event.Marshal(snap.Genome)
	if err != nil {
		return fmt.Errorf("encode snapshot genome: %w", err)
	}
	if _, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO lineage_snapshots (lineage_id, seq, genome) VALUES (?, ?, ?)
ON CONFLICT (lineage_id, seq) DO UPDATE SET genome = excluded.genome`,
		lineageID, int64(snap.Seq), payload,
	); err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the newest snapshot at or before atOrBefore.
func (s *Store) LatestSnapshot(ctx context.Context, lineageID string, atOrBefore uint64) (storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return storage.Snapshot{}, err
	}
	if err := s.ready(); err != nil {
		return storage.Snapshot{}, err
	}
	lineageID = strings.TrimSpace(lineageID)
	var (
		seq     int64
		payload []byte
	)
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT seq, genome FROM lineage_snapshots WHERE lineage_id = ? AND seq <= ? ORDER BY seq DESC LIMIT 1",
		lineageID, int64(atOrBefore),
	).Scan(&seq, &payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Snapshot{}, storage.ErrNotFound
		}
		return storage.Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	snap := storage.Snapshot{LineageID: lineageID, Seq: uint64(seq)}
	if err := event.Unmarshal(payload, &snap.Genome); err != nil {
		return storage.Snapshot{}, fmt.Errorf("decode snapshot genome: %w", err)
	}
	return snap, nil
}
