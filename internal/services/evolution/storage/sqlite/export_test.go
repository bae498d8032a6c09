package sqlite

import "context"

// OverwriteContentForTest rewrites a stored event's content in place,
// bypassing the append-only API.
func OverwriteContentForTest(ctx context.Context, s *Store, lineageID string, seq uint64, content []byte) error {
	_, err := s.sqlDB.ExecContext(ctx,
		"UPDATE lineage_events SET content = ? WHERE lineage_id = ? AND seq = ?",
		content, lineageID, int64(seq),
	)
	return err
}
