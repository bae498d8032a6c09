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

const recordColumns = "lineage_id, seq, content, event_hash, prev_signature, signature, seal, seal_key_id"

// AppendRecord stores rec at the next sequence of its lineage in one
// transaction.
func (s *Store) AppendRecord(ctx context.Context, rec event.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	lineageID := strings.TrimSpace(rec.LineageID)
	if lineageID == "" {
		return fmt.Errorf("lineage id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		if isBusyError(err) {
			return fmt.Errorf("%w: lineage %s is locked by another writer", storage.ErrSequenceConflict, lineageID)
		}
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var head sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		"SELECT MAX(seq) FROM lineage_events WHERE lineage_id = ?", lineageID,
	).Scan(&head); err != nil {
		return fmt.Errorf("load lineage head: %w", err)
	}
	if want := uint64(head.Int64) + 1; rec.Seq != want {
		return fmt.Errorf("%w: lineage %s expects seq %d, got %d", storage.ErrSequenceConflict, lineageID, want, rec.Seq)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO lineage_events ("+recordColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		lineageID,
		int64(rec.Seq),
		rec.Content,
		rec.Hash,
		rec.PrevSignature,
		rec.Signature,
		rec.Seal,
		rec.SealKeyID,
	); err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("%w: lineage %s seq %d already exists", storage.ErrSequenceConflict, lineageID, rec.Seq)
		}
		return fmt.Errorf("append event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetRecord retrieves one record.
func (s *Store) GetRecord(ctx context.Context, lineageID string, seq uint64) (event.Record, error) {
	if err := ctx.Err(); err != nil {
		return event.Record{}, err
	}
	if err := s.ready(); err != nil {
		return event.Record{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM lineage_events WHERE lineage_id = ? AND seq = ?",
		strings.TrimSpace(lineageID), int64(seq),
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return event.Record{}, storage.ErrNotFound
		}
		return event.Record{}, fmt.Errorf("get event: %w", err)
	}
	return rec, nil
}

// ListRecords returns up to limit records after afterSeq, in sequence
// order.
func (s *Store) ListRecords(ctx context.Context, lineageID string, afterSeq uint64, limit int) ([]event.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+recordColumns+" FROM lineage_events WHERE lineage_id = ? AND seq > ? ORDER BY seq LIMIT ?",
		strings.TrimSpace(lineageID), int64(afterSeq), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	records := make([]event.Record, 0, limit)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return records, nil
}

// LatestSeq returns the lineage head, 0 when empty.
func (s *Store) LatestSeq(ctx context.Context, lineageID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	var head sql.NullInt64
	if err := s.sqlDB.QueryRowContext(ctx,
		"SELECT MAX(seq) FROM lineage_events WHERE lineage_id = ?", strings.TrimSpace(lineageID),
	).Scan(&head); err != nil {
		return 0, fmt.Errorf("load lineage head: %w", err)
	}
	return uint64(head.Int64), nil
}

// ListLineages returns every lineage id, sorted.
func (s *Store) ListLineages(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, "SELECT DISTINCT lineage_id FROM lineage_events ORDER BY lineage_id")
	if err != nil {
		return nil, fmt.Errorf("list lineages: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan lineage id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read lineages: %w", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (event.Record, error) {
	var (
		rec event.Record
		seq int64
	)
	if err := row.Scan(
		&rec.LineageID,
		&seq,
		&rec.Content,
		&rec.Hash,
		&rec.PrevSignature,
		&rec.Signature,
		&rec.Seal,
		&rec.SealKeyID,
	); err != nil {
		return event.Record{}, err
	}
	rec.Seq = uint64(seq)
	return rec, nil
}
