package journal

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage"
)

// ErrLineageIDRequired indicates a missing lineage id.
var ErrLineageIDRequired = errors.New("lineage id is required")

// Memory stores lineage records in memory. Appends and reads take one lock,
// so readers see a lineage before or after an append, never partially.
type Memory struct {
	mu       sync.RWMutex
	lineages map[string][]event.Record
}

// NewMemory creates an empty in-memory journal.
func NewMemory() *Memory {
	return &Memory{lineages: make(map[string][]event.Record)}
}

// AppendRecord stores rec at the next sequence of its lineage.
func (m *Memory) AppendRecord(ctx context.Context, rec event.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lineageID := strings.TrimSpace(rec.LineageID)
	if lineageID == "" {
		return ErrLineageIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.lineages[lineageID]
	if want := uint64(len(records)) + 1; rec.Seq != want {
		return fmt.Errorf("%w: lineage %s expects seq %d, got %d", storage.ErrSequenceConflict, lineageID, want, rec.Seq)
	}
	rec.LineageID = lineageID
	rec.Content = slices.Clone(rec.Content)
	m.lineages[lineageID] = append(records, rec)
	return nil
}

// GetRecord retrieves one record.
func (m *Memory) GetRecord(ctx context.Context, lineageID string, seq uint64) (event.Record, error) {
	if err := ctx.Err(); err != nil {
		return event.Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.lineages[strings.TrimSpace(lineageID)]
	if seq == 0 || seq > uint64(len(records)) {
		return event.Record{}, storage.ErrNotFound
	}
	return cloneRecord(records[seq-1]), nil
}

// ListRecords returns up to limit records after afterSeq.
func (m *Memory) ListRecords(ctx context.Context, lineageID string, afterSeq uint64, limit int) ([]event.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.lineages[strings.TrimSpace(lineageID)]
	if afterSeq >= uint64(len(records)) {
		return nil, nil
	}
	end := min(afterSeq+uint64(limit), uint64(len(records)))
	out := make([]event.Record, 0, end-afterSeq)
	for _, rec := range records[afterSeq:end] {
		out = append(out, cloneRecord(rec))
	}
	return out, nil
}

// LatestSeq returns the lineage head, 0 when empty.
func (m *Memory) LatestSeq(ctx context.Context, lineageID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.lineages[strings.TrimSpace(lineageID)])), nil
}

// ListLineages returns every lineage id, sorted.
func (m *Memory) ListLineages(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.lineages))
	for id := range m.lineages {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func cloneRecord(rec event.Record) event.Record {
	rec.Content = slices.Clone(rec.Content)
	return rec
}
