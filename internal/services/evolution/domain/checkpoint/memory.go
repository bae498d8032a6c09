package checkpoint

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/louisbranch/evolving.space/internal/services/evolution/storage"
)

var (
	// ErrLineageIDRequired indicates a missing lineage id.
	ErrLineageIDRequired = errors.New("lineage id is required")
	// ErrStoreRequired indicates a nil snapshot store.
	ErrStoreRequired = errors.New("snapshot store is required")
)

// Memory stores genome snapshots in memory, ordered by sequence per lineage.
type Memory struct {
	mu        sync.Mutex
	snapshots map[string][]storage.Snapshot
}

// NewMemory creates a new in-memory snapshot store.
func NewMemory() *Memory {
	return &Memory{snapshots: make(map[string][]storage.Snapshot)}
}

// PutSnapshot stores snap, replacing one at the same sequence.
func (m *Memory) PutSnapshot(ctx context.Context, snap storage.Snapshot) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if m == nil {
		return ErrStoreRequired
	}
	lineageID := strings.TrimSpace(snap.LineageID)
	if lineageID == "" {
		return ErrLineageIDRequired
	}
	snap.LineageID = lineageID
	snap.Genome = snap.Genome.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.snapshots[lineageID]
	i := sort.Search(len(list), func(i int) bool { return list[i].Seq >= snap.Seq })
	if i < len(list) && list[i].Seq == snap.Seq {
		list[i] = snap
		return nil
	}
	list = append(list, storage.Snapshot{})
	copy(list[i+1:], list[i:])
	list[i] = snap
	m.snapshots[lineageID] = list
	return nil
}

// LatestSnapshot returns the newest snapshot at or before seq.
func (m *Memory) LatestSnapshot(ctx context.Context, lineageID string, atOrBefore uint64) (storage.Snapshot, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return storage.Snapshot{}, err
		}
	}
	if m == nil {
		return storage.Snapshot{}, ErrStoreRequired
	}
	lineageID = strings.TrimSpace(lineageID)
	if lineageID == "" {
		return storage.Snapshot{}, ErrLineageIDRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.snapshots[lineageID]
	i := sort.Search(len(list), func(i int) bool { return list[i].Seq > atOrBefore })
	if i == 0 {
		return storage.Snapshot{}, storage.ErrNotFound
	}
	snap := list[i-1]
	snap.Genome = snap.Genome.Clone()
	return snap, nil
}
