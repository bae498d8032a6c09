package checkpoint

import (
	"context"

	"github.com/louisbranch/evolving.space/internal/services/evolution/storage"
)

// Noop discards snapshots.
type Noop struct{}

// NewNoop creates a snapshot store that never keeps snapshots.
func NewNoop() *Noop {
	return &Noop{}
}

// PutSnapshot is a no-op.
func (n *Noop) PutSnapshot(ctx context.Context, _ storage.Snapshot) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

// LatestSnapshot always reports that no snapshot exists.
func (n *Noop) LatestSnapshot(ctx context.Context, _ string, _ uint64) (storage.Snapshot, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return storage.Snapshot{}, err
		}
	}
	return storage.Snapshot{}, storage.ErrNotFound
}
