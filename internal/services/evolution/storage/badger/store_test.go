package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/evolving.space/internal/services/evolution/storage"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage/storagetest"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	store, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func TestEventStoreContract(t *testing.T) {
	storagetest.RunEventStore(t, func(t *testing.T) storage.EventStore {
		return openInMemory(t)
	})
}

func TestSnapshotStoreContract(t *testing.T) {
	storagetest.RunSnapshotStore(t, func(t *testing.T) storage.SnapshotStore {
		return openInMemory(t)
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}

func TestPersistentStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, store.AppendRecord(ctx, storagetest.Record("alpha", 1)))
	require.NoError(t, store.AppendRecord(ctx, storagetest.Record("alpha", 2)))
	require.NoError(t, store.Close())

	reopened, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer reopened.Close()

	head, err := reopened.LatestSeq(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), head)

	rec, err := reopened.GetRecord(ctx, "alpha", 2)
	require.NoError(t, err)
	assert.Equal(t, storagetest.Record("alpha", 2).Signature, rec.Signature)
}

func TestLineageIDPrefixesStaySeparate(t *testing.T) {
	ctx := context.Background()
	store := openInMemory(t)
	require.NoError(t, store.AppendRecord(ctx, storagetest.Record("a", 1)))
	require.NoError(t, store.AppendRecord(ctx, storagetest.Record("a/b", 1)))

	records, err := store.ListRecords(ctx, "a", 0, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].LineageID)

	ids, err := store.ListLineages(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a/b"}, ids)
}

func TestCloseIsNilSafe(t *testing.T) {
	var store *Store
	assert.NoError(t, store.Close())
}
