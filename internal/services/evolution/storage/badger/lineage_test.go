package badger_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louisbranch/evolving.space/internal/services/evolution/core/seed"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/lineage"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage/badger"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage/integrity"
)

func TestSelfBreedingScenarioOnBadger(t *testing.T) {
	ctx := context.Background()
	store, err := badger.Open(badger.InMemoryConfig())
	require.NoError(t, err)
	defer store.Close()
	keyring, err := integrity.NewKeyring(map[string][]byte{"v1": []byte("badger-test-key")}, "v1")
	require.NoError(t, err)
	log, err := lineage.New(store, keyring, lineage.WithSnapshots(store, 4))
	require.NoError(t, err)

	g0, err := log.Engine().GenerateBaseline(genome.SchemaV1, "alpha-1")
	require.NoError(t, err)
	genesis, err := log.Append(ctx, lineage.AppendRequest{
		LineageID: "alpha",
		Kind:      event.KindGenesis,
		Inputs:    event.Inputs{Seed: "alpha-1"},
		Genome:    g0,
	})
	require.NoError(t, err)

	g1, err := log.Engine().Breed(g0, g0, "beta-2", genome.Params{})
	require.NoError(t, err)
	assert.Equal(t, g0.Values, g1.Values)
	bred, err := log.Append(ctx, lineage.AppendRequest{
		LineageID: "beta",
		Kind:      event.KindBreeding,
		Parents:   []event.ParentRef{genesis.Ref(), genesis.Ref()},
		Inputs:    event.Inputs{Seed: "beta-2"},
		Genome:    g1,
	})
	require.NoError(t, err)

	rebuilt, err := log.Reconstruct(ctx, "beta")
	require.NoError(t, err)
	assert.True(t, rebuilt.Equal(g1))
	ok, err := log.Verify(ctx, "beta")
	require.NoError(t, err)
	assert.True(t, ok)

	diff, err := event.Marshal(bred.Diff)
	require.NoError(t, err)
	rec, err := store.GetRecord(ctx, "beta", 1)
	require.NoError(t, err)
	at := bytes.Index(rec.Content, diff)
	require.GreaterOrEqual(t, at, 0, "stored content does not embed the diff")
	rec.Content[at+len(diff)-1] ^= 0x01
	require.NoError(t, badger.OverwriteRecordForTest(store, rec))

	ok, err = log.Verify(ctx, "beta")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = log.Reconstruct(ctx, "beta")
	var chain *lineage.BrokenChainError
	require.True(t, errors.As(err, &chain))
	assert.Equal(t, "beta", chain.LineageID)
	assert.Equal(t, uint64(1), chain.Seq)
}

func TestConcurrentLineagesOnBadger(t *testing.T) {
	ctx := context.Background()
	store, err := badger.Open(badger.InMemoryConfig())
	require.NoError(t, err)
	defer store.Close()
	keyring, err := integrity.NewKeyring(map[string][]byte{"v1": []byte("badger-test-key")}, "v1")
	require.NoError(t, err)
	log, err := lineage.New(store, keyring)
	require.NoError(t, err)

	ids := []string{"one", "two", "three", "four"}
	errs := make(chan error, len(ids))
	for _, id := range ids {
		go func() {
			g, err := log.Engine().GenerateBaseline(genome.SchemaV1, seed.Seed("seed-"+id))
			if err != nil {
				errs <- err
				return
			}
			if _, err := log.Append(ctx, lineage.AppendRequest{LineageID: id, Kind: event.KindGenesis, Genome: g}); err != nil {
				errs <- err
				return
			}
			for i := range 5 {
				next, err := log.Engine().Mutate(g, "m", genome.Params{MutationRate: 100 + i, MutationScale: 100})
				if err != nil {
					errs <- err
					return
				}
				if _, err := log.Append(ctx, lineage.AppendRequest{LineageID: id, Kind: event.KindMutation, Genome: next}); err != nil {
					errs <- err
					return
				}
				g = next
			}
			errs <- nil
		}()
	}
	for range ids {
		require.NoError(t, <-errs)
	}

	reports, err := log.VerifyAll(ctx)
	require.NoError(t, err)
	require.Len(t, reports, len(ids))
	for _, report := range reports {
		assert.True(t, report.Valid, report.LineageID)
		assert.Equal(t, uint64(6), report.Head)
	}
}
