// Package storagetest holds the behaviour every lineage storage backend
// must share, run by each backend's own tests.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage"
)

// Record builds a record with recognisable content for lineageID at seq.
func Record(lineageID string, seq uint64) event.Record {
	return event.Record{
		LineageID:     lineageID,
		Seq:           seq,
		Content:       []byte(fmt.Sprintf("content-%s-%d", lineageID, seq)),
		Hash:          fmt.Sprintf("hash-%s-%d", lineageID, seq),
		PrevSignature: fmt.Sprintf("sig-%s-%d", lineageID, seq-1),
		Signature:     fmt.Sprintf("sig-%s-%d", lineageID, seq),
		Seal:          fmt.Sprintf("seal-%s-%d", lineageID, seq),
		SealKeyID:     "v1",
	}
}

// RunEventStore exercises the EventStore contract against a fresh store.
func RunEventStore(t *testing.T, newStore func(t *testing.T) storage.EventStore) {
	t.Helper()

	t.Run("append and read back", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		for seq := uint64(1); seq <= 3; seq++ {
			if err := store.AppendRecord(ctx, Record("alpha", seq)); err != nil {
				t.Fatalf("append %d: %v", seq, err)
			}
		}
		got, err := store.GetRecord(ctx, "alpha", 2)
		if err != nil {
			t.Fatalf("get record: %v", err)
		}
		if want := Record("alpha", 2); !equalRecords(got, want) {
			t.Fatalf("record = %+v, want %+v", got, want)
		}
		head, err := store.LatestSeq(ctx, "alpha")
		if err != nil {
			t.Fatalf("latest seq: %v", err)
		}
		if head != 3 {
			t.Fatalf("head = %d, want 3", head)
		}
	})

	t.Run("missing records", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		if _, err := store.GetRecord(ctx, "ghost", 1); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("error = %v, want %v", err, storage.ErrNotFound)
		}
		head, err := store.LatestSeq(ctx, "ghost")
		if err != nil || head != 0 {
			t.Fatalf("latest seq = %d, %v, want 0", head, err)
		}
		records, err := store.ListRecords(ctx, "ghost", 0, 10)
		if err != nil || len(records) != 0 {
			t.Fatalf("list = %v, %v, want empty", records, err)
		}
	})

	t.Run("sequence conflicts", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		if err := store.AppendRecord(ctx, Record("alpha", 2)); !errors.Is(err, storage.ErrSequenceConflict) {
			t.Fatalf("gap error = %v, want %v", err, storage.ErrSequenceConflict)
		}
		if err := store.AppendRecord(ctx, Record("alpha", 1)); err != nil {
			t.Fatalf("append: %v", err)
		}
		duplicate := Record("alpha", 1)
		duplicate.Hash = "other"
		if err := store.AppendRecord(ctx, duplicate); !errors.Is(err, storage.ErrSequenceConflict) {
			t.Fatalf("duplicate error = %v, want %v", err, storage.ErrSequenceConflict)
		}
		got, err := store.GetRecord(ctx, "alpha", 1)
		if err != nil {
			t.Fatalf("get record: %v", err)
		}
		if got.Hash != Record("alpha", 1).Hash {
			t.Fatal("expected the first write to survive a conflict")
		}
	})

	t.Run("paging", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		for seq := uint64(1); seq <= 5; seq++ {
			if err := store.AppendRecord(ctx, Record("alpha", seq)); err != nil {
				t.Fatalf("append %d: %v", seq, err)
			}
			if err := store.AppendRecord(ctx, Record("beta", seq)); err != nil {
				t.Fatalf("append beta %d: %v", seq, err)
			}
		}
		page, err := store.ListRecords(ctx, "alpha", 1, 2)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(page) != 2 || page[0].Seq != 2 || page[1].Seq != 3 || page[0].LineageID != "alpha" {
			t.Fatalf("page = %+v, want alpha seqs 2 and 3", page)
		}
		tail, err := store.ListRecords(ctx, "alpha", 4, 10)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(tail) != 1 || tail[0].Seq != 5 {
			t.Fatalf("tail = %+v, want seq 5", tail)
		}
		lineages, err := store.ListLineages(ctx)
		if err != nil {
			t.Fatalf("list lineages: %v", err)
		}
		if !slices.Equal(lineages, []string{"alpha", "beta"}) {
			t.Fatalf("lineages = %v", lineages)
		}
	})

	t.Run("concurrent appends to one sequence", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		const writers = 8
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec := Record("race", 1)
				rec.Hash = fmt.Sprintf("writer-%d", i)
				errs <- store.AppendRecord(ctx, rec)
			}()
		}
		wg.Wait()
		close(errs)
		wins := 0
		for err := range errs {
			switch {
			case err == nil:
				wins++
			case !errors.Is(err, storage.ErrSequenceConflict):
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if wins != 1 {
			t.Fatalf("winners = %d, want 1", wins)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := store.AppendRecord(ctx, Record("alpha", 1)); err == nil {
			t.Fatal("expected error for cancelled context")
		}
	})
}

// RunSnapshotStore exercises the SnapshotStore contract against a fresh store.
func RunSnapshotStore(t *testing.T, newStore func(t *testing.T) storage.SnapshotStore) {
	t.Helper()

	snap := func(seq uint64, value int64) storage.Snapshot {
		return storage.Snapshot{
			LineageID: "alpha",
			Seq:       seq,
			Genome:    genome.New(genome.SchemaV1, uint32(seq), []int64{value, value + 1}),
		}
	}

	t.Run("latest at or before", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		for _, s := range []storage.Snapshot{snap(20, 2), snap(10, 1), snap(30, 3)} {
			if err := store.PutSnapshot(ctx, s); err != nil {
				t.Fatalf("put snapshot %d: %v", s.Seq, err)
			}
		}
		tests := []struct {
			at   uint64
			want uint64
		}{{at: 10, want: 10}, {at: 25, want: 20}, {at: 99, want: 30}}
		for _, tt := range tests {
			got, err := store.LatestSnapshot(ctx, "alpha", tt.at)
			if err != nil {
				t.Fatalf("latest at %d: %v", tt.at, err)
			}
			if got.Seq != tt.want {
				t.Fatalf("latest at %d = %d, want %d", tt.at, got.Seq, tt.want)
			}
			if !got.Genome.Equal(snap(tt.want, int64(tt.want/10)).Genome) {
				t.Fatalf("genome = %+v", got.Genome)
			}
		}
		if _, err := store.LatestSnapshot(ctx, "alpha", 9); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("error = %v, want %v", err, storage.ErrNotFound)
		}
		if _, err := store.LatestSnapshot(ctx, "beta", 99); !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("error = %v, want %v", err, storage.ErrNotFound)
		}
	})

	t.Run("replace", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		if err := store.PutSnapshot(ctx, snap(10, 1)); err != nil {
			t.Fatalf("put snapshot: %v", err)
		}
		if err := store.PutSnapshot(ctx, snap(10, 7)); err != nil {
			t.Fatalf("replace snapshot: %v", err)
		}
		got, err := store.LatestSnapshot(ctx, "alpha", 10)
		if err != nil {
			t.Fatalf("latest: %v", err)
		}
		if got.Genome.Values[0] != 7 {
			t.Fatalf("value = %d, want 7", got.Genome.Values[0])
		}
	})
}

func equalRecords(a, b event.Record) bool {
	return a.LineageID == b.LineageID &&
		a.Seq == b.Seq &&
		string(a.Content) == string(b.Content) &&
		a.Hash == b.Hash &&
		a.PrevSignature == b.PrevSignature &&
		a.Signature == b.Signature &&
		a.Seal == b.Seal &&
		a.SealKeyID == b.SealKeyID
}
