package lineage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/evolving.space/internal/services/evolution/core/seed"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/genome"
	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/journal"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage/integrity"
)

func testKeyring(t *testing.T) *integrity.Keyring {
	t.Helper()
	keyring, err := integrity.NewKeyring(map[string][]byte{"v1": []byte("lineage-test-key")}, "v1")
	if err != nil {
		t.Fatalf("new keyring: %v", err)
	}
	return keyring
}

// newTestLog returns a log over a tamperable in-memory journal.
func newTestLog(t *testing.T, opts ...Option) (*Log, *tamperStore) {
	t.Helper()
	store := newTamperStore(journal.NewMemory())
	log, err := New(store, testKeyring(t), opts...)
	if err != nil {
		t.Fatalf("new log: %v", err)
	}
	return log, store
}

func baseline(t *testing.T, l *Log, s seed.Seed) genome.Genome {
	t.Helper()
	g, err := l.Engine().GenerateBaseline(genome.SchemaV1, s)
	if err != nil {
		t.Fatalf("baseline: %v", err)
	}
	return g
}

func appendGenesis(t *testing.T, l *Log, lineageID string, s seed.Seed) (event.Event, genome.Genome) {
	t.Helper()
	g := baseline(t, l, s)
	evt, err := l.Append(context.Background(), AppendRequest{
		LineageID: lineageID,
		Kind:      event.KindGenesis,
		Inputs:    event.Inputs{Seed: string(s)},
		Genome:    g,
	})
	if err != nil {
		t.Fatalf("append genesis: %v", err)
	}
	return evt, g
}

func appendMutation(t *testing.T, l *Log, lineageID string, parent genome.Genome, s seed.Seed) (event.Event, genome.Genome) {
	t.Helper()
	params := genome.DefaultParams()
	g, err := l.Engine().Mutate(parent, s, params)
	if err != nil {
		t.Fatalf("mutate: %v", err)
	}
	evt, err := l.Append(context.Background(), AppendRequest{
		LineageID: lineageID,
		Kind:      event.KindMutation,
		Inputs:    event.Inputs{Seed: string(s), MutationRate: params.MutationRate, MutationScale: params.MutationScale},
		Genome:    g,
	})
	if err != nil {
		t.Fatalf("append mutation: %v", err)
	}
	return evt, g
}

// corrupt changes the first hex digit of s.
func corrupt(s string) string {
	if s == "" {
		return "0"
	}
	if s[0] == '0' {
		return "1" + s[1:]
	}
	return "0" + s[1:]
}

type recordKey struct {
	lineageID string
	seq       uint64
}

// tamperStore rewrites or hides records on read, as if the backing store
// had been edited behind the log's back.
type tamperStore struct {
	storage.EventStore

	mu      sync.Mutex
	edits   map[recordKey]func(*event.Record)
	dropped map[recordKey]bool
}

func newTamperStore(inner storage.EventStore) *tamperStore {
	return &tamperStore{
		EventStore: inner,
		edits:      make(map[recordKey]func(*event.Record)),
		dropped:    make(map[recordKey]bool),
	}
}

func (s *tamperStore) edit(lineageID string, seq uint64, fn func(*event.Record)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edits[recordKey{lineageID, seq}] = fn
}

func (s *tamperStore) drop(lineageID string, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropped[recordKey{lineageID, seq}] = true
}

func (s *tamperStore) apply(rec event.Record) (event.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey{rec.LineageID, rec.Seq}
	if s.dropped[key] {
		return rec, false
	}
	if fn := s.edits[key]; fn != nil {
		rec.Content = append([]byte(nil), rec.Content...)
		fn(&rec)
	}
	return rec, true
}

func (s *tamperStore) GetRecord(ctx context.Context, lineageID string, seq uint64) (event.Record, error) {
	rec, err := s.EventStore.GetRecord(ctx, lineageID, seq)
	if err != nil {
		return rec, err
	}
	rec, ok := s.apply(rec)
	if !ok {
		return event.Record{}, storage.ErrNotFound
	}
	return rec, nil
}

func (s *tamperStore) ListRecords(ctx context.Context, lineageID string, afterSeq uint64, limit int) ([]event.Record, error) {
	records, err := s.EventStore.ListRecords(ctx, lineageID, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	out := records[:0]
	for _, rec := range records {
		if rec, ok := s.apply(rec); ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

// recordingMetrics captures observations for assertions.
type recordingMetrics struct {
	mu       sync.Mutex
	appends  map[string]int
	failures int
	verifies []bool
	replayed []int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{appends: make(map[string]int)}
}

func (m *recordingMetrics) AppendObserved(kind string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failures++
		return
	}
	m.appends[kind]++
}

func (m *recordingMetrics) VerifyObserved(valid bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifies = append(m.verifies, valid)
}

func (m *recordingMetrics) ReconstructObserved(replayed int, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replayed = append(m.replayed, replayed)
}

func (m *recordingMetrics) lastReplayed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replayed) == 0 {
		return -1
	}
	return m.replayed[len(m.replayed)-1]
}
