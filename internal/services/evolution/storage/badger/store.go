package badger

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
	"github.com/louisbranch/evolving.space/internal/services/evolution/storage"
)

var _ storage.Store = (*Store)(nil)

var (
	headPrefix     = []byte("h/")
	eventPrefix    = []byte("e/")
	snapshotPrefix = []byte("s/")
)

// Store is a Badger-backed lineage event and snapshot store.
type Store struct {
	db *badger.DB
	gc *gcRunner
}

// Open opens the store described by cfg and starts value log GC when
// configured.
func Open(cfg Config) (*Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		logger := cfg.Logger
		if logger == nil {
			logger = slog.New(slog.DiscardHandler)
		}
		gc, err := startGC(db, cfg.GCInterval, cfg.GCDiscardRatio, logger)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("start value log GC: %w", err)
		}
		store.gc = gc
	}
	return store, nil
}

// Close stops GC and closes the database. It is nil-safe.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if s.gc != nil {
		s.gc.stop()
	}
	return s.db.Close()
}

func headKey(lineageID string) []byte {
	return append(bytes.Clone(headPrefix), lineageID...)
}

func seqPrefix(prefix []byte, lineageID string) []byte {
	key := append(bytes.Clone(prefix), lineageID...)
	return append(key, '/')
}

func seqKey(prefix []byte, lineageID string, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(seqPrefix(prefix, lineageID), seq)
}

// seqFromKey returns the sequence suffix of key, or false when key belongs
// to a lineage whose id merely starts with the scanned one.
func seqFromKey(key, prefix []byte) (uint64, bool) {
	if len(key) != len(prefix)+8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[len(prefix):]), true
}

// AppendRecord stores rec at the next sequence of its lineage.
func (s *Store) AppendRecord(ctx context.Context, rec event.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lineageID := strings.TrimSpace(rec.LineageID)
	if lineageID == "" {
		return fmt.Errorf("lineage id is required")
	}
	rec.LineageID = lineageID
	value, err := event.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		head, err := readHead(txn, lineageID)
		if err != nil {
			return err
		}
		if want := head + 1; rec.Seq != want {
			return fmt.Errorf("%w: lineage %s expects seq %d, got %d", storage.ErrSequenceConflict, lineageID, want, rec.Seq)
		}
		if err := txn.Set(seqKey(eventPrefix, lineageID, rec.Seq), value); err != nil {
			return err
		}
		return txn.Set(headKey(lineageID), binary.BigEndian.AppendUint64(nil, rec.Seq))
	})
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: lineage %s was appended concurrently", storage.ErrSequenceConflict, lineageID)
	}
	if err != nil && !errors.Is(err, storage.ErrSequenceConflict) {
		return fmt.Errorf("append event: %w", err)
	}
	return err
}

// GetRecord retrieves one record.
func (s *Store) GetRecord(ctx context.Context, lineageID string, seq uint64) (event.Record, error) {
	if err := ctx.Err(); err != nil {
		return event.Record{}, err
	}
	var rec event.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(seqKey(eventPrefix, strings.TrimSpace(lineageID), seq))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return event.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return event.Record{}, storage.ErrNotFound
	}
	if err != nil {
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
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	lineageID = strings.TrimSpace(lineageID)
	prefix := seqPrefix(eventPrefix, lineageID)

	var records []event.Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seqKey(eventPrefix, lineageID, afterSeq+1)); it.ValidForPrefix(prefix) && len(records) < limit; it.Next() {
			item := it.Item()
			if _, ok := seqFromKey(item.Key(), prefix); !ok {
				continue
			}
			var rec event.Record
			if err := item.Value(func(val []byte) error {
				return event.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return records, nil
}

// LatestSeq returns the lineage head, 0 when empty.
func (s *Store) LatestSeq(ctx context.Context, lineageID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var head uint64
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		head, err = readHead(txn, strings.TrimSpace(lineageID))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("load lineage head: %w", err)
	}
	return head, nil
}

// ListLineages returns every lineage id, sorted.
func (s *Store) ListLineages(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = headPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(headPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list lineages: %w", err)
	}
	return ids, nil
}

func readHead(txn *badger.Txn, lineageID string) (uint64, error) {
	item, err := txn.Get(headKey(lineageID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var head uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("lineage %s head is corrupt", lineageID)
		}
		head = binary.BigEndian.Uint64(val)
		return nil
	})
	return head, err
}
