package badger

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/louisbranch/evolving.space/internal/services/evolution/domain/event"
)

// OverwriteRecordForTest replaces a stored record in place, bypassing the
// append-only API.
func OverwriteRecordForTest(s *Store, rec event.Record) error {
	value, err := event.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(seqKey(eventPrefix, rec.LineageID, rec.Seq), value)
	})
}
