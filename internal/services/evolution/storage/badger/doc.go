// Package badger implements the lineage storage contracts on BadgerDB.
//
// Key layout:
//
//	h/<lineage>            head sequence, 8 bytes big-endian
//	e/<lineage>/<seq BE>   event record, canonical CBOR
//	s/<lineage>/<seq BE>   genome snapshot, canonical CBOR
//
// Big-endian sequence suffixes keep each lineage's records in sequence
// order under prefix iteration. Appends run in one read-write transaction
// that reads the head and writes the record and the new head, so Badger's
// conflict detection rejects racing writers.
package badger
