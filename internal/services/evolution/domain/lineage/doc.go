// Package lineage is the Evolution Log: an append-only, verifiable ledger
// of lineage events from which any recorded genome can be rebuilt.
//
// A lineage is the genetic history of one creature. Its first event is a
// genesis (a full baseline genome) or a breeding (a diff against the first
// of two parents, which may live in other lineages). Later events are
// mutations or arbiter outcomes, each a diff against the lineage's previous
// genome. Every event is hash-chained to its predecessor and parents and
// sealed with a per-lineage HMAC key.
//
// Appends to one lineage are serialized; different lineages append in
// parallel. Verification walks the full ancestry closure, so tampering with
// any ancestor makes every descendant fail verification.
package lineage
