// Package integrity provides the hash and seal helpers that protect lineage
// chains.
//
// Hashes and GeneticSignatures are computed by the event package so the
// canonical envelope is defined in one place. This package adds the keyed
// seal: an HMAC of each signature under a per-lineage key derived with HKDF
// from a rotating set of root keys.
package integrity
