// Package event defines the lineage event envelope and its integrity chain.
//
// An event's Content is the signed body. Persistence stores it as canonical
// CBOR (Core Deterministic Encoding) and every hash is recomputed over the
// canonical re-encoding of the decoded content, so a record that is decoded
// and encoded again keeps its hash and signature.
//
// Three values protect each event:
//   - Hash: SHA-256 of the canonical (lineage id, seq, content) envelope.
//   - Signature: the GeneticSignature, SHA-256 over the hash, the previous
//     event's signature in the lineage and the parent signatures in order.
//   - Seal: an HMAC of the signature, keyed per lineage by the storage
//     keyring, so a rewritten chain cannot be re-signed without the key.
package event
