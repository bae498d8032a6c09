// Package journal provides an in-memory lineage event store for tests,
// simulations and the memory backend.
package journal
