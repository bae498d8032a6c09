// Package app composes the genome engine, the arbiter and the evolution log
// into the gameplay-facing Service.
//
// It also opens the configured storage backend and runs seeded population
// simulations on top of the Service.
package app
