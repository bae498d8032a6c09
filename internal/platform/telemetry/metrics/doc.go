// Package metrics records Prometheus metrics for the evolution log and
// arbiter.
//
// Collectors are registered on a caller-supplied registry so tests and
// embedded uses do not touch the global default registry.
package metrics
