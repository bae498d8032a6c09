// Package telemetry provides observability for the evolution core.
//
// Lineage events are the canonical, signed record of genetic history and
// live in the evolution log. Operational metrics (telemetry/metrics) are
// separate: they describe how the log is behaving (append latency, failed
// verifications, replay depth) and may be dropped without losing history.
package telemetry
