// Package check provides generic difficulty check primitives.
//
// This package contains system-agnostic difficulty checking functionality
// used by the arbiter:
//
//   - Basic difficulty comparison (total vs target)
//   - Margin of success/failure calculations
//
// Rule-specific interpretation (natural 1 and 20, advantage) is built on top
// of these primitives in the arbiter package.
package check
