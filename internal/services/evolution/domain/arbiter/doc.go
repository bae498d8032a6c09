// Package arbiter turns stochastic game rules into reproducible outcomes.
//
// Resolve is a pure function of a seed and a RuleContext. Every random
// decision draws from a sub-seed derived as
// seed.Derive(s, "arbiter/<kind>/<name>", step), so two calls with equal
// inputs return equal outcomes on any machine and no stream is shared
// between rules.
package arbiter
