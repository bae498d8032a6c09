// Package checkpoint provides genome snapshot stores that do not need a
// durable backend: Memory keeps snapshots in process and Noop disables
// snapshotting so every reconstruction replays from genesis.
package checkpoint
