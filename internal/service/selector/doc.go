// Package selector implements the uplink selection pass behind the
// relay-select binary.
//
// Each run is short-lived and idempotent: it reads the persisted relay
// configuration, probes the four uplink candidates, lets the pure decision
// core in internal/domain/uplink pick a winner, and then applies only what
// actually changed (configuration commit, indicator LEDs, relay restart).
// A non-blocking file lock guarantees at most one run at a time; the loser
// exits immediately with ErrLocked.
package selector
