// Package uplink holds the pure decision core of the uplink selector: the
// fixed candidate set, the probe results gathered from the host, and the
// Decide function that picks a winner and stages configuration changes.
//
// The package performs no I/O. Reading the persisted configuration, probing
// interfaces and applying the staged outcome all happen in
// internal/service/selector.
package uplink
