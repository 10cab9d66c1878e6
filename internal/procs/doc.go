// Package procs inspects the process table. The selector uses it to verify
// the relay daemon is running with the interface it just selected.
package procs
