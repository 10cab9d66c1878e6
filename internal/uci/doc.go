// Package uci wraps the OpenWRT uci command-line tool behind a small
// get/set/commit Store interface so the selector's decision flow can be
// tested against an in-memory implementation.
package uci
