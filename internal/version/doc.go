// Package version exposes build metadata injected via ldflags and a cobra
// subcommand that prints it. All binaries attach the same `version` command.
package version
