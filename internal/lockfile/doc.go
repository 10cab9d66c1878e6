// Package lockfile provides a non-blocking advisory file lock. Cron ticks
// and hotplug events can fire the same binary concurrently; the loser of
// the race must skip its run, not queue behind the winner.
package lockfile
