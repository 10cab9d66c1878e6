// Package usbport derives the physical USB port a tether driver registered
// on by scanning the kernel log. The result is best-effort: callers get an
// explicit "not found" and must cope with it, typically by leaving the USB
// uplink without an indicator.
package usbport
