package usbport

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Lookup answers "which physical USB port did this tether driver last
// register on". The answer drives the USB uplink LED name.
type Lookup interface {
	// LastPort returns the port number from the most recent registration
	// record of the named driver. ok=false when the log holds none, which
	// callers must treat as "no indicator" rather than an error.
	LastPort(ctx context.Context, driverTag string) (port int, ok bool, err error)
}

// DmesgLookup scans the kernel ring buffer via the dmesg tool.
type DmesgLookup struct{}

// NewDmesgLookup returns a Lookup backed by dmesg.
func NewDmesgLookup() *DmesgLookup {
	return &DmesgLookup{}
}

// LastPort runs dmesg and scans its output.
func (l *DmesgLookup) LastPort(ctx context.Context, driverTag string) (int, bool, error) {
	output, err := exec.CommandContext(ctx, "dmesg").Output()
	if err != nil {
		return 0, false, fmt.Errorf("dmesg: %w", err)
	}

	port, ok := ParseLastPort(output, driverTag)

	return port, ok, nil
}

// registerPattern matches a driver registration record and captures the
// dotted USB port path, e.g.
//
//	rndis_host 1-2:1.0 usb0: register 'rndis_host' at usb-1e1c0000.xhci-2, RNDIS device
//
// captures "2" (or "2.4" behind a hub).
const registerPattern = `register '%s' at usb-[^,\s]*-([0-9.]+),`

// ParseLastPort scans kernel log output for the most recent registration
// record of the named driver and extracts the physical port number. Behind a
// hub the port path is dotted; the last segment is the port.
func ParseLastPort(output []byte, driverTag string) (int, bool) {
	re, err := regexp.Compile(fmt.Sprintf(registerPattern, regexp.QuoteMeta(driverTag)))
	if err != nil {
		return 0, false
	}

	matches := re.FindAllSubmatch(output, -1)
	if len(matches) == 0 {
		return 0, false
	}

	path := string(matches[len(matches)-1][1])

	segments := strings.Split(path, ".")

	port, err := strconv.Atoi(segments[len(segments)-1])
	if err != nil {
		return 0, false
	}

	return port, true
}
