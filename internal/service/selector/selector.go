package selector

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetherwrt/tetherwrt/internal/config"
	"github.com/tetherwrt/tetherwrt/internal/domain/uplink"
	"github.com/tetherwrt/tetherwrt/internal/initd"
	"github.com/tetherwrt/tetherwrt/internal/leds"
	"github.com/tetherwrt/tetherwrt/internal/lockfile"
	"github.com/tetherwrt/tetherwrt/internal/logger"
	"github.com/tetherwrt/tetherwrt/internal/netif"
	"github.com/tetherwrt/tetherwrt/internal/procs"
	"github.com/tetherwrt/tetherwrt/internal/uci"
	"github.com/tetherwrt/tetherwrt/internal/usbport"
)

// Options are inputs accepted by the selector entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file. A missing
	// file is fine on the router: the defaults describe the target model.
	ConfigPath string
}

// Result is the observable outcome of one selector run.
type Result string

const (
	// ResultSelected means an uplink won and the relay matches it now.
	ResultSelected Result = "selected"
	// ResultNoUplink means no candidate interface held an address; the
	// persisted configuration was deliberately left untouched.
	ResultNoUplink Result = "no-uplink"
)

// ErrLocked mirrors the lock package sentinel so callers can pick the
// distinct "skipped due to concurrent run" exit status.
var ErrLocked = lockfile.ErrLocked

// Kernel driver tags whose registration records reveal the USB port.
const (
	androidDriverTag = "rndis_host"
	iphoneDriverTag  = "ipheth"
)

// Deps are the external facilities the selector acts through. Production
// runs use the host-backed implementations; tests substitute fakes.
type Deps struct {
	Store     uci.Store
	Addrs     netif.AddrSource
	LEDs      leds.Controller
	Ports     usbport.Lookup
	Procs     procs.Inspector
	Restarter initd.Restarter
}

// Run is the entry point behind the relay-select binary. It acquires the
// run lock, loads settings and executes one selection pass against the
// live system.
func Run(ctx context.Context, opts *Options) (Result, error) {
	ctx = logger.WithName(ctx, "relay-select")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return "", fmt.Errorf("load configuration: %w", err)
	}

	lock, err := lockfile.TryAcquire(cfg.Selector.LockFile)
	if err != nil {
		if errors.Is(err, lockfile.ErrLocked) {
			logger.Info(ctx, "Another run is in progress, skipping")
		}

		return "", err
	}

	defer func() {
		_ = lock.Release()
	}()

	deps := Deps{
		Store:     uci.NewExecStore(),
		Addrs:     netif.NewNetlinkSource(),
		LEDs:      leds.NewSysfsController(""),
		Ports:     usbport.NewDmesgLookup(),
		Procs:     procs.NewTableInspector(""),
		Restarter: initd.NewScriptRestarter(""),
	}

	return Select(ctx, &cfg.Selector, deps)
}

// Select executes one selection pass: read persisted state, probe every
// candidate, decide, then apply whatever changed.
func Select(ctx context.Context, sel *config.SelectorConfig, deps Deps) (Result, error) {
	ipaddrKey := fmt.Sprintf("network.%s.ipaddr", sel.LANNetwork)
	networkKey := fmt.Sprintf("network.%s.network", sel.LANNetwork)

	prevAddr, err := deps.Store.Get(ctx, ipaddrKey)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", ipaddrKey, err)
	}

	prevNetwork, err := deps.Store.Get(ctx, networkKey)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", networkKey, err)
	}

	prev := uplink.State{
		IPAddr:  prevAddr,
		Network: uci.SplitList(prevNetwork),
	}

	probes := probeAll(ctx, sel, deps)

	outcome := uplink.Decide(prev, sel.LANNetwork, probes)
	if outcome.Selected == nil {
		// Deliberately passive: last-known-good configuration stays in
		// place until an uplink comes back.
		logger.Warn(ctx, "No uplink detected, keeping previous configuration")

		return ResultNoUplink, nil
	}

	winner := outcome.Selected
	logger.InfoKV(ctx, "Uplink selected",
		"uplink", string(winner.Candidate.ID),
		"interface", winner.Candidate.Interface,
		"address", winner.Address)

	dirty := outcome.Dirty()

	if outcome.IPAddrChanged {
		logger.Infof(ctx, "Relay address changes %s -> %s", prev.IPAddr, outcome.IPAddr)

		if err := deps.Store.Set(ctx, ipaddrKey, outcome.IPAddr); err != nil {
			return "", fmt.Errorf("stage %s: %w", ipaddrKey, err)
		}
	}

	if outcome.NetworkChanged {
		logger.Infof(ctx, "Relay network changes to %q", uci.JoinList(outcome.Network))

		if err := deps.Store.Set(ctx, networkKey, uci.JoinList(outcome.Network)); err != nil {
			return "", fmt.Errorf("stage %s: %w", networkKey, err)
		}
	}

	ledChanged, err := syncIndicator(ctx, sel, deps.LEDs, winner.Candidate.Indicator)
	if err != nil {
		return "", err
	}

	dirty = dirty || ledChanged

	restartNeeded := false

	if dirty {
		if err := deps.Store.Commit(ctx, "network"); err != nil {
			return "", fmt.Errorf("commit network config: %w", err)
		}

		logger.Info(ctx, "Configuration committed")

		restartNeeded = true
	}

	// The relay daemon can drift from the configuration on its own, e.g.
	// after a crash or a manual restart, so this check does not depend on
	// the configuration being dirty.
	running, err := deps.Procs.RunningWithArg(sel.RelayCommand, winner.Candidate.Interface)
	if err != nil {
		return "", fmt.Errorf("inspect relay process: %w", err)
	}

	if !running {
		logger.Infof(ctx, "Relay process is not serving %s", winner.Candidate.Interface)

		restartNeeded = true
	}

	if restartNeeded {
		logger.Infof(ctx, "Restarting %s", sel.RelayService)

		if err := deps.Restarter.Restart(ctx, sel.RelayService); err != nil {
			return "", fmt.Errorf("restart relay: %w", err)
		}
	}

	return ResultSelected, nil
}

// probeAll gathers live observations for all four candidates in scan order.
// Probe failures are logged and reported as "not detected" so one flaky
// interface cannot wedge the whole pass.
func probeAll(ctx context.Context, sel *config.SelectorConfig, deps Deps) []uplink.Probe {
	probes := make([]uplink.Probe, 0, len(uplink.ScanOrder()))

	for _, candidate := range Candidates(ctx, sel, deps.Ports) {
		address, ok, err := deps.Addrs.IPv4(candidate.Interface)
		if err != nil {
			logger.WarnKV(ctx, "Address query failed",
				"interface", candidate.Interface, "error", err)
		}

		if !ok || err != nil {
			logger.Infof(ctx, "%s: not detected on %s", candidate.ID, candidate.Interface)

			probes = append(probes, uplink.Probe{Candidate: candidate})

			continue
		}

		logger.Infof(ctx, "%s: detected on %s with %s", candidate.ID, candidate.Interface, address)

		probes = append(probes, uplink.Probe{Candidate: candidate, Address: address})
	}

	return probes
}

// Candidates builds the fixed candidate set from the settings. USB
// indicators are derived from the kernel log at call time; when the port
// lookup comes back empty the candidate simply has no indicator.
func Candidates(ctx context.Context, sel *config.SelectorConfig, ports usbport.Lookup) []uplink.Candidate {
	return []uplink.Candidate{
		{ID: uplink.WanWifi5, Interface: sel.Wifi5Ifname, Indicator: sel.Wifi5LED},
		{ID: uplink.WanWifi2, Interface: sel.Wifi2Ifname, Indicator: sel.Wifi2LED},
		{ID: uplink.WanAndroidUSB, Interface: sel.AndroidIfname, Indicator: usbIndicator(ctx, sel, ports, androidDriverTag)},
		{ID: uplink.WanIphoneUSB, Interface: sel.IphoneIfname, Indicator: usbIndicator(ctx, sel, ports, iphoneDriverTag)},
	}
}

// usbIndicator resolves the LED name for a USB candidate, or "" when the
// driver never registered or the log scan failed.
func usbIndicator(ctx context.Context, sel *config.SelectorConfig, ports usbport.Lookup, driverTag string) string {
	port, ok, err := ports.LastPort(ctx, driverTag)
	if err != nil {
		logger.WarnKV(ctx, "USB port lookup failed", "driver", driverTag, "error", err)

		return ""
	}

	if !ok {
		logger.Debugf(ctx, "No %s registration in the kernel log", driverTag)

		return ""
	}

	return fmt.Sprintf(sel.USBLEDFormat, port)
}

// syncIndicator makes the winner's LED the only lit uplink LED. It reports
// whether anything was written. A winner without an indicator leaves the
// LEDs exactly as they are.
func syncIndicator(ctx context.Context, sel *config.SelectorConfig, controller leds.Controller, indicator string) (bool, error) {
	if indicator == "" {
		logger.Warn(ctx, "Selected uplink has no indicator, leaving LEDs untouched")

		return false, nil
	}

	on, err := controller.IsOn(indicator)
	if err != nil {
		return false, fmt.Errorf("read indicator %s: %w", indicator, err)
	}

	if on {
		return false, nil
	}

	for _, name := range sel.UplinkLEDs {
		if name == indicator {
			continue
		}

		if err := controller.SetOff(name); err != nil {
			return false, fmt.Errorf("turn off indicator %s: %w", name, err)
		}
	}

	if err := controller.SetOn(indicator); err != nil {
		return false, fmt.Errorf("turn on indicator %s: %w", indicator, err)
	}

	logger.Infof(ctx, "Indicator %s is now on", indicator)

	return true, nil
}
