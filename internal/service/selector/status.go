package selector

import (
	"context"
	"fmt"
	"io"

	"github.com/tetherwrt/tetherwrt/internal/config"
	"github.com/tetherwrt/tetherwrt/internal/initd"
	"github.com/tetherwrt/tetherwrt/internal/leds"
	"github.com/tetherwrt/tetherwrt/internal/logger"
	"github.com/tetherwrt/tetherwrt/internal/netif"
	"github.com/tetherwrt/tetherwrt/internal/procs"
	"github.com/tetherwrt/tetherwrt/internal/uci"
	"github.com/tetherwrt/tetherwrt/internal/usbport"
)

// RunStatus is the entry point behind the relay-status binary. It reads the
// same surfaces as a selection pass but changes nothing.
func RunStatus(ctx context.Context, opts *Options, out io.Writer) error {
	ctx = logger.WithName(ctx, "relay-status")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	deps := Deps{
		Store:     uci.NewExecStore(),
		Addrs:     netif.NewNetlinkSource(),
		LEDs:      leds.NewSysfsController(""),
		Ports:     usbport.NewDmesgLookup(),
		Procs:     procs.NewTableInspector(""),
		Restarter: initd.NewScriptRestarter(""),
	}

	return Report(ctx, &cfg.Selector, deps, out)
}

// Report prints the persisted relay configuration, the live probe result
// for every candidate, and the indicator states.
func Report(ctx context.Context, sel *config.SelectorConfig, deps Deps, out io.Writer) error {
	ipaddrKey := fmt.Sprintf("network.%s.ipaddr", sel.LANNetwork)
	networkKey := fmt.Sprintf("network.%s.network", sel.LANNetwork)

	ipaddr, err := deps.Store.Get(ctx, ipaddrKey)
	if err != nil {
		return fmt.Errorf("read %s: %w", ipaddrKey, err)
	}

	network, err := deps.Store.Get(ctx, networkKey)
	if err != nil {
		return fmt.Errorf("read %s: %w", networkKey, err)
	}

	fmt.Fprintf(out, "relay address:  %s\n", orDash(ipaddr))
	fmt.Fprintf(out, "relay network:  %s\n\n", orDash(network))

	for _, candidate := range Candidates(ctx, sel, deps.Ports) {
		address, ok, err := deps.Addrs.IPv4(candidate.Interface)
		if err != nil {
			return fmt.Errorf("query %s: %w", candidate.Interface, err)
		}

		state := "not detected"
		if ok {
			state = address
		}

		indicator := orDash(candidate.Indicator)
		if candidate.Indicator != "" {
			on, err := deps.LEDs.IsOn(candidate.Indicator)
			if err != nil {
				return fmt.Errorf("read indicator %s: %w", candidate.Indicator, err)
			}

			if on {
				indicator += " (on)"
			} else {
				indicator += " (off)"
			}
		}

		fmt.Fprintf(out, "%-16s %-8s %-16s %s\n",
			candidate.ID, candidate.Interface, state, indicator)
	}

	return nil
}

// orDash substitutes a dash for empty values in the report.
func orDash(value string) string {
	if value == "" {
		return "-"
	}

	return value
}
