package netif

import (
	"errors"
	"fmt"

	"github.com/vishvananda/netlink"
)

// AddrSource answers point-in-time IPv4 address queries for named interfaces.
type AddrSource interface {
	// IPv4 returns the first IPv4 address assigned to the interface.
	// A missing interface or an interface without an address reports
	// ok=false without error.
	IPv4(ifname string) (addr string, ok bool, err error)
}

// NetlinkSource reads the kernel interface table via netlink. It is the
// production AddrSource; tests substitute a fake.
type NetlinkSource struct{}

// NewNetlinkSource returns an AddrSource backed by netlink.
func NewNetlinkSource() *NetlinkSource {
	return &NetlinkSource{}
}

// IPv4 looks up the interface and returns its first IPv4 address.
func (s *NetlinkSource) IPv4(ifname string) (string, bool, error) {
	link, err := netlink.LinkByName(ifname)
	if err != nil {
		// Tether interfaces come and go with the cable; absent is a
		// normal probe result, not a failure.
		var notFound netlink.LinkNotFoundError
		if errors.As(err, &notFound) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("link %s: %w", ifname, err)
	}

	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return "", false, fmt.Errorf("addresses of %s: %w", ifname, err)
	}

	if len(addrs) == 0 || addrs[0].IPNet == nil || addrs[0].IP == nil {
		return "", false, nil
	}

	return addrs[0].IP.String(), true, nil
}
