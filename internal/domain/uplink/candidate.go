package uplink

// ID identifies one of the fixed uplink candidates.
type ID string

// The four candidates, in scan order. The scan evaluates all of them on
// every pass; see Decide for how the order affects the winner.
const (
	// WanWifi5 is the 5 GHz Wi-Fi client uplink.
	WanWifi5 ID = "WAN_WIFI_5"
	// WanWifi2 is the 2.4 GHz Wi-Fi client uplink.
	WanWifi2 ID = "WAN_WIFI_2"
	// WanAndroidUSB is the Android USB tethering uplink.
	WanAndroidUSB ID = "WAN_ANDROID_USB"
	// WanIphoneUSB is the iPhone USB tethering uplink.
	WanIphoneUSB ID = "WAN_IPHONE_USB"
)

// ScanOrder returns the fixed candidate evaluation order.
func ScanOrder() []ID {
	return []ID{WanWifi5, WanWifi2, WanAndroidUSB, WanIphoneUSB}
}

// Candidate binds an uplink identity to its network interface and its
// status LED.
type Candidate struct {
	// ID is the stable candidate identifier persisted in the relay network list.
	ID ID
	// Interface is the interface queried for an IPv4 address.
	Interface string
	// Indicator is the LED to light when this candidate wins. For USB
	// candidates it is derived from the physical port number at probe time
	// and is empty when the port lookup found nothing.
	Indicator string
}

// Probe is the live observation for one candidate.
type Probe struct {
	// Candidate is the candidate that was probed.
	Candidate Candidate
	// Address is the IPv4 address assigned to the candidate's interface,
	// empty when the interface has none.
	Address string
}

// Detected reports whether the candidate's interface held an address.
func (p Probe) Detected() bool {
	return p.Address != ""
}
