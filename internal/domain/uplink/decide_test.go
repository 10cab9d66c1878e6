package uplink

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testProbes returns the four candidates in scan order with the given
// addresses (empty string means not detected).
func testProbes(wifi5, wifi2, android, iphone string) []Probe {
	return []Probe{
		{Candidate: Candidate{ID: WanWifi5, Interface: "wlan0", Indicator: "green:wlan5g"}, Address: wifi5},
		{Candidate: Candidate{ID: WanWifi2, Interface: "wlan1", Indicator: "green:wlan2g"}, Address: wifi2},
		{Candidate: Candidate{ID: WanAndroidUSB, Interface: "usb0", Indicator: "green:usb1"}, Address: android},
		{Candidate: Candidate{ID: WanIphoneUSB, Interface: "eth2", Indicator: "green:usb2"}, Address: iphone},
	}
}

// TestDecide_LastMatchWins verifies that a later detected candidate replaces
// an earlier one even though both hold addresses.
func TestDecide_LastMatchWins(t *testing.T) {
	t.Parallel()

	out := Decide(State{}, "lan", testProbes("10.0.0.9", "", "192.168.42.2", ""))

	require.NotNil(t, out.Selected)
	require.Equal(t, WanAndroidUSB, out.Selected.Candidate.ID)
	require.Equal(t, "192.168.42.2", out.Selected.Address)
}

// TestDecide_NoneDetected verifies that an all-empty probe set yields no
// selection and stages nothing.
func TestDecide_NoneDetected(t *testing.T) {
	t.Parallel()

	out := Decide(
		State{IPAddr: "10.0.0.5", Network: []string{"lan", string(WanWifi2)}},
		"lan",
		testProbes("", "", "", ""),
	)

	require.Nil(t, out.Selected)
	require.False(t, out.Dirty())
}

// TestDecide_AddressChangeOnly verifies that only the address field is staged
// when the same uplink reappears with a new address.
func TestDecide_AddressChangeOnly(t *testing.T) {
	t.Parallel()

	prev := State{IPAddr: "10.0.0.5", Network: []string{"lan", string(WanWifi5)}}
	out := Decide(prev, "lan", testProbes("10.0.0.9", "", "", ""))

	require.True(t, out.IPAddrChanged)
	require.Equal(t, "10.0.0.9", out.IPAddr)
	require.False(t, out.NetworkChanged)
	require.True(t, out.Dirty())
}

// TestDecide_NetworkChangeOnly verifies that only the network list is staged
// when a different uplink reports the same address.
func TestDecide_NetworkChangeOnly(t *testing.T) {
	t.Parallel()

	prev := State{IPAddr: "10.0.0.5", Network: []string{"lan", string(WanWifi2)}}
	out := Decide(prev, "lan", testProbes("10.0.0.5", "", "", ""))

	require.False(t, out.IPAddrChanged)
	require.True(t, out.NetworkChanged)
	require.Equal(t, []string{"lan", string(WanWifi5)}, out.Network)
	require.True(t, out.Dirty())
}

// TestDecide_SteadyState verifies that a matching prior state stages nothing.
func TestDecide_SteadyState(t *testing.T) {
	t.Parallel()

	prev := State{IPAddr: "10.0.0.5", Network: []string{"lan", string(WanWifi5)}}
	out := Decide(prev, "lan", testProbes("10.0.0.5", "", "", ""))

	require.NotNil(t, out.Selected)
	require.False(t, out.Dirty())
}

// TestDecide_SwitchUplink reproduces the scenario of the 2.4 GHz uplink
// dropping while the 5 GHz uplink comes up: both fields are staged.
func TestDecide_SwitchUplink(t *testing.T) {
	t.Parallel()

	prev := State{IPAddr: "10.0.0.5", Network: []string{"lan", string(WanWifi2)}}
	out := Decide(prev, "lan", testProbes("10.0.0.9", "", "", ""))

	require.Equal(t, WanWifi5, out.Selected.Candidate.ID)
	require.True(t, out.IPAddrChanged)
	require.Equal(t, "10.0.0.9", out.IPAddr)
	require.True(t, out.NetworkChanged)
	require.Equal(t, []string{"lan", string(WanWifi5)}, out.Network)
}

// TestState_SelectedID covers the empty, short and populated network lists.
func TestState_SelectedID(t *testing.T) {
	t.Parallel()

	_, ok := State{}.SelectedID()
	require.False(t, ok)

	_, ok = State{Network: []string{"lan"}}.SelectedID()
	require.False(t, ok)

	id, ok := State{Network: []string{"lan", string(WanIphoneUSB)}}.SelectedID()
	require.True(t, ok)
	require.Equal(t, WanIphoneUSB, id)
}

// TestScanOrder pins the fixed evaluation order.
func TestScanOrder(t *testing.T) {
	t.Parallel()

	require.Equal(t, []ID{WanWifi5, WanWifi2, WanAndroidUSB, WanIphoneUSB}, ScanOrder())
}
