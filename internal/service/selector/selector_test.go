package selector

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetherwrt/tetherwrt/internal/config"
	"github.com/tetherwrt/tetherwrt/internal/domain/uplink"
	"github.com/tetherwrt/tetherwrt/internal/lockfile"
)

// fakeStore is an in-memory uci.Store that counts staged sets and commits.
type fakeStore struct {
	values    map[string]string
	staged    map[string]string
	commits   int
	commitErr error
}

func newFakeStore(values map[string]string) *fakeStore {
	if values == nil {
		values = make(map[string]string)
	}

	return &fakeStore{values: values, staged: make(map[string]string)}
}

func (s *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := s.staged[key]; ok {
		return v, nil
	}

	return s.values[key], nil
}

func (s *fakeStore) Set(_ context.Context, key, value string) error {
	s.staged[key] = value
	return nil
}

func (s *fakeStore) Commit(_ context.Context, _ string) error {
	if s.commitErr != nil {
		return s.commitErr
	}

	for k, v := range s.staged {
		s.values[k] = v
	}

	s.staged = make(map[string]string)
	s.commits++

	return nil
}

// fakeAddrs maps interface names to their assigned address.
type fakeAddrs map[string]string

func (a fakeAddrs) IPv4(ifname string) (string, bool, error) {
	addr, ok := a[ifname]
	return addr, ok && addr != "", nil
}

// fakeLEDs tracks LED states and the number of writes performed.
type fakeLEDs struct {
	state  map[string]bool
	writes int
}

func newFakeLEDs(on ...string) *fakeLEDs {
	l := &fakeLEDs{state: make(map[string]bool)}
	for _, name := range on {
		l.state[name] = true
	}

	return l
}

func (l *fakeLEDs) IsOn(name string) (bool, error) { return l.state[name], nil }

func (l *fakeLEDs) SetOn(name string) error {
	l.state[name] = true
	l.writes++
	return nil
}

func (l *fakeLEDs) SetOff(name string) error {
	l.state[name] = false
	l.writes++
	return nil
}

// onLEDs returns the names of all currently lit LEDs.
func (l *fakeLEDs) onLEDs() []string {
	var names []string

	for name, on := range l.state {
		if on {
			names = append(names, name)
		}
	}

	return names
}

// fakePorts maps driver tags to USB port numbers.
type fakePorts map[string]int

func (p fakePorts) LastPort(_ context.Context, driverTag string) (int, bool, error) {
	port, ok := p[driverTag]
	return port, ok, nil
}

// fakeProcs reports the relay as running with the configured argument.
type fakeProcs struct {
	executable string
	arg        string
}

func (p *fakeProcs) RunningWithArg(executable, arg string) (bool, error) {
	return executable == p.executable && arg == p.arg, nil
}

// fakeRestarter records restart calls.
type fakeRestarter struct {
	restarts []string
}

func (r *fakeRestarter) Restart(_ context.Context, service string) error {
	r.restarts = append(r.restarts, service)
	return nil
}

// testSelectorConfig returns the default selector settings.
func testSelectorConfig(t *testing.T) *config.SelectorConfig {
	t.Helper()

	cfg := new(config.Config)
	require.NoError(t, config.Validate(cfg))

	return &cfg.Selector
}

// testDeps builds a Deps with sane fakes; callers override fields as needed.
func testDeps(store *fakeStore, addrs fakeAddrs) (Deps, *fakeLEDs, *fakeRestarter) {
	ledState := newFakeLEDs()
	restarter := &fakeRestarter{}

	deps := Deps{
		Store:     store,
		Addrs:     addrs,
		LEDs:      ledState,
		Ports:     fakePorts{"rndis_host": 1, "ipheth": 2},
		Procs:     &fakeProcs{},
		Restarter: restarter,
	}

	return deps, ledState, restarter
}

// TestSelect_SwitchScenario reproduces the documented switch: the 2.4 GHz
// uplink drops, the 5 GHz uplink appears with a new address; both keys are
// staged and committed, LEDs flip, the relay restarts.
func TestSelect_SwitchScenario(t *testing.T) {
	t.Parallel()

	sel := testSelectorConfig(t)
	store := newFakeStore(map[string]string{
		"network.lan.ipaddr":  "10.0.0.5",
		"network.lan.network": "lan WAN_WIFI_2",
	})
	deps, ledState, restarter := testDeps(store, fakeAddrs{"wlan0": "10.0.0.9"})
	ledState.state["green:wlan2g"] = true

	result, err := Select(context.Background(), sel, deps)
	require.NoError(t, err)
	require.Equal(t, ResultSelected, result)

	require.Equal(t, "10.0.0.9", store.values["network.lan.ipaddr"])
	require.Equal(t, "lan WAN_WIFI_5", store.values["network.lan.network"])
	require.Equal(t, 1, store.commits)
	require.ElementsMatch(t, []string{"green:wlan5g"}, ledState.onLEDs())
	require.Equal(t, []string{"relayd"}, restarter.restarts)
}

// TestSelect_Idempotent verifies the second run after a switch performs no
// writes, no commit and no restart.
func TestSelect_Idempotent(t *testing.T) {
	t.Parallel()

	sel := testSelectorConfig(t)
	store := newFakeStore(nil)
	deps, ledState, restarter := testDeps(store, fakeAddrs{"wlan0": "10.0.0.9"})
	deps.Procs = &fakeProcs{executable: "relayd", arg: "wlan0"}

	result, err := Select(context.Background(), sel, deps)
	require.NoError(t, err)
	require.Equal(t, ResultSelected, result)
	require.Equal(t, 1, store.commits)
	require.Equal(t, []string{"relayd"}, restarter.restarts)

	writesAfterFirst := ledState.writes

	result, err = Select(context.Background(), sel, deps)
	require.NoError(t, err)
	require.Equal(t, ResultSelected, result)

	require.Equal(t, 1, store.commits, "second run must not commit")
	require.Empty(t, store.staged)
	require.Equal(t, writesAfterFirst, ledState.writes, "second run must not touch LEDs")
	require.Len(t, restarter.restarts, 1, "second run must not restart")
}

// TestSelect_LastMatchWins verifies that with both the 5 GHz Wi-Fi and the
// Android USB interfaces holding addresses, the USB candidate wins because
// it is checked later.
func TestSelect_LastMatchWins(t *testing.T) {
	t.Parallel()

	sel := testSelectorConfig(t)
	store := newFakeStore(nil)
	deps, ledState, _ := testDeps(store, fakeAddrs{
		"wlan0": "10.0.0.9",
		"usb0":  "192.168.42.2",
	})

	result, err := Select(context.Background(), sel, deps)
	require.NoError(t, err)
	require.Equal(t, ResultSelected, result)

	require.Equal(t, "192.168.42.2", store.values["network.lan.ipaddr"])
	require.Equal(t, "lan "+string(uplink.WanAndroidUSB), store.values["network.lan.network"])
	require.ElementsMatch(t, []string{"green:usb1"}, ledState.onLEDs())
}

// TestSelect_NoUplink verifies the explicit no-uplink outcome with zero
// side effects.
func TestSelect_NoUplink(t *testing.T) {
	t.Parallel()

	sel := testSelectorConfig(t)
	store := newFakeStore(map[string]string{
		"network.lan.ipaddr":  "10.0.0.5",
		"network.lan.network": "lan WAN_WIFI_2",
	})
	deps, ledState, restarter := testDeps(store, fakeAddrs{})

	result, err := Select(context.Background(), sel, deps)
	require.NoError(t, err)
	require.Equal(t, ResultNoUplink, result)

	require.Equal(t, "10.0.0.5", store.values["network.lan.ipaddr"])
	require.Equal(t, "lan WAN_WIFI_2", store.values["network.lan.network"])
	require.Zero(t, store.commits)
	require.Empty(t, store.staged)
	require.Zero(t, ledState.writes)
	require.Empty(t, restarter.restarts)
}

// TestSelect_AddressChangeOnly verifies only the address key is staged when
// the uplink identity is unchanged.
func TestSelect_AddressChangeOnly(t *testing.T) {
	t.Parallel()

	sel := testSelectorConfig(t)
	store := newFakeStore(map[string]string{
		"network.lan.ipaddr":  "10.0.0.5",
		"network.lan.network": "lan WAN_WIFI_5",
	})
	deps, _, _ := testDeps(store, fakeAddrs{"wlan0": "10.0.0.9"})
	deps.LEDs = newFakeLEDs("green:wlan5g")

	_, err := Select(context.Background(), sel, deps)
	require.NoError(t, err)

	require.Equal(t, "10.0.0.9", store.values["network.lan.ipaddr"])
	require.Equal(t, "lan WAN_WIFI_5", store.values["network.lan.network"])
	require.Equal(t, 1, store.commits)
}

// TestSelect_IdentifierChangeOnly verifies only the network key is staged
// when a different uplink reports the same address.
func TestSelect_IdentifierChangeOnly(t *testing.T) {
	t.Parallel()

	sel := testSelectorConfig(t)
	store := newFakeStore(map[string]string{
		"network.lan.ipaddr":  "10.0.0.5",
		"network.lan.network": "lan WAN_WIFI_2",
	})
	deps, _, _ := testDeps(store, fakeAddrs{"wlan0": "10.0.0.5"})

	_, err := Select(context.Background(), sel, deps)
	require.NoError(t, err)

	require.Equal(t, "10.0.0.5", store.values["network.lan.ipaddr"])
	require.Equal(t, "lan WAN_WIFI_5", store.values["network.lan.network"])
	require.Equal(t, 1, store.commits)
}

// TestSelect_RestartOnStaleProcess verifies a restart fires on a stale relay
// argument even though the configuration is clean.
func TestSelect_RestartOnStaleProcess(t *testing.T) {
	t.Parallel()

	sel := testSelectorConfig(t)
	store := newFakeStore(map[string]string{
		"network.lan.ipaddr":  "10.0.0.9",
		"network.lan.network": "lan WAN_WIFI_5",
	})
	deps, _, restarter := testDeps(store, fakeAddrs{"wlan0": "10.0.0.9"})
	deps.LEDs = newFakeLEDs("green:wlan5g")
	deps.Procs = &fakeProcs{executable: "relayd", arg: "wlan1"}

	_, err := Select(context.Background(), sel, deps)
	require.NoError(t, err)

	require.Zero(t, store.commits, "clean configuration must not commit")
	require.Equal(t, []string{"relayd"}, restarter.restarts)
}

// TestSelect_USBWithoutPort verifies a USB winner whose port lookup failed
// proceeds without touching any LED.
func TestSelect_USBWithoutPort(t *testing.T) {
	t.Parallel()

	sel := testSelectorConfig(t)
	store := newFakeStore(nil)
	deps, ledState, restarter := testDeps(store, fakeAddrs{"eth2": "172.20.10.2"})
	deps.Ports = fakePorts{}

	result, err := Select(context.Background(), sel, deps)
	require.NoError(t, err)
	require.Equal(t, ResultSelected, result)

	require.Equal(t, "172.20.10.2", store.values["network.lan.ipaddr"])
	require.Equal(t, "lan "+string(uplink.WanIphoneUSB), store.values["network.lan.network"])
	require.Zero(t, ledState.writes)
	require.NotEmpty(t, restarter.restarts)
}

// TestSelect_CommitFailure verifies a failing commit aborts the run before
// any restart.
func TestSelect_CommitFailure(t *testing.T) {
	t.Parallel()

	sel := testSelectorConfig(t)
	store := newFakeStore(nil)
	store.commitErr = errors.New("uci: I/O error")
	deps, _, restarter := testDeps(store, fakeAddrs{"wlan0": "10.0.0.9"})

	_, err := Select(context.Background(), sel, deps)
	require.Error(t, err)
	require.Empty(t, restarter.restarts)
}

// TestErrLocked pins the sentinel identity used for the distinct exit code.
func TestErrLocked(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, ErrLocked, lockfile.ErrLocked)
}
