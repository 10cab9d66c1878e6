package uplink

// State mirrors the persisted relay configuration read at the start of a run.
type State struct {
	// IPAddr is the relay-facing address currently committed.
	IPAddr string
	// Network is the committed relay network list: the LAN network name
	// followed by the selected uplink ID.
	Network []string
}

// SelectedID returns the uplink ID recorded in the network list, if any.
func (s State) SelectedID() (ID, bool) {
	if len(s.Network) < 2 {
		return "", false
	}

	return ID(s.Network[1]), true
}

// Outcome is the staged result of one decision pass. Nothing in it has been
// committed; callers apply the staged fields and side effects.
type Outcome struct {
	// Selected is the winning probe, nil when no candidate was detected.
	Selected *Probe
	// IPAddr is the staged relay address; meaningful only when IPAddrChanged.
	IPAddr string
	// IPAddrChanged reports that the address differs from the persisted one.
	IPAddrChanged bool
	// Network is the staged network list; meaningful only when NetworkChanged.
	Network []string
	// NetworkChanged reports that the selected uplink differs from the
	// persisted one.
	NetworkChanged bool
}

// Dirty reports whether any configuration field was staged.
func (o *Outcome) Dirty() bool {
	return o.IPAddrChanged || o.NetworkChanged
}

// Decide evaluates every probe in the given order and diffs the winner
// against the persisted state.
//
// All probes are evaluated unconditionally: each detected candidate
// overwrites the provisional winner, so the last detected candidate in the
// list wins, not the first. Callers pass probes in ScanOrder and depend on
// this exact behavior; do not convert to first-match.
func Decide(prev State, lanNetwork string, probes []Probe) Outcome {
	var out Outcome

	for i := range probes {
		if probes[i].Detected() {
			out.Selected = &probes[i]
		}
	}

	if out.Selected == nil {
		return out
	}

	if out.Selected.Address != prev.IPAddr {
		out.IPAddr = out.Selected.Address
		out.IPAddrChanged = true
	}

	prevID, _ := prev.SelectedID()
	if out.Selected.Candidate.ID != prevID {
		out.Network = []string{lanNetwork, string(out.Selected.Candidate.ID)}
		out.NetworkChanged = true
	}

	return out
}
