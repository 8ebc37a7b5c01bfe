// Package routing implements the shared distance-vector engine: the
// RoutingTable itself and the split-horizon / poison-reverse rules that
// govern how entries are advertised to and learned from neighbors
// (spec §3, §4.5).
//
// Table is NOT internally synchronized — spec §4.3 requires every
// mutation and every read-before-write to happen inside the single
// shared-state critical section, so a second lock here would be both
// redundant and a deadlock hazard. internal/state owns the mutex that
// guards every Table call.
package routing

import (
	"github.com/AnnsAnns/morganite/internal/addr"
	"github.com/AnnsAnns/morganite/internal/telemetry"
	"github.com/AnnsAnns/morganite/internal/wire"
)

// Unreachable is the sentinel hop count denoting a poisoned route.
const Unreachable int32 = 32

// Entry is the routing table's view of one reachable target.
type Entry struct {
	NextHop  addr.NeighborAddr
	HopCount int32
	Alive    bool
}

// Table maps a target NeighborAddr to the Entry describing how to reach it.
// Invariant: at most one entry per target, and no entry for Local.
type Table struct {
	Local   addr.NeighborAddr
	entries map[addr.NeighborAddr]Entry
}

// New returns an empty table for the given local listener address.
func New(local addr.NeighborAddr) *Table {
	return &Table{Local: local, entries: make(map[addr.NeighborAddr]Entry)}
}

// Get returns the entry for target, if any.
func (t *Table) Get(target addr.NeighborAddr) (Entry, bool) {
	e, ok := t.entries[target]
	return e, ok
}

// set installs or overwrites an entry, refusing a self-route.
func (t *Table) set(target addr.NeighborAddr, e Entry) bool {
	if target == t.Local {
		return false
	}
	t.entries[target] = e
	return true
}

// InsertDirect installs (or refreshes) a one-hop route to target via
// nextHop — the route learned implicitly from a live TCP link (spec
// §4.4, processing a CR; spec §4.7, a successful Connect). On a
// connection this node dialed, target and nextHop are the same address
// (the address we dialed); on an accepted connection, target is the
// peer's advertised listener address (from the CR packet's header) while
// nextHop is this connection's own remote socket identity, which may
// differ (an accepted connection's remote port is ephemeral, not the
// peer's listening port).
func (t *Table) InsertDirect(target, nextHop addr.NeighborAddr) {
	t.set(target, Entry{NextHop: nextHop, HopCount: 1, Alive: true})
}

// MarkAlive flags target's current entry as alive, confirming liveness via
// an SCCR reply (spec §4.4).
func (t *Table) MarkAlive(target addr.NeighborAddr) {
	if e, ok := t.entries[target]; ok {
		e.Alive = true
		t.entries[target] = e
	}
}

// PoisonFromNextHop sets HopCount = Unreachable for every entry whose
// NextHop equals nextHop — run when that connection's per-connection task
// shuts down (spec §4.4 step 2 of shutdown).
func (t *Table) PoisonFromNextHop(nextHop addr.NeighborAddr) {
	for target, e := range t.entries {
		if e.NextHop == nextHop {
			e.HopCount = Unreachable
			t.entries[target] = e
		}
	}
}

// AgeAndResetAlive implements the heartbeat's aging step (spec §4.6 step 3):
// any entry not confirmed alive since the last cycle is poisoned, then every
// entry's Alive flag is cleared ahead of the next SCC wave.
func (t *Table) AgeAndResetAlive() {
	for target, e := range t.entries {
		if !e.Alive {
			e.HopCount = Unreachable
		}
		e.Alive = false
		t.entries[target] = e
	}
}

// PoisonAll sets every entry's hop count to Unreachable — used by Quit
// (spec §4.7) before the final STU wave announces the node is leaving.
func (t *Table) PoisonAll() {
	for target, e := range t.entries {
		e.HopCount = Unreachable
		t.entries[target] = e
	}
}

// Snapshot returns a defensive copy of the table, suitable for handing to
// the UI (Contacts event) after releasing the shared-state lock.
func (t *Table) Snapshot() map[addr.NeighborAddr]Entry {
	out := make(map[addr.NeighborAddr]Entry, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

// AdvertiseTo builds the split-horizon, poison-reverse advertisement sent
// to recipient (spec §4.5 "advertised table to neighbor R"): every entry
// whose target is not recipient and whose next hop is not recipient,
// rewritten so Next is always this node's own listener address.
func (t *Table) AdvertiseTo(recipient addr.NeighborAddr) []wire.WireRoutingEntry {
	out := make([]wire.WireRoutingEntry, 0, len(t.entries))
	for target, e := range t.entries {
		if target == recipient || e.NextHop == recipient {
			continue
		}
		out = append(out, wire.NewWireRoutingEntry(target, t.Local, e.HopCount))
	}
	return out
}

// Apply ingests a received table from advertiser (spec §4.5 "applying a
// received table"). The sentinel 32 passes through unchanged, and any
// other hop count is trusted as-is — the advertiser already included its
// own hop when it built the advertisement.
func (t *Table) Apply(advertiser addr.NeighborAddr, received []wire.WireRoutingEntry, log telemetry.Logger) {
	if log == nil {
		log = telemetry.Nop()
	}
	for _, e := range received {
		target := e.Target()
		if target == t.Local || e.Next() == t.Local {
			log.Debugw("dropping packet with own address as target", "target", target, "advertiser", advertiser)
			continue
		}
		existing, ok := t.entries[target]
		if !ok {
			t.set(target, Entry{NextHop: advertiser, HopCount: e.HopCount, Alive: true})
			continue
		}
		if e.HopCount <= existing.HopCount {
			t.set(target, Entry{NextHop: advertiser, HopCount: e.HopCount, Alive: true})
		}
	}
}
