// Package state implements the single process-wide SharedState structure
// and the critical-section discipline that guards it (spec §3, §4.3):
// the neighbor table (PeerChannel), the routing table, this node's own
// listener address and nickname, and the event sender feeding the UI.
//
// Every exported SharedState method that touches the guarded fields
// takes the lock itself and releases it before returning — callers never
// see the mutex. Methods that hand back data used to drive a subsequent
// network send (PeerHandles, AdvertiseTo) return plain values/slices so
// the caller can release-then-send, never send-while-locked (spec §4.3:
// "Locks must never be held across a suspension point that awaits a
// network operation").
package state

import (
	"sync"

	"github.com/AnnsAnns/morganite/internal/addr"
	"github.com/AnnsAnns/morganite/internal/events"
	"github.com/AnnsAnns/morganite/internal/queue"
	"github.com/AnnsAnns/morganite/internal/routing"
	"github.com/AnnsAnns/morganite/internal/telemetry"
	"github.com/AnnsAnns/morganite/internal/wire"
)

// PeerHandle pairs a neighbor's address with the producer side of its
// per-connection task's inbox.
type PeerHandle struct {
	Addr  addr.NeighborAddr
	Inbox *queue.Unbounded[PeerEvent]
}

// SharedState is the one mutable structure shared across every task.
type SharedState struct {
	mu sync.Mutex

	local    addr.NeighborAddr
	nickname string

	nicknames map[addr.NeighborAddr]string
	peers     map[addr.NeighborAddr]*queue.Unbounded[PeerEvent]
	table     *routing.Table

	ui  *queue.Unbounded[events.Event]
	log telemetry.Logger
}

// New builds an empty SharedState for a node listening at local.
func New(local addr.NeighborAddr, nickname string, ui *queue.Unbounded[events.Event], log telemetry.Logger) *SharedState {
	if log == nil {
		log = telemetry.Nop()
	}
	return &SharedState{
		local:     local,
		nickname:  nickname,
		nicknames: make(map[addr.NeighborAddr]string),
		peers:     make(map[addr.NeighborAddr]*queue.Unbounded[PeerEvent]),
		table:     routing.New(local),
		ui:        ui,
		log:       log,
	}
}

// Local returns this node's own listener address. Immutable, needs no lock.
func (s *SharedState) Local() addr.NeighborAddr { return s.local }

// Log returns the node's telemetry logger.
func (s *SharedState) Log() telemetry.Logger { return s.log }

// PushUI enqueues an event for the UI. The UI's inbox is itself an
// Unbounded queue, so this never blocks and needs no lock on SharedState.
func (s *SharedState) PushUI(ev events.Event) {
	s.ui.Push(ev)
}

// --- nickname -------------------------------------------------------------

// Nickname returns this node's current nickname.
func (s *SharedState) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

// SetNickname updates this node's nickname (command SetOwnNick, spec §4.7).
func (s *SharedState) SetNickname(name string) {
	s.mu.Lock()
	s.nickname = name
	s.mu.Unlock()
}

// RememberNickname caches the nickname a neighbor announced on a Routed
// packet, keyed by its origin address — a display convenience, not part
// of the routing table (SPEC_FULL.md "supplemented features").
func (s *SharedState) RememberNickname(origin addr.NeighborAddr, nickname string) {
	if nickname == "" {
		return
	}
	s.mu.Lock()
	s.nicknames[origin] = nickname
	s.mu.Unlock()
}

// NicknameFor returns the cached nickname for origin, or its address
// string if none has been observed yet.
func (s *SharedState) NicknameFor(origin addr.NeighborAddr) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nicknames[origin]; ok {
		return n
	}
	return origin.String()
}

// --- peer channel -----------------------------------------------------------

// AddPeer installs remote's inbox into the peer table (spec §4.4 init step 1).
func (s *SharedState) AddPeer(remote addr.NeighborAddr, inbox *queue.Unbounded[PeerEvent]) {
	s.mu.Lock()
	s.peers[remote] = inbox
	s.mu.Unlock()
}

// RemovePeer deletes remote's entry (spec §4.4 shutdown step 1).
func (s *SharedState) RemovePeer(remote addr.NeighborAddr) {
	s.mu.Lock()
	delete(s.peers, remote)
	s.mu.Unlock()
}

// PeerInbox looks up a single neighbor's inbox.
func (s *SharedState) PeerInbox(remote addr.NeighborAddr) (*queue.Unbounded[PeerEvent], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inbox, ok := s.peers[remote]
	return inbox, ok
}

// PeerCount reports the number of live per-connection tasks (testable
// property §8.9: len(PeerChannel) == number of live per-connection tasks).
func (s *SharedState) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

// PeerHandles returns a snapshot of every peer's address+inbox, excluding
// exclude if it is non-zero. Collected under the lock, consumed after
// release — the broadcast pattern mandated by spec §4.3.
func (s *SharedState) PeerHandles(exclude addr.NeighborAddr) []PeerHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PeerHandle, 0, len(s.peers))
	for a, inbox := range s.peers {
		if a == exclude {
			continue
		}
		out = append(out, PeerHandle{Addr: a, Inbox: inbox})
	}
	return out
}

// --- routing table -----------------------------------------------------------

// InsertDirectRoute installs a one-hop route to target via nextHop (spec
// §4.4 processing CR, and §4.7 a successful Connect). See routing.Table's
// InsertDirect for why target and nextHop can differ.
func (s *SharedState) InsertDirectRoute(target, nextHop addr.NeighborAddr) {
	s.mu.Lock()
	s.table.InsertDirect(target, nextHop)
	s.mu.Unlock()
}

// MarkRouteAlive flags target's entry alive (spec §4.4, processing SCCR).
func (s *SharedState) MarkRouteAlive(target addr.NeighborAddr) {
	s.mu.Lock()
	s.table.MarkAlive(target)
	s.mu.Unlock()
}

// PoisonFromNextHop poisons every entry routed through nextHop (spec §4.4
// shutdown step 2).
func (s *SharedState) PoisonFromNextHop(nextHop addr.NeighborAddr) {
	s.mu.Lock()
	s.table.PoisonFromNextHop(nextHop)
	s.mu.Unlock()
}

// AgeAndResetAlive runs the heartbeat's aging step (spec §4.6 step 3).
func (s *SharedState) AgeAndResetAlive() {
	s.mu.Lock()
	s.table.AgeAndResetAlive()
	s.mu.Unlock()
}

// PoisonAll poisons every entry (spec §4.7, Quit).
func (s *SharedState) PoisonAll() {
	s.mu.Lock()
	s.table.PoisonAll()
	s.mu.Unlock()
}

// LookupRoute returns the routing entry for target, if any.
func (s *SharedState) LookupRoute(target addr.NeighborAddr) (routing.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Get(target)
}

// RouteSnapshot returns a defensive copy of the whole table (command
// Contacts, spec §4.7).
func (s *SharedState) RouteSnapshot() map[addr.NeighborAddr]routing.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Snapshot()
}

// AdvertiseTo builds the split-horizon advertisement for recipient.
func (s *SharedState) AdvertiseTo(recipient addr.NeighborAddr) []wire.WireRoutingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.AdvertiseTo(recipient)
}

// PoisonedAdvertisement builds the "advertise all entries as unreachable"
// table used by the Quit-triggered emergency STU (spec §4.4).
func (s *SharedState) PoisonedAdvertisement() []wire.WireRoutingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.table.Snapshot()
	out := make([]wire.WireRoutingEntry, 0, len(snap))
	for target := range snap {
		out = append(out, wire.NewWireRoutingEntry(target, s.local, routing.Unreachable))
	}
	return out
}

// ApplyRoutingUpdate ingests a received table from advertiser (spec §4.5).
func (s *SharedState) ApplyRoutingUpdate(advertiser addr.NeighborAddr, received []wire.WireRoutingEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table.Apply(advertiser, received, s.log)
}
