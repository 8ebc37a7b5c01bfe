package state

import (
	"github.com/AnnsAnns/morganite/internal/addr"
	"github.com/AnnsAnns/morganite/internal/wire"
)

// PeerEvent is the closed set of items a per-connection task's inbox can
// hold (spec §4.4 main loop, source A). These are internal wiring
// between the mediator/heartbeat/other peer tasks and one specific
// per-connection task — not part of the UI-facing events.Event set.
type PeerEvent interface{ isPeerEvent() }

// SendMessage asks the owning task to originate a fresh MESSAGE packet.
type SendMessage struct {
	Payload string
	Dest    addr.NeighborAddr
}

// Forward asks the owning task to relay a packet verbatim (decrementing
// TTL first, if Routed) to its own remote peer.
type Forward struct {
	Packet wire.Packet
}

// SendRouting asks the owning task to build and send a Routing packet of
// the given sub-type toward its own remote peer. EmergencyQuit marks the
// Quit-triggered STU wave that advertises every entry poisoned, instead
// of the table's current state (spec §4.4, "Routing(6=STU) with an
// emergency-quit flag").
type SendRouting struct {
	TypeID        wire.TypeID
	EmergencyQuit bool
}

func (SendMessage) isPeerEvent() {}
func (Forward) isPeerEvent()     {}
func (SendRouting) isPeerEvent() {}
