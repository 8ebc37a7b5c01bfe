package events

import (
	"github.com/AnnsAnns/morganite/internal/addr"
	"github.com/AnnsAnns/morganite/internal/routing"
)

// Event is the closed set the core emits toward the UI (spec §6.3).
type Event interface{ isEvent() }

// Join announces that a neighbor's per-connection task has started.
// Nickname is the neighbor's best-known display name — its cached
// nickname if one has been observed, its address string otherwise.
type Join struct {
	Addr     addr.NeighborAddr
	Nickname string
}

// Leave announces that a neighbor's per-connection task has exited.
type Leave struct {
	Addr     addr.NeighborAddr
	Nickname string
}

// MessageToTUI surfaces an application message addressed to this node.
type MessageToTUI struct {
	Text     string
	Nickname string
	From     addr.NeighborAddr
}

// ContactsSnapshot carries a point-in-time copy of the routing table,
// taken under the shared-state lock and handed over after release.
type ContactsSnapshot struct {
	Table map[addr.NeighborAddr]routing.Entry
}

// LogToTerminal is a free-form diagnostic line for display, distinct
// from the node's own structured telemetry log (internal/telemetry).
type LogToTerminal struct{ Line string }

func (Join) isEvent()             {}
func (Leave) isEvent()            {}
func (MessageToTUI) isEvent()     {}
func (ContactsSnapshot) isEvent() {}
func (LogToTerminal) isEvent()    {}
