// Package events defines the two closed sets that form the external
// interface between the core and whatever front-end is attached to it
// (spec §6.2, §6.3): Commands flow UI → core, Events flow core → UI.
//
// Both are modeled as small sealed interfaces (a marker method) rather
// than one flat struct with optional fields, the way the teacher keeps
// its wire Packet variants as distinct Go types instead of one bag of
// nullable fields. The unexported marker method means only types in this
// package satisfy the interfaces, so the type switches that dispatch them
// (internal/node's mediator, and the UI's own render loop) switch over a
// fixed set of Go types. Go does not check those switches for
// exhaustiveness: a type with no case falls through to default (the
// mediator logs it as unhandled) or is ignored.
package events

import "github.com/AnnsAnns/morganite/internal/addr"

// Command is the closed set the UI may send to the core (spec §6.2).
type Command interface{ isCommand() }

// Connect asks the core to open a connection to addr, if one doesn't
// already exist as a direct neighbor.
type Connect struct{ Addr addr.NeighborAddr }

// SendMessage asks the core to route text to Dest.
type SendMessage struct {
	Dest addr.NeighborAddr
	Text string
}

// Broadcast asks the core to send text to every entry currently in the
// routing table.
type Broadcast struct{ Text string }

// Contacts asks the core for a routing table snapshot, delivered back as
// a Contacts event.
type Contacts struct{}

// SetOwnNick changes this node's advertised nickname.
type SetOwnNick struct{ Nickname string }

// Quit asks the core to poison every route, announce it, and exit.
type Quit struct{}

// Help is a UI-local no-op — the core never acts on it.
type Help struct{}

// Unknown wraps unparseable input. Like Help, it is a UI-local no-op.
type Unknown struct{ Raw string }

func (Connect) isCommand()     {}
func (SendMessage) isCommand() {}
func (Broadcast) isCommand()   {}
func (Contacts) isCommand()    {}
func (SetOwnNick) isCommand()  {}
func (Quit) isCommand()        {}
func (Help) isCommand()        {}
func (Unknown) isCommand()     {}
