package node

import (
	"context"
	"fmt"

	"github.com/AnnsAnns/morganite/internal/addr"
	"github.com/AnnsAnns/morganite/internal/events"
	"github.com/AnnsAnns/morganite/internal/ratelimit"
	"github.com/AnnsAnns/morganite/internal/state"
	"github.com/AnnsAnns/morganite/internal/telemetry"
	"github.com/AnnsAnns/morganite/internal/wire"
)

// Mediator dispatches UI commands against SharedState, the same
// resolve-then-dispatch shape as the teacher's Client.Call (parse → look
// up placement → pick a channel → send), generalized from "discover via
// registry, pick via load balancer" to "look up via routing table, pick
// via next hop".
type Mediator struct {
	shared     *state.SharedState
	broadcast  *ratelimit.Limiter
	log        telemetry.Logger
	quitSignal chan struct{}
}

// NewMediator builds a Mediator. broadcastLimiter may be nil to leave
// Broadcast unbounded.
func NewMediator(shared *state.SharedState, broadcastLimiter *ratelimit.Limiter) *Mediator {
	log := shared.Log()
	if log == nil {
		log = telemetry.Nop()
	}
	return &Mediator{
		shared:     shared,
		broadcast:  broadcastLimiter,
		log:        log,
		quitSignal: make(chan struct{}),
	}
}

// Quit closes once a Quit command has been fully processed — cmd/morganite
// waits on it to know when to exit.
func (m *Mediator) Quit() <-chan struct{} { return m.quitSignal }

// Dispatch resolves and executes a single command (spec §4.7).
func (m *Mediator) Dispatch(ctx context.Context, cmd events.Command) {
	switch c := cmd.(type) {
	case events.Connect:
		m.handleConnect(ctx, c)
	case events.SendMessage:
		m.handleSendMessage(c)
	case events.Broadcast:
		m.handleBroadcast(c)
	case events.Contacts:
		m.handleContacts()
	case events.SetOwnNick:
		m.shared.SetNickname(c.Nickname)
	case events.Quit:
		m.handleQuit()
	case events.Help, events.Unknown:
		// UI-local no-ops; the core never acts on these.
	default:
		m.log.Warnw("unhandled command", "type", fmt.Sprintf("%T", cmd))
	}
}

func (m *Mediator) handleConnect(ctx context.Context, c events.Connect) {
	if _, ok := m.shared.PeerInbox(c.Addr); ok {
		m.shared.PushUI(events.LogToTerminal{Line: fmt.Sprintf("already connected to %s", c.Addr.String())})
		return
	}
	task, err := Dial(ctx, c.Addr, m.shared)
	if err != nil {
		m.log.Warnw("connect failed", "addr", c.Addr.String(), "err", err.Error())
		m.shared.PushUI(events.LogToTerminal{Line: fmt.Sprintf("connect to %s failed: %s", c.Addr.String(), err.Error())})
		return
	}
	m.shared.InsertDirectRoute(c.Addr, task.Remote())
}

func (m *Mediator) handleSendMessage(c events.SendMessage) {
	route, ok := m.shared.LookupRoute(c.Dest)
	if !ok {
		m.shared.PushUI(events.LogToTerminal{Line: fmt.Sprintf("no route to %s", c.Dest.String())})
		return
	}
	inbox, ok := m.shared.PeerInbox(route.NextHop)
	if !ok {
		m.shared.PushUI(events.LogToTerminal{Line: fmt.Sprintf("no peer channel for next hop of %s", c.Dest.String())})
		return
	}
	inbox.Push(state.SendMessage{Dest: c.Dest, Payload: c.Text})
}

func (m *Mediator) handleBroadcast(c events.Broadcast) {
	table := m.shared.RouteSnapshot()
	visited := 0
	for target, entry := range table {
		if m.broadcast != nil && !m.broadcast.Allow() {
			m.log.Warnw("broadcast rate exceeded, truncating fan-out", "remaining_targets", len(table)-visited)
			break
		}
		visited++
		inbox, ok := m.shared.PeerInbox(entry.NextHop)
		if !ok {
			continue
		}
		inbox.Push(state.SendMessage{Dest: target, Payload: c.Text})
	}
}

func (m *Mediator) handleContacts() {
	m.shared.PushUI(events.ContactsSnapshot{Table: m.shared.RouteSnapshot()})
}

func (m *Mediator) handleQuit() {
	m.shared.PoisonAll()
	for _, peer := range m.shared.PeerHandles(addr.NeighborAddr{}) {
		peer.Inbox.Push(state.SendRouting{TypeID: wire.TypeSTU, EmergencyQuit: true})
	}
	close(m.quitSignal)
}
