// Package peerconn implements the per-connection protocol state machine
// (spec §4.4): one task per open TCP connection, racing "packet arrived
// from the wire" against "event handed to me by another task" against
// "the socket closed".
//
// Grounded in the teacher's server.handleConn/transport.recvLoop split
// (github.com/AnnsAnns/morganite teacher BX-D-mini-RPC: one goroutine
// owns sequential frame reads because TCP is a byte stream that must be
// parsed in order) generalized from "read loop feeding synchronous
// response writers" to a three-way select between a read-pump channel,
// this task's own inbox doorbell, and a read-error channel.
package peerconn

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/AnnsAnns/morganite/internal/addr"
	"github.com/AnnsAnns/morganite/internal/events"
	"github.com/AnnsAnns/morganite/internal/queue"
	"github.com/AnnsAnns/morganite/internal/state"
	"github.com/AnnsAnns/morganite/internal/telemetry"
	"github.com/AnnsAnns/morganite/internal/wire"
)

// defaultTTL is the hop budget stamped on every packet this node
// originates (spec §4.4: "send Routed{... ttl=16 ...}").
const defaultTTL = 16

// ErrProtocolViolation marks a received combination that is well-formed
// at the framing level but invalid at the protocol level (spec §7).
var ErrProtocolViolation = errors.New("peerconn: protocol violation")

// Task owns one TCP connection end to end: decode, dispatch, and reply
// to inbound packets; translate inbox events into outbound packets;
// register and deregister itself in SharedState's peer table.
type Task struct {
	conn   net.Conn
	remote addr.NeighborAddr
	local  addr.NeighborAddr
	sendCR bool

	inbox  *queue.Unbounded[state.PeerEvent]
	shared *state.SharedState
	log    telemetry.Logger
}

// New builds a Task for an already-established connection. sendCR is
// true iff this side initiated the TCP connection (spec §4.4).
func New(conn net.Conn, remote addr.NeighborAddr, shared *state.SharedState, sendCR bool) *Task {
	log := shared.Log()
	if log == nil {
		log = telemetry.Nop()
	}
	return &Task{
		conn:   conn,
		remote: remote,
		local:  shared.Local(),
		sendCR: sendCR,
		inbox:  queue.NewUnbounded[state.PeerEvent](),
		shared: shared,
		log:    log,
	}
}

// Inbox exposes the producer side of this task's queue. Run itself
// installs this queue into SharedState's peer table when it starts.
func (t *Task) Inbox() *queue.Unbounded[state.PeerEvent] { return t.inbox }

// Remote returns the connection's peer address (this task's identity).
func (t *Task) Remote() addr.NeighborAddr { return t.remote }

// Run drives the task to completion. It blocks until the connection
// closes (either direction) or a fatal protocol error occurs, then runs
// the shutdown sequence before returning.
func (t *Task) Run() {
	defer t.conn.Close()

	t.shared.AddPeer(t.remote, t.inbox)
	t.shared.PushUI(events.Join{Addr: t.remote, Nickname: t.shared.NicknameFor(t.remote)})
	defer t.shutdown()

	if t.sendCR {
		t.inbox.Push(state.SendRouting{TypeID: wire.TypeCR})
	}

	packets := make(chan wire.Packet, 16)
	readErrs := make(chan error, 1)
	go t.readPump(packets, readErrs)

	for {
		select {
		case pkt := <-packets:
			if err := t.handlePacket(pkt); err != nil {
				t.log.Warnw("closing connection after protocol error", "remote", t.remote.String(), "err", err.Error())
				return
			}
		case err := <-readErrs:
			if err != nil && !errors.Is(err, io.EOF) {
				t.log.Infow("connection read failed", "remote", t.remote.String(), "err", err.Error())
			}
			return
		case <-t.inbox.Wait():
			for {
				ev, ok := t.inbox.TryPop()
				if !ok {
					break
				}
				if err := t.handleInboxEvent(ev); err != nil {
					t.log.Warnw("failed to write outbound frame", "remote", t.remote.String(), "err", err.Error())
					return
				}
			}
		}
	}
}

func (t *Task) shutdown() {
	t.shared.RemovePeer(t.remote)
	t.shared.PoisonFromNextHop(t.remote)
	t.shared.PushUI(events.Leave{Addr: t.remote, Nickname: t.shared.NicknameFor(t.remote)})
}

// readPump owns the codec and the socket's read half. TCP is a byte
// stream, so decoding must stay single-threaded per connection — this is
// the one goroutine that does it, forwarding fully decoded packets to
// the select loop in Run.
func (t *Task) readPump(packets chan<- wire.Packet, errs chan<- error) {
	codec := wire.NewCodec()
	buf := make([]byte, 4096)
	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			if ferr := codec.Feed(buf[:n]); ferr != nil {
				errs <- ferr
				return
			}
			for {
				pkt, ok, derr := codec.Next()
				if derr != nil {
					errs <- derr
					return
				}
				if !ok {
					break
				}
				packets <- pkt
			}
		}
		if err != nil {
			errs <- err
			return
		}
	}
}

func (t *Task) send(pkt wire.Packet) error {
	return wire.EncodeTo(t.conn, pkt)
}

// buildRoutingPacket builds an outbound Routing packet of typeID, bound
// for this task's own remote peer, carrying the advertised table unless
// typeID is a pure probe (spec §4.4 event A).
func (t *Task) buildRoutingPacket(typeID wire.TypeID) wire.Packet {
	var table []wire.WireRoutingEntry
	if typeID != wire.TypeSCC {
		table = t.shared.AdvertiseTo(t.remote)
	}
	header := wire.NewSharedHeader(t.local, t.remote, defaultTTL)
	return wire.NewRoutingPacket(typeID, header, table)
}

// --- inbox (event) side: spec §4.4 main loop, source A ---------------------

func (t *Task) handleInboxEvent(ev state.PeerEvent) error {
	switch e := ev.(type) {
	case state.SendMessage:
		header := wire.NewSharedHeader(t.local, e.Dest, defaultTTL)
		return t.send(wire.NewRoutedPacket(header, t.shared.Nickname(), e.Payload))

	case state.Forward:
		pkt := e.Packet
		if pkt.TypeID == wire.TypeMessage {
			h := pkt.Header()
			if h.TTL == 0 {
				return nil
			}
			h.TTL--
			if h.TTL == 0 {
				return nil
			}
			pkt = pkt.WithHeader(h)
		}
		return t.send(pkt)

	case state.SendRouting:
		if e.EmergencyQuit {
			header := wire.NewSharedHeader(t.local, t.remote, defaultTTL)
			return t.send(wire.NewRoutingPacket(e.TypeID, header, t.shared.PoisonedAdvertisement()))
		}
		return t.send(t.buildRoutingPacket(e.TypeID))

	default:
		return fmt.Errorf("peerconn: unhandled inbox event %T", ev)
	}
}

// --- wire (packet) side: spec §4.4 main loop, source B ----------------------

func (t *Task) handlePacket(pkt wire.Packet) error {
	switch pkt.TypeID {
	case wire.TypeMessage:
		return t.handleRouted(pkt.Routed)
	case wire.TypeCR:
		return t.handleCR(pkt.Routing)
	case wire.TypeCRR:
		t.shared.ApplyRoutingUpdate(t.remote, pkt.Routing.Table)
		return nil
	case wire.TypeSTU:
		t.shared.ApplyRoutingUpdate(t.remote, pkt.Routing.Table)
		return t.send(t.buildRoutingPacket(wire.TypeCRR))
	case wire.TypeSCC:
		return t.send(t.buildRoutingPacket(wire.TypeSCCR))
	case wire.TypeSCCR:
		t.shared.MarkRouteAlive(pkt.Routing.Header.Source())
		return nil
	default:
		return fmt.Errorf("%w: unexpected type_id %d", ErrProtocolViolation, pkt.TypeID)
	}
}

func (t *Task) handleRouted(rp *wire.RoutedPacket) error {
	origin := rp.Header.Source()
	t.shared.RememberNickname(origin, rp.Nickname)

	dest := rp.Header.Dest()
	if dest == t.local {
		nickname := rp.Nickname
		if nickname == "" {
			nickname = t.shared.NicknameFor(origin)
		}
		t.shared.PushUI(events.MessageToTUI{
			Text:     rp.Message,
			Nickname: nickname,
			From:     t.remote,
		})
		return nil
	}

	if rp.Header.TTL == 0 {
		return nil
	}

	route, ok := t.shared.LookupRoute(dest)
	if !ok {
		t.log.Warnw("no route to destination", "dest", dest.String())
		return nil
	}

	inbox, ok := t.shared.PeerInbox(route.NextHop)
	if !ok {
		t.log.Warnw("no peer channel for next hop", "next_hop", route.NextHop.String())
		return nil
	}

	inbox.Push(state.Forward{Packet: wire.Packet{TypeID: wire.TypeMessage, Routed: rp}})
	return nil
}

func (t *Task) handleCR(rp *wire.RoutingPacket) error {
	origin := rp.Header.Source()
	t.shared.InsertDirectRoute(origin, t.remote)
	t.shared.ApplyRoutingUpdate(t.remote, rp.Table)
	return t.send(t.buildRoutingPacket(wire.TypeCRR))
}
