package peerconn

import (
	"net"
	"testing"

	"github.com/AnnsAnns/morganite/internal/addr"
	"github.com/AnnsAnns/morganite/internal/events"
	"github.com/AnnsAnns/morganite/internal/queue"
	"github.com/AnnsAnns/morganite/internal/state"
	"github.com/AnnsAnns/morganite/internal/telemetry"
	"github.com/AnnsAnns/morganite/internal/wire"
)

func newTestTask(t *testing.T, local, remote addr.NeighborAddr) (*Task, net.Conn, *state.SharedState, *queue.Unbounded[events.Event]) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close(); serverConn.Close() })

	ui := queue.NewUnbounded[events.Event]()
	shared := state.New(local, "local-nick", ui, telemetry.Nop())
	task := New(serverConn, remote, shared, false)
	return task, clientConn, shared, ui
}

func readOnePacket(t *testing.T, conn net.Conn) wire.Packet {
	t.Helper()
	codec := wire.NewCodec()
	buf := make([]byte, 4096)
	for {
		pkt, ok, err := codec.Next()
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if ok {
			return pkt
		}
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if err := codec.Feed(buf[:n]); err != nil {
			t.Fatalf("feed failed: %v", err)
		}
	}
}

func TestHandleInboxEventSendMessageWritesFrame(t *testing.T) {
	local := addr.NeighborAddr{IP: "127.0.0.1", Port: 1}
	remote := addr.NeighborAddr{IP: "127.0.0.1", Port: 2}
	task, clientConn, _, _ := newTestTask(t, local, remote)

	dest := addr.NeighborAddr{IP: "127.0.0.1", Port: 9}
	done := make(chan error, 1)
	go func() { done <- task.handleInboxEvent(state.SendMessage{Payload: "hi", Dest: dest}) }()

	pkt := readOnePacket(t, clientConn)
	if err := <-done; err != nil {
		t.Fatalf("handleInboxEvent failed: %v", err)
	}
	if pkt.TypeID != wire.TypeMessage {
		t.Fatalf("TypeID = %v, want MESSAGE", pkt.TypeID)
	}
	if pkt.Routed.Message != "hi" {
		t.Errorf("Message = %q, want %q", pkt.Routed.Message, "hi")
	}
	if pkt.Routed.Header.Dest() != dest {
		t.Errorf("Dest = %v, want %v", pkt.Routed.Header.Dest(), dest)
	}
}

func TestHandleRoutedDeliversToUIWhenDestIsLocal(t *testing.T) {
	local := addr.NeighborAddr{IP: "127.0.0.1", Port: 1}
	remote := addr.NeighborAddr{IP: "127.0.0.1", Port: 2}
	task, _, _, ui := newTestTask(t, local, remote)

	rp := &wire.RoutedPacket{
		Header:   wire.NewSharedHeader(remote, local, 16),
		Nickname: "bob",
		Message:  "hello there",
	}
	if err := task.handleRouted(rp); err != nil {
		t.Fatalf("handleRouted failed: %v", err)
	}

	ev, ok := ui.TryPop()
	if !ok {
		t.Fatal("expected a UI event for a message addressed to this node")
	}
	msg, ok := ev.(events.MessageToTUI)
	if !ok {
		t.Fatalf("event type = %T, want events.MessageToTUI", ev)
	}
	if msg.Text != "hello there" || msg.Nickname != "bob" || msg.From != remote {
		t.Errorf("MessageToTUI = %+v, unexpected fields", msg)
	}
}

func TestHandleRoutedForwardsToNextHopWhenNotDestination(t *testing.T) {
	local := addr.NeighborAddr{IP: "127.0.0.1", Port: 1}
	remote := addr.NeighborAddr{IP: "127.0.0.1", Port: 2}
	task, _, shared, _ := newTestTask(t, local, remote)

	finalDest := addr.NeighborAddr{IP: "127.0.0.1", Port: 3}
	nextHop := addr.NeighborAddr{IP: "127.0.0.1", Port: 4}
	shared.InsertDirectRoute(finalDest, nextHop)

	nextHopInbox := queue.NewUnbounded[state.PeerEvent]()
	shared.AddPeer(nextHop, nextHopInbox)

	rp := &wire.RoutedPacket{
		Header:  wire.NewSharedHeader(remote, finalDest, 16),
		Message: "relay me",
	}
	if err := task.handleRouted(rp); err != nil {
		t.Fatalf("handleRouted failed: %v", err)
	}

	ev, ok := nextHopInbox.TryPop()
	if !ok {
		t.Fatal("expected a Forward event on the next hop's inbox")
	}
	fwd, ok := ev.(state.Forward)
	if !ok {
		t.Fatalf("event type = %T, want state.Forward", ev)
	}
	if fwd.Packet.Routed.Message != "relay me" {
		t.Errorf("forwarded message = %q, want %q", fwd.Packet.Routed.Message, "relay me")
	}
}

func TestHandleRoutedDropsWhenTTLExpired(t *testing.T) {
	local := addr.NeighborAddr{IP: "127.0.0.1", Port: 1}
	remote := addr.NeighborAddr{IP: "127.0.0.1", Port: 2}
	task, _, shared, _ := newTestTask(t, local, remote)

	finalDest := addr.NeighborAddr{IP: "127.0.0.1", Port: 3}
	nextHop := addr.NeighborAddr{IP: "127.0.0.1", Port: 4}
	shared.InsertDirectRoute(finalDest, nextHop)
	nextHopInbox := queue.NewUnbounded[state.PeerEvent]()
	shared.AddPeer(nextHop, nextHopInbox)

	rp := &wire.RoutedPacket{
		Header:  wire.NewSharedHeader(remote, finalDest, 0),
		Message: "too old",
	}
	if err := task.handleRouted(rp); err != nil {
		t.Fatalf("handleRouted failed: %v", err)
	}
	if nextHopInbox.Len() != 0 {
		t.Error("a TTL=0 packet should be dropped, not forwarded")
	}
}

func TestHandleRoutedDropsWhenNoRoute(t *testing.T) {
	local := addr.NeighborAddr{IP: "127.0.0.1", Port: 1}
	remote := addr.NeighborAddr{IP: "127.0.0.1", Port: 2}
	task, _, _, _ := newTestTask(t, local, remote)

	rp := &wire.RoutedPacket{
		Header:  wire.NewSharedHeader(remote, addr.NeighborAddr{IP: "10.0.0.1", Port: 1}, 16),
		Message: "nowhere",
	}
	if err := task.handleRouted(rp); err != nil {
		t.Fatalf("handleRouted should drop silently, got error: %v", err)
	}
}
