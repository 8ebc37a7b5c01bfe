package heartbeat

import (
	"context"
	"testing"
	"time"

	"github.com/AnnsAnns/morganite/internal/addr"
	"github.com/AnnsAnns/morganite/internal/events"
	"github.com/AnnsAnns/morganite/internal/queue"
	"github.com/AnnsAnns/morganite/internal/state"
	"github.com/AnnsAnns/morganite/internal/telemetry"
	"github.com/AnnsAnns/morganite/internal/wire"
)

func TestBroadcastReachesEveryPeerButItself(t *testing.T) {
	local := addr.NeighborAddr{IP: "127.0.0.1", Port: 1}
	shared := state.New(local, "nick", queue.NewUnbounded[events.Event](), telemetry.Nop())

	a := addr.NeighborAddr{IP: "127.0.0.1", Port: 2}
	b := addr.NeighborAddr{IP: "127.0.0.1", Port: 3}
	aInbox := queue.NewUnbounded[state.PeerEvent]()
	bInbox := queue.NewUnbounded[state.PeerEvent]()
	shared.AddPeer(a, aInbox)
	shared.AddPeer(b, bInbox)

	task := New(shared)
	task.broadcast(wire.TypeSCC)

	for _, inbox := range []*queue.Unbounded[state.PeerEvent]{aInbox, bInbox} {
		ev, ok := inbox.TryPop()
		if !ok {
			t.Fatal("expected a SendRouting event on every peer inbox")
		}
		sr, ok := ev.(state.SendRouting)
		if !ok || sr.TypeID != wire.TypeSCC {
			t.Errorf("event = %+v, want SendRouting{TypeID: SCC}", ev)
		}
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	local := addr.NeighborAddr{IP: "127.0.0.1", Port: 1}
	shared := state.New(local, "nick", queue.NewUnbounded[events.Event](), telemetry.Nop())
	task := New(shared)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		task.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
