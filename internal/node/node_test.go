package node

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/AnnsAnns/morganite/internal/addr"
	"github.com/AnnsAnns/morganite/internal/events"
	"github.com/AnnsAnns/morganite/internal/queue"
	"github.com/AnnsAnns/morganite/internal/state"
	"github.com/AnnsAnns/morganite/internal/telemetry"
)

func listenOn(t *testing.T) (*Acceptor, *state.SharedState, addr.NeighborAddr) {
	t.Helper()
	// Bind port 0 first to learn the OS-assigned ephemeral port, then build
	// SharedState against that real address before constructing the Acceptor.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("probe listen failed: %v", err)
	}
	real := addr.FromTCPAddr(probe.Addr().(*net.TCPAddr))
	probe.Close()

	shared := state.New(real, real.String(), queue.NewUnbounded[events.Event](), telemetry.Nop())
	acceptor, err := Listen(real, shared, nil)
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	go acceptor.Serve()
	t.Cleanup(func() { acceptor.Close() })
	return acceptor, shared, real
}

func TestDialEstablishesPeerOnBothSides(t *testing.T) {
	_, serverShared, serverAddr := listenOn(t)
	clientShared := state.New(addr.NeighborAddr{IP: "127.0.0.1", Port: 1}, "client", queue.NewUnbounded[events.Event](), telemetry.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	task, err := Dial(ctx, serverAddr, clientShared)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	if task.Remote() != serverAddr {
		t.Errorf("Remote() = %v, want %v", task.Remote(), serverAddr)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if clientShared.PeerCount() == 1 && serverShared.PeerCount() == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("peer counts did not converge: client=%d server=%d", clientShared.PeerCount(), serverShared.PeerCount())
}
