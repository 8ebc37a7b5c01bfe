// Package node wires the pieces built elsewhere into a running process:
// the Acceptor binds the listener and spawns a peerconn.Task per inbound
// connection (spec §2.6), and the Mediator dispatches UI commands (spec
// §2.7, §4.7).
//
// Grounded in the teacher's server.Server.Serve — an Accept loop that
// checks a shutdown flag before treating an Accept error as fatal, then
// spawns one goroutine per connection — generalized to also originate
// outbound connections, which the teacher's server never does (only its
// client dials out, via client.getTransport).
package node

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/AnnsAnns/morganite/internal/addr"
	"github.com/AnnsAnns/morganite/internal/peerconn"
	"github.com/AnnsAnns/morganite/internal/ratelimit"
	"github.com/AnnsAnns/morganite/internal/state"
	"github.com/AnnsAnns/morganite/internal/telemetry"
)

// Acceptor owns the node's listening socket and spawns a per-connection
// task for every accepted connection.
type Acceptor struct {
	listener net.Listener
	shared   *state.SharedState
	limiter  *ratelimit.Limiter
	log      telemetry.Logger
	shutdown atomic.Bool
}

// Listen binds addr and returns an Acceptor ready to Serve. limiter may
// be nil to accept without rate limiting.
func Listen(listenAddr addr.NeighborAddr, shared *state.SharedState, limiter *ratelimit.Limiter) (*Acceptor, error) {
	ln, err := net.Listen("tcp", listenAddr.String())
	if err != nil {
		return nil, fmt.Errorf("node: listen %s: %w", listenAddr.String(), err)
	}
	log := shared.Log()
	if log == nil {
		log = telemetry.Nop()
	}
	return &Acceptor{listener: ln, shared: shared, limiter: limiter, log: log}, nil
}

// Addr returns the bound local address.
func (a *Acceptor) Addr() net.Addr { return a.listener.Addr() }

// Serve runs the accept loop until Close is called. Each accepted
// connection becomes a peerconn.Task with sendCR=false: the remote side
// initiated, so it is the one that sends the CR (spec §4.4).
func (a *Acceptor) Serve() error {
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			if a.shutdown.Load() {
				return nil
			}
			return fmt.Errorf("node: accept: %w", err)
		}

		if a.limiter != nil && !a.limiter.Allow() {
			a.log.Warnw("rejecting connection, accept rate exceeded", "remote", conn.RemoteAddr().String())
			conn.Close()
			continue
		}

		remote, ok := conn.RemoteAddr().(*net.TCPAddr)
		if !ok {
			conn.Close()
			continue
		}

		task := peerconn.New(conn, addr.FromTCPAddr(remote), a.shared, false)
		go task.Run()
	}
}

// Close stops the accept loop.
func (a *Acceptor) Close() error {
	a.shutdown.Store(true)
	return a.listener.Close()
}

// Dial opens an outbound connection to target and spawns a per-connection
// task for it with sendCR=true (spec §4.7, Connect): this side initiated,
// so it is responsible for sending the first CR once the task starts.
func Dial(ctx context.Context, target addr.NeighborAddr, shared *state.SharedState) (*peerconn.Task, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", target.String())
	if err != nil {
		return nil, fmt.Errorf("node: dial %s: %w", target.String(), err)
	}
	task := peerconn.New(conn, target, shared, true)
	go task.Run()
	return task, nil
}
