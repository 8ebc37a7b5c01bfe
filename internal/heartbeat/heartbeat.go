// Package heartbeat implements the periodic liveness/aging cycle (spec
// §4.6): probe every neighbor, give them a grace window to reply, age
// and poison anything unconfirmed, then re-announce the table.
//
// Grounded in the teacher's transport.ClientTransport.heartbeatLoop — a
// time.Ticker-driven goroutine that periodically writes a lightweight
// frame to keep a connection alive — generalized from "one flat interval,
// one connection" to "a multi-phase cycle, fanned out to every entry in
// the peer table".
package heartbeat

import (
	"context"
	"time"

	"github.com/AnnsAnns/morganite/internal/addr"
	"github.com/AnnsAnns/morganite/internal/state"
	"github.com/AnnsAnns/morganite/internal/telemetry"
	"github.com/AnnsAnns/morganite/internal/wire"
)

// Default cycle timing (spec §4.6: "≈11s total" = 1s grace + 10s sleep).
const (
	GraceWindow = 1 * time.Second
	AnnounceGap = 10 * time.Second
)

// Task runs the heartbeat loop against a SharedState.
type Task struct {
	shared *state.SharedState
	log    telemetry.Logger
}

// New builds a heartbeat task.
func New(shared *state.SharedState) *Task {
	log := shared.Log()
	if log == nil {
		log = telemetry.Nop()
	}
	return &Task{shared: shared, log: log}
}

// Run executes the cycle until ctx is canceled.
func (t *Task) Run(ctx context.Context) {
	for {
		t.broadcast(wire.TypeSCC)

		if !t.sleep(ctx, GraceWindow) {
			return
		}

		t.shared.AgeAndResetAlive()

		t.broadcast(wire.TypeSTU)

		if !t.sleep(ctx, AnnounceGap) {
			return
		}
	}
}

// broadcast enqueues a SendRouting event of typeID onto every neighbor's
// inbox. Handles are snapshotted under SharedState's lock and pushed
// after release (spec §4.3 broadcast discipline); Unbounded.Push never
// blocks, so this never stalls the heartbeat loop even under churn.
func (t *Task) broadcast(typeID wire.TypeID) {
	for _, peer := range t.shared.PeerHandles(addr.NeighborAddr{}) {
		peer.Inbox.Push(state.SendRouting{TypeID: typeID})
	}
}

func (t *Task) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
