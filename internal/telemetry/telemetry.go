// Package telemetry provides the node's structured operational logger.
//
// This is separate from the spec's LogToTerminal UI event: telemetry is
// for the node's own diagnostics (connection churn, routing decisions,
// protocol violations), the same way the teacher's server and registry
// packages log independently of whatever a caller does with RPC results.
// The teacher reaches for the standard library's log package because it
// never needed more; morganite's routing churn benefits from structured,
// leveled fields, so this wraps go.uber.org/zap instead.
package telemetry

import "go.uber.org/zap"

// Logger is the small leveled-logging surface every core package depends
// on. Accepting this interface (rather than *zap.SugaredLogger directly)
// keeps internal/routing, internal/peerconn, etc. decoupled from the zap
// import and trivially testable with a no-op stand-in.
type Logger interface {
	Debugw(msg string, kv ...any)
	Infow(msg string, kv ...any)
	Warnw(msg string, kv ...any)
	Errorw(msg string, kv ...any)
}

// zapLogger adapts *zap.SugaredLogger to Logger.
type zapLogger struct{ s *zap.SugaredLogger }

func (l zapLogger) Debugw(msg string, kv ...any) { l.s.Debugw(msg, kv...) }
func (l zapLogger) Infow(msg string, kv ...any)  { l.s.Infow(msg, kv...) }
func (l zapLogger) Warnw(msg string, kv ...any)  { l.s.Warnw(msg, kv...) }
func (l zapLogger) Errorw(msg string, kv ...any) { l.s.Errorw(msg, kv...) }

// New builds a development-mode (human-readable, colorized level) zap
// logger. Production deployments of the node are expected to swap this
// for zap.NewProduction via the same adapter, but nothing in this repo's
// scope drives that decision, so New fixes one sensible default.
func New() (Logger, error) {
	z, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return zapLogger{s: z.Sugar()}, nil
}

// Nop returns a Logger that discards everything. Used by tests and by
// callers that have not wired up telemetry.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debugw(string, ...any) {}
func (nopLogger) Infow(string, ...any)  {}
func (nopLogger) Warnw(string, ...any)  {}
func (nopLogger) Errorw(string, ...any) {}
