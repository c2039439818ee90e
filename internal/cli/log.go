package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/gridroute/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Routed 42 nets (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// logTracer reports router events through a logger. Per-net events are
// debug level so they only show with --verbose.
type logTracer struct {
	logger *log.Logger
}

var _ observability.RouterHooks = logTracer{}

func (t logTracer) OnIterationStart(_ context.Context, worker string, iteration, nets int) {
	t.logger.Debug("iteration start", "worker", worker, "iteration", iteration, "nets", nets)
}

func (t logTracer) OnIterationComplete(_ context.Context, worker string, s observability.IterationSummary) {
	if s.Failed > 0 {
		t.logger.Warn("iteration left nets unrouted", "worker", worker, "iteration", s.Iteration, "failed", s.Failed)
	}
}

func (t logTracer) OnPathFound(_ context.Context, net string, terminal, wire, vias int) {
	t.logger.Debug("path found", "net", net, "terminal", terminal, "wire", wire, "vias", vias)
}

func (t logTracer) OnNetRippedUp(_ context.Context, net string, edges int) {
	t.logger.Debug("ripped up", "net", net, "edges", edges)
}

func (t logTracer) OnSearchFailure(_ context.Context, net string, terminal int) {
	t.logger.Debug("search failed", "net", net, "terminal", terminal)
}
