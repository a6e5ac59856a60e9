// Package logging carries the one-line log sink the scheduler core reports
// through, so the web UI and CLI can display activity without the core
// depending on either.
package logging

import (
	"log/slog"
	"sync"
	"time"
)

// Sink consumes one human-readable line per state transition, queue event
// or raw network response. Implementations must be safe for concurrent use.
type Sink func(line string)

// Discard drops every line.
func Discard(string) {}

// Slog adapts a slog.Logger into a Sink at info level.
func Slog(l *slog.Logger) Sink {
	return func(line string) { l.Info(line) }
}

// Tee fans each line out to every sink in order.
func Tee(sinks ...Sink) Sink {
	return func(line string) {
		for _, s := range sinks {
			s(line)
		}
	}
}

// Ring is a bounded in-memory log buffer; once full, the oldest line is
// dropped per append. The web UI reads it to render a log tail.
type Ring struct {
	mu    sync.Mutex
	lines []string
	cap   int
}

// NewRing returns a Ring holding at most capacity lines (minimum 1).
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{cap: capacity}
}

// Append stores a line stamped with the current wall clock.
func (r *Ring) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, time.Now().Format("15:04:05")+" "+line)
	if len(r.lines) > r.cap {
		r.lines = r.lines[len(r.lines)-r.cap:]
	}
}

// Lines returns a copy of the buffered lines, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}
