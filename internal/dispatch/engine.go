// Package dispatch owns the background loop that promotes due reservations
// from the registry into a FIFO execution queue and drains that queue one
// submission at a time. Single-flight execution is the point: two
// submissions must never race each other on the same authenticated upstream
// session, so a long-running submission simply delays everything behind it.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/court-scheduler/internal/booking"
	"github.com/example/court-scheduler/internal/logging"
	"github.com/example/court-scheduler/internal/pipeline"
)

// Submitter is the execution side of the engine; satisfied by
// *pipeline.Pipeline.
type Submitter interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Result
}

// Engine ties one registry, one execution queue and one background loop
// together. Independent engines are fully isolated; nothing is global.
type Engine struct {
	registry  *booking.Registry
	submitter Submitter
	log       logging.Sink

	// dequeueWait bounds the loop's single suspension point; the loop also
	// rescans the pending set at least this often.
	dequeueWait time.Duration

	queue *execQueue

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// Options tune an Engine; zero values get defaults.
type Options struct {
	DequeueWait time.Duration
}

// New builds a stopped engine over registry and submitter. A nil sink
// discards.
func New(registry *booking.Registry, submitter Submitter, sink logging.Sink, opts Options) *Engine {
	if sink == nil {
		sink = logging.Discard
	}
	wait := opts.DequeueWait
	if wait <= 0 {
		wait = 500 * time.Millisecond
	}
	return &Engine{
		registry:    registry,
		submitter:   submitter,
		log:         sink,
		dequeueWait: wait,
		queue:       newExecQueue(),
	}
}

// Start launches the dispatch loop. Idempotent: a running engine ignores
// further calls.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(ctx)
	e.log("dispatch engine started")
}

// Stop terminates the loop and waits for it to exit. An in-flight
// submission runs to completion first. No-op on a stopped engine.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	cancel()
	<-done
	e.log("dispatch engine stopped")
}

// Running reports whether the dispatch loop is live.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Cancel removes a not-yet-dispatched reservation: first from the pending
// set, then from the execution queue. Idempotent; a miss is not an error.
// A reservation already handed to the submitter runs to completion.
func (e *Engine) Cancel(id int64) bool {
	removed := e.registry.Remove(id)
	if !removed {
		removed = e.queue.Remove(id)
	}
	if removed {
		e.log(fmt.Sprintf("reservation cancelled: id=%d", id))
	}
	return removed
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	e.log("dispatch loop running")
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		for _, r := range e.registry.TakeDue(time.Now()) {
			e.queue.Put(r)
			e.log(fmt.Sprintf("queued for execution: id=%d at %s (%s %s-%s court %d)",
				r.ID, r.ExecAt.Format("15:04:05"), r.Date, r.FromTime, r.ToTime, r.CourtNo))
		}

		r, ok := e.queue.Get(e.dequeueWait)
		if !ok {
			continue
		}
		e.execute(ctx, r)
	}
}

// execute runs one submission synchronously. A panic out of the submitter
// is logged and swallowed so the loop keeps serving the queue.
func (e *Engine) execute(ctx context.Context, r booking.Reservation) {
	defer func() {
		if p := recover(); p != nil {
			e.log(fmt.Sprintf("execution panic: id=%d: %v", r.ID, p))
		}
	}()

	e.log(fmt.Sprintf("executing: id=%d %s %s-%s court %d (timeCode=%s base=%d courtCode=%s)",
		r.ID, r.Date, r.FromTime, r.ToTime, r.CourtNo, r.TimeCode, r.TimeBase, r.CourtCode))

	res := e.submitter.Run(ctx, pipeline.Request{
		Cookie:    r.Cookie,
		Date:      r.Date,
		TimeCode:  r.TimeCode,
		FromTime:  r.FromTime,
		ToTime:    r.ToTime,
		CourtCode: r.CourtCode,
		CourtNo:   r.CourtNo,
	})

	switch res.Code {
	case pipeline.OutcomeSuccess:
		e.log(fmt.Sprintf("execution succeeded: id=%d", r.ID))
	default:
		e.log(fmt.Sprintf("execution failed: id=%d rc=%d cause=%s", r.ID, res.Code, res.Cause))
	}
}
