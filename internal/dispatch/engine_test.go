package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/example/court-scheduler/internal/booking"
	"github.com/example/court-scheduler/internal/pipeline"
)

// fakeSubmitter records executions; optional block lets a test hold the
// loop inside a submission.
type fakeSubmitter struct {
	mu    sync.Mutex
	runs  []pipeline.Request
	block chan struct{}
	panic bool
}

func (f *fakeSubmitter) Run(_ context.Context, req pipeline.Request) pipeline.Result {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.runs = append(f.runs, req)
	shouldPanic := f.panic
	f.mu.Unlock()
	if shouldPanic {
		panic("boom")
	}
	return pipeline.Result{Code: pipeline.OutcomeSuccess}
}

func (f *fakeSubmitter) setPanic(v bool) {
	f.mu.Lock()
	f.panic = v
	f.mu.Unlock()
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}

func newTestEngine(t *testing.T, sub Submitter) (*Engine, *booking.Registry) {
	t.Helper()
	reg := booking.NewRegistry(nil)
	reg.SetCredential("JSESSIONID=test")
	e := New(reg, sub, nil, Options{DequeueWait: 20 * time.Millisecond})
	t.Cleanup(e.Stop)
	return e, reg
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestPastDueReservationExecutesPromptly(t *testing.T) {
	sub := &fakeSubmitter{}
	e, reg := newTestEngine(t, sub)

	r, err := reg.Create("20241015", "06:00", "08:00", 1, time.Now().Add(-time.Second), nil)
	assert.NoError(t, err)

	e.Start()
	waitFor(t, func() bool { return sub.count() == 1 })

	sub.mu.Lock()
	defer sub.mu.Unlock()
	assert.Equal(t, r.TimeCode, sub.runs[0].TimeCode)
	assert.Equal(t, r.Cookie, sub.runs[0].Cookie)
	assert.Empty(t, reg.Pending())
}

func TestFutureReservationWaits(t *testing.T) {
	sub := &fakeSubmitter{}
	e, reg := newTestEngine(t, sub)

	_, err := reg.Create("20241015", "06:00", "08:00", 1, time.Now().Add(time.Hour), nil)
	assert.NoError(t, err)

	e.Start()
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, sub.count())
	assert.Len(t, reg.Pending(), 1)
}

func TestStartIsIdempotent(t *testing.T) {
	sub := &fakeSubmitter{}
	e, reg := newTestEngine(t, sub)

	e.Start()
	e.Start()
	e.Start()

	_, err := reg.Create("20241015", "06:00", "08:00", 1, time.Now(), nil)
	assert.NoError(t, err)

	waitFor(t, func() bool { return sub.count() >= 1 })
	time.Sleep(100 * time.Millisecond)
	// One loop, one consumption.
	assert.Equal(t, 1, sub.count())
}

func TestSingleFlightExecution(t *testing.T) {
	sub := &fakeSubmitter{block: make(chan struct{})}
	e, reg := newTestEngine(t, sub)

	now := time.Now()
	_, err := reg.Create("20241015", "06:00", "08:00", 1, now, nil)
	assert.NoError(t, err)
	_, err = reg.Create("20241015", "08:00", "10:00", 2, now, nil)
	assert.NoError(t, err)

	e.Start()
	time.Sleep(150 * time.Millisecond)
	// First submission is held open; the second must not start.
	assert.Zero(t, sub.count())

	sub.block <- struct{}{}
	waitFor(t, func() bool { return sub.count() == 1 })
	sub.block <- struct{}{}
	waitFor(t, func() bool { return sub.count() == 2 })
}

func TestCancelPending(t *testing.T) {
	sub := &fakeSubmitter{}
	e, reg := newTestEngine(t, sub)

	r, err := reg.Create("20241015", "06:00", "08:00", 1, time.Now().Add(time.Hour), nil)
	assert.NoError(t, err)

	assert.True(t, e.Cancel(r.ID))
	assert.Empty(t, reg.Pending())
	assert.False(t, e.Cancel(r.ID))
}

func TestCancelUnknownIDIsNotAnError(t *testing.T) {
	sub := &fakeSubmitter{}
	e, _ := newTestEngine(t, sub)
	assert.False(t, e.Cancel(424242))
}

func TestCancelQueuedReservation(t *testing.T) {
	sub := &fakeSubmitter{block: make(chan struct{})}
	e, reg := newTestEngine(t, sub)

	now := time.Now()
	_, err := reg.Create("20241015", "06:00", "08:00", 1, now, nil)
	assert.NoError(t, err)
	victim, err := reg.Create("20241015", "08:00", "10:00", 2, now, nil)
	assert.NoError(t, err)
	survivor, err := reg.Create("20241015", "10:00", "12:00", 3, now, nil)
	assert.NoError(t, err)

	e.Start()
	// Wait until the first is in flight and the rest are queued.
	waitFor(t, func() bool { return e.queue.Len() == 2 })

	assert.True(t, e.Cancel(victim.ID))

	sub.block <- struct{}{}
	waitFor(t, func() bool { return sub.count() == 1 })
	sub.block <- struct{}{}
	waitFor(t, func() bool { return sub.count() == 2 })

	sub.mu.Lock()
	defer sub.mu.Unlock()
	assert.Equal(t, 3, sub.runs[1].CourtNo, "survivor %d should run after the cancel", survivor.ID)
}

func TestPanicDoesNotKillLoop(t *testing.T) {
	sub := &fakeSubmitter{panic: true}
	e, reg := newTestEngine(t, sub)

	_, err := reg.Create("20241015", "06:00", "08:00", 1, time.Now(), nil)
	assert.NoError(t, err)

	e.Start()
	waitFor(t, func() bool { return sub.count() == 1 })

	// The loop survived the panic and still dispatches.
	sub.setPanic(false)
	_, err = reg.Create("20241015", "08:00", "10:00", 2, time.Now(), nil)
	assert.NoError(t, err)
	waitFor(t, func() bool { return sub.count() == 2 })
}

func TestExecQueueOrderPreservedAcrossRemove(t *testing.T) {
	q := newExecQueue()
	for i := int64(1); i <= 5; i++ {
		q.Put(booking.Reservation{ID: i})
	}
	assert.True(t, q.Remove(3))
	assert.False(t, q.Remove(3))

	var order []int64
	for {
		r, ok := q.Get(10 * time.Millisecond)
		if !ok {
			break
		}
		order = append(order, r.ID)
	}
	assert.Equal(t, []int64{1, 2, 4, 5}, order)
}

func TestExecQueueGetTimesOut(t *testing.T) {
	q := newExecQueue()
	start := time.Now()
	_, ok := q.Get(30 * time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
