// Package booking holds the in-memory reservation registry: the active
// session credential plus the pending set the dispatch engine scans. All
// state is process-lifetime only.
package booking

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/court-scheduler/internal/logging"
	"github.com/example/court-scheduler/internal/slotcode"
)

// ErrNoCredential is returned by Create before any credential has been set.
var ErrNoCredential = errors.New("no session credential set")

// Registry owns the pending reservations. Safe for concurrent use; the lock
// is held only across in-memory scans and mutations, never a network call.
type Registry struct {
	mu      sync.Mutex
	cookie  string
	pending []Reservation
	log     logging.Sink
}

// NewRegistry returns an empty registry reporting to sink. A nil sink
// discards.
func NewRegistry(sink logging.Sink) *Registry {
	if sink == nil {
		sink = logging.Discard
	}
	return &Registry{log: sink}
}

// SetCredential replaces the session cookie used by subsequent creations.
// Already-created reservations keep their snapshot.
func (g *Registry) SetCredential(cookie string) {
	g.mu.Lock()
	g.cookie = cookie
	g.mu.Unlock()
	g.log("credential set")
}

// Credential returns the active session cookie, empty if none.
func (g *Registry) Credential() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cookie
}

// Create validates the slot and court against the operating calendar,
// derives both upstream codes, and stores the reservation in the pending
// set. Nothing is stored on a validation failure; derivation errors are
// returned to the caller as values.
func (g *Registry) Create(date, fromTime, toTime string, courtNo int, execAt time.Time, baseOverride *int) (Reservation, error) {
	g.mu.Lock()
	cookie := g.cookie
	g.mu.Unlock()
	if cookie == "" {
		return Reservation{}, ErrNoCredential
	}

	timeCode, err := slotcode.DeriveTimeCode(fromTime, toTime, date, baseOverride)
	if err != nil {
		return Reservation{}, err
	}
	d, err := slotcode.ParseDate(date)
	if err != nil {
		return Reservation{}, err
	}
	base := slotcode.MonthBase(d.Year(), d.Month())
	if baseOverride != nil {
		base = *baseOverride
	}

	r := Reservation{
		ID:        newID(time.Now()),
		Cookie:    cookie,
		Date:      date,
		FromTime:  fromTime,
		ToTime:    toTime,
		TimeCode:  timeCode,
		CourtNo:   courtNo,
		CourtCode: slotcode.DeriveCourtCode(courtNo),
		ExecAt:    execAt,
		TimeBase:  base,
	}

	g.mu.Lock()
	g.pending = append(g.pending, r)
	g.mu.Unlock()

	g.log(fmt.Sprintf("reservation created: id=%d %s %s-%s court %d (timeCode=%s base=%d courtCode=%s) exec at %s",
		r.ID, r.Date, r.FromTime, r.ToTime, r.CourtNo, r.TimeCode, r.TimeBase, r.CourtCode,
		r.ExecAt.Format("2006-01-02 15:04:05")))
	return r, nil
}

// Remove drops id from the pending set; reports whether it was present.
func (g *Registry) Remove(id int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, r := range g.pending {
		if r.ID == id {
			g.pending = append(g.pending[:i], g.pending[i+1:]...)
			return true
		}
	}
	return false
}

// TakeDue removes and returns every pending reservation whose execution
// moment is at or before now. Order among simultaneously-due reservations
// is unspecified.
func (g *Registry) TakeDue(now time.Time) []Reservation {
	g.mu.Lock()
	defer g.mu.Unlock()
	var due []Reservation
	remain := g.pending[:0]
	for _, r := range g.pending {
		if r.Due(now) {
			due = append(due, r)
		} else {
			remain = append(remain, r)
		}
	}
	g.pending = remain
	return due
}

// Pending returns a snapshot of the pending set for display.
func (g *Registry) Pending() []Reservation {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Reservation, len(g.pending))
	copy(out, g.pending)
	return out
}
