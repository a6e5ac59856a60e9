package booking

import (
	"sync"
	"time"
)

// Reservation is one scheduled submission against the upstream court
// system. The cookie and both derived codes are frozen at creation; a later
// credential change or table change never alters an existing reservation.
type Reservation struct {
	ID        int64
	Cookie    string
	Date      string // YYYYMMDD
	FromTime  string // HH:MM
	ToTime    string // HH:MM
	TimeCode  string // TM0xx
	CourtNo   int
	CourtCode string // TCxxx
	ExecAt    time.Time
	TimeBase  int // base actually used for TimeCode, explicit or computed
}

// Due reports whether the reservation's execution moment has arrived.
func (r Reservation) Due(now time.Time) bool {
	return !r.ExecAt.After(now)
}

var (
	idMu   sync.Mutex
	lastID int64
)

// newID yields unique identifiers biased to creation time: the current
// millisecond clock, bumped past the previous id when two creations land on
// the same millisecond.
func newID(now time.Time) int64 {
	idMu.Lock()
	defer idMu.Unlock()
	id := now.UnixMilli()
	if id <= lastID {
		id = lastID + 1
	}
	lastID = id
	return id
}
