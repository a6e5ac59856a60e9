// Package slotcode derives the opaque time and court codes the upstream
// reservation system expects from a human-readable date, 2-hour block and
// court number.
//
// The facility operates on fixed 2-hour slots whose daily range depends on
// the season: November through February run 07:00-21:00 (7 slots), every
// other month runs 06:00-22:00 (8 slots). Time codes are numbered in one
// continuous sequence across an annual cycle that restarts each October at
// base 69, so a month's base is 69 plus the slot counts of every month since
// that October.
package slotcode

import (
	"fmt"
	"time"
)

// CycleBase is the time-code base of the first slot of October, the month
// that opens each annual numbering cycle.
const CycleBase = 69

// Slot is a single reservable 2-hour block. StartHour and EndHour are
// 24-hour clock hours on the slot's day.
type Slot struct {
	StartHour int
	EndHour   int
}

// From returns the slot's start as "HH:MM".
func (s Slot) From() string { return fmt.Sprintf("%02d:00", s.StartHour) }

// To returns the slot's end as "HH:MM".
func (s Slot) To() string { return fmt.Sprintf("%02d:00", s.EndHour) }

// ValidationError reports malformed input to a derivation. It is returned,
// never panicked, so callers can surface it synchronously.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Msg)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

func isWinter(month time.Month) bool {
	switch month {
	case time.November, time.December, time.January, time.February:
		return true
	}
	return false
}

// MonthSlots returns the ordered slot table for a month: contiguous,
// non-overlapping 2-hour blocks covering the month's operating hours.
// The year is accepted for symmetry with the numbering scheme; the table
// currently depends on the month alone.
func MonthSlots(year int, month time.Month) []Slot {
	start, end := 6, 22
	if isWinter(month) {
		start, end = 7, 21
	}
	slots := make([]Slot, 0, (end-start)/2)
	for h := start; h < end; h += 2 {
		slots = append(slots, Slot{StartHour: h, EndHour: h + 2})
	}
	return slots
}

// cycleStart returns year of the October that opens the annual cycle
// containing (year, month): the same year for October-December, the
// previous year for January-September.
func cycleStart(year int, month time.Month) int {
	if month >= time.October {
		return year
	}
	return year - 1
}

// MonthBase computes the time-code base for (year, month): CycleBase plus
// the slot counts of every month from the cycle's October (inclusive) up to
// the target month (exclusive). October itself is therefore CycleBase.
func MonthBase(year int, month time.Month) int {
	base := CycleBase
	y, m := cycleStart(year, month), time.October
	for y != year || m != month {
		base += len(MonthSlots(y, m))
		m++
		if m > time.December {
			m = time.January
			y++
		}
	}
	return base
}

// ParseDate parses a reservation date in the upstream "YYYYMMDD" form.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse("20060102", date)
	if err != nil {
		return time.Time{}, invalid("date", "want YYYYMMDD, got %q", date)
	}
	return t, nil
}

// DeriveTimeCode maps a 2-hour block on date to its upstream time code.
// fromTime and toTime are "HH:MM" and must name an exact slot of the date's
// month. base, when non-nil, replaces the computed monthly base verbatim.
//
// The code is the literal prefix "TM0" followed by the decimal value
// base+index; this is numeral concatenation as the upstream does it, not a
// fixed-width field (base 69 -> "TM069", base 102 -> "TM0102").
func DeriveTimeCode(fromTime, toTime, date string, base *int) (string, error) {
	d, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	slots := MonthSlots(d.Year(), d.Month())
	idx := -1
	for i, s := range slots {
		if s.From() == fromTime {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", invalid("fromTime", "%q is not a slot start on %s", fromTime, date)
	}
	if want := slots[idx].To(); toTime != want {
		return "", invalid("toTime", "slot starting %s ends %s, got %q", fromTime, want, toTime)
	}

	b := MonthBase(d.Year(), d.Month())
	if base != nil {
		b = *base
	}
	return fmt.Sprintf("TM0%d", b+idx), nil
}

// DeriveCourtCode maps court number n to its upstream code: "TC" plus n
// zero-padded to three digits. The upstream defines no behavior for n > 999;
// this renders the full numeral rather than guessing a truncation policy.
func DeriveCourtCode(n int) string {
	return fmt.Sprintf("TC%03d", n)
}
