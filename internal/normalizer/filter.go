package normalizer

import (
	"time"

	"amokanban/pkg/model"
)

// Predicate selects bookings. Predicates are independent and compose with Apply.
type Predicate func(model.Booking) bool

func ByStatus(statusID int64) Predicate {
	return func(b model.Booking) bool {
		return b.Status == statusID
	}
}

// ByDate keeps bookings on date. Bookings without a date never match.
func ByDate(date model.Date) Predicate {
	return func(b model.Booking) bool {
		return !b.BookingDate.IsZero() && b.BookingDate == date
	}
}

// Apply returns the bookings matching every predicate. Nil predicates are
// skipped; the input slice is not modified.
func Apply(bookings []model.Booking, preds ...Predicate) []model.Booking {
	out := make([]model.Booking, 0, len(bookings))
	for _, b := range bookings {
		if matchesAll(b, preds) {
			out = append(out, b)
		}
	}
	return out
}

func matchesAll(b model.Booking, preds []Predicate) bool {
	for _, p := range preds {
		if p != nil && !p(b) {
			return false
		}
	}
	return true
}

// Today returns the calendar date of now in loc (UTC when nil).
func Today(loc *time.Location, now time.Time) model.Date {
	if loc == nil {
		loc = time.UTC
	}
	return model.Date(now.In(loc).Format(time.DateOnly))
}
