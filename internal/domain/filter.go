package domain

import (
	"strconv"
	"time"
)

const DateLayout = "2006-01-02"

// TripFilter narrows the trip list. Nil fields impose no constraint.
type TripFilter struct {
	SourceID      *int64
	DestinationID *int64
	// DepartureDate is an inclusive lower bound on the UTC calendar date of departure.
	DepartureDate *time.Time
}

// ParseTripFilter builds a filter from raw query values; empty strings are ignored.
func ParseTripFilter(source, destination, departure string) (TripFilter, error) {
	var f TripFilter
	if source != "" {
		id, err := strconv.ParseInt(source, 10, 64)
		if err != nil {
			return f, NewValidationError("source", "must be an integer station id")
		}
		f.SourceID = &id
	}
	if destination != "" {
		id, err := strconv.ParseInt(destination, 10, 64)
		if err != nil {
			return f, NewValidationError("destination", "must be an integer station id")
		}
		f.DestinationID = &id
	}
	if departure != "" {
		d, err := time.Parse(DateLayout, departure)
		if err != nil {
			return f, NewValidationError("departure_time", "date has wrong format, use YYYY-MM-DD")
		}
		f.DepartureDate = &d
	}
	return f, nil
}

// Matches reports whether a trip summary satisfies every set filter.
func (f TripFilter) Matches(s TripSummary) bool {
	if f.SourceID != nil && s.SourceID != *f.SourceID {
		return false
	}
	if f.DestinationID != nil && s.DestinationID != *f.DestinationID {
		return false
	}
	if f.DepartureDate != nil && CalendarDate(s.DepartureTime).Before(CalendarDate(*f.DepartureDate)) {
		return false
	}
	return true
}

// CalendarDate truncates t to midnight of its UTC date.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
