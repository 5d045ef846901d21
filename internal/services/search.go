package services

import (
	"strings"
	"time"

	"ticket-resale/internal/status"
	"ticket-resale/models"
)

const (
	BucketToday    = "today"
	BucketTomorrow = "tomorrow"
	BucketWeekend  = "weekend"

	searchDateLayout = "2006-01-02"
)

// SearchParams are the raw query parameters of a listing search.
type SearchParams struct {
	City      string
	EventDate string
	EventName string
}

// TicketFilter selects tickets. Zero-valued fields do not constrain.
// The event date window is half-open: [From, To).
type TicketFilter struct {
	Status     string
	City       string
	EventName  string
	From       time.Time
	To         time.Time
	OwnerID    string
	EnquiredBy string
}

// Matches reports whether t satisfies every set field of f.
func (f TicketFilter) Matches(t *models.Ticket) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.City != "" && t.City != f.City {
		return false
	}
	if f.EventName != "" && !strings.Contains(strings.ToLower(t.EventName), strings.ToLower(f.EventName)) {
		return false
	}
	if !f.From.IsZero() && t.EventDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !t.EventDate.Before(f.To) {
		return false
	}
	if f.OwnerID != "" && t.OwnerID != f.OwnerID {
		return false
	}
	if f.EnquiredBy != "" && !t.HasEnquiry(f.EnquiredBy) {
		return false
	}
	return true
}

// NewSearchFilter builds the filter for a public search. Only available
// tickets are ever returned.
func NewSearchFilter(p SearchParams, loc *time.Location) (TicketFilter, error) {
	f := TicketFilter{
		Status:    models.TicketStatusAvailable,
		City:      strings.TrimSpace(p.City),
		EventName: strings.TrimSpace(p.EventName),
	}

	if raw := strings.TrimSpace(p.EventDate); raw != "" {
		day, err := time.ParseInLocation(searchDateLayout, raw, loc)
		if err != nil {
			return TicketFilter{}, status.Invalid("eventDate must be formatted as YYYY-MM-DD", nil)
		}
		f.From, f.To = dayWindow(day)
	}

	return f, nil
}

// ResolveDateBucket returns the [from, to) window for a named bucket,
// relative to now in now's location.
func ResolveDateBucket(bucket string, now time.Time) (time.Time, time.Time, error) {
	today := startOfDay(now)

	switch strings.ToLower(bucket) {
	case BucketToday:
		from, to := dayWindow(today)
		return from, to, nil
	case BucketTomorrow:
		from, to := dayWindow(addDays(today, 1))
		return from, to, nil
	case BucketWeekend:
		// Saturday itself is offset 0
		offset := (int(time.Saturday) - int(now.Weekday()) + 7) % 7
		saturday := addDays(today, offset)
		return saturday, addDays(saturday, 2), nil
	default:
		return time.Time{}, time.Time{}, status.Invalid("Invalid date filter. Use today, tomorrow or weekend", nil)
	}
}

func dayWindow(day time.Time) (time.Time, time.Time) {
	start := startOfDay(day)
	return start, addDays(start, 1)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// addDays moves by calendar days so DST shifts keep midnight at midnight.
func addDays(day time.Time, n int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, day.Location())
}
