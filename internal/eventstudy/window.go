package eventstudy

import (
	"time"

	"EventPull/internal/domain/models"
)

// Windows holds resolved absolute index ranges into one series. Both
// ranges are half-open: [Start, End).
type Windows struct {
	EstStart   int
	EstEnd     int
	EventStart int
	EventEnd   int
}

// EstimationSize returns the resolved estimation window length.
func (w Windows) EstimationSize() int { return w.EstEnd - w.EstStart }

// EventSize returns the resolved event window length.
func (w Windows) EventSize() int { return w.EventEnd - w.EventStart }

// Resolver maps event dates and trading-day offsets onto absolute
// positions in a date-indexed series.
type Resolver struct {
	// MaxDateShift is the number of calendar days to scan forward when
	// the event date is absent from the series (weekends, holidays).
	// Zero disables the fallback and absent dates fail with DateNotFound.
	MaxDateShift int
}

// dateKey collapses a timestamp to its calendar day so that series from
// different sources compare equal regardless of time-of-day or zone.
func dateKey(t time.Time) int {
	return t.Year()*1000 + t.YearDay()
}

// indexOf locates date in dates, scanning up to MaxDateShift calendar
// days forward. Returns -1 when no trading day matches.
func (r Resolver) indexOf(dates []time.Time, date time.Time) int {
	for step := 0; step <= r.MaxDateShift; step++ {
		key := dateKey(date.AddDate(0, 0, step))
		for i, v := range dates {
			if dateKey(v) == key {
				return i
			}
		}
	}
	return -1
}

// Resolve places the estimation and event windows for spec on the given
// trading calendar. The estimation window is a run of EstimationSize
// days ending exactly BufferSize trading days before the event window
// begins, so estimation is never contaminated by event-window returns.
func (r Resolver) Resolve(dates []time.Time, spec models.EventSpec) (Windows, error) {
	eventIdx := r.indexOf(dates, spec.EventDate)
	if eventIdx < 0 {
		return Windows{}, newError(KindDateNotFound,
			"event date %s not found in series for %s", spec.EventDate.Format("2006-01-02"), spec.Security)
	}

	w := Windows{
		EventStart: eventIdx + spec.Window.Start,
		EventEnd:   eventIdx + spec.Window.End + 1,
	}
	w.EstEnd = w.EventStart - spec.BufferSize
	w.EstStart = w.EstEnd - spec.EstimationSize

	if w.EstStart < 0 {
		return Windows{}, newError(KindInsufficientHistory,
			"estimation window needs %d observations before %s, series starts too late",
			spec.EstimationSize, spec.EventDate.Format("2006-01-02"))
	}
	if w.EventEnd > len(dates) {
		return Windows{}, newError(KindInsufficientHistory,
			"event window extends %d observations past the end of the series", w.EventEnd-len(dates))
	}
	if w.EventStart < 0 {
		return Windows{}, newError(KindInsufficientHistory,
			"event window starts before the series begins")
	}
	return w, nil
}
