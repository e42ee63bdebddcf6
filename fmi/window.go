package fmi

import (
	"fmt"
	"time"
)

// FMI returns at most this many hours of observations in one query.
const MaxHoursPerQuery = 744

const dateLayout = "2006-01-02"

// Observations are loaded from here on when only an end date is given.
var EarliestObservation = time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)

func ParseDate(str string) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, str, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, str)
	}
	return t, nil
}

// ObservationWindow infers the start and end of the time range to load.
// Dates are "YYYY-MM-DD", a start date begins at midnight and an end date ends
// at 23:59. The end is never later than now.
func ObservationWindow(startDate, endDate string, hours int, now time.Time) (Window, error) {
	if hours < 0 {
		return Window{}, fmt.Errorf("%w: negative hours %d", ErrInvalidWindow, hours)
	}

	hasStart, hasEnd, hasHours := startDate != "", endDate != "", hours > 0
	if !hasStart && !hasEnd && !hasHours {
		return Window{}, ErrNoTimeWindow
	}
	if hasStart && hasEnd && hasHours {
		return Window{}, ErrOverdeterminedWindow
	}

	var w Window
	if hasStart {
		start, err := ParseDate(startDate)
		if err != nil {
			return Window{}, fmt.Errorf("start_date: %w", err)
		}
		w.Start = start
	}
	if hasEnd {
		end, err := ParseDate(endDate)
		if err != nil {
			return Window{}, fmt.Errorf("end_date: %w", err)
		}
		w.End = end.Add(24*time.Hour - time.Minute)
	}

	now = now.UTC().Truncate(time.Minute)
	h := time.Duration(hours) * time.Hour

	switch {
	case !hasStart && !hasEnd:
		w.Start = now.Add(-h)
		w.End = now
	case hasEnd && !hasStart:
		if hasHours {
			w.Start = w.End.Add(-h)
		} else {
			w.Start = EarliestObservation
		}
	case hasStart && !hasEnd:
		if hasHours {
			w.End = w.Start.Add(h)
		} else {
			w.End = now
		}
	}

	// No use trying to load the future
	if w.End.After(now) {
		w.End = now
	}

	if w.Start.After(w.End) {
		return Window{}, fmt.Errorf("%w: %s > %s", ErrInvalidWindow,
			w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}

	return w, nil
}

// ForecastWindow runs from now and as many hours ahead as asked for, or as far
// as the model predicts when hours is zero.
func ForecastWindow(model Model, hours int, now time.Time) (Window, error) {
	if _, err := model.queryID(); err != nil {
		return Window{}, err
	}
	if hours < 0 {
		return Window{}, fmt.Errorf("%w: negative hours %d", ErrInvalidWindow, hours)
	}
	if hours == 0 {
		hours = model.defaultHours()
	}
	now = now.UTC().Truncate(time.Minute)
	return Window{Start: now, End: now.Add(time.Duration(hours) * time.Hour)}, nil
}

// MonthChunks splits windows longer than MaxHoursPerQuery into blocks that end
// at the last hour of each calendar month.
func MonthChunks(w Window) []Window {
	if w.Hours() <= MaxHoursPerQuery {
		return []Window{w}
	}

	var chunks []Window
	start := w.Start
	for !start.After(w.End) {
		last := monthLastHour(start)
		next := last.Add(time.Hour)
		if last.Before(start) {
			// Less than an hour left of the month, no hourly value there
			start = next
			continue
		}
		if w.End.Before(next) {
			return append(chunks, Window{Start: start, End: w.End})
		}
		chunks = append(chunks, Window{Start: start, End: last})
		start = next
	}
	return chunks
}

func monthLastHour(t time.Time) time.Time {
	t = t.UTC()
	firstOfNext := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.Add(-time.Hour)
}
