package payments

import (
	"time"

	"github.com/lildude/challengeledger/internal/config"
	"github.com/lildude/challengeledger/internal/fetcher"
)

// YearWindow returns the fetch window for year as seen at now. With
// config.WindowLastSunday the window ends on the most recent Sunday, today
// included, when that falls inside year, and activities on that Sunday are
// listed.
func YearWindow(year int, now time.Time, policy string) fetcher.Window {
	loc := now.Location()
	w := fetcher.Window{
		Start: time.Date(year, time.January, 1, 0, 0, 0, 0, loc),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, loc),
	}

	if policy == config.WindowLastSunday {
		w.InclusiveEnd = true
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		sunday := today.AddDate(0, 0, -int(today.Weekday()))
		if sunday.Before(w.End) {
			w.End = sunday
		}
		if w.End.Before(w.Start) {
			w.End = w.Start
		}
	}
	return w
}

// weekLimit is the first ISO week of year that is not complete at now.
func weekLimit(year int, now time.Time) int {
	y, w := now.ISOWeek()
	switch {
	case y > year:
		// 28 December always falls in the last ISO week of its year.
		_, last := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
		return last + 1
	case y < year:
		return 1
	default:
		return w
	}
}
