// Package scoring awards weekly challenge points for activities.
package scoring

import (
	"time"

	"github.com/lildude/challengeledger/internal/strava"
)

// DailyPoints awards one point for every day of an ISO week on which the
// athlete logged an activity of at least MinMinutes moving time. Activities
// outside the week are ignored.
type DailyPoints struct {
	MinMinutes int
}

func (d DailyPoints) Points(year, week int, activities []strava.Activity, _ string) int {
	minSeconds := int64(d.MinMinutes) * 60
	days := map[time.Time]bool{}

	for _, a := range activities {
		if a.MovingTime < minSeconds {
			continue
		}
		t := a.StartDateLocal
		if y, w := t.ISOWeek(); y != year || w != week {
			continue
		}
		days[time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)] = true
	}
	return len(days)
}
