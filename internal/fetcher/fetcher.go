// Package fetcher retrieves an athlete's activities for a date window by
// walking the pages of the Strava activity list.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/lildude/challengeledger/internal/strava"
	"github.com/sirupsen/logrus"
)

// PerPage is the page size requested from Strava.
const PerPage = 30

// Lister returns one page of activities and where it came from.
type Lister interface {
	ListActivities(ctx context.Context, athleteID int64, token string, p strava.ListParams) ([]strava.Activity, strava.Source, error)
}

// Window is an inclusive range of calendar dates. Only the dates of Start and
// End are significant.
type Window struct {
	Start time.Time
	End   time.Time
	// InclusiveEnd moves the "before" bound to the start of the day after End,
	// so activities logged on End are listed too.
	InclusiveEnd bool
}

// After is the epoch used as the "after" query parameter.
func (w Window) After() int64 { return w.Start.Unix() }

// Before is the epoch used as the "before" query parameter.
func (w Window) Before() int64 {
	if w.InclusiveEnd {
		return w.End.AddDate(0, 0, 1).Unix()
	}
	return w.End.Unix()
}

// pastEnd reports whether the local date of t is after the window's end date.
func (w Window) pastEnd(t time.Time) bool {
	return civil(t).After(civil(w.End))
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Request describes one fetch.
type Request struct {
	AthleteID int64
	Name      string
	Token     string
	Window    Window
}

// Counts tallies where the pages of a fetch came from.
type Counts struct {
	API   int
	Cache int
}

func (c *Counts) Add(o Counts) {
	c.API += o.API
	c.Cache += o.Cache
}

// FetchError reports a failed page request. Activities fetched before the
// failure are discarded.
type FetchError struct {
	AthleteID int64
	Name      string
	Page      int
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching activities of %s (%d), page %d: %v", e.Name, e.AthleteID, e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

type Fetcher struct {
	lister Lister
	log    logrus.FieldLogger
}

func New(l Lister, log logrus.FieldLogger) *Fetcher {
	return &Fetcher{lister: l, log: log}
}

// Fetch returns every activity Strava lists for the request window. Paging
// stops at the first empty page, or after the first page holding an activity
// dated past the window end: Strava lists newest first, so later pages hold
// nothing newer. Pages are returned as received, without filtering.
func (f *Fetcher) Fetch(ctx context.Context, r Request) ([]strava.Activity, Counts, error) {
	var (
		activities []strava.Activity
		counts     Counts
	)
	log := f.log.WithFields(logrus.Fields{"athlete_id": r.AthleteID, "athlete": r.Name})

	for page := 1; ; page++ {
		p := strava.ListParams{
			Before:  r.Window.Before(),
			After:   r.Window.After(),
			Page:    page,
			PerPage: PerPage,
		}

		data, src, err := f.lister.ListActivities(ctx, r.AthleteID, r.Token, p)
		switch src {
		case strava.SourceAPI:
			counts.API++
		case strava.SourceCache:
			counts.Cache++
		}
		if err != nil {
			return nil, counts, &FetchError{AthleteID: r.AthleteID, Name: r.Name, Page: page, Err: err}
		}

		if len(data) == 0 {
			break
		}
		activities = append(activities, data...)

		if f.reachedEnd(data, r.Window) {
			log.WithField("page", page).Debug("page reaches past the window end")
			break
		}
	}

	log.WithFields(logrus.Fields{
		"activities": len(activities),
		"api":        counts.API,
		"cache":      counts.Cache,
	}).Info("fetched activities")

	if activities == nil {
		activities = []strava.Activity{}
	}
	return activities, counts, nil
}

func (f *Fetcher) reachedEnd(page []strava.Activity, w Window) bool {
	for _, a := range page {
		if w.pastEnd(a.StartDateLocal) {
			return true
		}
	}
	return false
}
