// Package breaks reads challenge breaks from an iCalendar feed. Every ISO
// week touched by an event in the feed is excused from payment.
package breaks

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/apognu/gocal"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Calendar struct {
	Client HTTPClient
	URL    string
}

func NewCalendar(client HTTPClient, url string) *Calendar {
	return &Calendar{Client: client, URL: url}
}

// ExcusedWeeks returns the set of ISO weeks of year covered by a break.
func (c *Calendar) ExcusedWeeks(ctx context.Context, year int) (map[int]bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching breaks calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 { //nolint:gomnd
		return nil, fmt.Errorf("fetching breaks calendar: %s", resp.Status)
	}

	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, 12, 31, 23, 59, 59, 0, time.UTC)
	cal := gocal.NewParser(resp.Body)
	cal.Start, cal.End = &start, &end

	if err := cal.Parse(); err != nil {
		return nil, fmt.Errorf("parsing breaks calendar: %w", err)
	}

	weeks := map[int]bool{}
	for _, e := range cal.Events {
		if e.Start == nil {
			continue
		}
		for _, w := range weeksOf(*e.Start, e.End, year) {
			weeks[w] = true
		}
	}
	return weeks, nil
}

// weeksOf lists the ISO weeks of year between start and end. DTEND is
// exclusive, so an event ending at midnight does not touch that day.
func weeksOf(start time.Time, end *time.Time, year int) []int {
	last := start
	if end != nil && end.After(start) {
		last = end.Add(-time.Nanosecond)
	}

	var weeks []int
	seen := map[int]bool{}
	for d := day(start); !d.After(day(last)); d = d.AddDate(0, 0, 1) {
		y, w := d.ISOWeek()
		if y != year || seen[w] {
			continue
		}
		seen[w] = true
		weeks = append(weeks, w)
	}
	return weeks
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
