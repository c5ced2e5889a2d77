// Package payments works out what every athlete owes for the challenge year.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lildude/challengeledger/internal/config"
	"github.com/lildude/challengeledger/internal/fetcher"
	"github.com/lildude/challengeledger/internal/ledger"
	"github.com/lildude/challengeledger/internal/metrics"
	"github.com/lildude/challengeledger/internal/strava"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// ErrNoAthletes is returned when nobody has registered yet.
var ErrNoAthletes = errors.New("no athletes registered")

type AthleteStore interface {
	LoadAthletes() ([]ledger.Athlete, error)
	SaveCredentials(c *ledger.Credentials, discordUserID string) (*ledger.Athlete, error)
	UpdateAthleteState(a ledger.Athlete) error
}

type TokenRefresher interface {
	Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error)
}

type ActivityFetcher interface {
	Fetch(ctx context.Context, r fetcher.Request) ([]strava.Activity, fetcher.Counts, error)
}

// WeekEvaluator scores one ISO week of activities for the named athlete.
type WeekEvaluator interface {
	Points(year, week int, activities []strava.Activity, athlete string) int
}

// BreakCalendar lists ISO weeks nobody pays for.
type BreakCalendar interface {
	ExcusedWeeks(ctx context.Context, year int) (map[int]bool, error)
}

// Evaluator runs the yearly payment evaluation. Breaks, Metrics and Now are
// optional.
type Evaluator struct {
	Store     AthleteStore
	Refresher TokenRefresher
	Fetcher   ActivityFetcher
	Weeks     WeekEvaluator
	Breaks    BreakCalendar
	Rules     config.Rules
	// Year defaults to the year of Now.
	Year      int
	WindowEnd string
	Now       func() time.Time
	Log       logrus.FieldLogger
	Metrics   *metrics.Metrics
}

type pendingState struct {
	athlete ledger.Athlete
	results []ledger.WeekResult
}

// EvaluateYear refreshes every athlete's token, fetches their activities for
// the year and charges PricePerWeek for each completed week below the points
// threshold. Any failure aborts the whole run; refreshed tokens stay saved.
func (e *Evaluator) EvaluateYear(ctx context.Context) (*Ledger, error) {
	l, err := e.evaluate(ctx)
	switch {
	case err == nil:
		e.Metrics.Evaluation("ok")
	case errors.Is(err, ErrNoAthletes):
		e.Metrics.Evaluation("no_athletes")
	default:
		e.Metrics.Evaluation("error")
	}
	return l, err
}

func (e *Evaluator) evaluate(ctx context.Context) (*Ledger, error) {
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}
	year := e.Year
	if year == 0 {
		year = now.Year()
	}

	window := YearWindow(year, now, e.WindowEnd)
	limit := weekLimit(year, now)
	l := &Ledger{RunID: uuid.NewString(), Year: year}
	log := e.Log.WithFields(logrus.Fields{"run_id": l.RunID, "year": year})

	athletes, err := e.Store.LoadAthletes()
	if err != nil {
		return nil, fmt.Errorf("loading athletes: %w", err)
	}
	if len(athletes) == 0 {
		return nil, ErrNoAthletes
	}

	excused := map[int]bool{}
	if e.Breaks != nil {
		if excused, err = e.Breaks.ExcusedWeeks(ctx, year); err != nil {
			return nil, fmt.Errorf("loading breaks: %w", err)
		}
	}

	var pending []pendingState
	for _, a := range athletes {
		name := a.Name()
		alog := log.WithFields(logrus.Fields{"athlete_id": a.ID(), "athlete": name})

		tok, err := e.Refresher.Refresh(ctx, a.StravaData.Token())
		if err != nil {
			return nil, fmt.Errorf("refreshing token of %s: %w", name, err)
		}
		creds := a.StravaData.WithToken(tok)
		if _, err := e.Store.SaveCredentials(&creds, ""); err != nil {
			return nil, fmt.Errorf("saving credentials of %s: %w", name, err)
		}

		activities, counts, err := e.Fetcher.Fetch(ctx, fetcher.Request{
			AthleteID: a.ID(),
			Name:      name,
			Token:     creds.AccessToken,
			Window:    window,
		})
		l.APIRequests += counts.API
		l.CacheHits += counts.Cache
		if err != nil {
			return nil, err
		}

		owed := 0
		results := []ledger.WeekResult{}
		for week := e.Rules.ChallengeStartWeek; week < limit; week++ {
			if excused[week] {
				continue
			}
			r := ledger.WeekResult{
				Week:     week,
				Points:   e.Weeks.Points(year, week, activities, name),
				Required: e.Rules.PointsRequiredFor(week),
			}
			if r.Points < r.Required {
				r.Owed = e.Rules.PricePerWeek
				owed += r.Owed
				alog.WithFields(logrus.Fields{"week": week, "points": r.Points}).Info("week below required points")
			}
			results = append(results, r)
		}

		l.set(name, owed)
		pending = append(pending, pendingState{athlete: a, results: results})
	}

	for _, p := range pending {
		p.athlete.Vars.WeekResults = p.results
		if err := e.Store.UpdateAthleteState(p.athlete); err != nil {
			return nil, fmt.Errorf("saving week results of %s: %w", p.athlete.Name(), err)
		}
	}

	log.WithFields(logrus.Fields{
		"athletes": len(l.Entries),
		"api":      l.APIRequests,
		"cache":    l.CacheHits,
	}).Info("evaluated yearly payments")
	return l, nil
}
