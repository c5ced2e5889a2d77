package strava

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/lildude/challengeledger/internal/cache"
	"github.com/lildude/challengeledger/internal/client"
	"github.com/lildude/challengeledger/internal/metrics"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Source tells whether a page was fetched from Strava or served from the cache.
type Source string

const (
	SourceAPI   Source = "api"
	SourceCache Source = "cache"
)

// Caller lists activity pages, consulting the cache before calling Strava.
// It does not retry failed calls.
type Caller struct {
	baseURL *url.URL
	cache   cache.Cache
	metrics *metrics.Metrics
	log     logrus.FieldLogger
}

// NewCaller returns a Caller. A nil cache disables caching.
func NewCaller(baseURL *url.URL, c cache.Cache, m *metrics.Metrics, log logrus.FieldLogger) *Caller {
	return &Caller{baseURL: baseURL, cache: c, metrics: m, log: log}
}

func cacheKey(athleteID int64, p ListParams) string {
	return fmt.Sprintf("strava:activities:%d:%d:%d:%d:%d", athleteID, p.After, p.Before, p.Page, p.PerPage)
}

// ListActivities returns one page of activities for the athlete owning token.
func (c *Caller) ListActivities(ctx context.Context, athleteID int64, token string, p ListParams) ([]Activity, Source, error) {
	key := cacheKey(athleteID, p)
	log := c.log.WithFields(logrus.Fields{"athlete_id": athleteID, "page": p.Page})

	if c.cache != nil {
		var page []Activity
		err := c.cache.GetJSON(ctx, key, &page)
		switch {
		case err == nil:
			c.metrics.ActivityPage(string(SourceCache))
			log.Debug("activity page served from cache")
			return page, SourceCache, nil
		case !errors.Is(err, cache.ErrMiss):
			log.WithError(err).Warn("unable to read activity page from cache")
		}
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	sc := client.NewClient(c.baseURL, oauth2.NewClient(ctx, ts))

	page, err := ListActivities(ctx, sc, p)
	c.metrics.ActivityPage(string(SourceAPI))
	if err != nil {
		return nil, SourceAPI, err
	}

	if c.cache != nil {
		if err := c.cache.SetJSON(ctx, key, page); err != nil {
			log.WithError(err).Warn("unable to cache activity page")
		}
	}

	return page, SourceAPI, nil
}
