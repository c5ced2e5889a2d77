package ledger

import (
	"time"

	"github.com/lildude/challengeledger/internal/strava"
	"github.com/sirupsen/logrus"
)

// Owner identifies the athlete a route belongs to.
type Owner struct {
	AthleteID     int64
	DiscordUserID string
	Name          string
}

// OwnerOf returns the Owner for a stored athlete.
func OwnerOf(a Athlete) Owner {
	return Owner{AthleteID: a.ID(), DiscordUserID: a.DiscordUserID, Name: a.Name()}
}

// Route is the reduced form of an activity kept for reporting.
type Route struct {
	UserID             int64      `json:"user_id"`
	DiscordUserID      string     `json:"discord_user_id,omitempty"`
	UserName           string     `json:"user_name"`
	ActivityID         int64      `json:"activity_id"`
	Type               string     `json:"type"`
	StartDate          time.Time  `json:"start_date"`
	MovingTime         int64      `json:"moving_time"`
	Distance           float64    `json:"distance"`
	TotalElevationGain float64    `json:"total_elevation_gain"`
	Map                strava.Map `json:"map"`
}

// NewRoute builds the Route for activity a owned by o.
func NewRoute(a strava.Activity, o Owner) Route {
	return Route{
		UserID:             o.AthleteID,
		DiscordUserID:      o.DiscordUserID,
		UserName:           o.Name,
		ActivityID:         a.ID,
		Type:               a.Type,
		StartDate:          a.StartDate,
		MovingTime:         a.MovingTime,
		Distance:           a.Distance,
		TotalElevationGain: a.TotalElevationGain,
		Map:                a.Map,
	}
}

// LoadRoutes returns the route ledger. A missing or empty file yields an
// empty ledger.
func (s *Store) LoadRoutes() (*RouteLedger, error) {
	s.routeMu.Lock()
	defer s.routeMu.Unlock()

	return s.loadRoutes()
}

func (s *Store) loadRoutes() (*RouteLedger, error) {
	l := &RouteLedger{Routes: []Route{}}
	if _, err := readJSON(s.path(RoutesFile), l); err != nil {
		return nil, err
	}
	if l.Routes == nil {
		l.Routes = []Route{}
	}
	return l, nil
}

// UpsertRoute records activity a for owner o. Activities without a map
// polyline are dropped.
func (s *Store) UpsertRoute(a strava.Activity, o Owner) error {
	log := s.log.WithFields(logrus.Fields{"activity_id": a.ID, "athlete_id": o.AthleteID})

	r := NewRoute(a, o)
	if r.Map.SummaryPolyline == "" {
		s.metrics.Route("dropped")
		log.Debug("dropping route without polyline")
		return nil
	}

	s.routeMu.Lock()
	defer s.routeMu.Unlock()

	l, err := s.loadRoutes()
	if err != nil {
		return err
	}

	replaced := l.Upsert(r)
	if err := writeJSON(s.path(RoutesFile), l); err != nil {
		return err
	}

	if replaced {
		s.metrics.Route("replaced")
		log.Info("replaced route")
	} else {
		s.metrics.Route("inserted")
		log.Info("recorded route")
	}
	return nil
}
