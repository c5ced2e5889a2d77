// Package strava implements the parts of the Strava API the challenge needs:
// reading activities and keeping OAuth credentials fresh.
package strava

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lildude/challengeledger/internal/client"
	"golang.org/x/oauth2"
)

var (
	BaseURL  = "https://www.strava.com/api/v3"
	Endpoint = oauth2.Endpoint{
		AuthURL:  "https://www.strava.com/oauth/authorize",
		TokenURL: "https://www.strava.com/oauth/token",
	}
)

// NewOauthConfig returns the OAuth2 configuration for the Strava app.
func NewOauthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{"read,activity:read"},
	}
}

// Athlete is the identity block Strava returns with tokens and activities.
type Athlete struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	Firstname string `json:"firstname,omitempty"`
	Lastname  string `json:"lastname,omitempty"`
}

// DisplayName is "Firstname Lastname", falling back to the username.
func (a Athlete) DisplayName() string {
	name := strings.TrimSpace(a.Firstname + " " + a.Lastname)
	if name == "" {
		return a.Username
	}
	return name
}

type Map struct {
	ID              string `json:"id,omitempty"`
	SummaryPolyline string `json:"summary_polyline"`
}

// Activity struct holds only the data we want from the Strava API for an activity.
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type,omitempty"`
	Athlete            Athlete   `json:"athlete"`
	StartDate          time.Time `json:"start_date"`
	StartDateLocal     time.Time `json:"start_date_local"`
	MovingTime         int64     `json:"moving_time"`
	ElapsedTime        int64     `json:"elapsed_time"`
	Distance           float64   `json:"distance"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	Map                Map       `json:"map"`
}

// ListParams are the windowing and paging parameters of GET /athlete/activities.
// Before and After are epoch seconds.
type ListParams struct {
	Before  int64
	After   int64
	Page    int
	PerPage int
}

func (p ListParams) values() url.Values {
	return url.Values{
		"before":   {strconv.FormatInt(p.Before, 10)},
		"after":    {strconv.FormatInt(p.After, 10)},
		"page":     {strconv.Itoa(p.Page)},
		"per_page": {strconv.Itoa(p.PerPage)},
	}
}

// WebhookPayload is the body of a Strava push subscription event.
type WebhookPayload struct {
	AspectType     string            `json:"aspect_type"`
	EventTime      int64             `json:"event_time"`
	ObjectID       int64             `json:"object_id"`
	ObjectType     string            `json:"object_type"`
	OwnerID        int64             `json:"owner_id"`
	SubscriptionID int64             `json:"subscription_id"`
	Updates        map[string]string `json:"updates"`
}

func GetActivity(ctx context.Context, c *client.Client, id int64) (*Activity, error) {
	var a Activity
	req, err := c.NewRequest(ctx, http.MethodGet, fmt.Sprintf("activities/%d", id), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("creating get activity request: %w", err)
	}

	if _, err := c.Do(req, &a); err != nil { //nolint:bodyclose // Do closes the body
		return nil, fmt.Errorf("getting activity %d: %w", id, err)
	}

	return &a, nil
}

// ListActivities returns one page of the authenticated athlete's activities.
func ListActivities(ctx context.Context, c *client.Client, p ListParams) ([]Activity, error) {
	var page []Activity
	req, err := c.NewRequest(ctx, http.MethodGet, "athlete/activities", p.values(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating list activities request: %w", err)
	}

	if _, err := c.Do(req, &page); err != nil { //nolint:bodyclose // Do closes the body
		return nil, fmt.Errorf("listing activities page %d: %w", p.Page, err)
	}

	return page, nil
}
