package strava

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/lildude/challengeledger/internal/client"
)

// Subscription is a Strava push subscription.
type Subscription struct {
	ID          int64  `json:"id"`
	CallbackURL string `json:"callback_url"`
}

// Subscriber makes sure the application is subscribed to activity events.
type Subscriber struct {
	Client       *client.Client
	ClientID     string
	ClientSecret string
	CallbackURL  string
	VerifyToken  string
}

func (s *Subscriber) credentials() url.Values {
	return url.Values{
		"client_id":     {s.ClientID},
		"client_secret": {s.ClientSecret},
	}
}

// Subscriptions lists the push subscriptions of the application.
func (s *Subscriber) Subscriptions(ctx context.Context) ([]Subscription, error) {
	var subs []Subscription
	req, err := s.Client.NewRequest(ctx, http.MethodGet, "push_subscriptions", s.credentials(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating list subscriptions request: %w", err)
	}
	if _, err := s.Client.Do(req, &subs); err != nil { //nolint:bodyclose // Do closes the body
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	return subs, nil
}

// Ensure creates a subscription for CallbackURL unless one already exists.
// Strava allows one subscription per application, so any other callback is
// reported as an error.
func (s *Subscriber) Ensure(ctx context.Context) (created bool, err error) {
	subs, err := s.Subscriptions(ctx)
	if err != nil {
		return false, err
	}
	for _, sub := range subs {
		if sub.CallbackURL == s.CallbackURL {
			return false, nil
		}
		return false, fmt.Errorf("subscription %d already points at %s", sub.ID, sub.CallbackURL)
	}

	q := s.credentials()
	q.Set("callback_url", s.CallbackURL)
	q.Set("verify_token", s.VerifyToken)
	req, err := s.Client.NewRequest(ctx, http.MethodPost, "push_subscriptions", q, nil)
	if err != nil {
		return false, fmt.Errorf("creating subscribe request: %w", err)
	}
	var sub Subscription
	if _, err := s.Client.Do(req, &sub); err != nil { //nolint:bodyclose // Do closes the body
		return false, fmt.Errorf("subscribing to activity events: %w", err)
	}
	return true, nil
}
