// Package update implements the webhook handler that records activities as routes.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/lildude/challengeledger/internal/client"
	"github.com/lildude/challengeledger/internal/ledger"
	"github.com/lildude/challengeledger/internal/strava"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

type Store interface {
	FindAthlete(id int64) (*ledger.Athlete, error)
	SaveCredentials(c *ledger.Credentials, discordUserID string) (*ledger.Athlete, error)
	UpsertRoute(a strava.Activity, o ledger.Owner) error
}

type TokenRefresher interface {
	Refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error)
}

// Handler receives Strava push events. Created and updated activities of
// registered athletes are fetched and stored in the route ledger.
type Handler struct {
	Store     Store
	Refresher TokenRefresher
	BaseURL   *url.URL
	Log       logrus.FieldLogger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var webhook strava.WebhookPayload
	if r.Body == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	body, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(body, &webhook); err != nil {
		h.Log.WithError(err).Error("unable to unmarshal webhook payload")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	log := h.Log.WithFields(logrus.Fields{
		"aspect_type": webhook.AspectType,
		"object_id":   webhook.ObjectID,
		"owner_id":    webhook.OwnerID,
	})

	if webhook.ObjectType != "activity" || (webhook.AspectType != "create" && webhook.AspectType != "update") {
		log.Info("ignoring webhook")
		w.WriteHeader(http.StatusOK)
		return
	}

	athlete, err := h.Store.FindAthlete(webhook.OwnerID)
	if errors.Is(err, ledger.ErrAthleteNotFound) {
		log.Info("ignoring activity of unregistered athlete")
		w.WriteHeader(http.StatusOK)
		return
	}
	if err != nil {
		log.WithError(err).Error("unable to load athlete")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	tok, err := h.Refresher.Refresh(r.Context(), athlete.StravaData.Token())
	if err != nil {
		log.WithError(err).Error("unable to refresh token")
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	if tok.AccessToken != athlete.StravaData.AccessToken {
		creds := athlete.StravaData.WithToken(tok)
		if _, err := h.Store.SaveCredentials(&creds, ""); err != nil {
			log.WithError(err).Error("unable to save refreshed token")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		log.Info("updated token")
	}

	tc := oauth2.NewClient(r.Context(), oauth2.StaticTokenSource(tok))
	sc := client.NewClient(h.BaseURL, tc)

	activity, err := strava.GetActivity(r.Context(), sc, webhook.ObjectID)
	if err != nil {
		log.WithError(err).Error("unable to get activity")
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	if err := h.Store.UpsertRoute(*activity, ledger.OwnerOf(*athlete)); err != nil {
		log.WithError(err).Error("unable to record route")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	log.WithField("activity", activity.Name).Info("recorded route")

	w.WriteHeader(http.StatusOK)
}
