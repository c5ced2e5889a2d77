// Package auth implements the Strava authorization handler.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/lildude/challengeledger/internal/ledger"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

type CredentialStore interface {
	UpsertAthleteCredentials(raw []byte, discordUserID string) (*ledger.Athlete, error)
}

// Subscriber registers the webhook with Strava.
type Subscriber interface {
	Ensure(ctx context.Context) (bool, error)
}

// Handler serves /auth. Without a state it redirects to Strava, carrying the
// discord_id query parameter through the redirect URI. When Strava sends the
// athlete back it exchanges the code and stores the credentials.
type Handler struct {
	OAuth      *oauth2.Config
	StateToken string
	Store      CredentialStore
	// Subscriber is optional.
	Subscriber Subscriber
	Log        logrus.FieldLogger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.Log.WithError(err).Error("unable to parse form")
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	discordID := r.Form.Get("discord_id")
	cfg := h.config(discordID)

	state := r.Form.Get("state")
	if state == "" {
		u := cfg.AuthCodeURL(h.StateToken)
		h.Log.WithField("discord_id", discordID).Info("redirecting to strava auth")
		http.Redirect(w, r, u, http.StatusFound)
		return
	}

	if state != h.StateToken {
		http.Error(w, "state invalid", http.StatusBadRequest)
		return
	}
	code := r.Form.Get("code")
	if code == "" {
		http.Error(w, "code not found", http.StatusBadRequest)
		return
	}

	token, err := cfg.Exchange(r.Context(), code)
	if err != nil {
		h.Log.WithError(err).Error("token exchange failed")
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	raw, err := credentialsPayload(token, r.Form.Get("scope"))
	if err != nil {
		h.Log.WithError(err).Error("unable to encode credentials")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	athlete, err := h.Store.UpsertAthleteCredentials(raw, discordID)
	if err != nil {
		h.Log.WithError(err).Error("unable to store credentials")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.Log.WithFields(logrus.Fields{"athlete_id": athlete.ID(), "discord_id": discordID}).Info("successfully authenticated")

	if h.Subscriber != nil {
		created, err := h.Subscriber.Ensure(r.Context())
		if err != nil {
			h.Log.WithError(err).Warn("failed to subscribe to strava webhook")
		} else if created {
			h.Log.Info("successfully subscribed to strava activity feed")
		}
	}

	fmt.Fprintf(w, "Registered %s for the challenge.\n", athlete.Name())
}

func (h *Handler) config(discordID string) *oauth2.Config {
	cfg := *h.OAuth
	if discordID == "" {
		return &cfg
	}
	u, err := url.Parse(cfg.RedirectURL)
	if err != nil {
		return &cfg
	}
	q := u.Query()
	q.Set("discord_id", discordID)
	u.RawQuery = q.Encode()
	cfg.RedirectURL = u.String()
	return &cfg
}

// credentialsPayload rebuilds the token endpoint response, keeping the whole
// athlete object, plus the scope the athlete granted.
func credentialsPayload(t *oauth2.Token, scope string) ([]byte, error) {
	p := map[string]any{
		"token_type":    t.TokenType,
		"access_token":  t.AccessToken,
		"refresh_token": t.RefreshToken,
		"expires_at":    t.Expiry.Unix(),
		"expires_in":    t.Extra("expires_in"),
		"athlete":       t.Extra("athlete"),
	}
	if v := t.Extra("expires_at"); v != nil {
		p["expires_at"] = v
	}
	if scope != "" {
		p["scope"] = scope
	}
	return json.Marshal(p)
}
