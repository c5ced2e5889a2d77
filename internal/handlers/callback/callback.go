// Package callback implements the validation handler for the Strava webhook subscription.
package callback

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// New returns the handler Strava calls to validate a push subscription.
func New(verifyToken string, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		challenge, ok := q["hub.challenge"]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("missing query param: hub.challenge")) //nolint:errcheck
			return
		}
		verify, ok := q["hub.verify_token"]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("missing query param: hub.verify_token")) //nolint:errcheck
			return
		}
		if verify[0] != verifyToken {
			log.Warn("webhook validation with wrong verify token")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("verify token mismatch")) //nolint:errcheck
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"hub.challenge": challenge[0]}); err != nil {
			log.WithError(err).Error("encoding callback response")
			return
		}
		log.Info("validated webhook subscription")
	}
}
