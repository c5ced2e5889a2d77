// Package total implements the handler that reports what every athlete owes.
package total

import (
	"context"
	"errors"
	"net/http"

	"github.com/lildude/challengeledger/internal/payments"
	"github.com/lildude/challengeledger/internal/report"
	"github.com/sirupsen/logrus"
)

type Evaluator interface {
	EvaluateYear(ctx context.Context) (*payments.Ledger, error)
}

// New returns the /total handler. It runs a full evaluation on every request.
func New(e Evaluator, r *report.Renderer, log logrus.FieldLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		l, err := e.EvaluateYear(req.Context())
		if errors.Is(err, payments.ErrNoAthletes) {
			w.Write([]byte(report.NoAthletesNotice + "\n")) //nolint:errcheck
			return
		}
		if err != nil {
			log.WithError(err).Error("payment evaluation failed")
			w.WriteHeader(http.StatusBadGateway)
			r.Failure(w, err) //nolint:errcheck
			return
		}

		if err := r.Render(w, l); err != nil {
			log.WithError(err).Error("unable to render report")
		}
	}
}
