package total

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lildude/challengeledger/internal/fetcher"
	"github.com/lildude/challengeledger/internal/logger"
	"github.com/lildude/challengeledger/internal/payments"
	"github.com/lildude/challengeledger/internal/report"
)

type fakeEvaluator struct {
	ledger *payments.Ledger
	err    error
}

func (f fakeEvaluator) EvaluateYear(context.Context) (*payments.Ledger, error) {
	return f.ledger, f.err
}

func TestTotalHandler(t *testing.T) {
	tests := []struct {
		name       string
		evaluator  fakeEvaluator
		wantStatus int
		wantBody   []string
	}{
		{
			"report",
			fakeEvaluator{ledger: &payments.Ledger{Year: 2024, Entries: []payments.Entry{{Name: "Julia Berg", Owed: 10}}, APIRequests: 4}},
			http.StatusOK,
			[]string{"Payment details for 2024", "Julia Berg owes 10 EUR for 2024. Highest payer!", "API requests: 4 requests"},
		},
		{
			"no athletes",
			fakeEvaluator{err: payments.ErrNoAthletes},
			http.StatusOK,
			[]string{report.NoAthletesNotice},
		},
		{
			"fetch failure",
			fakeEvaluator{err: &fetcher.FetchError{AthleteID: 1, Name: "Julia Berg", Page: 2, Err: errors.New("429 Too Many Requests")}},
			http.StatusBadGateway,
			[]string{"Julia Berg", "429 Too Many Requests"},
		},
	}

	r, err := report.New("en", "EUR")
	if err != nil {
		t.Fatal(err)
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			New(tc.evaluator, r, logger.Discard())(rr, httptest.NewRequest(http.MethodGet, "/total", http.NoBody))

			if rr.Code != tc.wantStatus {
				t.Errorf("expected status %d, got %d", tc.wantStatus, rr.Code)
			}
			for _, want := range tc.wantBody {
				if !strings.Contains(rr.Body.String(), want) {
					t.Errorf("expected body to contain %q, got %q", want, rr.Body.String())
				}
			}
		})
	}
}
