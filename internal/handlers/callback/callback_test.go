package callback

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lildude/challengeledger/internal/logger"
)

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name        string
		verifyToken string
		query       string
		wantStatus  int
		wantBody    string
	}{
		{
			name:        "valid subscription",
			verifyToken: "mytoken",
			query:       "hub.mode=subscribe&hub.challenge=mychallenge&hub.verify_token=mytoken",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "missing challenge",
			verifyToken: "mytoken",
			query:       "hub.mode=subscribe&hub.verify_token=mytoken",
			wantStatus:  http.StatusBadRequest,
			wantBody:    "missing query param: hub.challenge",
		},
		{
			name:        "missing verify token",
			verifyToken: "mytoken",
			query:       "hub.mode=subscribe&hub.challenge=mychallenge",
			wantStatus:  http.StatusBadRequest,
			wantBody:    "missing query param: hub.verify_token",
		},
		{
			name:        "wrong verify token",
			verifyToken: "mytoken",
			query:       "hub.mode=subscribe&hub.challenge=mychallenge&hub.verify_token=wrong",
			wantStatus:  http.StatusBadRequest,
			wantBody:    "verify token mismatch",
		},
		{
			name:        "configured token is used instead of the environment",
			verifyToken: "configured",
			query:       "hub.mode=subscribe&hub.challenge=mychallenge&hub.verify_token=fromenv",
			wantStatus:  http.StatusBadRequest,
			wantBody:    "verify token mismatch",
		},
		{
			name:        "challenge echoed verbatim",
			verifyToken: "configured",
			query:       "hub.mode=subscribe&hub.challenge=15f7d1a91c1f40f8a748fd134752feb3&hub.verify_token=configured",
			wantStatus:  http.StatusOK,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("STRAVA_VERIFY_TOKEN", "fromenv")

			req := httptest.NewRequest(http.MethodGet, "/webhook?"+tc.query, http.NoBody)
			rr := httptest.NewRecorder()
			New(tc.verifyToken, logger.Discard())(rr, req)

			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rr.Code)
			}
			if tc.wantStatus != http.StatusOK {
				if rr.Body.String() != tc.wantBody {
					t.Errorf("expected %q, got %q", tc.wantBody, rr.Body.String())
				}
				return
			}

			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON content type, got %q", ct)
			}
			var body map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("expected a JSON body, got %q: %v", rr.Body.String(), err)
			}
			want := req.URL.Query().Get("hub.challenge")
			if len(body) != 1 || body["hub.challenge"] != want {
				t.Errorf("expected only hub.challenge=%q, got %v", want, body)
			}
		})
	}
}
