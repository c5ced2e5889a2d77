package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
)

var baseURL = &url.URL{Scheme: "http", Host: "example.com", Path: "/"}

// TestNewClient confirms that a client can be created with the default baseURL
// and default User-Agent.
func TestNewClient(t *testing.T) {
	c := NewClient(baseURL, nil)

	if c.BaseURL.String() != baseURL.String() {
		t.Errorf("NewClient BaseURL is %v, expected %v", c.BaseURL, baseURL)
	}
	if c.userAgent != userAgent {
		t.Errorf("NewClient User-Agent is %v, expected %v", c.userAgent, userAgent)
	}

	t.Run("base path without trailing slash", func(t *testing.T) {
		u, _ := url.Parse("https://www.strava.com/api/v3")
		c := NewClient(u, nil)
		if c.BaseURL.String() != "https://www.strava.com/api/v3/" {
			t.Errorf("expected trailing slash, got %v", c.BaseURL)
		}
		if u.Path != "/api/v3" {
			t.Errorf("caller's URL was modified: %v", u)
		}
	})
}

// TestNewRequest confirms that NewRequest returns an API request with the
// correct URL, a correctly encoded body and the correct User-Agent and
// Content-Type headers set.
func TestNewRequest(t *testing.T) {
	c := NewClient(baseURL, nil)

	type TestInfo struct {
		Age   int    `json:"age"`
		Email string `json:"email"`
	}

	t.Run("valid request", func(t *testing.T) {
		inURL, outURL := "foo", baseURL.String()+"foo"
		inBody, outBody := &TestInfo{Age: 99, Email: "user@example.com"}, `{"age":99,"email":"user@example.com"}`+"\n"

		req, err := c.NewRequest(context.Background(), "GET", inURL, nil, inBody)
		if err != nil {
			t.Errorf("Unexpected error: %s", err)
		}
		if req.URL.String() != outURL {
			t.Errorf("Expecting URL %v, got %v", outURL, req.URL.String())
		}

		body, _ := io.ReadAll(req.Body)
		if string(body) != outBody {
			t.Errorf("Expecting body %v, got %v", outBody, string(body))
		}
		if req.Header.Get("User-Agent") != userAgent {
			t.Errorf("Expecting User-Agent %v, got %v", userAgent, req.Header.Get("User-Agent"))
		}
		if req.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expecting Content-Type %v, got %v", "application/json", req.Header.Get("Content-Type"))
		}
	})

	t.Run("request with query values", func(t *testing.T) {
		q := url.Values{"page": {"2"}, "per_page": {"30"}}
		req, err := c.NewRequest(context.Background(), "GET", "athlete/activities", q, nil)
		if err != nil {
			t.Fatalf("Unexpected error: %s", err)
		}
		want := baseURL.String() + "athlete/activities?page=2&per_page=30"
		if req.URL.String() != want {
			t.Errorf("Expecting URL %v, got %v", want, req.URL.String())
		}
	})

	t.Run("request with invalid JSON", func(t *testing.T) {
		type T struct{ A map[interface{}]interface{} }
		_, err := c.NewRequest(context.Background(), "GET", ".", nil, &T{})
		if err == nil {
			t.Error("Expected error")
		}
	})

	t.Run("request with an invalid URL", func(t *testing.T) {
		_, err := c.NewRequest(context.Background(), "GET", ":", nil, nil)
		if err == nil {
			t.Error("Expected error")
		}
	})

	t.Run("request with an invalid Method", func(t *testing.T) {
		_, err := c.NewRequest(context.Background(), "\n", "/", nil, nil)
		if err == nil {
			t.Error("Expected error")
		}
	})

	t.Run("request with an empty body", func(t *testing.T) {
		req, err := c.NewRequest(context.Background(), "GET", ".", nil, nil)
		if err != nil {
			t.Error("Unexpected error")
		}
		if req.Body != nil {
			t.Error("Expected nil body")
		}
	})
}

// TestDo confirms that Do returns a JSON decoded value when making a request and
// that non-2xx responses surface as *ErrorResponse.
func TestDo(t *testing.T) {
	t.Run("successful GET request", func(t *testing.T) {
		client, mux, teardown := setup()
		defer teardown()

		type foo struct{ A string }

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				t.Errorf("Expected GET, got %s", r.Method)
			}
			fmt.Fprint(w, `{"A":"a"}`)
		})

		want := &foo{"a"}
		got := new(foo)

		req, _ := client.NewRequest(context.Background(), "GET", ".", nil, nil)
		client.Do(req, got) //nolint:errcheck,bodyclose // we don't care about this in tests

		if !reflect.DeepEqual(got, want) {
			t.Errorf("Expecting %v, got %v", want, got)
		}
	})

	t.Run("GET request that returns an HTTP error", func(t *testing.T) {
		client, mux, teardown := setup()
		defer teardown()

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		req, _ := client.NewRequest(context.Background(), "GET", ".", nil, nil)
		resp, err := client.Do(req, nil) //nolint:bodyclose // we don't care about this in tests

		if resp.StatusCode != http.StatusInternalServerError {
			t.Errorf("Expecting status code %v, got %v", http.StatusInternalServerError, resp.StatusCode)
		}
		var er *ErrorResponse
		if !errors.As(err, &er) {
			t.Fatalf("Expected *ErrorResponse, got %T", err)
		}
		if er.StatusCode != http.StatusInternalServerError {
			t.Errorf("Expecting error status %v, got %v", http.StatusInternalServerError, er.StatusCode)
		}
	})

	t.Run("GET request that returns a Strava error body", func(t *testing.T) {
		client, mux, teardown := setup()
		defer teardown()

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"message":"Rate Limit Exceeded","errors":[]}`)
		})

		req, _ := client.NewRequest(context.Background(), "GET", ".", nil, nil)
		_, err := client.Do(req, nil) //nolint:bodyclose // we don't care about this in tests

		var er *ErrorResponse
		if !errors.As(err, &er) {
			t.Fatalf("Expected *ErrorResponse, got %T", err)
		}
		if er.Message != "Rate Limit Exceeded" {
			t.Errorf("Expecting message %q, got %q", "Rate Limit Exceeded", er.Message)
		}
	})

	t.Run("GET request that receives an empty payload", func(t *testing.T) {
		client, mux, teardown := setup()
		defer teardown()

		type foo struct{ A string }

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		req, _ := client.NewRequest(context.Background(), "GET", ".", nil, nil)
		got := new(foo)
		resp, err := client.Do(req, got) //nolint:bodyclose // we don't care about this in tests

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expecting status code %v, got %v", http.StatusOK, resp.StatusCode)
		}
		if err != nil {
			t.Error("Unexpected error")
		}
	})

	t.Run("GET request that receives an HTML response", func(t *testing.T) {
		client, mux, teardown := setup()
		defer teardown()

		type foo struct{ A string }

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, `<!doctype html><html lang="en-GB"><body></body></html>`)
		})

		req, _ := client.NewRequest(context.Background(), "GET", ".", nil, nil)
		got := new(foo)
		_, err := client.Do(req, got) //nolint:bodyclose // we don't care about this in tests

		if err == nil {
			t.Error("Expected error")
		}
	})

	t.Run("GET request on a cancelled context", func(t *testing.T) {
		client, mux, teardown := setup()
		defer teardown()

		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req, _ := client.NewRequest(ctx, "GET", ".", nil, nil)

		resp, err := client.Do(req, nil) //nolint:bodyclose // we don't care about this in tests

		if err == nil {
			t.Error("Expected error")
		}
		if resp != nil {
			t.Error("Expected nil response")
		}
	})
}

// Setup establishes a test Server that can be used to provide mock responses during testing.
// It returns a pointer to a client, a mux and a teardown function that
// must be called when testing is complete.
func setup() (client *Client, mux *http.ServeMux, teardown func()) {
	mux = http.NewServeMux()
	server := httptest.NewServer(mux)

	surl, _ := url.Parse(server.URL + "/")
	c := NewClient(surl, nil)

	return c, mux, server.Close
}
