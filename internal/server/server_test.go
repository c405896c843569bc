package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/musicvault/internal/shared"
)

type fakeNavigator struct {
	listening bool
	received  []string
}

func (f *fakeNavigator) Navigate(u string) bool {
	if !f.listening {
		return false
	}
	f.received = append(f.received, u)
	return true
}

func postForm(t *testing.T, h http.Handler, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/navigate", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNavigationRelay(t *testing.T) {
	logger := shared.DiscardLogger()

	t.Run("delivers url", func(t *testing.T) {
		nav := &fakeNavigator{listening: true}
		router := NewRelayRouter(nav, logger)

		rec := postForm(t, router, url.Values{"url": {"obsidian://music-vault-callback?code=abc"}})
		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
		if len(nav.received) != 1 || nav.received[0] != "obsidian://music-vault-callback?code=abc" {
			t.Errorf("received = %v", nav.received)
		}
	})

	t.Run("no login waiting", func(t *testing.T) {
		rec := postForm(t, NewRelayRouter(&fakeNavigator{}, logger), url.Values{"url": {"x"}})
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("missing url", func(t *testing.T) {
		rec := postForm(t, NewRelayRouter(&fakeNavigator{listening: true}, logger), url.Values{})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects GET", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewRelayRouter(&fakeNavigator{listening: true}, logger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/navigate?url=x", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewRelayRouter(&fakeNavigator{}, logger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("middleware order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mw("first"), mw("second"))
		router.Handle(http.MethodGet, "/x", http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			order = append(order, "handler")
		}))
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("order = %v", order)
		}
	})
}

func TestServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan string, 1)
	done := make(chan error, 1)

	nav := &fakeNavigator{listening: true}
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", NewRelayRouter(nav, shared.DiscardLogger()), shared.DiscardLogger(), ready)
	}()

	addr := <-ready
	resp, err := http.PostForm("http://"+addr+"/navigate", url.Values{"url": {"obsidian://x"}})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("expected 202, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
