package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
)

// Navigator receives navigation URLs. It reports false when nothing is listening.
type Navigator interface {
	Navigate(url string) bool
}

// NavigationRelay forwards URLs posted to /navigate to a [Navigator].
type NavigationRelay struct {
	navigator Navigator
	logger    *log.Logger
}

// NewNavigationRelay creates a relay feeding navigator.
func NewNavigationRelay(navigator Navigator, logger *log.Logger) *NavigationRelay {
	return &NavigationRelay{navigator: navigator, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (h *NavigationRelay) Routes() []string {
	return []string{"/navigate"}
}

// ServeHTTP accepts a POST with a "url" form value.
//
// Responds 202 when the URL was delivered, 400 when it is missing and 409 when no login is waiting.
func (h *NavigationRelay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 16<<10)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	target := strings.TrimSpace(r.PostForm.Get("url"))
	if target == "" {
		http.Error(w, "Missing url", http.StatusBadRequest)
		return
	}

	if !h.navigator.Navigate(target) {
		h.logger.Warn("navigation received with no login waiting")
		http.Error(w, "No authorization in progress", http.StatusConflict)
		return
	}

	h.logger.Debug("navigation relayed")
	w.WriteHeader(http.StatusAccepted)
	fmt.Fprintln(w, "accepted")
}

// LoggingMiddleware logs the method, path and status of every request.
// Query strings are left out since they can carry authorization codes.
func LoggingMiddleware(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
