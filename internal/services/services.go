package services

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/desertthunder/musicvault/internal/shared"
)

// APIError describes a non-2xx response from a metadata endpoint.
//
// It matches [shared.ErrRemoteFetchFailed] with errors.Is.
type APIError struct {
	Endpoint string
	Status   int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%v: %s returned status %d", shared.ErrRemoteFetchFailed, e.Endpoint, e.Status)
}

func (e *APIError) Unwrap() error {
	return shared.ErrRemoteFetchFailed
}

// IsUnauthorized reports whether err is a 401 from the API, meaning the bearer token
// is expired or revoked and the caller should refresh it.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

var trackIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{22}$`)

// ParseTrackRef extracts a track id from a bare id, a spotify:track:<id> URI or an
// https://open.spotify.com/track/<id> link.
func ParseTrackRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty track reference", shared.ErrMissingArgument)
	}

	id := ref
	switch {
	case strings.HasPrefix(ref, "spotify:track:"):
		id = strings.TrimPrefix(ref, "spotify:track:")
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		u, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		// open.spotify.com/intl-de/track/<id> is also valid
		if len(parts) < 2 || parts[len(parts)-2] != "track" {
			return "", fmt.Errorf("%w: %s is not a track link", shared.ErrInvalidArgument, ref)
		}
		id = parts[len(parts)-1]
	}

	if !trackIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q is not a track id", shared.ErrInvalidArgument, id)
	}
	return id, nil
}
