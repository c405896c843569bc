package auth

import (
	"net/url"
	"strings"

	"github.com/desertthunder/musicvault/internal/shared"
)

const (
	// DefaultAuthorizeURL is Spotify's authorization endpoint.
	DefaultAuthorizeURL = "https://accounts.spotify.com/authorize"

	verifierLength = 64
	stateLength    = 32
)

// PKCESession holds the secrets of one authorization attempt. It is never persisted.
type PKCESession struct {
	Verifier     string
	State        string
	ChallengeURL string
}

// AuthorizationRequest is the fixed client configuration used to build a session.
type AuthorizationRequest struct {
	AuthorizeURL string
	ClientID     string
	Scopes       []string
	RedirectURI  string
}

// BuildAuthorization creates a fresh verifier and state and the matching authorization URL.
func BuildAuthorization(req AuthorizationRequest) (*PKCESession, error) {
	verifier, err := shared.RandomString(verifierLength)
	if err != nil {
		return nil, err
	}
	state, err := shared.RandomString(stateLength)
	if err != nil {
		return nil, err
	}
	return NewPKCESession(req, verifier, state), nil
}

// NewPKCESession builds the session for a known verifier and state. The URL is
// deterministic in its inputs.
func NewPKCESession(req AuthorizationRequest, verifier, state string) *PKCESession {
	authorizeURL := req.AuthorizeURL
	if authorizeURL == "" {
		authorizeURL = DefaultAuthorizeURL
	}

	params := [][2]string{
		{"response_type", "code"},
		{"client_id", req.ClientID},
		{"scope", strings.Join(req.Scopes, " ")},
		{"code_challenge_method", "S256"},
		{"code_challenge", Challenge(verifier)},
		{"redirect_uri", req.RedirectURI},
	}
	if state != "" {
		params = append(params, [2]string{"state", state})
	}

	var query strings.Builder
	for i, p := range params {
		if i > 0 {
			query.WriteByte('&')
		}
		query.WriteString(p[0])
		query.WriteByte('=')
		query.WriteString(url.QueryEscape(p[1]))
	}

	return &PKCESession{
		Verifier:     verifier,
		State:        state,
		ChallengeURL: authorizeURL + "?" + query.String(),
	}
}

// Challenge derives the S256 code challenge: base64url(sha256(verifier)).
func Challenge(verifier string) string {
	return shared.Base64URL(shared.SHA256([]byte(verifier)))
}
