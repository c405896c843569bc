package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/musicvault/internal/models"
	"github.com/desertthunder/musicvault/internal/server"
	"github.com/desertthunder/musicvault/internal/shared"
	"github.com/urfave/cli/v3"
)

const publicNotice = `ℹ musicvault signs in with Spotify's public PKCE flow.
  No client secret is stored; tokens are kept in the local database only.
`

// AuthLogin runs the PKCE authorization flow and stores the resulting tokens.
//
// The redirect reaches the flow either through the local relay (POST /navigate,
// fed by 'musicvault auth callback') or as a URL pasted on stdin.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}
	if err := r.open(); err != nil {
		return err
	}

	r.showNoticeOnce(ctx)

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()

	if !cmd.Bool("no-relay") {
		r.startRelay(relayCtx)
	}
	go r.readNavigations(relayCtx)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	r.writePlain("→ After approving, paste the %s... URL here (%s timeout)\n",
		r.config.Spotify.RedirectURI, cmd.Duration("timeout"))

	var committed models.TokenPair
	if err := r.controller.Authorize(ctx, func(pair models.TokenPair) { committed = pair }); err != nil {
		return err
	}

	r.writePlain("✓ Signed in to Spotify\n")
	if !committed.ExpiresAt.IsZero() {
		r.writePlain("Access token expires at %s\n", committed.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

func (r *Runner) showNoticeOnce(ctx context.Context) {
	shown, err := r.tokens.HasNotifiedOnce(ctx)
	if err != nil {
		r.logger.Warn("could not read notice flag", "error", err)
		return
	}
	if shown {
		return
	}
	r.writePlain(publicNotice)
	if err := r.tokens.MarkNotified(ctx); err != nil {
		r.logger.Warn("could not persist notice flag", "error", err)
	}
}

// startRelay serves the navigation relay until ctx is done. A relay that cannot
// bind is logged and login continues with pasted URLs only.
func (r *Runner) startRelay(ctx context.Context) {
	ready := make(chan string, 1)
	failed := make(chan error, 1)
	router := server.NewRelayRouter(r.surface, r.logger)

	go func() {
		if err := server.Serve(ctx, r.config.Server.Addr(), router, r.logger, ready); err != nil {
			failed <- err
		}
	}()

	select {
	case addr := <-ready:
		r.logger.Debug("navigation relay ready", "addr", addr)
	case err := <-failed:
		r.logger.Warn("navigation relay unavailable; paste the redirect URL instead", "error", err)
	case <-ctx.Done():
	}
}

// readNavigations feeds each non-empty input line to the surface, waiting for
// an attempt to be listening before delivering it.
func (r *Runner) readNavigations(ctx context.Context) {
	scanner := bufio.NewScanner(r.input)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		for !r.surface.Listening() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
		}
		if !r.surface.Navigate(line) {
			r.logger.Warn("dropped pasted URL; the attempt is no longer listening", "url", line)
		}
	}
}

// AuthLogout removes the stored token pair.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}
	if err := r.tokens.Clear(ctx); err != nil {
		return err
	}
	r.logger.Info("tokens cleared")
	return r.writePlain("✓ Signed out\n")
}

type authStatus struct {
	Authenticated bool      `json:"authenticated"`
	Expired       bool      `json:"expired"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
	Scope         string    `json:"scope,omitempty"`
}

// AuthStatus reports whether a token pair is stored.
//
// An absent pair and an unreadable store are reported differently: the first
// prompts a login, the second is returned as an error.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	pair, err := r.tokens.Get(ctx)
	if err != nil {
		return err
	}

	status := authStatus{}
	if pair != nil {
		status.Authenticated = true
		status.Expired = pair.Expired(time.Now(), 0)
		status.ExpiresAt = pair.ExpiresAt
		status.Scope = pair.Scope
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if !status.Authenticated {
		r.writePlain("✗ Not signed in\n")
		return r.writePlain("Run 'musicvault auth login' to authorize with Spotify\n")
	}
	r.writePlain("✓ Signed in to Spotify\n")
	if status.Scope != "" {
		r.writePlain("Scope: %s\n", status.Scope)
	}
	if !status.ExpiresAt.IsZero() {
		state := "valid until"
		if status.Expired {
			state = "expired at (will refresh on next use)"
		}
		r.writePlain("Access token %s %s\n", state, status.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

// AuthCallback forwards a redirect URL to the relay of a running login.
//
// This is what an OS handler registered for the obsidian:// scheme calls.
func (r *Runner) AuthCallback(ctx context.Context, cmd *cli.Command) error {
	target := cmd.StringArg("url")
	if target == "" {
		return fmt.Errorf("%w: redirect url", shared.ErrMissingArgument)
	}

	endpoint := fmt.Sprintf("http://%s/navigate", r.config.Server.Addr())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(url.Values{"url": {target}}.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: no login is running (%v)", shared.ErrAuthIncomplete, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		r.logger.Debug("redirect delivered to relay")
		return r.writePlain("✓ Redirect delivered\n")
	case http.StatusConflict:
		return fmt.Errorf("%w: no authorization is waiting", shared.ErrAuthIncomplete)
	default:
		return errors.New("relay rejected redirect: " + resp.Status)
	}
}
