package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicvault/internal/models"
	"github.com/desertthunder/musicvault/internal/shared"
)

// State is the position of an authorization attempt.
type State int

const (
	StateIdle State = iota
	StateAwaitingRedirect
	StateExchangingCode
	StateCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingRedirect:
		return "awaiting_redirect"
	case StateExchangingCode:
		return "exchanging_code"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Failure reasons reported by [FlowError].
const (
	ReasonProviderError  = "provider_error"
	ReasonStateMismatch  = "state_mismatch"
	ReasonMissingCode    = "missing_code"
	ReasonExchangeFailed = "exchange_failed"
	ReasonStoreFailed    = "store_failed"
	ReasonSurfaceClosed  = "surface_closed"
	ReasonSuperseded     = "superseded"
	ReasonCancelled      = "cancelled"
)

// FlowError describes why an attempt ended in [StateFailed].
//
// For [ReasonProviderError] the provider's error code (e.g. "access_denied") is
// part of Err.
type FlowError struct {
	Reason string
	Err    error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("authorization failed (%s): %v", e.Reason, e.Err)
}

func (e *FlowError) Unwrap() error { return e.Err }

// CodeExchanger trades an authorization code and verifier for tokens.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code, verifier string) (*models.TokenPair, error)
}

// ControllerOpts configures a [Controller].
type ControllerOpts struct {
	Request   AuthorizationRequest
	Surface   Surface
	Exchanger CodeExchanger
	Store     *TokenStore
	Logger    *log.Logger
}

// Controller runs authorization attempts. At most one attempt is live at a time.
type Controller struct {
	req       AuthorizationRequest
	surface   Surface
	exchanger CodeExchanger
	store     *TokenStore
	logger    *log.Logger

	mu      sync.Mutex
	seq     uint64
	current *attempt
	state   State
}

type attempt struct {
	id      uint64
	session *PKCESession
	sub     Subscription
	claimed bool // committing; a newer attempt no longer supersedes it
}

// NewController creates a [Controller] in [StateIdle].
func NewController(opts ControllerOpts) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Controller{
		req:       opts.Request,
		surface:   opts.Surface,
		exchanger: opts.Exchanger,
		store:     opts.Store,
		logger:    logger,
	}
}

// State returns the state of the most recent attempt.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Authorize runs one attempt to completion and blocks until it commits or fails.
//
// onComplete is called exactly once, after the pair is committed to the store
// and the surface is closed. It is never called for a failed or superseded attempt.
func (c *Controller) Authorize(ctx context.Context, onComplete func(models.TokenPair)) error {
	session, err := BuildAuthorization(c.req)
	if err != nil {
		return err
	}
	return c.run(ctx, session, onComplete)
}

func (c *Controller) run(ctx context.Context, session *PKCESession, onComplete func(models.TokenPair)) error {
	c.mu.Lock()
	c.seq++
	a := &attempt{id: c.seq, session: session}
	prev := c.current
	c.current = a
	c.state = StateIdle
	c.mu.Unlock()

	if prev != nil && prev.sub != nil {
		c.logger.Debug("superseding authorization attempt", "attempt", prev.id)
		prev.sub.Cancel()
	}

	sub, err := c.surface.Open(ctx, session.ChallengeURL)
	if err != nil {
		return c.fail(a, &FlowError{Reason: ReasonSurfaceClosed, Err: fmt.Errorf("%w: %v", shared.ErrAuthIncomplete, err)})
	}

	if !c.transition(a, StateAwaitingRedirect, sub) {
		sub.Cancel()
		return &FlowError{Reason: ReasonSuperseded, Err: shared.ErrFlowSuperseded}
	}
	c.logger.Info("waiting for authorization redirect", "attempt", a.id)

	redirect, err := c.awaitRedirect(ctx, a, sub)
	sub.Cancel()
	if err != nil {
		return c.fail(a, err)
	}

	code, err := c.parseRedirect(redirect, session)
	if err != nil {
		return c.fail(a, err)
	}

	if !c.transition(a, StateExchangingCode, nil) {
		return &FlowError{Reason: ReasonSuperseded, Err: shared.ErrFlowSuperseded}
	}

	pair, err := c.exchanger.ExchangeCode(ctx, code, session.Verifier)
	if err != nil {
		return c.fail(a, &FlowError{Reason: ReasonExchangeFailed, Err: wrapSentinel(shared.ErrTokenExchangeFailed, err)})
	}
	if pair == nil || !pair.Complete() {
		return c.fail(a, &FlowError{
			Reason: ReasonExchangeFailed,
			Err:    fmt.Errorf("%w: token response is missing a token", shared.ErrTokenExchangeFailed),
		})
	}
	if !c.claim(a) {
		return &FlowError{Reason: ReasonSuperseded, Err: shared.ErrFlowSuperseded}
	}

	if err := c.store.Set(ctx, *pair); err != nil {
		return c.fail(a, &FlowError{Reason: ReasonStoreFailed, Err: err})
	}

	c.finish(a, StateCommitted)
	c.logger.Info("authorization committed", "attempt", a.id, "scope", pair.Scope)

	if onComplete != nil {
		onComplete(*pair)
	}
	return nil
}

// awaitRedirect returns the first navigation that starts with the redirect URI.
func (c *Controller) awaitRedirect(ctx context.Context, a *attempt, sub Subscription) (string, error) {
	for {
		select {
		case <-ctx.Done():
			return "", &FlowError{Reason: ReasonCancelled, Err: ctx.Err()}
		case nav, ok := <-sub.Navigations():
			if !ok {
				if !c.isCurrent(a) {
					return "", &FlowError{Reason: ReasonSuperseded, Err: shared.ErrFlowSuperseded}
				}
				return "", &FlowError{Reason: ReasonSurfaceClosed, Err: shared.ErrAuthIncomplete}
			}
			if !strings.HasPrefix(nav, c.req.RedirectURI) {
				c.logger.Debug("ignoring navigation", "url", nav)
				continue
			}
			return nav, nil
		}
	}
}

func (c *Controller) parseRedirect(redirect string, session *PKCESession) (string, error) {
	u, err := url.Parse(redirect)
	if err != nil {
		return "", &FlowError{Reason: ReasonMissingCode, Err: fmt.Errorf("%w: %v", shared.ErrAuthIncomplete, err)}
	}
	q := u.Query()

	if providerErr := q.Get("error"); providerErr != "" {
		return "", &FlowError{Reason: ReasonProviderError, Err: fmt.Errorf("%w: %s", shared.ErrAuthDenied, providerErr)}
	}
	if state := q.Get("state"); state != "" && session.State != "" && state != session.State {
		return "", &FlowError{Reason: ReasonStateMismatch, Err: shared.ErrAuthDenied}
	}

	code := q.Get("code")
	if code == "" {
		return "", &FlowError{Reason: ReasonMissingCode, Err: shared.ErrAuthIncomplete}
	}
	return code, nil
}

func (c *Controller) fail(a *attempt, err error) error {
	var flowErr *FlowError
	if errors.As(err, &flowErr) && flowErr.Reason == ReasonSuperseded {
		return err
	}
	if !c.finish(a, StateFailed) {
		return &FlowError{Reason: ReasonSuperseded, Err: shared.ErrFlowSuperseded}
	}
	c.logger.Warn("authorization failed", "attempt", a.id, "error", err)
	return err
}

// claim marks a as committing. It reports false when a newer attempt has
// already replaced it.
func (c *Controller) claim(a *attempt) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != a {
		return false
	}
	a.claimed = true
	return true
}

// finish ends a with state s and releases its own subscription. The shared
// surface and the controller state are only touched while a is still current,
// so a newer attempt keeps its window. It reports false for an unclaimed stale
// attempt.
func (c *Controller) finish(a *attempt, s State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != a && !a.claimed {
		return false
	}
	if a.sub != nil {
		a.sub.Cancel()
	}
	if c.current == a {
		c.state = s
		if err := c.surface.Close(); err != nil {
			c.logger.Warn("could not close authorization surface", "error", err)
		}
	}
	return true
}

// transition moves the current attempt to s. It reports false for a stale attempt.
func (c *Controller) transition(a *attempt, s State, sub Subscription) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != a {
		return false
	}
	if sub != nil {
		a.sub = sub
	}
	c.state = s
	return true
}

func (c *Controller) isCurrent(a *attempt) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == a
}

func wrapSentinel(sentinel, err error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}
