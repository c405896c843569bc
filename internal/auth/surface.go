package auth

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/musicvault/internal/shared"
)

// Surface is the host's authorization window. It shows a URL and reports
// every navigation the user's agent performs afterwards.
type Surface interface {
	Open(ctx context.Context, url string) (Subscription, error)
	Close() error
}

// Subscription delivers navigation URLs until cancelled.
//
// Cancel is idempotent and closes the Navigations channel.
type Subscription interface {
	Navigations() <-chan string
	Cancel()
}

// BrowserSurface opens the authorization URL in the system browser. Since the
// browser hands the custom-scheme redirect to the OS rather than back to us,
// navigations are fed in through [BrowserSurface.Navigate] (by the local relay
// or a pasted URL).
type BrowserSurface struct {
	open    func(string) error
	logger  *log.Logger
	mu      sync.Mutex
	current *subscription
}

// NewBrowserSurface creates a surface that launches URLs with opener.
// A nil opener uses [shared.OpenBrowser].
func NewBrowserSurface(opener func(string) error, logger *log.Logger) *BrowserSurface {
	if opener == nil {
		opener = shared.OpenBrowser
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &BrowserSurface{open: opener, logger: logger}
}

// Open cancels any previous subscription, launches url and returns a new subscription.
func (b *BrowserSurface) Open(ctx context.Context, url string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub := &subscription{ch: make(chan string, 8)}
	b.mu.Lock()
	prev := b.current
	b.current = sub
	b.mu.Unlock()
	if prev != nil {
		b.cancel(prev)
	}

	sub.cancelFn = func() { b.cancel(sub) }
	if err := b.open(url); err != nil {
		b.logger.Warn("could not launch browser", "error", err)
		b.cancel(sub)
		return nil, err
	}
	return sub, nil
}

// Navigate delivers a navigation to the live subscription. It reports false
// when no attempt is listening or its buffer is full.
func (b *BrowserSurface) Navigate(url string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == nil {
		return false
	}
	select {
	case b.current.ch <- url:
		return true
	default:
		return false
	}
}

// Listening reports whether an attempt is waiting for a navigation.
func (b *BrowserSurface) Listening() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current != nil
}

// Close cancels the live subscription. The browser tab itself is left to the user.
func (b *BrowserSurface) Close() error {
	b.mu.Lock()
	sub := b.current
	b.mu.Unlock()
	if sub != nil {
		b.cancel(sub)
	}
	return nil
}

func (b *BrowserSurface) cancel(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.current == sub {
		b.current = nil
	}
	sub.once.Do(func() { close(sub.ch) })
}

type subscription struct {
	ch       chan string
	once     sync.Once
	cancelFn func()
}

func (s *subscription) Navigations() <-chan string { return s.ch }

func (s *subscription) Cancel() {
	if s.cancelFn != nil {
		s.cancelFn()
		return
	}
	s.once.Do(func() { close(s.ch) })
}
