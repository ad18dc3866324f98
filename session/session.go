// Package session orchestrates one scraping session: a single Fetcher,
// a retry policy, and pagination, with guaranteed teardown.
package session

import (
	"context"
	"log/slog"

	"github.com/use-agent/gleaner/document"
	"github.com/use-agent/gleaner/fetcher"
	"github.com/use-agent/gleaner/models"
	"github.com/use-agent/gleaner/paginate"
	"github.com/use-agent/gleaner/retry"
	"github.com/use-agent/gleaner/selector"
)

// Session owns exactly one Fetcher for its lifetime. All operations are
// strictly sequential from the caller's perspective; independent Sessions
// share no state and may run concurrently with each other.
type Session struct {
	f       fetcher.Fetcher
	dynamic fetcher.Dynamic // nil for static sessions

	policy      retry.Policy
	isTransient retry.Classifier

	opened bool
	closed bool
}

// Option configures a Session.
type Option func(*Session)

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Session) { s.policy = p }
}

// WithTransient replaces the default transient-failure classifier.
func WithTransient(c retry.Classifier) Option {
	return func(s *Session) { s.isTransient = c }
}

// DefaultTransient classifies the "page still rendering" family of
// failures as transient: the target element or table has not appeared in
// the DOM yet. Navigation and session errors stay permanent.
func DefaultTransient() retry.Classifier {
	return retry.TransientCodes(
		models.ErrCodeTableNotFound,
		models.ErrCodeNodeNotFound,
		models.ErrCodeElementNotFound,
	)
}

// NewStatic builds a Session over a static (or any plain) Fetcher.
// Open and Close are no-ops for such a session.
func NewStatic(f fetcher.Fetcher, opts ...Option) *Session {
	s := &Session{
		f:           f,
		policy:      retry.New(0, 0),
		isTransient: DefaultTransient(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewDynamic builds a Session owning a browser-backed Fetcher. The
// session, not the caller, drives the fetcher's Open/Close lifecycle.
func NewDynamic(d fetcher.Dynamic, opts ...Option) *Session {
	s := NewStatic(d, opts...)
	s.dynamic = d
	return s
}

// Open prepares the session for use. For dynamic sessions this launches
// the browser; for static sessions it only marks the session usable.
func (s *Session) Open(ctx context.Context) error {
	if s.closed {
		return models.NewScrapeError(
			models.ErrCodeSessionNotOpen,
			"session already closed",
			nil,
		)
	}
	if s.opened {
		return nil
	}
	if s.dynamic != nil {
		if err := s.dynamic.Open(ctx); err != nil {
			return err
		}
	}
	s.opened = true
	slog.Debug("session opened", "dynamic", s.dynamic != nil)
	return nil
}

// Close tears the session down. It is idempotent: the underlying browser
// close runs at most once no matter how many times Close is called or
// which error path led here.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.dynamic == nil {
		return nil
	}
	slog.Debug("session closing")
	return s.dynamic.Close()
}

// Run is the scoped form: open, run fn, close on the way out regardless of
// how fn returns. fn's error wins over the close error.
func Run(ctx context.Context, s *Session, fn func(ctx context.Context, s *Session) error) (err error) {
	if err = s.Open(ctx); err != nil {
		return err
	}
	defer func() {
		closeErr := s.Close()
		if err == nil {
			err = closeErr
		}
	}()
	return fn(ctx, s)
}

// Fetch retrieves target through the session's fetcher.
func (s *Session) Fetch(ctx context.Context, target string) (document.Document, error) {
	if err := s.usable(); err != nil {
		return document.Document{}, err
	}
	return s.f.Fetch(ctx, target)
}

// FetchWithRetry is Fetch under the session's retry policy.
func (s *Session) FetchWithRetry(ctx context.Context, target string) (document.Document, error) {
	if err := s.usable(); err != nil {
		return document.Document{}, err
	}
	return s.policy.Do(ctx, func(ctx context.Context) (document.Document, error) {
		return s.f.Fetch(ctx, target)
	}, s.isTransient)
}

// Dynamic exposes the browser-backed fetcher for direct navigate, click
// and type calls. It returns nil for static sessions.
func (s *Session) Dynamic() fetcher.Dynamic { return s.dynamic }

// Navigate loads url in the session's browser.
func (s *Session) Navigate(ctx context.Context, url string) error {
	d, err := s.usableDynamic()
	if err != nil {
		return err
	}
	return d.Navigate(ctx, url)
}

// Click clicks the first element matching sel in the session's browser.
func (s *Session) Click(ctx context.Context, sel selector.Selector) error {
	d, err := s.usableDynamic()
	if err != nil {
		return err
	}
	return d.Click(ctx, sel)
}

// Type sends text to the first element matching sel.
func (s *Session) Type(ctx context.Context, sel selector.Selector, text string) error {
	d, err := s.usableDynamic()
	if err != nil {
		return err
	}
	return d.Type(ctx, sel, text)
}

// Paginate collects rows across pages of the session's browser, with each
// page read placed under the session's retry policy.
func (s *Session) Paginate(ctx context.Context, extract paginate.ExtractFunc, advance paginate.AdvanceFunc, maxIterations int) ([]document.Row, error) {
	d, err := s.usableDynamic()
	if err != nil {
		return nil, err
	}
	return paginate.CollectWithRetry(ctx, d, extract, advance, maxIterations, s.policy, s.isTransient)
}

// PaginateByClicking is Paginate with the common "click the next control,
// stop when it disappears" advance.
func (s *Session) PaginateByClicking(ctx context.Context, extract paginate.ExtractFunc, next selector.Selector, maxIterations int) ([]document.Row, error) {
	d, err := s.usableDynamic()
	if err != nil {
		return nil, err
	}
	return paginate.CollectWithRetry(ctx, d, extract, paginate.ClickNext(d, next), maxIterations, s.policy, s.isTransient)
}

func (s *Session) usable() error {
	if s.closed || !s.opened {
		return models.NewScrapeError(
			models.ErrCodeSessionNotOpen,
			"session is not open",
			nil,
		)
	}
	return nil
}

func (s *Session) usableDynamic() (fetcher.Dynamic, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if s.dynamic == nil {
		return nil, models.NewScrapeError(
			models.ErrCodeInvalidInput,
			"operation requires a dynamic session",
			nil,
		)
	}
	return s.dynamic, nil
}
