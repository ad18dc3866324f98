// Package retry wraps fallible page reads with bounded-time retry on
// failures the caller has classified transient.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/gleaner/document"
	"github.com/use-agent/gleaner/models"
)

// Operation is one attempt to produce a Document, e.g. a post-click
// re-read of a page that is still rendering.
type Operation func(ctx context.Context) (document.Document, error)

// Classifier reports whether an error is transient: expected to resolve
// itself when the same operation is retried after a short wait.
type Classifier func(error) bool

// Policy bounds a retried operation in wall time. A Policy is stateless
// apart from its configured bounds and safe to share.
type Policy struct {
	// Timeout is the total retry budget. Elapsed wall time never exceeds
	// Timeout by more than one PollInterval plus one attempt.
	Timeout time.Duration

	// PollInterval is the sleep between attempts.
	PollInterval time.Duration
}

// New returns a Policy with the given bounds, substituting defaults of
// 10s / 500ms for non-positive values.
func New(timeout, pollInterval time.Duration) Policy {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return Policy{Timeout: timeout, PollInterval: pollInterval}
}

// Do repeatedly invokes op until it succeeds, fails non-transiently, or
// the time budget runs out.
//
// A success returns immediately. An error isTransient rejects returns
// immediately too: unclassified failures usually mean a selector or
// page-structure mismatch, and silently retrying them would mask the bug.
// A transient error sleeps PollInterval and retries while inside the
// Timeout budget; exhaustion fails with RETRY_EXHAUSTED wrapping the last
// transient reason. Context cancellation stops the polling between
// attempts; the in-flight attempt itself is never force-aborted.
//
// A nil isTransient treats every error as permanent.
func (p Policy) Do(ctx context.Context, op Operation, isTransient Classifier) (document.Document, error) {
	deadline := time.Now().Add(p.Timeout)

	for attempt := 1; ; attempt++ {
		doc, err := op(ctx)
		if err == nil {
			return doc, nil
		}
		if isTransient == nil || !isTransient(err) {
			return document.Document{}, err
		}
		if !time.Now().Before(deadline) {
			return document.Document{}, models.NewScrapeError(
				models.ErrCodeRetryExhausted,
				"retry budget exhausted",
				err,
			)
		}
		slog.Debug("transient failure, retrying",
			"attempt", attempt,
			"pollInterval", p.PollInterval,
			"reason", err,
		)
		select {
		case <-time.After(p.PollInterval):
		case <-ctx.Done():
			return document.Document{}, models.NewScrapeError(
				models.ErrCodeRetryExhausted,
				"retry canceled",
				ctx.Err(),
			)
		}
	}
}

// TransientCodes builds a Classifier that treats exactly the given error
// codes as transient. This makes the retry boundary a declared set rather
// than something inferred from error text.
func TransientCodes(codes ...string) Classifier {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return func(err error) bool {
		_, ok := set[models.Code(err)]
		return ok
	}
}
