package fetcher

import (
	"context"

	"github.com/use-agent/gleaner/document"
	"github.com/use-agent/gleaner/selector"
)

// Fetcher retrieves one page as an immutable Document snapshot.
//
// For the static variant, target is the URL to GET. For the dynamic
// variant, target is used for an initial navigation only; once the browser
// has navigated, Fetch re-reads the current page and ignores target.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (document.Document, error)
}

// Dynamic is a Fetcher driving a script-executing browser. Open must be
// called before any other operation (everything else fails with
// SESSION_NOT_OPEN otherwise) and Close must run on every exit path to
// release the browser process.
type Dynamic interface {
	Fetcher

	// Open launches and connects the browser session.
	Open(ctx context.Context) error

	// Close releases the browser session and its process. It is
	// idempotent and safe to defer immediately after Open.
	Close() error

	// Navigate loads the URL in the controlled browser and waits for the
	// DOM to settle. Fails with NAVIGATION_FAILED on transport failure.
	Navigate(ctx context.Context, url string) error

	// Click dispatches a click on the first element matching sel and
	// returns without waiting for any resulting navigation or render;
	// callers re-read the page, typically under a retry policy. Fails
	// with ELEMENT_NOT_FOUND when nothing matches.
	Click(ctx context.Context, sel selector.Selector) error

	// Type focuses the first element matching sel and sends text to it.
	// Fails with ELEMENT_NOT_FOUND when nothing matches.
	Type(ctx context.Context, sel selector.Selector, text string) error

	// CurrentDocument snapshots the live DOM into a Document.
	CurrentDocument(ctx context.Context) (document.Document, error)
}
