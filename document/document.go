package document

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/use-agent/gleaner/models"
	"github.com/use-agent/gleaner/selector"
)

// Document is an immutable point-in-time snapshot of one parsed HTML page.
// It owns its parse tree; querying it never touches a live DOM, so callers
// reading a mutating browser page must re-fetch rather than re-query.
type Document struct {
	root *html.Node
	gq   *goquery.Document
}

// Parse builds a Document from raw markup. x/net/html is lenient, so this
// fails with MALFORMED_MARKUP only when the parser cannot produce any tree
// at all — rare, but modeled rather than ignored.
func Parse(markup string) (Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return Document{}, models.NewScrapeError(
			models.ErrCodeMalformedMarkup,
			"markup could not be parsed",
			err,
		)
	}
	return Document{root: root, gq: goquery.NewDocumentFromNode(root)}, nil
}

// Root returns the parse-tree root. The tree must be treated as read-only.
func (d Document) Root() *html.Node { return d.root }

// Query returns all nodes matching sel, in document order.
func (d Document) Query(sel selector.Selector) []*html.Node {
	if d.root == nil {
		return nil
	}
	return sel.MatchAll(d.root)
}

// First returns the first node matching sel, or ok=false when nothing
// matches. Zero matches is a valid outcome, never an error.
func (d Document) First(sel selector.Selector) (*html.Node, bool) {
	if d.root == nil {
		return nil, false
	}
	return sel.MatchFirst(d.root)
}

// Find returns a goquery selection over the document for callers that want
// goquery's richer traversal API. A zero-value Document yields an empty
// selection, like Query.
func (d Document) Find(sel selector.Selector) *goquery.Selection {
	if d.gq == nil {
		return goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode}).FindMatcher(sel.Matcher())
	}
	return d.gq.FindMatcher(sel.Matcher())
}

// Title returns the normalized text of the document's <title>, or "".
func (d Document) Title() string {
	if node, ok := d.First(titleSelector); ok {
		return selector.Text(node)
	}
	return ""
}

var titleSelector = selector.MustNew("title")
