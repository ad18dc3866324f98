package selector

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/use-agent/gleaner/models"
)

// Selector is an immutable CSS selector value. It is compiled once at
// construction and composed into new Selectors via the combinator methods;
// a Selector is never mutated in place.
type Selector struct {
	css string
	m   cascadia.Selector
	nth int // -1 means "all matches"
}

// New compiles the given CSS selector text. Empty or syntactically invalid
// text is rejected with INVALID_INPUT.
func New(css string) (Selector, error) {
	if strings.TrimSpace(css) == "" {
		return Selector{}, models.NewScrapeError(
			models.ErrCodeInvalidInput,
			"selector text must not be empty",
			nil,
		)
	}
	m, err := cascadia.Compile(css)
	if err != nil {
		return Selector{}, models.NewScrapeError(
			models.ErrCodeInvalidInput,
			fmt.Sprintf("invalid CSS selector %q", css),
			err,
		)
	}
	return Selector{css: css, m: m, nth: -1}, nil
}

// MustNew is like New but panics on invalid input. Intended for selector
// literals known at compile time.
func MustNew(css string) Selector {
	s, err := New(css)
	if err != nil {
		panic(err)
	}
	return s
}

// CSS returns the selector text.
func (s Selector) CSS() string { return s.css }

// Matcher returns the compiled cascadia matcher. cascadia.Selector also
// satisfies goquery.Matcher, so this is the interop point for both query
// paths.
func (s Selector) Matcher() cascadia.Selector { return s.m }

// Descendant composes s with child into a "child anywhere under s" selector.
// Both inputs are already valid, so the composition compiles.
func (s Selector) Descendant(child Selector) Selector {
	return MustNew(s.css + " " + child.css)
}

// WithAttr narrows s to elements carrying the attribute. An empty value
// matches mere presence of the attribute.
func (s Selector) WithAttr(name, value string) Selector {
	if value == "" {
		return MustNew(fmt.Sprintf("%s[%s]", s.css, name))
	}
	return MustNew(fmt.Sprintf("%s[%s=%q]", s.css, name, value))
}

// containsEscaper makes arbitrary text safe inside a double-quoted CSS
// string: backslashes and double quotes get a CSS backslash escape.
var containsEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Containing narrows s to elements whose text contains the given substring,
// using cascadia's :contains() extension. The text is escaped into a
// double-quoted CSS string, so quotes and backslashes compose safely.
func (s Selector) Containing(text string) Selector {
	return MustNew(fmt.Sprintf(`%s:contains("%s")`, s.css, containsEscaper.Replace(text)))
}

// NthIndex returns the nth-match policy: the 0-based index this Selector
// resolves to, or -1 when it matches all nodes.
func (s Selector) NthIndex() int { return s.nth }

// Nth returns a copy of s that resolves to only the i-th match (0-based)
// when queried. A negative i restores the match-all behavior.
func (s Selector) Nth(i int) Selector {
	s.nth = i
	return s
}

// MatchAll returns all matching nodes under root in document order.
// A Selector with an nth policy returns at most that single match.
func (s Selector) MatchAll(root *html.Node) []*html.Node {
	nodes := s.m.MatchAll(root)
	if s.nth < 0 {
		return nodes
	}
	if s.nth >= len(nodes) {
		return nil
	}
	return nodes[s.nth : s.nth+1]
}

// MatchFirst returns the first matching node under root, or ok=false when
// nothing matches. Zero matches is a valid outcome, never an error.
func (s Selector) MatchFirst(root *html.Node) (*html.Node, bool) {
	nodes := s.MatchAll(root)
	if len(nodes) == 0 {
		return nil, false
	}
	return nodes[0], true
}

// Attr returns the value of the named attribute on node. The second return
// is false when the attribute is absent. A nil node is a caller bug surfaced
// as NODE_NOT_FOUND via AttrOf.
func Attr(node *html.Node, name string) (string, bool) {
	if node == nil {
		return "", false
	}
	for _, a := range node.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOf is the error-returning form of Attr: a nil node fails with
// NODE_NOT_FOUND instead of silently reporting absence.
func AttrOf(node *html.Node, name string) (string, error) {
	if node == nil {
		return "", models.NewScrapeError(
			models.ErrCodeNodeNotFound,
			fmt.Sprintf("cannot read attribute %q of a missing node", name),
			nil,
		)
	}
	v, _ := Attr(node, name)
	return v, nil
}

// Text returns the visible text of node with whitespace normalized:
// internal runs of whitespace collapse to a single space and both ends
// are trimmed. Script and style content is skipped.
func Text(node *html.Node) string {
	if node == nil {
		return ""
	}
	var b strings.Builder
	collectText(node, &b)
	return strings.Join(strings.Fields(b.String()), " ")
}

// TextOf is the error-returning form of Text: a nil node fails with
// NODE_NOT_FOUND.
func TextOf(node *html.Node) (string, error) {
	if node == nil {
		return "", models.NewScrapeError(
			models.ErrCodeNodeNotFound,
			"cannot read text of a missing node",
			nil,
		)
	}
	return Text(node), nil
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
