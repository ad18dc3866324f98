package fetcher

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/use-agent/gleaner/document"
)

// Auto tries a static fetch first and escalates to the browser only when
// the static body looks like a JS application shell. The browser session
// is opened lazily on first escalation; Close releases it if it was opened.
// Auto is not safe for concurrent use.
type Auto struct {
	static  *Static
	dynamic Dynamic
	opened  bool
}

// NewAuto creates an Auto fetcher over the given variants. The dynamic
// fetcher must be unopened; Auto owns its lifecycle from here on.
func NewAuto(static *Static, dynamic Dynamic) *Auto {
	return &Auto{static: static, dynamic: dynamic}
}

// Fetch retrieves target statically, escalating to the browser when the
// body needs script execution to render or the static fetch fails outright.
func (a *Auto) Fetch(ctx context.Context, target string) (document.Document, error) {
	body, err := a.static.fetchRaw(ctx, target)
	if err == nil && !needsBrowser(body) {
		return document.Parse(string(body))
	}
	if err != nil {
		slog.Debug("static fetch failed, escalating to browser", "url", target, "error", err)
	} else {
		slog.Debug("static body looks script-rendered, escalating to browser", "url", target)
	}

	if !a.opened {
		if openErr := a.dynamic.Open(ctx); openErr != nil {
			if err != nil {
				return document.Document{}, err
			}
			return document.Document{}, openErr
		}
		a.opened = true
	}
	if navErr := a.dynamic.Navigate(ctx, target); navErr != nil {
		return document.Document{}, navErr
	}
	return a.dynamic.CurrentDocument(ctx)
}

// Close releases the browser session if an escalation opened it.
func (a *Auto) Close() error {
	if !a.opened {
		return nil
	}
	a.opened = false
	return a.dynamic.Close()
}

var reNoscript = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?)\s+javascript`)

var emptyRoots = []string{
	`<div id="root"></div>`,
	`<div id="app"></div>`,
	`<div id="__next"></div>`,
}

// needsBrowser uses heuristics to decide if the HTTP-fetched HTML likely
// needs JS rendering (SPA shell, heavy JS dependency, noscript warnings).
func needsBrowser(body []byte) bool {
	bodyText := extractVisibleText(body)

	// Very little visible text in <body> suggests an SPA shell.
	if len(bodyText) < 200 {
		return true
	}

	lower := strings.ToLower(string(body))

	for _, root := range emptyRoots {
		if strings.Contains(lower, root) {
			return true
		}
	}

	if reNoscript.MatchString(lower) {
		return true
	}

	// Many <script> tags with little body text means a JS-heavy page.
	if strings.Count(lower, "<script") > 10 && len(bodyText) < 500 {
		return true
	}

	return false
}

// extractVisibleText extracts the visible text from within <body>, stripping
// all tags and <script>/<style> content. Used for heuristic analysis only.
func extractVisibleText(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "body" {
				inBody = true
			}
			if tag == "script" || tag == "style" || tag == "noscript" {
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "script" || tag == "style" || tag == "noscript" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				text := strings.TrimSpace(string(tokenizer.Text()))
				if text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}
