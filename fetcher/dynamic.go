package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/gleaner/document"
	"github.com/use-agent/gleaner/models"
	"github.com/use-agent/gleaner/selector"
)

// BrowserOptions controls the browser process owned by a Browser fetcher.
type BrowserOptions struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default via DefaultBrowserOptions: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool

	// Bin overrides the Chromium binary path.
	Bin string

	// Proxy is the proxy URL for all browser traffic.
	Proxy string

	// Stealth injects stealth JS on every new page document to mask
	// automation markers.
	Stealth bool

	// ExtraHeaders is sent with every browser request.
	ExtraHeaders map[string]string

	// ControlURL connects to an already-running browser's DevTools
	// endpoint instead of launching one. Close then disconnects without
	// killing the caller's browser process.
	ControlURL string

	// StabilizeWait is the window WaitDOMStable uses to decide the page
	// has settled after navigation.
	StabilizeWait time.Duration
}

// DefaultBrowserOptions returns the options used when a zero value is given.
func DefaultBrowserOptions() BrowserOptions {
	return BrowserOptions{
		Headless:      true,
		StabilizeWait: 300 * time.Millisecond,
	}
}

// Browser is the Dynamic fetcher backed by a rod-controlled Chromium.
// It exclusively owns one browser process and one working page; all
// operations are sequential from the caller's perspective. The launcher
// binds the DevTools endpoint to an unused ephemeral local port.
type Browser struct {
	opts BrowserOptions

	launcher  *launcher.Launcher
	browser   *rod.Browser
	page      *rod.Page
	navigated bool
	closed    bool
}

// NewBrowser creates an unopened Browser fetcher. Call Open before use.
func NewBrowser(opts BrowserOptions) *Browser {
	if opts.StabilizeWait <= 0 {
		opts.StabilizeWait = DefaultBrowserOptions().StabilizeWait
	}
	return &Browser{opts: opts}
}

// Open launches the browser process, connects to its DevTools endpoint and
// creates the working page. Fails with BROWSER_CRASH when the process cannot
// be launched or connected.
func (b *Browser) Open(ctx context.Context) error {
	if b.page != nil {
		return nil
	}
	if b.closed {
		return models.NewScrapeError(
			models.ErrCodeSessionNotOpen,
			"browser session already closed",
			nil,
		)
	}

	controlURL := b.opts.ControlURL
	var l *launcher.Launcher
	if controlURL == "" {
		// The launcher binds the DevTools endpoint to an unused
		// ephemeral local port, so parallel sessions never collide.
		l = launcher.New().
			Headless(b.opts.Headless).
			NoSandbox(b.opts.NoSandbox)

		if b.opts.Bin != "" {
			l = l.Bin(b.opts.Bin)
		}
		if b.opts.Proxy != "" {
			l = l.Proxy(b.opts.Proxy)
		}
		if b.opts.Stealth {
			l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
			l.Delete(flags.Flag("enable-automation"))
		}

		var err error
		controlURL, err = l.Launch()
		if err != nil {
			return models.NewScrapeError(
				models.ErrCodeBrowserCrash,
				"failed to launch browser",
				err,
			)
		}
		slog.Info("browser launched", "controlURL", controlURL)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		if l != nil {
			l.Kill()
		}
		return models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		if l != nil {
			l.Kill()
		}
		return models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to create page",
			err,
		)
	}

	if b.opts.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	if len(b.opts.ExtraHeaders) > 0 {
		err := proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(b.opts.ExtraHeaders),
		}.Call(page)
		if err != nil {
			slog.Warn("failed to set extra headers", "error", err)
		}
	}

	b.launcher = l
	b.browser = browser
	b.page = page
	return nil
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// Close releases the working page, disconnects, and kills the browser
// process. It is idempotent and must run on every exit path, including
// error paths, so the process and its port are never leaked.
func (b *Browser) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.page == nil {
		return nil
	}

	slog.Info("browser session closing")
	if err := b.page.Close(); err != nil {
		slog.Warn("failed to close page", "error", err)
	}
	// Close disconnects the WebSocket; for a launched browser the
	// launcher then kills the process. A caller-supplied browser
	// (ControlURL) is only disconnected, never killed.
	err := b.browser.Close()
	if b.launcher != nil {
		b.launcher.Kill()
	}
	b.page = nil
	b.browser = nil
	b.launcher = nil
	return err
}

// ready guards every post-Open operation.
func (b *Browser) ready() error {
	if b.page == nil {
		return models.NewScrapeError(
			models.ErrCodeSessionNotOpen,
			"browser session is not open",
			nil,
		)
	}
	return nil
}

// Navigate loads url in the controlled browser and waits for the DOM to
// settle. The settle wait is best-effort: a page that never converges is
// reported by the subsequent extraction, not here.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	if err := b.ready(); err != nil {
		return err
	}
	p := b.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return models.NewScrapeError(
			models.ErrCodeNavigation,
			fmt.Sprintf("navigation to %s failed", url),
			err,
		)
	}
	if err := p.WaitDOMStable(b.opts.StabilizeWait, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", err,
		)
	}
	b.navigated = true
	return nil
}

// Click dispatches a left click on the first element matching sel. It does
// not wait for any navigation or render the click triggers; callers re-read
// the page and put that read under a retry policy when the page re-renders
// asynchronously.
func (b *Browser) Click(ctx context.Context, sel selector.Selector) error {
	el, err := b.find(ctx, sel)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return models.NewScrapeError(
			models.ErrCodeElementNotFound,
			fmt.Sprintf("click on %q failed", sel.CSS()),
			err,
		)
	}
	return nil
}

// Type focuses the first element matching sel and sends text to it.
func (b *Browser) Type(ctx context.Context, sel selector.Selector, text string) error {
	el, err := b.find(ctx, sel)
	if err != nil {
		return err
	}
	if err := el.Input(text); err != nil {
		return models.NewScrapeError(
			models.ErrCodeElementNotFound,
			fmt.Sprintf("typing into %q failed", sel.CSS()),
			err,
		)
	}
	return nil
}

// find locates the element sel resolves to on the live page without
// waiting for it to appear: an absent element is an immediate
// ELEMENT_NOT_FOUND, so retry decisions stay with the caller.
func (b *Browser) find(ctx context.Context, sel selector.Selector) (*rod.Element, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}
	p := b.page.Context(ctx)

	els, err := p.Elements(sel.CSS())
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeElementNotFound,
			fmt.Sprintf("query for %q failed", sel.CSS()),
			err,
		)
	}
	if i := sel.NthIndex(); i >= 0 {
		if i < len(els) {
			els = rod.Elements{els[i]}
		} else {
			els = nil
		}
	}
	if len(els) == 0 {
		return nil, models.NewScrapeError(
			models.ErrCodeElementNotFound,
			fmt.Sprintf("no element matches %q", sel.CSS()),
			nil,
		)
	}
	return els[0], nil
}

// CurrentDocument snapshots the live DOM into an immutable Document.
// Re-querying a Document after further browser actions reads the old
// snapshot; call CurrentDocument again instead.
func (b *Browser) CurrentDocument(ctx context.Context) (document.Document, error) {
	if err := b.ready(); err != nil {
		return document.Document{}, err
	}
	p := b.page.Context(ctx)
	markup, err := p.HTML()
	if err != nil {
		return document.Document{}, models.NewScrapeError(
			models.ErrCodeNavigation,
			"failed to read page HTML",
			err,
		)
	}
	return document.Parse(markup)
}

// Fetch satisfies Fetcher. Before the first navigation, target is loaded;
// afterwards target is ignored and the current page is re-read.
func (b *Browser) Fetch(ctx context.Context, target string) (document.Document, error) {
	if err := b.ready(); err != nil {
		return document.Document{}, err
	}
	if !b.navigated && target != "" {
		if err := b.Navigate(ctx, target); err != nil {
			return document.Document{}, err
		}
	}
	return b.CurrentDocument(ctx)
}
