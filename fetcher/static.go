package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	tls2 "github.com/refraction-networking/utls"
	"golang.org/x/net/proxy"

	"github.com/use-agent/gleaner/cache"
	"github.com/use-agent/gleaner/document"
	"github.com/use-agent/gleaner/models"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// bodyCap limits how much of a response body is read.
const bodyCap = 10 * 1024 * 1024

// Static fetches pages with a single HTTP GET, no script execution.
// TLS connections use a Chrome fingerprint (utls) and the request carries
// browser-like headers, so plain-HTTP-hostile sites behave as they would
// for a real browser. Safe for concurrent use.
type Static struct {
	proxy    string
	cache    *cache.Cache
	cacheTTL time.Duration
}

// StaticOption configures a Static fetcher.
type StaticOption func(*Static)

// WithProxy routes requests through the given proxy URL
// (http, https or socks5 scheme).
func WithProxy(proxy string) StaticOption {
	return func(s *Static) { s.proxy = proxy }
}

// WithCache serves repeat fetches of the same URL from c for up to ttl.
func WithCache(c *cache.Cache, ttl time.Duration) StaticOption {
	return func(s *Static) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// NewStatic creates a Static fetcher.
func NewStatic(opts ...StaticOption) *Static {
	s := &Static{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch GETs target and parses the response body into a Document.
// Transport failures and HTTP statuses >= 400 fail with NAVIGATION_FAILED.
func (s *Static) Fetch(ctx context.Context, target string) (document.Document, error) {
	body, err := s.fetchRaw(ctx, target)
	if err != nil {
		return document.Document{}, err
	}
	return document.Parse(string(body))
}

// fetchRaw retrieves the target's body bytes, consulting the cache first.
func (s *Static) fetchRaw(ctx context.Context, target string) ([]byte, error) {
	if s.cache != nil {
		if body, ok := s.cache.Get(target, s.cacheTTL); ok {
			return body, nil
		}
	}

	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr, s.proxy)
		},
	}
	if s.proxy != "" {
		if proxyURL, err := url.Parse(s.proxy); err == nil && (proxyURL.Scheme == "http" || proxyURL.Scheme == "https") {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	client := &http.Client{Transport: transport}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeNavigation,
			fmt.Sprintf("build request for %s", target),
			err,
		)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeNavigation,
			fmt.Sprintf("request to %s failed", target),
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, models.NewScrapeError(
			models.ErrCodeNavigation,
			fmt.Sprintf("HTTP %d for %s", resp.StatusCode, target),
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, bodyCap))
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeNavigation,
			fmt.Sprintf("read body of %s", target),
			err,
		)
	}

	if s.cache != nil {
		s.cache.Set(target, body)
	}
	return body, nil
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint via utls.
func dialTLSChrome(ctx context.Context, network, addr, proxyAddr string) (net.Conn, error) {
	rawConn, err := dialRaw(ctx, network, addr, proxyAddr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{
		ServerName: host,
	}, tls2.HelloChrome_Auto)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// dialRaw opens the TCP connection to addr, tunneling through a SOCKS5
// proxy when one is configured. HTTP proxies never reach here; the
// transport's Proxy field handles those.
func dialRaw(ctx context.Context, network, addr, proxyAddr string) (net.Conn, error) {
	dialer := &net.Dialer{}
	if proxyAddr != "" {
		proxyURL, err := url.Parse(proxyAddr)
		if err == nil && (proxyURL.Scheme == "socks5" || proxyURL.Scheme == "socks5h") {
			socksDialer, err := proxy.FromURL(proxyURL, dialer)
			if err != nil {
				return nil, fmt.Errorf("socks5 proxy %s: %w", proxyURL.Host, err)
			}
			if cd, ok := socksDialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return socksDialer.Dial(network, addr)
		}
	}
	return dialer.DialContext(ctx, network, addr)
}
