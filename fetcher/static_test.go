package fetcher

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/gleaner/cache"
	"github.com/use-agent/gleaner/models"
	"github.com/use-agent/gleaner/selector"
)

const staticPage = `<html><head><title>Chart</title></head><body>
<table><tr><th>Title</th><th>Rating</th></tr><tr><td>Foo</td><td>9.1</td></tr></table>
</body></html>`

func TestStatic_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != chromeUA {
			t.Errorf("unexpected User-Agent: %q", ua)
		}
		w.Write([]byte(staticPage))
	}))
	defer srv.Close()

	f := NewStatic()
	doc, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if got := doc.Title(); got != "Chart" {
		t.Errorf("title: got %q", got)
	}

	rows, err := doc.ExtractTable(selector.MustNew("table"))
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := rows[0].Get("Rating"); v != "9.1" {
		t.Errorf("Rating: got %q", v)
	}
}

func TestStatic_HTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewStatic()
	_, err := f.Fetch(context.Background(), srv.URL)
	if models.Code(err) != models.ErrCodeNavigation {
		t.Errorf("expected NAVIGATION_FAILED, got %v", err)
	}
}

func TestStatic_TransportFailure(t *testing.T) {
	f := NewStatic()
	// Closed server: connection refused.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := f.Fetch(context.Background(), url)
	if models.Code(err) != models.ErrCodeNavigation {
		t.Errorf("expected NAVIGATION_FAILED, got %v", err)
	}
}

func TestStatic_CacheServesRepeatFetches(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(staticPage))
	}))
	defer srv.Close()

	f := NewStatic(WithCache(cache.New(10), time.Minute))

	ctx := context.Background()
	if _, err := f.Fetch(ctx, srv.URL); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Fetch(ctx, srv.URL); err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Errorf("expected 1 network hit, got %d", hits)
	}
}

// fakeSOCKS5 runs a one-shot SOCKS5 server that negotiates with the
// client and then tunnels the connection to targetAddr.
func fakeSOCKS5(t *testing.T, targetAddr string) (addr string, accepted *int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	var count int32
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		atomic.AddInt32(&count, 1)

		// Greeting: version, method count, methods. Answer "no auth".
		hdr := make([]byte, 2)
		if _, err := io.ReadFull(c, hdr); err != nil {
			return
		}
		if _, err := io.ReadFull(c, make([]byte, hdr[1])); err != nil {
			return
		}
		c.Write([]byte{0x05, 0x00})

		// CONNECT request: version, command, reserved, address type.
		req := make([]byte, 4)
		if _, err := io.ReadFull(c, req); err != nil {
			return
		}
		var addrLen int
		switch req[3] {
		case 0x01:
			addrLen = 4
		case 0x04:
			addrLen = 16
		case 0x03:
			l := make([]byte, 1)
			if _, err := io.ReadFull(c, l); err != nil {
				return
			}
			addrLen = int(l[0])
		}
		if _, err := io.ReadFull(c, make([]byte, addrLen+2)); err != nil {
			return
		}
		c.Write([]byte{0x05, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0})

		up, err := net.Dial("tcp", targetAddr)
		if err != nil {
			return
		}
		defer up.Close()
		go io.Copy(up, c)
		io.Copy(c, up)
	}()
	return ln.Addr().String(), &count
}

func TestDialRaw_SOCKS5Tunnel(t *testing.T) {
	target, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer target.Close()
	go func() {
		c, err := target.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		io.Copy(c, c) // echo
	}()

	proxyAddr, accepted := fakeSOCKS5(t, target.Addr().String())

	conn, err := dialRaw(context.Background(), "tcp", target.Addr().String(), "socks5://"+proxyAddr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("ping")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatal(err)
	}
	if string(buf) != "ping" {
		t.Errorf("echo: got %q", buf)
	}
	if atomic.LoadInt32(accepted) != 1 {
		t.Error("connection did not go through the proxy")
	}
}

func TestDialRaw_BadSOCKS5Proxy(t *testing.T) {
	// Nothing listening here: negotiation must fail, not silently
	// bypass the proxy.
	_, err := dialRaw(context.Background(), "tcp", "127.0.0.1:1", "socks5://127.0.0.1:1")
	if err == nil {
		t.Fatal("expected an error for unreachable socks5 proxy")
	}
}

func TestStatic_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := NewStatic().Fetch(ctx, srv.URL)
	if err == nil {
		t.Fatal("expected an error on canceled fetch")
	}
	if models.Code(err) != models.ErrCodeNavigation {
		t.Errorf("expected NAVIGATION_FAILED, got %v", err)
	}
}
