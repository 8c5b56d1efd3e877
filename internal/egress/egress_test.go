package egress

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"newsbot/pkg/logx"
)

func TestAcquireDirectWhenNoProxies(t *testing.T) {
	t.Parallel()
	d := NewDialer(Config{}, logx.Nop())
	s := d.Acquire(context.Background())
	if s.Via != "direct" {
		t.Fatalf("Via = %q, want direct", s.Via)
	}
	if s.Client == nil {
		t.Fatal("expected a usable client")
	}
}

func TestAcquireFallsBackWhenProxyUnreachable(t *testing.T) {
	t.Parallel()
	probe := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer probe.Close()

	d := NewDialer(Config{
		// Port 1 is closed; the dial fails immediately.
		Proxies:      []string{"socks5://user:pw@127.0.0.1:1", "bogus://nope"},
		ProbeURL:     probe.URL,
		ProbeTimeout: 500 * time.Millisecond,
	}, logx.Nop())

	s := d.Acquire(context.Background())
	if s.Via != "direct" {
		t.Fatalf("Via = %q, want direct", s.Via)
	}
}

func TestAcquirePicksFirstWorkingProxy(t *testing.T) {
	t.Parallel()
	// A plain HTTP server answering 200 to everything acts as a forward
	// proxy for probe purposes.
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer proxy.Close()

	d := NewDialer(Config{
		Proxies:      []string{"socks5://127.0.0.1:1", proxy.URL},
		ProbeURL:     "http://feeds.example.invalid/rss",
		ProbeTimeout: time.Second,
	}, logx.Nop())

	s := d.Acquire(context.Background())
	if s.Via != proxy.URL {
		t.Fatalf("Via = %q, want %q", s.Via, proxy.URL)
	}
}

func TestAcquireProbeRejectsBadStatus(t *testing.T) {
	t.Parallel()
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer proxy.Close()

	d := NewDialer(Config{
		Proxies:      []string{proxy.URL},
		ProbeURL:     "http://feeds.example.invalid/rss",
		ProbeTimeout: time.Second,
	}, logx.Nop())

	s := d.Acquire(context.Background())
	if s.Via != "direct" {
		t.Fatalf("Via = %q, want direct after 502 probe", s.Via)
	}
}

func TestClientViaRejectsUnknownScheme(t *testing.T) {
	t.Parallel()
	if _, _, err := clientVia("ftp://proxy:21"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}
