// Package egress produces the HTTP session used for feed traffic.
//
// Feed hosts are reached through an ordered list of proxy endpoints; the
// first proxy that passes a cheap probe request wins. If every proxy fails,
// a direct (non-proxied) session is handed out instead, so acquiring a
// session never fails at this layer — request errors surface per fetch.
package egress

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	xproxy "golang.org/x/net/proxy"

	"newsbot/pkg/logx"
)

type Config struct {
	// Proxies are tried in order. Supported schemes: socks5, socks5h,
	// http, https. Credentials go in the URL userinfo.
	Proxies []string
	// ProbeURL is a known-good feed endpoint used to verify a proxy works.
	ProbeURL string
	// ProbeTimeout bounds one probe request. Default 10s.
	ProbeTimeout time.Duration
}

// Session is a network path bound to one egress route for the duration of
// a fetch cycle. Sessions are cheap; acquire a fresh one per cycle.
type Session struct {
	Client *http.Client
	// Via names the route, e.g. "socks5://1.2.3.4:443" or "direct".
	Via string
}

type Dialer struct {
	cfg Config
	log logx.Logger
}

func NewDialer(cfg Config, log logx.Logger) *Dialer {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dialer{cfg: cfg, log: log}
}

// Acquire returns a usable session. It tries each configured proxy in order
// and falls back to a direct connection when none of them pass the probe.
func (d *Dialer) Acquire(ctx context.Context) *Session {
	for _, raw := range d.cfg.Proxies {
		client, label, err := clientVia(raw)
		if err != nil {
			d.log.Warn("proxy config rejected", logx.String("proxy", label), logx.Err(err))
			continue
		}
		if err := d.probe(ctx, client); err != nil {
			d.log.Warn("proxy probe failed", logx.String("proxy", label), logx.Err(err))
			client.CloseIdleConnections()
			continue
		}
		d.log.Info("proxy connected", logx.String("proxy", label))
		return &Session{Client: client, Via: label}
	}

	if len(d.cfg.Proxies) > 0 {
		d.log.Warn("all proxies failed, using direct connection")
	}
	return &Session{Client: directClient(), Via: "direct"}
}

func (d *Dialer) probe(ctx context.Context, client *http.Client) error {
	target := strings.TrimSpace(d.cfg.ProbeURL)
	if target == "" {
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, d.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe status %d", resp.StatusCode)
	}
	return nil
}

// clientVia builds an HTTP client routed through the given proxy endpoint.
// The returned label has credentials stripped for logging.
func clientVia(raw string) (*http.Client, string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, raw, err
	}
	label := u.Scheme + "://" + u.Host

	switch strings.ToLower(u.Scheme) {
	case "socks5", "socks5h":
		var auth *xproxy.Auth
		if u.User != nil {
			pw, _ := u.User.Password()
			auth = &xproxy.Auth{User: u.User.Username(), Password: pw}
		}
		dialer, err := xproxy.SOCKS5("tcp", u.Host, auth, xproxy.Direct)
		if err != nil {
			return nil, label, err
		}
		tr := insecureTransport()
		tr.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := dialer.(xproxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return dialer.Dial(network, addr)
		}
		return &http.Client{Transport: tr}, label, nil

	case "http", "https":
		tr := insecureTransport()
		tr.Proxy = http.ProxyURL(u)
		return &http.Client{Transport: tr}, label, nil

	default:
		return nil, label, fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
}

func directClient() *http.Client {
	return &http.Client{Transport: insecureTransport()}
}

// insecureTransport skips certificate verification on purpose: upstream feed
// hosts are treated as best-effort and are fetched read-only, and several of
// them sit behind proxies with broken certificate chains.
func insecureTransport() *http.Transport {
	return &http.Transport{
		TLSClientConfig:       &tls.Config{InsecureSkipVerify: true},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
