package resolver

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/mort88/aws-ddns/internal/metrics"
)

// maxBodySize bounds the echo service response. A well behaved endpoint
// returns a bare IP address, nothing close to this.
const maxBodySize = 512

// Web fetches the caller's observed public address from an HTTP echo
// service. A single endpoint can answer differently depending on which
// IP stack initiated the connection, so each request is made with a
// client whose dialer is pinned to the family under test.
type Web struct {
	lookupURL string
	host      string
	timeout   time.Duration
	metrics   *metrics.Metrics

	// clientFor is swappable in tests
	clientFor func(family Family) *http.Client
}

func NewWeb(lookupURL, host string, timeout time.Duration, m *metrics.Metrics) *Web {
	w := &Web{
		lookupURL: lookupURL,
		host:      host,
		timeout:   timeout,
		metrics:   m,
	}
	w.clientFor = w.newClient
	return w
}

// ObservedIP issues a GET to the lookup endpoint over the given family's
// stack and parses the response body as that family's address.
func (w *Web) ObservedIP(ctx context.Context, family Family) (netip.Addr, error) {
	addr, err := w.observe(ctx, family)
	w.metrics.IncIPLookup(family.String(), err == nil)
	return addr, err
}

func (w *Web) observe(ctx context.Context, family Family) (netip.Addr, error) {
	u, err := url.Parse(w.lookupURL)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse lookup url: %w", err)
	}
	q := u.Query()
	q.Set("host", w.host)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := w.clientFor(family).Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("lookup request over %s: %w", family.Network(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return netip.Addr{}, fmt.Errorf("lookup endpoint returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("read lookup response: %w", err)
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(string(body)))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("parse address from lookup response: %w", err)
	}
	if !family.Matches(addr) {
		return netip.Addr{}, fmt.Errorf("lookup endpoint returned %s address %s over %s", otherFamily(family), addr, family.Network())
	}
	return addr, nil
}

// newClient builds an http client whose connections are restricted to
// the family's network. Explicit per-request dialer configuration, never
// mutation of a shared transport.
func (w *Web) newClient(family Family) *http.Client {
	dialer := &net.Dialer{}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, addr string) (net.Conn, error) {
			return dialer.DialContext(ctx, family.Network(), addr)
		},
	}
	return &http.Client{
		Transport: transport,
		Timeout:   w.timeout,
	}
}

func otherFamily(family Family) Family {
	if family == IPv6 {
		return IPv4
	}
	return IPv6
}
