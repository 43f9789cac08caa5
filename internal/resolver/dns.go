package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"

	"github.com/mort88/aws-ddns/internal/metrics"
)

// ErrNoRecord indicates the name resolved cleanly but holds no record of
// the requested type. Callers treat this as "no current value" rather
// than a lookup fault.
var ErrNoRecord = errors.New("no such record")

const resolvConf = "/etc/resolv.conf"

// DNS looks up the currently registered address for a name, restricted
// to one address family.
type DNS struct {
	client  *dns.Client
	servers []string
	metrics *metrics.Metrics
}

func NewDNS(timeout time.Duration, m *metrics.Metrics) *DNS {
	client := &dns.Client{Timeout: timeout}

	cfg, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil || len(cfg.Servers) == 0 {
		slog.Warn("Failed to read resolv.conf, falling back to public resolver", "error", err)
		cfg = &dns.ClientConfig{Servers: []string{"1.1.1.1"}, Port: "53"}
	}

	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers = append(servers, net.JoinHostPort(s, cfg.Port))
	}
	return &DNS{client: client, servers: servers, metrics: m}
}

// LookupHost resolves fqdn to the single registered address of the given
// family. Returns ErrNoRecord when the name does not exist or has no
// record of the family's type.
func (d *DNS) LookupHost(ctx context.Context, fqdn string, family Family) (netip.Addr, error) {
	addr, err := d.lookup(ctx, fqdn, family)
	d.metrics.IncDNSLookup(family.String(), err == nil || errors.Is(err, ErrNoRecord))
	return addr, err
}

func (d *DNS) lookup(ctx context.Context, fqdn string, family Family) (netip.Addr, error) {
	qtype := dns.TypeA
	if family == IPv6 {
		qtype = dns.TypeAAAA
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(fqdn), qtype)

	var lastErr error
	for _, server := range d.servers {
		resp, _, err := d.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = fmt.Errorf("exchange with %s: %w", server, err)
			continue
		}

		switch resp.Rcode {
		case dns.RcodeSuccess:
			addrs := answerAddrs(resp, qtype)
			if len(addrs) == 0 {
				return netip.Addr{}, ErrNoRecord
			}
			return addrs[0], nil
		case dns.RcodeNameError:
			return netip.Addr{}, ErrNoRecord
		default:
			lastErr = fmt.Errorf("query %s at %s: %s", fqdn, server, dns.RcodeToString[resp.Rcode])
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no nameservers configured")
	}
	return netip.Addr{}, lastErr
}

func answerAddrs(resp *dns.Msg, qtype uint16) []netip.Addr {
	var addrs []netip.Addr
	for _, rr := range resp.Answer {
		var ip net.IP
		switch record := rr.(type) {
		case *dns.A:
			if qtype != dns.TypeA {
				continue
			}
			ip = record.A
		case *dns.AAAA:
			if qtype != dns.TypeAAAA {
				continue
			}
			ip = record.AAAA
		default:
			continue
		}
		addr, err := netip.ParseAddr(ip.String())
		if err != nil {
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs
}
