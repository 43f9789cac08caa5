package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/mort88/aws-ddns/internal/config"
	"github.com/mort88/aws-ddns/internal/metrics"
	"github.com/mort88/aws-ddns/internal/provider"
	"github.com/mort88/aws-ddns/internal/resolver"
)

// RegisteredResolver looks up the address a name currently resolves to.
type RegisteredResolver interface {
	LookupHost(ctx context.Context, fqdn string, family resolver.Family) (netip.Addr, error)
}

// ObservedResolver looks up the caller's current public address.
type ObservedResolver interface {
	ObservedIP(ctx context.Context, family resolver.Family) (netip.Addr, error)
}

type Engine struct {
	dnsProvider provider.Provider
	registered  RegisteredResolver
	observed    ObservedResolver
	metrics     *metrics.Metrics
	cfg         *config.Config
}

func NewEngine(dp provider.Provider, registered RegisteredResolver, observed ObservedResolver, cfg *config.Config, m *metrics.Metrics) *Engine {
	return &Engine{
		dnsProvider: dp,
		registered:  registered,
		observed:    observed,
		metrics:     m,
		cfg:         cfg,
	}
}

// Run executes one reconciliation pass: resolve the domain, then for
// each configured address family compare the registered address against
// the observed one and upsert on divergence. Families are checked
// sequentially; one family's lookup failure never blocks the next unless
// strict mode is on. An upsert failure always aborts the run.
func (e *Engine) Run(ctx context.Context) (Results, error) {
	results := Results{}

	domain, err := e.resolveDomain(ctx)
	if err != nil {
		return results, fmt.Errorf("resolve domain: %w", err)
	}

	fqdn := joinFQDN(e.cfg.Host, domain)
	slog.Info("Reconciling record", "fqdn", fqdn, "zone_id", e.cfg.ZoneID)

	for _, family := range e.cfg.Families() {
		outcome, err := e.checkFamily(ctx, fqdn, family)
		results.Outcomes = append(results.Outcomes, outcome)
		if err != nil {
			e.metrics.IncFamilyCheck(family.String(), "failed")
			return results, err
		}

		switch {
		case outcome.Err != nil:
			if e.cfg.StrictMode() {
				e.metrics.IncFamilyCheck(family.String(), "failed")
				return results, outcome.Err
			}
			slog.Warn("Skipping address family", "family", family, "error", outcome.Err)
			e.metrics.IncFamilyCheck(family.String(), "skipped")
		case outcome.Updated:
			e.metrics.IncFamilyCheck(family.String(), "updated")
		default:
			e.metrics.IncFamilyCheck(family.String(), "no_change")
		}
	}
	return results, nil
}

// resolveDomain returns the explicit domain unchanged when configured,
// otherwise derives it from the hosted zone's metadata.
func (e *Engine) resolveDomain(ctx context.Context) (string, error) {
	if e.cfg.Domain != "" {
		return e.cfg.Domain, nil
	}

	zone, err := e.dnsProvider.ZoneName(ctx, e.cfg.ZoneID)
	if err != nil {
		return "", err
	}
	domain := provider.TrimZoneDot(zone)
	slog.Info("Derived domain from hosted zone", "zone_id", e.cfg.ZoneID, "domain", domain)
	return domain, nil
}

// checkFamily runs one family's check-then-update sequence. A lookup
// fault is reported in the outcome and left to the caller's skip/abort
// policy; the returned error is reserved for upsert failures, which are
// fatal regardless of policy.
func (e *Engine) checkFamily(ctx context.Context, fqdn string, family resolver.Family) (Outcome, error) {
	outcome := Outcome{Family: family, FQDN: fqdn}

	registered, err := e.registered.LookupHost(ctx, fqdn, family)
	if err != nil && !errors.Is(err, resolver.ErrNoRecord) {
		outcome.Err = fmt.Errorf("look up registered address for %s: %w", fqdn, err)
		return outcome, nil
	}
	if errors.Is(err, resolver.ErrNoRecord) {
		slog.Info("No record currently registered", "fqdn", fqdn, "type", family.RecordType())
	}
	outcome.Registered = registered

	observed, err := e.observed.ObservedIP(ctx, family)
	if err != nil {
		outcome.Err = fmt.Errorf("look up observed address: %w", err)
		return outcome, nil
	}
	outcome.Observed = observed

	if observed == registered {
		slog.Info("Record matches observed address, no change needed", "fqdn", fqdn, "address", observed)
		return outcome, nil
	}

	slog.Info("Record differs from observed address, update required",
		"fqdn", fqdn, "registered", addrString(registered), "observed", observed)

	rs := provider.RecordSet{
		Name:  fqdn,
		Type:  family.RecordType(),
		TTL:   e.cfg.TTL,
		Value: observed.String(),
	}
	if err := e.dnsProvider.UpsertRecordSet(ctx, e.cfg.ZoneID, rs); err != nil {
		outcome.Err = err
		return outcome, fmt.Errorf("upsert %s record for %s: %w", rs.Type, fqdn, err)
	}

	outcome.Updated = true
	slog.Info("Record updated", "fqdn", fqdn, "type", rs.Type, "address", observed, "ttl", rs.TTL)
	return outcome, nil
}

func joinFQDN(host, domain string) string {
	domain = provider.TrimZoneDot(domain)
	return host + "." + domain
}

func addrString(addr netip.Addr) string {
	if !addr.IsValid() {
		return "none"
	}
	return addr.String()
}
