package reconcile

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/mort88/aws-ddns/internal/config"
	"github.com/mort88/aws-ddns/internal/metrics"
	"github.com/mort88/aws-ddns/internal/provider"
	"github.com/mort88/aws-ddns/internal/resolver"
)

type MockProvider struct {
	zoneName  string
	zoneErr   error
	upsertErr error

	zoneCalls int
	upserts   []provider.RecordSet
}

func (m *MockProvider) ZoneName(ctx context.Context, zoneID string) (string, error) {
	m.zoneCalls++
	return m.zoneName, m.zoneErr
}

func (m *MockProvider) UpsertRecordSet(ctx context.Context, zoneID string, rs provider.RecordSet) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, rs)
	return nil
}

type MockRegistered struct {
	addrs map[resolver.Family]netip.Addr
	errs  map[resolver.Family]error
	fqdns []string
}

func (m *MockRegistered) LookupHost(ctx context.Context, fqdn string, family resolver.Family) (netip.Addr, error) {
	m.fqdns = append(m.fqdns, fqdn)
	if err := m.errs[family]; err != nil {
		return netip.Addr{}, err
	}
	return m.addrs[family], nil
}

type MockObserved struct {
	addrs map[resolver.Family]netip.Addr
	errs  map[resolver.Family]error
}

func (m *MockObserved) ObservedIP(ctx context.Context, family resolver.Family) (netip.Addr, error) {
	if err := m.errs[family]; err != nil {
		return netip.Addr{}, err
	}
	return m.addrs[family], nil
}

func addr(s string) netip.Addr {
	return netip.MustParseAddr(s)
}

func boolPtr(b bool) *bool {
	return &b
}

func baseConfig() *config.Config {
	return &config.Config{
		Host:       "home",
		ZoneID:     "Z123456",
		Domain:     "example.com",
		RecordType: "A",
		TTL:        60,
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name           string
		config         *config.Config
		provider       *MockProvider
		registered     *MockRegistered
		observed       *MockObserved
		expectErr      bool
		expectUpserts  []provider.RecordSet
		expectOutcomes int
	}{
		{
			name:     "registered matches observed",
			config:   baseConfig(),
			provider: &MockProvider{},
			registered: &MockRegistered{
				addrs: map[resolver.Family]netip.Addr{resolver.IPv4: addr("1.2.3.4")},
			},
			observed: &MockObserved{
				addrs: map[resolver.Family]netip.Addr{resolver.IPv4: addr("1.2.3.4")},
			},
			expectUpserts:  []provider.RecordSet{},
			expectOutcomes: 1,
		},
		{
			name:     "registered differs from observed",
			config:   baseConfig(),
			provider: &MockProvider{},
			registered: &MockRegistered{
				addrs: map[resolver.Family]netip.Addr{resolver.IPv4: addr("1.2.3.4")},
			},
			observed: &MockObserved{
				addrs: map[resolver.Family]netip.Addr{resolver.IPv4: addr("5.6.7.8")},
			},
			expectUpserts: []provider.RecordSet{
				{Name: "home.example.com", Type: "A", TTL: 60, Value: "5.6.7.8"},
			},
			expectOutcomes: 1,
		},
		{
			name:     "no existing record requires update",
			config:   baseConfig(),
			provider: &MockProvider{},
			registered: &MockRegistered{
				errs: map[resolver.Family]error{resolver.IPv4: resolver.ErrNoRecord},
			},
			observed: &MockObserved{
				addrs: map[resolver.Family]netip.Addr{resolver.IPv4: addr("5.6.7.8")},
			},
			expectUpserts: []provider.RecordSet{
				{Name: "home.example.com", Type: "A", TTL: 60, Value: "5.6.7.8"},
			},
			expectOutcomes: 1,
		},
		{
			name: "domain derived from hosted zone",
			config: &config.Config{
				Host:       "home",
				ZoneID:     "Z123456",
				RecordType: "A",
				TTL:        60,
			},
			provider: &MockProvider{zoneName: "example.com."},
			registered: &MockRegistered{
				addrs: map[resolver.Family]netip.Addr{resolver.IPv4: addr("1.2.3.4")},
			},
			observed: &MockObserved{
				addrs: map[resolver.Family]netip.Addr{resolver.IPv4: addr("5.6.7.8")},
			},
			expectUpserts: []provider.RecordSet{
				{Name: "home.example.com", Type: "A", TTL: 60, Value: "5.6.7.8"},
			},
			expectOutcomes: 1,
		},
		{
			name: "zone lookup failure is fatal",
			config: &config.Config{
				Host:       "home",
				ZoneID:     "Z-bogus",
				RecordType: "A",
				TTL:        60,
			},
			provider:   &MockProvider{zoneErr: errors.New("zone not found")},
			registered: &MockRegistered{},
			observed:   &MockObserved{},
			expectErr:  true,
		},
		{
			name: "ipv4 failure does not block ipv6",
			config: &config.Config{
				Host:   "home",
				ZoneID: "Z123456",
				Domain: "example.com",
				TTL:    60,
				IPv6:   true,
			},
			provider: &MockProvider{},
			registered: &MockRegistered{
				addrs: map[resolver.Family]netip.Addr{resolver.IPv6: addr("2001:db8::1")},
			},
			observed: &MockObserved{
				errs:  map[resolver.Family]error{resolver.IPv4: errors.New("endpoint unreachable")},
				addrs: map[resolver.Family]netip.Addr{resolver.IPv6: addr("2001:db8::2")},
			},
			expectUpserts: []provider.RecordSet{
				{Name: "home.example.com", Type: "AAAA", TTL: 60, Value: "2001:db8::2"},
			},
			expectOutcomes: 2,
		},
		{
			name: "strict mode aborts on lookup failure",
			config: &config.Config{
				Host:   "home",
				ZoneID: "Z123456",
				Domain: "example.com",
				TTL:    60,
				IPv6:   true,
				Strict: boolPtr(true),
			},
			provider:   &MockProvider{},
			registered: &MockRegistered{},
			observed: &MockObserved{
				errs: map[resolver.Family]error{resolver.IPv4: errors.New("endpoint unreachable")},
			},
			expectErr: true,
		},
		{
			name:     "single family lookup failure is fatal",
			config:   baseConfig(),
			provider: &MockProvider{},
			registered: &MockRegistered{
				errs: map[resolver.Family]error{resolver.IPv4: errors.New("servfail")},
			},
			observed:  &MockObserved{},
			expectErr: true,
		},
		{
			name:     "upsert failure is fatal",
			config:   baseConfig(),
			provider: &MockProvider{upsertErr: errors.New("throttled")},
			registered: &MockRegistered{
				addrs: map[resolver.Family]netip.Addr{resolver.IPv4: addr("1.2.3.4")},
			},
			observed: &MockObserved{
				addrs: map[resolver.Family]netip.Addr{resolver.IPv4: addr("5.6.7.8")},
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(tt.provider, tt.registered, tt.observed, tt.config, metrics.New(false))
			results, err := engine.Run(context.Background())

			if tt.expectErr && err == nil {
				t.Fatal("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.expectErr {
				return
			}

			if len(results.Outcomes) != tt.expectOutcomes {
				t.Errorf("Outcome count mismatch: got %d, want %d", len(results.Outcomes), tt.expectOutcomes)
			}

			if len(tt.provider.upserts) != len(tt.expectUpserts) {
				t.Fatalf("Upsert count mismatch: got %d, want %d", len(tt.provider.upserts), len(tt.expectUpserts))
			}
			for i, want := range tt.expectUpserts {
				if got := tt.provider.upserts[i]; got != want {
					t.Errorf("Upsert %d mismatch: got %+v, want %+v", i, got, want)
				}
			}
		})
	}
}

func TestRunExplicitDomainSkipsZoneLookup(t *testing.T) {
	mockProvider := &MockProvider{zoneName: "should-not-be-used."}
	registered := &MockRegistered{
		addrs: map[resolver.Family]netip.Addr{resolver.IPv4: addr("1.2.3.4")},
	}
	observed := &MockObserved{
		addrs: map[resolver.Family]netip.Addr{resolver.IPv4: addr("1.2.3.4")},
	}

	engine := NewEngine(mockProvider, registered, observed, baseConfig(), metrics.New(false))
	if _, err := engine.Run(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if mockProvider.zoneCalls != 0 {
		t.Errorf("Expected no zone metadata lookups with explicit domain, got %d", mockProvider.zoneCalls)
	}
}

func TestRunZoneFailureStopsBeforeLookups(t *testing.T) {
	mockProvider := &MockProvider{zoneErr: errors.New("unauthorized")}
	registered := &MockRegistered{}
	observed := &MockObserved{}

	cfg := baseConfig()
	cfg.Domain = ""

	engine := NewEngine(mockProvider, registered, observed, cfg, metrics.New(false))
	if _, err := engine.Run(context.Background()); err == nil {
		t.Fatal("Expected error but got none")
	}

	if len(registered.fqdns) != 0 {
		t.Errorf("Expected no DNS lookups after zone failure, got %d", len(registered.fqdns))
	}
	if len(mockProvider.upserts) != 0 {
		t.Errorf("Expected no upserts after zone failure, got %d", len(mockProvider.upserts))
	}
}

func TestRunFQDNConstruction(t *testing.T) {
	tests := []struct {
		name   string
		domain string
		want   string
	}{
		{
			name:   "plain domain",
			domain: "example.com",
			want:   "home.example.com",
		},
		{
			name:   "dot terminated domain",
			domain: "example.com.",
			want:   "home.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.Domain = tt.domain

			registered := &MockRegistered{
				addrs: map[resolver.Family]netip.Addr{resolver.IPv4: addr("1.2.3.4")},
			}
			observed := &MockObserved{
				addrs: map[resolver.Family]netip.Addr{resolver.IPv4: addr("5.6.7.8")},
			}
			mockProvider := &MockProvider{}

			engine := NewEngine(mockProvider, registered, observed, cfg, metrics.New(false))
			results, err := engine.Run(context.Background())
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			for _, fqdn := range registered.fqdns {
				if fqdn != tt.want {
					t.Errorf("DNS lookup fqdn mismatch: got %q, want %q", fqdn, tt.want)
				}
			}
			for _, rs := range mockProvider.upserts {
				if rs.Name != tt.want {
					t.Errorf("Upsert name mismatch: got %q, want %q", rs.Name, tt.want)
				}
			}
			for _, outcome := range results.Outcomes {
				if outcome.FQDN != tt.want {
					t.Errorf("Outcome fqdn mismatch: got %q, want %q", outcome.FQDN, tt.want)
				}
			}
		})
	}
}

func TestResultsAllFailed(t *testing.T) {
	tests := []struct {
		name    string
		results Results
		want    bool
	}{
		{
			name:    "no outcomes",
			results: Results{},
			want:    false,
		},
		{
			name: "one failed one succeeded",
			results: Results{Outcomes: []Outcome{
				{Err: errors.New("boom")},
				{Updated: true},
			}},
			want: false,
		},
		{
			name: "every outcome failed",
			results: Results{Outcomes: []Outcome{
				{Err: errors.New("boom")},
				{Err: errors.New("bang")},
			}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.results.AllFailed(); got != tt.want {
				t.Errorf("AllFailed mismatch: got %v, want %v", got, tt.want)
			}
		})
	}
}
