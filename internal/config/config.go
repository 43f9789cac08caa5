package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mort88/aws-ddns/internal/resolver"
)

const (
	defaultLookupURL  = "https://checkip.amazonaws.com"
	defaultRecordType = "A"
	defaultTTL        = 60
	defaultTimeout    = 15 * time.Second
	defaultLogLevel   = "info"
	defaultLogEnv     = "prod"
)

type Config struct {
	Profile         string        `yaml:"profile"`
	LookupURL       string        `yaml:"lookupUrl"`
	Host            string        `yaml:"host"`
	ZoneID          string        `yaml:"zoneId"`
	Domain          string        `yaml:"domain"`
	RecordType      string        `yaml:"recordType"`
	TTL             int64         `yaml:"ttl"`
	IPv6            bool          `yaml:"ipv6"`
	Strict          *bool         `yaml:"strict"`
	Timeout         time.Duration `yaml:"timeout"`
	MetricsTextfile string        `yaml:"metricsTextfile"`
	Log             Log           `yaml:"log"`
}

type Log struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

func Load(path string) (*Config, error) {
	configFile := true
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("fail find config file, proceeding", "path", path)
		configFile = false
	}

	var cfg Config
	if configFile {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, err
		}
		if err := f.Close(); err != nil {
			slog.Default().Warn("fail close config file", "path", path, "error", err)
		}
	}

	if cfg.LookupURL == "" {
		cfg.LookupURL = defaultLookupURL
	}
	if cfg.RecordType == "" {
		cfg.RecordType = defaultRecordType
	}
	if cfg.TTL == 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	// Set log defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Log.Env == "" {
		cfg.Log.Env = defaultLogEnv
	}

	// Override from environment if set
	if profile := os.Getenv("AWS_DDNS_PROFILE"); profile != "" {
		cfg.Profile = profile
	}
	if lookupURL := os.Getenv("AWS_DDNS_LOOKUP_URL"); lookupURL != "" {
		cfg.LookupURL = lookupURL
	}
	if host := os.Getenv("AWS_DDNS_HOST"); host != "" {
		cfg.Host = host
	}
	if zoneID := os.Getenv("AWS_DDNS_ZONE_ID"); zoneID != "" {
		cfg.ZoneID = zoneID
	}
	if domain := os.Getenv("AWS_DDNS_DOMAIN"); domain != "" {
		cfg.Domain = domain
	}
	if recordType := os.Getenv("AWS_DDNS_RECORD_TYPE"); recordType != "" {
		cfg.RecordType = recordType
	}
	if ttl := os.Getenv("AWS_DDNS_TTL"); ttl != "" {
		if parsed, err := strconv.ParseInt(ttl, 10, 64); err == nil {
			cfg.TTL = parsed
		} else {
			slog.Default().Warn("fail parse ttl to int from string", "ttl", ttl, "error", err)
		}
	}
	if ipv6 := os.Getenv("AWS_DDNS_IPV6"); ipv6 != "" {
		if parsed, err := strconv.ParseBool(ipv6); err == nil {
			cfg.IPv6 = parsed
		} else {
			slog.Default().Warn("fail parse ipv6 to bool from string", "ipv6", ipv6, "error", err)
		}
	}
	if strict := os.Getenv("AWS_DDNS_STRICT"); strict != "" {
		if parsed, err := strconv.ParseBool(strict); err == nil {
			cfg.Strict = &parsed
		} else {
			slog.Default().Warn("fail parse strict to bool from string", "strict", strict, "error", err)
		}
	}
	if timeout := os.Getenv("AWS_DDNS_TIMEOUT"); timeout != "" {
		if parsed, err := time.ParseDuration(timeout); err == nil {
			cfg.Timeout = parsed
		} else {
			slog.Default().Warn("fail parse timeout to duration from string", "timeout", timeout, "error", err)
		}
	}
	if textfile := os.Getenv("AWS_DDNS_METRICS_TEXTFILE"); textfile != "" {
		cfg.MetricsTextfile = textfile
	}
	if loglevel := os.Getenv("AWS_DDNS_LOG_LEVEL"); loglevel != "" {
		cfg.Log.Level = loglevel
	}
	if logenv := os.Getenv("AWS_DDNS_LOG_ENV"); logenv != "" {
		cfg.Log.Env = logenv
	}
	return &cfg, nil
}

// Validate enforces the invariants that must hold before any network
// call is made.
func (c *Config) Validate() error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.ZoneID == "" {
		return errors.New("zone-id is required")
	}
	if c.TTL <= 0 {
		return fmt.Errorf("ttl must be positive, got %d", c.TTL)
	}
	if !c.IPv6 {
		if _, err := resolver.FamilyForType(c.RecordType); err != nil {
			return err
		}
	}
	return nil
}

// Families returns the address families to check, in check order. With
// ipv6 enabled both families are checked, IPv4 first. Otherwise the
// single family is the one the configured record type implies.
func (c *Config) Families() []resolver.Family {
	if c.IPv6 {
		return []resolver.Family{resolver.IPv4, resolver.IPv6}
	}
	family, err := resolver.FamilyForType(c.RecordType)
	if err != nil {
		// Validate rejects unknown record types before this is reachable.
		family = resolver.IPv4
	}
	return []resolver.Family{family}
}

// StrictMode reports whether a per-family lookup failure aborts the
// whole run. Unset means strict for a single-family check and
// skip-and-continue when both families are checked.
func (c *Config) StrictMode() bool {
	if c.Strict != nil {
		return *c.Strict
	}
	return !c.IPv6
}
