package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mort88/aws-ddns/internal/config"
	"github.com/mort88/aws-ddns/internal/logger"
	"github.com/mort88/aws-ddns/internal/metrics"
	"github.com/mort88/aws-ddns/internal/provider/route53"
	"github.com/mort88/aws-ddns/internal/reconcile"
	"github.com/mort88/aws-ddns/internal/resolver"
)

var flags = struct {
	configPath  *string
	profile     *string
	lookupURL   *string
	host        *string
	zoneID      *string
	domain      *string
	recordType  *string
	ttl         *int64
	ipv6        *bool
	strict      *string
	timeout     *time.Duration
	metricsFile *string
}{
	configPath:  flag.String("config", "config.yaml", "path to the YAML config file"),
	profile:     flag.String("profile", "", "AWS shared config profile, empty for the default credential chain"),
	lookupURL:   flag.String("lookup-url", "", "HTTP endpoint returning the caller's IP as the response body"),
	host:        flag.String("host", "", "DNS label to reconcile, combined with the domain to form the record name"),
	zoneID:      flag.String("zone-id", "", "Route 53 hosted zone ID"),
	domain:      flag.String("domain", "", "DNS domain, derived from the hosted zone when empty"),
	recordType:  flag.String("record-type", "", "record type for single-family runs, A or AAAA"),
	ttl:         flag.Int64("ttl", 0, "record TTL in seconds"),
	ipv6:        flag.Bool("6", false, "also reconcile the AAAA record over IPv6"),
	strict:      flag.String("strict", "", "abort the run when one family's lookup fails (true/false)"),
	timeout:     flag.Duration("timeout", 0, "per network call timeout"),
	metricsFile: flag.String("metrics-textfile", "", "write prometheus metrics to this file at exit"),
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*flags.configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	logger.Configure(cfg.Log.Level, cfg.Log.Env)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		flag.Usage()
		os.Exit(1)
	}

	m := metrics.New(true)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, m)
	writeMetrics(cfg, m)
	if err != nil {
		slog.Error("Reconciliation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, m *metrics.Metrics) error {
	start := time.Now()
	defer func() {
		m.SetRunDuration(time.Since(start))
	}()

	dnsProvider, err := route53.New(ctx, cfg.Profile, m)
	if err != nil {
		m.IncRun(false)
		return err
	}

	registered := resolver.NewDNS(cfg.Timeout, m)
	observed := resolver.NewWeb(cfg.LookupURL, cfg.Host, cfg.Timeout, m)
	engine := reconcile.NewEngine(dnsProvider, registered, observed, cfg, m)

	results, err := engine.Run(ctx)
	if err != nil {
		m.IncRun(false)
		return err
	}
	if results.AllFailed() {
		m.IncRun(false)
		return errors.New("all address family checks failed")
	}

	m.IncRun(true)
	slog.Info("Reconciliation complete",
		"updated", results.Updated(),
		"skipped", results.Failed())
	return nil
}

// applyFlags overrides config values with flags the user set explicitly.
// Flags take precedence over the environment, which takes precedence
// over the config file.
func applyFlags(cfg *config.Config) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "profile":
			cfg.Profile = *flags.profile
		case "lookup-url":
			cfg.LookupURL = *flags.lookupURL
		case "host":
			cfg.Host = *flags.host
		case "zone-id":
			cfg.ZoneID = *flags.zoneID
		case "domain":
			cfg.Domain = *flags.domain
		case "record-type":
			cfg.RecordType = *flags.recordType
		case "ttl":
			cfg.TTL = *flags.ttl
		case "6":
			cfg.IPv6 = *flags.ipv6
		case "strict":
			if v, err := strconv.ParseBool(*flags.strict); err == nil {
				cfg.Strict = &v
			} else {
				slog.Warn("fail parse strict to bool from string", "strict", *flags.strict)
			}
		case "timeout":
			cfg.Timeout = *flags.timeout
		case "metrics-textfile":
			cfg.MetricsTextfile = *flags.metricsFile
		}
	})
}

func writeMetrics(cfg *config.Config, m *metrics.Metrics) {
	if cfg.MetricsTextfile == "" {
		return
	}
	if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
		slog.Error("Failed to write metrics textfile", "path", cfg.MetricsTextfile, "error", err)
	}
}
