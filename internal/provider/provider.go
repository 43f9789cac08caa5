package provider

import (
	"context"
	"strings"
)

type Provider interface {
	// ZoneName returns the apex domain name of the hosted zone.
	ZoneName(ctx context.Context, zoneID string) (string, error)
	// UpsertRecordSet creates or fully replaces the record set matching
	// the set's name and type.
	UpsertRecordSet(ctx context.Context, zoneID string, rs RecordSet) error
}

// RecordSet is a single-valued resource record set.
type RecordSet struct {
	Name  string // fully qualified, with or without trailing dot
	Type  string // "A" or "AAAA"
	TTL   int64  // seconds
	Value string
}

// TrimZoneDot strips the trailing dot Route 53 appends to zone names.
func TrimZoneDot(zone string) string {
	return strings.TrimSuffix(zone, ".")
}
