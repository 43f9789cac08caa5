package route53

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"

	"github.com/mort88/aws-ddns/internal/metrics"
	"github.com/mort88/aws-ddns/internal/provider"
)

const changeComment = "managed by aws-ddns"

// api is the slice of the Route 53 client this provider needs.
type api interface {
	GetHostedZone(ctx context.Context, params *route53.GetHostedZoneInput, optFns ...func(*route53.Options)) (*route53.GetHostedZoneOutput, error)
	ChangeResourceRecordSets(ctx context.Context, params *route53.ChangeResourceRecordSetsInput, optFns ...func(*route53.Options)) (*route53.ChangeResourceRecordSetsOutput, error)
}

type Route53Provider struct {
	client  api
	metrics *metrics.Metrics
}

// New builds a provider authenticated through the default AWS credential
// chain, or through the named shared-config profile when one is given.
func New(ctx context.Context, profile string, m *metrics.Metrics) (*Route53Provider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if profile != "" && profile != "None" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Route53Provider{
		client:  route53.NewFromConfig(cfg),
		metrics: m,
	}, nil
}

func (p *Route53Provider) ZoneName(ctx context.Context, zoneID string) (string, error) {
	slog.Debug("Getting hosted zone", "zone_id", zoneID)
	start := time.Now()

	out, err := p.client.GetHostedZone(ctx, &route53.GetHostedZoneInput{
		Id: aws.String(zoneID),
	})
	if err != nil {
		p.metrics.IncProviderRequest("zone_name", false)
		return "", fmt.Errorf("get hosted zone %s: %w", zoneID, err)
	}

	name := aws.ToString(out.HostedZone.Name)
	p.metrics.IncProviderRequest("zone_name", true)
	slog.Debug("Got hosted zone", "zone_id", zoneID, "name", name, "duration", time.Since(start))
	return name, nil
}

func (p *Route53Provider) UpsertRecordSet(ctx context.Context, zoneID string, rs provider.RecordSet) error {
	slog.Info("Upserting record set", "zone_id", zoneID, "name", rs.Name, "type", rs.Type, "value", rs.Value, "ttl", rs.TTL)
	start := time.Now()

	_, err := p.client.ChangeResourceRecordSets(ctx, changeInput(zoneID, rs))
	if err != nil {
		p.metrics.IncProviderRequest("upsert", false)
		return fmt.Errorf("change record sets for %s: %w", rs.Name, err)
	}

	p.metrics.IncProviderRequest("upsert", true)
	slog.Debug("Upserted record set", "zone_id", zoneID, "name", rs.Name, "duration", time.Since(start))
	return nil
}

// changeInput builds a single-change UPSERT batch. Route 53 record names
// are dot-terminated.
func changeInput(zoneID string, rs provider.RecordSet) *route53.ChangeResourceRecordSetsInput {
	name := rs.Name
	if !strings.HasSuffix(name, ".") {
		name += "."
	}

	return &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch: &types.ChangeBatch{
			Comment: aws.String(changeComment),
			Changes: []types.Change{
				{
					Action: types.ChangeActionUpsert,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name: aws.String(name),
						Type: types.RRType(rs.Type),
						TTL:  aws.Int64(rs.TTL),
						ResourceRecords: []types.ResourceRecord{
							{Value: aws.String(rs.Value)},
						},
					},
				},
			},
		},
	}
}
