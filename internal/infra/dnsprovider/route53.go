package dnsprovider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	rTypes "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/errs"
	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
)

// cloudfrontHostedZoneID is the fixed alias hosted zone for all CloudFront
// distributions.
const cloudfrontHostedZoneID = "Z2FDTNDATAQYW2"

const mxPriority = 10

// Route53Provider manages hosted zones and records through Route53.
type Route53Provider struct {
	client *route53.Client
	probe  propagationProbe
}

var _ interfaces.DNSProvider = (*Route53Provider)(nil)

func NewRoute53Provider(awsConfig aws.Config) *Route53Provider {
	return &Route53Provider{
		client: route53.NewFromConfig(awsConfig),
		probe:  newAuthoritativeProbe(),
	}
}

func (d *Route53Provider) FindOrCreateZone(ctx context.Context, domain string) (*interfaces.Zone, error) {
	res, err := d.client.ListHostedZonesByName(ctx, &route53.ListHostedZonesByNameInput{
		DNSName: aws.String(domain),
	})
	if err != nil {
		return nil, errs.Transient("listing hosted zones for %v: %v", domain, err)
	}
	for _, hostedZone := range res.HostedZones {
		if strings.TrimSuffix(aws.ToString(hostedZone.Name), ".") != domain {
			continue
		}
		zoneID := trimZoneID(aws.ToString(hostedZone.Id))
		nameservers, err := d.GetNameservers(ctx, zoneID)
		if err != nil {
			return nil, err
		}
		slog.Info("reusing existing hosted zone", "domain", domain, "zone", zoneID)
		return &interfaces.Zone{ID: zoneID, Nameservers: nameservers}, nil
	}

	created, err := d.client.CreateHostedZone(ctx, &route53.CreateHostedZoneInput{
		// must be unique per request, used for idempotency
		CallerReference: aws.String(uuid.NewString()),
		Name:            aws.String(domain),
	})
	if err != nil {
		return nil, errs.Transient("creating hosted zone for %v: %v", domain, err)
	}
	return &interfaces.Zone{
		ID:          trimZoneID(aws.ToString(created.HostedZone.Id)),
		Nameservers: created.DelegationSet.NameServers,
	}, nil
}

func (d *Route53Provider) ConfigureWebsiteRecords(ctx context.Context, zoneID, domain, target string) ([]interfaces.DNSRecord, error) {
	changes := []rTypes.Change{
		{
			Action: rTypes.ChangeActionUpsert,
			ResourceRecordSet: &rTypes.ResourceRecordSet{
				Name: aws.String(domain),
				Type: rTypes.RRTypeA,
				AliasTarget: &rTypes.AliasTarget{
					DNSName:              aws.String(target),
					HostedZoneId:         aws.String(cloudfrontHostedZoneID),
					EvaluateTargetHealth: false,
				},
			},
		},
		{
			Action: rTypes.ChangeActionUpsert,
			ResourceRecordSet: &rTypes.ResourceRecordSet{
				Name:            aws.String("www." + domain),
				Type:            rTypes.RRTypeCname,
				TTL:             aws.Int64(300),
				ResourceRecords: []rTypes.ResourceRecord{{Value: aws.String(domain)}},
			},
		},
	}
	if err := d.change(ctx, zoneID, changes); err != nil {
		return nil, errs.Transient("writing website records for %v: %v", domain, err)
	}
	return []interfaces.DNSRecord{
		{Type: "A", Name: domain, Value: target},
		{Type: "CNAME", Name: "www." + domain, Value: domain, TTL: 300},
	}, nil
}

func (d *Route53Provider) ConfigureEmailRecords(ctx context.Context, zoneID, domain, mailServer string) ([]interfaces.DNSRecord, error) {
	spf := `"v=spf1 mx ~all"`
	changes := []rTypes.Change{
		{
			Action: rTypes.ChangeActionUpsert,
			ResourceRecordSet: &rTypes.ResourceRecordSet{
				Name:            aws.String(domain),
				Type:            rTypes.RRTypeMx,
				TTL:             aws.Int64(300),
				ResourceRecords: []rTypes.ResourceRecord{{Value: aws.String(fmt.Sprintf("%d %s", mxPriority, mailServer))}},
			},
		},
		{
			Action: rTypes.ChangeActionUpsert,
			ResourceRecordSet: &rTypes.ResourceRecordSet{
				Name:            aws.String(domain),
				Type:            rTypes.RRTypeTxt,
				TTL:             aws.Int64(300),
				ResourceRecords: []rTypes.ResourceRecord{{Value: aws.String(spf)}},
			},
		},
	}
	if err := d.change(ctx, zoneID, changes); err != nil {
		return nil, errs.Transient("writing email records for %v: %v", domain, err)
	}
	return []interfaces.DNSRecord{
		{Type: "MX", Name: domain, Value: mailServer, TTL: 300, Priority: mxPriority},
		{Type: "TXT", Name: domain, Value: spf, TTL: 300},
	}, nil
}

// VerifyPropagation asks the zone's own nameservers, not a recursive
// resolver, so a true result means the provider is answering.
func (d *Route53Provider) VerifyPropagation(ctx context.Context, zoneID, domain string, maxAttempts int, delay time.Duration) (bool, error) {
	nameservers, err := d.GetNameservers(ctx, zoneID)
	if err != nil {
		return false, err
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if d.probe.visible(ctx, domain, nameservers) {
			return true, nil
		}
		slog.Info("records not yet visible", "domain", domain, "attempt", attempt)
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(delay):
		}
	}
	return false, nil
}

func (d *Route53Provider) GetNameservers(ctx context.Context, zoneID string) ([]string, error) {
	res, err := d.client.GetHostedZone(ctx, &route53.GetHostedZoneInput{Id: aws.String(zoneID)})
	if err != nil {
		return nil, errs.Transient("getting hosted zone %v: %v", zoneID, err)
	}
	if res.DelegationSet == nil {
		return nil, nil
	}
	return res.DelegationSet.NameServers, nil
}

func (d *Route53Provider) change(ctx context.Context, zoneID string, changes []rTypes.Change) error {
	resp, err := d.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(zoneID),
		ChangeBatch:  &rTypes.ChangeBatch{Changes: changes},
	})
	if err != nil {
		return err
	}
	slog.Info("record change submitted", "zone", zoneID, "change", aws.ToString(resp.ChangeInfo.Id))
	return nil
}

func trimZoneID(id string) string {
	parts := strings.SplitN(id, "/hostedzone/", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return id
}
