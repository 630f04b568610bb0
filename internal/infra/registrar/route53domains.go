package registrar

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/route53domains"
	rdTypes "github.com/aws/aws-sdk-go-v2/service/route53domains/types"
	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/errs"
	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
	"github.com/kuziva-m/mvp-sub001/internal/infra/config"
)

// Route53Registrar registers domains through Route53 Domains. The domains
// API only lives in us-east-1.
type Route53Registrar struct {
	cfg     config.DeliveryConfig
	contact config.DomainContact
	client  *route53domains.Client
}

var _ interfaces.Registrar = (*Route53Registrar)(nil)

func NewRoute53Registrar(awsConfig aws.Config, cfg config.DeliveryConfig, contact config.DomainContact) *Route53Registrar {
	domainClientCfg := awsConfig
	domainClientCfg.Region = "us-east-1"
	return &Route53Registrar{
		cfg:     cfg,
		contact: contact,
		client:  route53domains.NewFromConfig(domainClientCfg),
	}
}

func (r *Route53Registrar) SearchDomain(ctx context.Context, businessName string) (string, error) {
	label := SanitizeLabel(businessName)
	if label == "" {
		return "", errs.Permanent("business name %q yields an empty domain label", businessName)
	}
	for _, tld := range r.cfg.TLDPriority {
		domain := label + tld
		out, err := r.client.CheckDomainAvailability(ctx, &route53domains.CheckDomainAvailabilityInput{
			DomainName: aws.String(domain),
		})
		if err != nil {
			return "", errs.Transient("checking availability of %v: %v", domain, err)
		}
		if out.Availability == rdTypes.DomainAvailabilityAvailable {
			return domain, nil
		}
		slog.Info("domain not available, trying next tld", "domain", domain, "availability", out.Availability)
	}
	return "", errs.Permanent("no available domain for label %v in %v", label, r.cfg.TLDPriority)
}

func (r *Route53Registrar) Register(ctx context.Context, domain string, customerID uuid.UUID) (*interfaces.Registration, error) {
	contact := rdTypes.ContactDetail{
		FirstName:    aws.String(r.contact.FirstName),
		LastName:     aws.String(r.contact.LastName),
		Email:        aws.String(r.contact.Email),
		PhoneNumber:  aws.String(r.contact.PhoneNumber),
		AddressLine1: aws.String(r.contact.AddressLine1),
		City:         aws.String(r.contact.City),
		State:        aws.String(r.contact.State),
		CountryCode:  rdTypes.CountryCodeAu,
		ZipCode:      aws.String(r.contact.ZipCode),
	}
	res, err := r.client.RegisterDomain(ctx, &route53domains.RegisterDomainInput{
		DomainName:                      aws.String(domain),
		DurationInYears:                 aws.Int32(int32(r.cfg.RegistrationYears)),
		AutoRenew:                       aws.Bool(true),
		AdminContact:                    &contact,
		RegistrantContact:               &contact,
		TechContact:                     &contact,
		PrivacyProtectAdminContact:      aws.Bool(true),
		PrivacyProtectRegistrantContact: aws.Bool(true),
		PrivacyProtectTechContact:       aws.Bool(true),
	})
	if err != nil {
		// registration failures are billing-relevant, never retried
		return nil, errs.Permanent("registering %v for customer %v: %v", domain, customerID, err)
	}

	return &interfaces.Registration{
		OrderID:   aws.ToString(res.OperationId),
		ExpiresAt: time.Now().AddDate(r.cfg.RegistrationYears, 0, 0),
		// nameservers are assigned asynchronously, sync stage will push the
		// zone's set
		Nameservers: nil,
	}, nil
}

func (r *Route53Registrar) UpdateNameservers(ctx context.Context, domain string, nameservers []string) error {
	ns := make([]rdTypes.Nameserver, 0, len(nameservers))
	for _, n := range nameservers {
		ns = append(ns, rdTypes.Nameserver{Name: aws.String(n)})
	}
	res, err := r.client.UpdateDomainNameservers(ctx, &route53domains.UpdateDomainNameserversInput{
		DomainName:  aws.String(domain),
		Nameservers: ns,
	})
	if err != nil {
		return errs.Transient("updating nameservers of %v: %v", domain, err)
	}
	slog.Info("nameserver update submitted", "domain", domain, "operation", aws.ToString(res.OperationId))
	return nil
}
