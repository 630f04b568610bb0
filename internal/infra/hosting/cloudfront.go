package hosting

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/acm"
	acmTypes "github.com/aws/aws-sdk-go-v2/service/acm/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	cfTypes "github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/errs"
	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
	"github.com/kuziva-m/mvp-sub001/internal/infra/config"
)

// CloudFrontPublisher serves the built site from S3 through a CloudFront
// distribution bound to the customer domain, with an ACM certificate.
type CloudFrontPublisher struct {
	cfg       config.HostingConfig
	cfClient  *cloudfront.Client
	s3Client  *s3.Client
	acmClient *acm.Client
}

var _ interfaces.HostingPublisher = (*CloudFrontPublisher)(nil)

func NewCloudFrontPublisher(awsConfig aws.Config, cfg config.HostingConfig) *CloudFrontPublisher {
	certClientCfg := awsConfig
	// region must be us-east-1 for CloudFront certificates
	certClientCfg.Region = "us-east-1"
	return &CloudFrontPublisher{
		cfg:       cfg,
		cfClient:  cloudfront.NewFromConfig(awsConfig),
		s3Client:  s3.NewFromConfig(awsConfig),
		acmClient: acm.NewFromConfig(certClientCfg),
	}
}

func (h *CloudFrontPublisher) Publish(ctx context.Context, domain string, siteID uuid.UUID, artifactPath string) (*interfaces.Deployment, error) {
	objects, err := h.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(h.cfg.Bucket),
		Prefix:  aws.String(artifactPath),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, errs.Transient("listing site artifact %v: %v", artifactPath, err)
	}
	if len(objects.Contents) == 0 {
		return nil, errs.Permanent("no built site found under %v for site %v", artifactPath, siteID)
	}

	// republish of the same domain updates the existing binding
	if existing, err := h.findDistributionByAlias(ctx, domain); err != nil {
		return nil, err
	} else if existing != nil {
		slog.Info("domain already bound to a distribution", "domain", domain, "distribution", *existing)
		return &interfaces.Deployment{ID: *existing, URL: "https://" + domain}, nil
	}

	res, err := h.cfClient.CreateDistribution(ctx, &cloudfront.CreateDistributionInput{
		DistributionConfig: &cfTypes.DistributionConfig{
			// must be unique per request, used for idempotency
			CallerReference:   aws.String(uuid.NewString()),
			Comment:           aws.String("Delivery for site " + siteID.String()),
			Enabled:           aws.Bool(true),
			DefaultRootObject: aws.String("index.html"),

			Origins: &cfTypes.Origins{
				Quantity: aws.Int32(1),
				Items: []cfTypes.Origin{
					{
						Id:         aws.String("1"),
						DomainName: aws.String(h.cfg.S3Domain),
						OriginPath: aws.String("/" + strings.TrimSuffix(artifactPath, "/")),
						CustomOriginConfig: &cfTypes.CustomOriginConfig{
							HTTPPort:             aws.Int32(80),
							HTTPSPort:            aws.Int32(443),
							OriginProtocolPolicy: cfTypes.OriginProtocolPolicyHttpOnly,
							OriginSslProtocols: &cfTypes.OriginSslProtocols{
								Quantity: aws.Int32(1),
								Items:    []cfTypes.SslProtocol{cfTypes.SslProtocolTLSv12},
							},
						},
					},
				},
			},

			DefaultCacheBehavior: &cfTypes.DefaultCacheBehavior{
				TargetOriginId:       aws.String("1"),
				ViewerProtocolPolicy: cfTypes.ViewerProtocolPolicyRedirectToHttps,
				AllowedMethods: &cfTypes.AllowedMethods{
					Quantity: aws.Int32(2),
					Items:    []cfTypes.Method{cfTypes.MethodGet, cfTypes.MethodHead},
					CachedMethods: &cfTypes.CachedMethods{
						Quantity: aws.Int32(2),
						Items:    []cfTypes.Method{cfTypes.MethodGet, cfTypes.MethodHead},
					},
				},
				ForwardedValues: &cfTypes.ForwardedValues{
					QueryString: aws.Bool(false),
					Cookies: &cfTypes.CookiePreference{
						Forward: cfTypes.ItemSelectionNone,
					},
				},
				TrustedSigners: &cfTypes.TrustedSigners{
					Enabled:  aws.Bool(false),
					Quantity: aws.Int32(0),
				},
				MinTTL: aws.Int64(0),
			},

			Aliases: &cfTypes.Aliases{
				Quantity: aws.Int32(2),
				Items:    []string{domain, "www." + domain},
			},

			ViewerCertificate: &cfTypes.ViewerCertificate{
				ACMCertificateArn:      aws.String(h.cfg.CertARN),
				SSLSupportMethod:       cfTypes.SSLSupportMethodSniOnly,
				MinimumProtocolVersion: cfTypes.MinimumProtocolVersionTLSv122021,
			},

			HttpVersion:   cfTypes.HttpVersionHttp2,
			IsIPV6Enabled: aws.Bool(false),
		},
	})
	if err != nil {
		return nil, errs.Transient("creating distribution for %v: %v", domain, err)
	}

	return &interfaces.Deployment{
		ID:  aws.ToString(res.Distribution.Id),
		URL: "https://" + domain,
	}, nil
}

// CheckSSL is read-only; certificate issuance is asynchronous on the
// provider side and a non-active status is reported, not failed.
func (h *CloudFrontPublisher) CheckSSL(ctx context.Context, domain string) (*interfaces.SSLStatus, error) {
	list, err := h.acmClient.ListCertificates(ctx, &acm.ListCertificatesInput{})
	if err != nil {
		return nil, errs.Transient("listing certificates: %v", err)
	}
	for _, summary := range list.CertificateSummaryList {
		if aws.ToString(summary.DomainName) != domain {
			continue
		}
		detail, err := h.acmClient.DescribeCertificate(ctx, &acm.DescribeCertificateInput{
			CertificateArn: summary.CertificateArn,
		})
		if err != nil {
			return nil, errs.Transient("describing certificate of %v: %v", domain, err)
		}
		cert := detail.Certificate
		status := &interfaces.SSLStatus{
			Configured: true,
			Status:     strings.ToLower(string(cert.Status)),
			ExpiresAt:  cert.NotAfter,
		}
		if cert.Status == acmTypes.CertificateStatusIssued {
			status.Status = "active"
		}
		return status, nil
	}
	return &interfaces.SSLStatus{Configured: false, Status: "missing"}, nil
}

func (h *CloudFrontPublisher) findDistributionByAlias(ctx context.Context, domain string) (*string, error) {
	var marker *string
	for {
		out, err := h.cfClient.ListDistributions(ctx, &cloudfront.ListDistributionsInput{Marker: marker})
		if err != nil {
			return nil, errs.Transient("listing distributions: %v", err)
		}
		if out.DistributionList == nil {
			return nil, nil
		}
		for _, item := range out.DistributionList.Items {
			if item.Aliases == nil {
				continue
			}
			for _, alias := range item.Aliases.Items {
				if alias == domain {
					return item.Id, nil
				}
			}
		}
		if out.DistributionList.IsTruncated == nil || !*out.DistributionList.IsTruncated {
			return nil, nil
		}
		marker = out.DistributionList.NextMarker
	}
}
