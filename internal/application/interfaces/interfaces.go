package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/consts"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db"
	shared "github.com/kuziva-m/mvp-sub001/pkg/interfaces"
)

type Registration struct {
	OrderID   string
	ExpiresAt time.Time
	// Nameservers the registrar has on file right after registration. Used by
	// the nameserver-sync comparison; may be empty when the registrar does not
	// report them synchronously.
	Nameservers []string
}

// Registrar searches for and registers domains.
type Registrar interface {
	// SearchDomain sanitizes the business name to a DNS label and returns the
	// first available domain in TLD priority order.
	SearchDomain(ctx context.Context, businessName string) (string, error)
	// Register registers the domain for the configured term. Failures are
	// permanent; the caller must not retry.
	Register(ctx context.Context, domain string, customerID uuid.UUID) (*Registration, error)
	// UpdateNameservers is idempotent; re-applying the same set is a no-op.
	UpdateNameservers(ctx context.Context, domain string, nameservers []string) error
}

type Zone struct {
	ID          string
	Nameservers []string
}

type DNSRecord struct {
	Type     string
	Name     string
	Value    string
	TTL      int
	Priority int
}

// DNSProvider manages the zone and its records.
type DNSProvider interface {
	// FindOrCreateZone reuses an existing zone for the domain rather than
	// duplicating it.
	FindOrCreateZone(ctx context.Context, domain string) (*Zone, error)
	ConfigureWebsiteRecords(ctx context.Context, zoneID, domain, target string) ([]DNSRecord, error)
	ConfigureEmailRecords(ctx context.Context, zoneID, domain, mailServer string) ([]DNSRecord, error)
	// VerifyPropagation polls up to maxAttempts times with delay between
	// polls. Exhausting attempts returns false, not an error.
	VerifyPropagation(ctx context.Context, zoneID, domain string, maxAttempts int, delay time.Duration) (bool, error)
	GetNameservers(ctx context.Context, zoneID string) ([]string, error)
}

type Deployment struct {
	ID  string
	URL string
}

type SSLStatus struct {
	Configured bool
	Status     string
	ExpiresAt  *time.Time
}

// HostingPublisher deploys the built site under a custom domain.
type HostingPublisher interface {
	// Publish is idempotent at the domain level; republishing updates the
	// existing binding.
	Publish(ctx context.Context, domain string, siteID uuid.UUID, artifactPath string) (*Deployment, error)
	CheckSSL(ctx context.Context, domain string) (*SSLStatus, error)
}

type Mailbox struct {
	Email    string
	Password string
}

type PanelAccount struct {
	Username string
	Password string
	PanelURL string
}

// AccountProvisioner creates the customer mailbox and control-panel account.
type AccountProvisioner interface {
	// CreateMailbox is idempotent by (domain, prefix); an existing mailbox is
	// returned as-is, never overwritten.
	CreateMailbox(ctx context.Context, domain, prefix string) (*Mailbox, error)
	CreateControlPanelAccount(ctx context.Context, domain, businessName string) (*PanelAccount, error)
	// GetMailServerHostname is pure and deterministic, no network call.
	GetMailServerHostname(domain string) string
}

type AttemptFilter struct {
	CustomerID *uuid.UUID
	SiteID     *uuid.UUID
	Status     *consts.DeliveryStatus
}

// DeliveryStore is the durable record of delivery attempts. The coordinator
// persists through it after every step transition.
type DeliveryStore interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (*db.Customer, error)
	GetSite(ctx context.Context, id uuid.UUID) (*db.Site, error)
	UpdateSiteStatus(ctx context.Context, id uuid.UUID, status consts.SiteStatus) error
	GetAttempt(ctx context.Context, id uuid.UUID) (*db.DeliveryAttempt, error)
	// FindActiveAttempt returns the single non-terminal attempt for the pair,
	// nil when none exists.
	FindActiveAttempt(ctx context.Context, customerID, siteID uuid.UUID) (*db.DeliveryAttempt, error)
	// FindLatestAttempt returns the most recent attempt regardless of status,
	// nil when the pair was never delivered.
	FindLatestAttempt(ctx context.Context, customerID, siteID uuid.UUID) (*db.DeliveryAttempt, error)
	ListAttempts(ctx context.Context, filter AttemptFilter) ([]db.DeliveryAttempt, error)
	InsertAttempt(ctx context.Context, attempt *db.DeliveryAttempt) error
	UpdateAttempt(ctx context.Context, attempt *db.DeliveryAttempt) error
	InsertEvent(ctx context.Context, event shared.Event) error
}
