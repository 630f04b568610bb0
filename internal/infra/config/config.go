package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// ProviderMode selects the adapter set at process startup.
type ProviderMode string

const (
	ProvidersMock ProviderMode = "mock"
	ProvidersAWS  ProviderMode = "aws"
)

// Config is the full process configuration, loaded from environment
// variables once in cmd.Init and passed by reference from there.
type Config struct {
	Providers ProviderMode `env:"PROVIDERS" envDefault:"mock"`
	HTTPAddr  string       `env:"HTTP_ADDR" envDefault:":8080"`

	Delivery DeliveryConfig `envPrefix:"DELIVERY_"`
	Hosting  HostingConfig  `envPrefix:"HOSTING_"`
	Panel    PanelConfig    `envPrefix:"PANEL_"`
	Contact  DomainContact  `envPrefix:"CONTACT_"`
}

// DeliveryConfig holds the coordinator's knobs. Retry and propagation
// constants are deliberately explicit rather than hardcoded.
type DeliveryConfig struct {
	// TLDPriority is the ordered suffix list tried by domain search; first
	// available wins.
	TLDPriority       []string `env:"TLD_PRIORITY" envSeparator:"," envDefault:".com.au,.com,.net.au,.net"`
	RegistrationYears int      `env:"REGISTRATION_YEARS" envDefault:"1"`
	MailboxPrefix     string   `env:"MAILBOX_PREFIX" envDefault:"admin"`

	RetryMaxAttempts     int           `env:"RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryInitialInterval time.Duration `env:"RETRY_INITIAL_INTERVAL" envDefault:"500ms"`

	PropagationMaxAttempts int           `env:"PROPAGATION_MAX_ATTEMPTS" envDefault:"10"`
	PropagationDelay       time.Duration `env:"PROPAGATION_DELAY" envDefault:"30s"`

	// StepTimeout bounds one adapter call, not the whole step with retries.
	StepTimeout time.Duration `env:"STEP_TIMEOUT" envDefault:"30s"`

	OperatorEmail string `env:"OPERATOR_EMAIL"`
}

type HostingConfig struct {
	// Target is the stable hosting endpoint website records point at, e.g. a
	// CloudFront distribution domain.
	Target string `env:"TARGET"`
	// CertARN is the ACM certificate attached to new distributions.
	CertARN string `env:"CERT_ARN"`
	// S3Domain is the website endpoint of the artifact bucket.
	S3Domain string `env:"S3_DOMAIN"`
	Bucket   string `env:"BUCKET"`
}

type PanelConfig struct {
	BaseURL string        `env:"BASE_URL"`
	APIKey  string        `env:"API_KEY"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// DomainContact is the registrant contact submitted with registrations.
type DomainContact struct {
	FirstName    string `env:"FIRST_NAME"`
	LastName     string `env:"LAST_NAME"`
	Email        string `env:"EMAIL"`
	PhoneNumber  string `env:"PHONE"`
	AddressLine1 string `env:"ADDRESS"`
	City         string `env:"CITY"`
	State        string `env:"STATE"`
	ZipCode      string `env:"ZIP"`
}

func New() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Validate catches missing required credentials at startup; these are the
// one category of error surfaced as a hard failure rather than an
// attempt-level failure.
func (c *Config) Validate() error {
	if c.Providers != ProvidersMock && c.Providers != ProvidersAWS {
		return fmt.Errorf("unknown PROVIDERS value %q", c.Providers)
	}
	if c.Delivery.RetryMaxAttempts < 1 {
		return fmt.Errorf("DELIVERY_RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.Delivery.PropagationMaxAttempts < 1 {
		return fmt.Errorf("DELIVERY_PROPAGATION_MAX_ATTEMPTS must be at least 1")
	}
	if len(c.Delivery.TLDPriority) == 0 {
		return fmt.Errorf("DELIVERY_TLD_PRIORITY must not be empty")
	}
	if c.Providers == ProvidersAWS {
		if c.Hosting.Target == "" {
			return fmt.Errorf("HOSTING_TARGET is required with aws providers")
		}
		if c.Hosting.Bucket == "" {
			return fmt.Errorf("HOSTING_BUCKET is required with aws providers")
		}
		if c.Panel.BaseURL == "" || c.Panel.APIKey == "" {
			return fmt.Errorf("PANEL_BASE_URL and PANEL_API_KEY are required with aws providers")
		}
		if c.Contact.Email == "" {
			return fmt.Errorf("CONTACT_EMAIL is required with aws providers")
		}
	}
	return nil
}
