package registrar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/errs"
	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
	"github.com/kuziva-m/mvp-sub001/internal/infra/config"
)

// MockRegistrar is the in-memory registrar used in mock provider mode and in
// tests. Deterministic: first TLD in priority order wins, no randomness.
type MockRegistrar struct {
	cfg config.DeliveryConfig

	mu          sync.Mutex
	taken       map[string]bool
	nameservers map[string][]string
	orderSeq    int

	SearchCalls   int
	RegisterCalls int
	UpdateNSCalls int
}

var _ interfaces.Registrar = (*MockRegistrar)(nil)

func NewMockRegistrar(cfg config.DeliveryConfig) *MockRegistrar {
	return &MockRegistrar{
		cfg:         cfg,
		taken:       make(map[string]bool),
		nameservers: make(map[string][]string),
	}
}

// MarkTaken seeds a domain as already registered elsewhere.
func (m *MockRegistrar) MarkTaken(domain string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taken[domain] = true
}

func (m *MockRegistrar) SearchDomain(ctx context.Context, businessName string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchCalls++

	label := SanitizeLabel(businessName)
	if label == "" {
		return "", errs.Permanent("business name %q yields an empty domain label", businessName)
	}
	for _, tld := range m.cfg.TLDPriority {
		domain := label + tld
		if !m.taken[domain] {
			return domain, nil
		}
	}
	return "", errs.Permanent("no available domain for label %v", label)
}

func (m *MockRegistrar) Register(ctx context.Context, domain string, customerID uuid.UUID) (*interfaces.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RegisterCalls++

	if m.taken[domain] {
		return nil, errs.Permanent("domain %v is already taken", domain)
	}
	m.taken[domain] = true
	m.orderSeq++
	return &interfaces.Registration{
		OrderID:     fmt.Sprintf("order-%04d", m.orderSeq),
		ExpiresAt:   time.Now().AddDate(m.cfg.RegistrationYears, 0, 0),
		Nameservers: m.nameservers[domain],
	}, nil
}

func (m *MockRegistrar) UpdateNameservers(ctx context.Context, domain string, nameservers []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateNSCalls++

	if !m.taken[domain] {
		return errs.Permanent("domain %v is not registered here", domain)
	}
	m.nameservers[domain] = append([]string(nil), nameservers...)
	return nil
}

// NameserversOnFile returns the registrar-side nameserver set, for tests.
func (m *MockRegistrar) NameserversOnFile(domain string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.nameservers[domain]...)
}
