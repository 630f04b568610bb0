package accounts

import (
	"context"
	"fmt"
	"sync"

	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
)

// MockProvisioner is the in-memory account provisioner for mock mode and
// tests. Mailboxes are idempotent by (domain, prefix); an existing mailbox
// keeps its original password.
type MockProvisioner struct {
	PanelURL string

	mu        sync.Mutex
	mailboxes map[string]*interfaces.Mailbox
	panels    map[string]*interfaces.PanelAccount

	CreateMailboxCalls int
	CreateAccountCalls int
}

var _ interfaces.AccountProvisioner = (*MockProvisioner)(nil)

func NewMockProvisioner() *MockProvisioner {
	return &MockProvisioner{
		PanelURL:  "https://panel.mockhost.net",
		mailboxes: make(map[string]*interfaces.Mailbox),
		panels:    make(map[string]*interfaces.PanelAccount),
	}
}

func (m *MockProvisioner) CreateMailbox(ctx context.Context, domain, prefix string) (*interfaces.Mailbox, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateMailboxCalls++

	key := prefix + "@" + domain
	if existing, ok := m.mailboxes[key]; ok {
		return existing, nil
	}
	password, err := GeneratePassword()
	if err != nil {
		return nil, err
	}
	mailbox := &interfaces.Mailbox{Email: key, Password: password}
	m.mailboxes[key] = mailbox
	return mailbox, nil
}

func (m *MockProvisioner) CreateControlPanelAccount(ctx context.Context, domain, businessName string) (*interfaces.PanelAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateAccountCalls++

	if existing, ok := m.panels[domain]; ok {
		return existing, nil
	}
	password, err := GeneratePassword()
	if err != nil {
		return nil, err
	}
	account := &interfaces.PanelAccount{
		Username: PanelUsername(domain),
		Password: password,
		PanelURL: fmt.Sprintf("%s/login?user=%s", m.PanelURL, PanelUsername(domain)),
	}
	m.panels[domain] = account
	return account, nil
}

func (m *MockProvisioner) GetMailServerHostname(domain string) string {
	return MailServerHostname(domain)
}
