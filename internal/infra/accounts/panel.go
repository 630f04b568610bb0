package accounts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kuziva-m/mvp-sub001/internal/application/errs"
	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
	"github.com/kuziva-m/mvp-sub001/internal/infra/config"
)

// PanelProvisioner drives the hosting control panel's JSON API to create
// mailboxes and panel accounts.
type PanelProvisioner struct {
	cfg    config.PanelConfig
	client *http.Client
}

var _ interfaces.AccountProvisioner = (*PanelProvisioner)(nil)

func NewPanelProvisioner(cfg config.PanelConfig) *PanelProvisioner {
	return &PanelProvisioner{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type createMailboxRequest struct {
	Domain   string `json:"domain"`
	Prefix   string `json:"prefix"`
	Password string `json:"password"`
	// Reset must be set explicitly to replace credentials of an existing
	// mailbox; the delivery pipeline never sets it.
	Reset bool `json:"reset"`
}

type createMailboxResponse struct {
	Email    string `json:"email"`
	Existing bool   `json:"existing"`
}

func (p *PanelProvisioner) CreateMailbox(ctx context.Context, domain, prefix string) (*interfaces.Mailbox, error) {
	password, err := GeneratePassword()
	if err != nil {
		return nil, fmt.Errorf("generating mailbox password: %w", err)
	}
	var resp createMailboxResponse
	err = p.post(ctx, "/mailboxes", createMailboxRequest{
		Domain:   domain,
		Prefix:   prefix,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Existing {
		// credentials unchanged on the panel side; surface the address only
		return &interfaces.Mailbox{Email: resp.Email}, nil
	}
	return &interfaces.Mailbox{Email: resp.Email, Password: password}, nil
}

type createAccountRequest struct {
	Domain       string `json:"domain"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	BusinessName string `json:"businessName"`
}

type createAccountResponse struct {
	Username string `json:"username"`
	PanelURL string `json:"panelUrl"`
}

func (p *PanelProvisioner) CreateControlPanelAccount(ctx context.Context, domain, businessName string) (*interfaces.PanelAccount, error) {
	password, err := GeneratePassword()
	if err != nil {
		return nil, fmt.Errorf("generating panel password: %w", err)
	}
	var resp createAccountResponse
	err = p.post(ctx, "/accounts", createAccountRequest{
		Domain:       domain,
		Username:     PanelUsername(domain),
		Password:     password,
		BusinessName: businessName,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &interfaces.PanelAccount{
		Username: resp.Username,
		Password: password,
		PanelURL: resp.PanelURL,
	}, nil
}

func (p *PanelProvisioner) GetMailServerHostname(domain string) string {
	return MailServerHostname(domain)
}

func (p *PanelProvisioner) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(request)
	if err != nil {
		return errs.Transient("calling panel %v: %v", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return errs.Transient("panel %v returned %v", path, resp.StatusCode)
	case resp.StatusCode >= 400:
		return errs.Permanent("panel %v rejected request with %v", path, resp.StatusCode)
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding panel response: %w", err)
	}
	return nil
}
