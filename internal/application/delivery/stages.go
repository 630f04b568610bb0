package delivery

import (
	"context"
	"fmt"

	"github.com/kuziva-m/mvp-sub001/internal/application/consts"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db"
)

func (c *Coordinator) defaultPolicy() stagePolicy {
	return stagePolicy{
		maxAttempts: c.cfg.Delivery.RetryMaxAttempts,
		timeout:     c.cfg.Delivery.StepTimeout,
	}
}

// stageFunc binds a stage identifier to its adapter call. Side effects on
// the attempt (domain, credentials, deployment url) happen here, right after
// the call succeeds.
func (c *Coordinator) stageFunc(stage consts.Stage, attempt *db.DeliveryAttempt, state *runState, customer *db.Customer, site *db.Site) (stageFunc, stagePolicy) {
	policy := c.defaultPolicy()

	switch stage {
	case consts.StageDomainSearch:
		return func(ctx context.Context) (any, string, error) {
			domain, err := c.registrar.SearchDomain(ctx, customer.BusinessName)
			if err != nil {
				return nil, "", err
			}
			state.domain = domain
			return searchOutput{Domain: domain}, "", nil
		}, policy

	case consts.StageDomainRegister:
		// registration failures are permanent, one attempt only
		policy.maxAttempts = 1
		return func(ctx context.Context) (any, string, error) {
			registration, err := c.registrar.Register(ctx, state.domain, customer.ID)
			if err != nil {
				return nil, "", err
			}
			state.registration = *registration
			domain := state.domain
			attempt.Domain = &domain
			return registerOutput{
				OrderID:     registration.OrderID,
				ExpiresAt:   registration.ExpiresAt,
				Nameservers: registration.Nameservers,
			}, "", nil
		}, policy

	case consts.StageZoneReady:
		return func(ctx context.Context) (any, string, error) {
			zone, err := c.dns.FindOrCreateZone(ctx, state.domain)
			if err != nil {
				return nil, "", err
			}
			state.zone = *zone
			return zoneOutput{ZoneID: zone.ID, Nameservers: zone.Nameservers}, "", nil
		}, policy

	case consts.StageNameserversSynced:
		return func(ctx context.Context) (any, string, error) {
			if sameNameserverSet(state.zone.Nameservers, state.registration.Nameservers) {
				return nil, "", errSkipStage
			}
			if err := c.registrar.UpdateNameservers(ctx, state.domain, state.zone.Nameservers); err != nil {
				return nil, "", err
			}
			return nsSyncOutput{Updated: true, Nameservers: state.zone.Nameservers}, "", nil
		}, policy

	case consts.StageDNSPropagated:
		// the stage owns its waiting, attempt count bounds it instead of a
		// wall clock
		policy.maxAttempts = 1
		policy.timeout = 0
		return func(ctx context.Context) (any, string, error) {
			propagated, err := c.dns.VerifyPropagation(ctx, state.zone.ID, state.domain,
				c.cfg.Delivery.PropagationMaxAttempts, c.cfg.Delivery.PropagationDelay)
			if err != nil {
				return nil, "", err
			}
			output := propagationOutput{Propagated: propagated, Attempts: c.cfg.Delivery.PropagationMaxAttempts}
			if !propagated {
				warning := fmt.Sprintf("records not visible after %d polls, continuing", c.cfg.Delivery.PropagationMaxAttempts)
				return output, warning, nil
			}
			return output, "", nil
		}, policy

	case consts.StageWebsiteDNS:
		return c.websiteDNSFunc(state), policy

	case consts.StagePublish:
		return func(ctx context.Context) (any, string, error) {
			deployment, err := c.hosting.Publish(ctx, state.domain, site.ID, site.ArtifactPath)
			if err != nil {
				return nil, "", err
			}
			url := deployment.URL
			attempt.DeploymentURL = &url
			return publishOutput{DeploymentID: deployment.ID, DeploymentURL: deployment.URL}, "", nil
		}, policy

	case consts.StageSSLVerify:
		return func(ctx context.Context) (any, string, error) {
			ssl, err := c.hosting.CheckSSL(ctx, state.domain)
			if err != nil {
				return nil, "", err
			}
			output := sslOutput{Configured: ssl.Configured, Status: ssl.Status, ExpiresAt: ssl.ExpiresAt}
			if !ssl.Configured || ssl.Status != "active" {
				// issuance is asynchronous on the provider side, not a failure
				return output, fmt.Sprintf("ssl certificate not active yet (status %v)", ssl.Status), nil
			}
			return output, "", nil
		}, policy

	case consts.StageEmailDNS:
		return c.emailDNSFunc(state), policy

	case consts.StageMailboxCreate:
		return func(ctx context.Context) (any, string, error) {
			mailbox, err := c.accounts.CreateMailbox(ctx, state.domain, c.cfg.Delivery.MailboxPrefix)
			if err != nil {
				return nil, "", err
			}
			email := mailbox.Email
			attempt.Credentials.EmailAddress = &email
			if mailbox.Password != "" {
				password := mailbox.Password
				attempt.Credentials.EmailPassword = &password
			}
			return mailboxOutput{Email: mailbox.Email}, "", nil
		}, policy

	case consts.StageCpanelCreate:
		return func(ctx context.Context) (any, string, error) {
			account, err := c.accounts.CreateControlPanelAccount(ctx, state.domain, customer.BusinessName)
			if err != nil {
				return nil, "", err
			}
			username, password, panelURL := account.Username, account.Password, account.PanelURL
			attempt.Credentials.CpanelUsername = &username
			attempt.Credentials.CpanelPassword = &password
			attempt.Credentials.CpanelURL = &panelURL
			return cpanelOutput{Username: account.Username, PanelURL: account.PanelURL}, "", nil
		}, policy
	}

	return func(ctx context.Context) (any, string, error) {
		return nil, "", fmt.Errorf("unknown stage %v", stage)
	}, policy
}

func (c *Coordinator) websiteDNSFunc(state *runState) stageFunc {
	return func(ctx context.Context) (any, string, error) {
		records, err := c.dns.ConfigureWebsiteRecords(ctx, state.zone.ID, state.domain, c.cfg.Hosting.Target)
		if err != nil {
			return nil, "", err
		}
		return mapRecords(records), "", nil
	}
}

func (c *Coordinator) emailDNSFunc(state *runState) stageFunc {
	return func(ctx context.Context) (any, string, error) {
		mailServer := c.accounts.GetMailServerHostname(state.domain)
		records, err := c.dns.ConfigureEmailRecords(ctx, state.zone.ID, state.domain, mailServer)
		if err != nil {
			return nil, "", err
		}
		return mapRecords(records), "", nil
	}
}
