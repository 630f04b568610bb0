package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/consts"
	"github.com/kuziva-m/mvp-sub001/internal/application/errs"
	"github.com/kuziva-m/mvp-sub001/internal/application/events"
	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
	"github.com/kuziva-m/mvp-sub001/internal/infra/config"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db"
	"golang.org/x/sync/errgroup"
)

// Coordinator drives one delivery attempt through the fixed stage sequence,
// persisting after every step transition. Adapter failures become step
// records, never errors crossing this boundary; the error return is reserved
// for store and input problems.
type Coordinator struct {
	cfg       *config.Config
	store     interfaces.DeliveryStore
	registrar interfaces.Registrar
	dns       interfaces.DNSProvider
	hosting   interfaces.HostingPublisher
	accounts  interfaces.AccountProvisioner
}

func NewCoordinator(
	cfg *config.Config, store interfaces.DeliveryStore, registrar interfaces.Registrar,
	dns interfaces.DNSProvider, hosting interfaces.HostingPublisher, accounts interfaces.AccountProvisioner,
) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		store:     store,
		registrar: registrar,
		dns:       dns,
		hosting:   hosting,
		accounts:  accounts,
	}
}

// Deliver starts or resumes delivery for one (customer, site) pair. A second
// call while a run is in progress returns the live attempt without starting
// another; a completed pair is rejected.
func (c *Coordinator) Deliver(ctx context.Context, customerID, siteID uuid.UUID) (*db.DeliveryAttempt, error) {
	customer, err := c.store.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("loading customer %v, %v", customerID, err)
	}
	site, err := c.store.GetSite(ctx, siteID)
	if err != nil {
		return nil, fmt.Errorf("loading site %v, %v", siteID, err)
	}
	if site.CustomerID != customerID {
		return nil, errs.Permanent("site %v does not belong to customer %v", siteID, customerID)
	}
	if site.Status == consts.SiteStatusDraft {
		return nil, errs.Permanent("site %v has not been paid for", siteID)
	}

	active, err := c.store.FindActiveAttempt(ctx, customerID, siteID)
	if err != nil {
		return nil, fmt.Errorf("looking up active attempt, %v", err)
	}
	if active != nil {
		if active.Status == consts.DeliveryStatusInProgress {
			slog.Info("delivery already running", "attempt", active.ID, "site", siteID)
			return active, nil
		}
		// a pending attempt was created but never run; pick it up
		return c.run(ctx, active, customer, site)
	}

	latest, err := c.store.FindLatestAttempt(ctx, customerID, siteID)
	if err != nil {
		return nil, fmt.Errorf("looking up latest attempt, %v", err)
	}
	var attempt *db.DeliveryAttempt
	switch {
	case latest == nil || latest.Status == consts.DeliveryStatusCanceled:
		attempt = db.NewDeliveryAttempt(customerID, siteID)
	case latest.Status == consts.DeliveryStatusFailed:
		attempt = resumeFrom(latest)
	default:
		return nil, errs.Permanent("site %v already has a completed delivery", siteID)
	}
	if err := c.store.InsertAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("inserting attempt, %v", err)
	}

	return c.run(ctx, attempt, customer, site)
}

// Resume re-enters the state machine of a failed attempt at the first
// non-succeeded stage, as a new attempt reusing prior step outputs.
func (c *Coordinator) Resume(ctx context.Context, attemptID uuid.UUID) (*db.DeliveryAttempt, error) {
	prior, err := c.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("loading attempt %v, %v", attemptID, err)
	}
	if prior.Status != consts.DeliveryStatusFailed {
		return nil, errs.Permanent("attempt %v is %v, only failed attempts can be resumed", attemptID, prior.Status)
	}
	customer, err := c.store.GetCustomer(ctx, prior.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("loading customer %v, %v", prior.CustomerID, err)
	}
	site, err := c.store.GetSite(ctx, prior.SiteID)
	if err != nil {
		return nil, fmt.Errorf("loading site %v, %v", prior.SiteID, err)
	}

	attempt := resumeFrom(prior)
	if err := c.store.InsertAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("inserting attempt, %v", err)
	}
	return c.run(ctx, attempt, customer, site)
}

// resumeFrom seeds a fresh attempt from a failed one: succeeded steps keep
// their outputs and are not re-executed, everything else resets to pending.
// The prior attempt's record stays untouched.
func resumeFrom(prior *db.DeliveryAttempt) *db.DeliveryAttempt {
	attempt := db.NewDeliveryAttempt(prior.CustomerID, prior.SiteID)
	attempt.Domain = prior.Domain
	attempt.DeploymentURL = prior.DeploymentURL
	attempt.Credentials = prior.Credentials
	for i := range attempt.Steps {
		if prev := prior.Step(attempt.Steps[i].Name); prev != nil && prev.Status == consts.StepStatusSucceeded {
			attempt.Steps[i] = *prev
		}
	}
	return attempt
}

type runState struct {
	domain       string
	registration interfaces.Registration
	zone         interfaces.Zone
}

func (c *Coordinator) run(ctx context.Context, attempt *db.DeliveryAttempt, customer *db.Customer, site *db.Site) (*db.DeliveryAttempt, error) {
	attempt.Status = consts.DeliveryStatusInProgress
	if err := c.store.UpdateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("persisting attempt, %v", err)
	}
	slog.Info("delivery run starting", "attempt", attempt.ID, "customer", customer.ID, "site", site.ID)

	state := &runState{}
	if err := c.rehydrate(attempt, state); err != nil {
		// the attempt is already in_progress; leaving it there would block
		// the pair forever
		if _, failErr := c.finishFailed(ctx, attempt); failErr != nil {
			return nil, errors.Join(err, failErr)
		}
		return nil, err
	}

	for _, stage := range consts.StageOrder {
		step := attempt.Step(stage)
		if step.Status == consts.StepStatusSucceeded || step.Status == consts.StepStatusSkipped {
			continue
		}

		// cancellation is honored at stage boundaries only; a live provider
		// call always runs to completion
		canceled, err := c.checkCanceled(ctx, attempt)
		if err != nil {
			return nil, err
		}
		if canceled {
			return c.finishCanceled(ctx, attempt)
		}

		if stage == consts.StageWebsiteDNS {
			emailStep := attempt.Step(consts.StageEmailDNS)
			if emailStep.Status == consts.StepStatusPending {
				if err := c.executePair(ctx, attempt, state, step, emailStep); err != nil {
					return c.finishFailed(ctx, attempt)
				}
				continue
			}
		}

		if err := c.executeStep(ctx, attempt, state, customer, site, step); err != nil {
			return c.finishFailed(ctx, attempt)
		}
	}

	return c.finishCompleted(ctx, attempt)
}

func (c *Coordinator) executeStep(ctx context.Context, attempt *db.DeliveryAttempt, state *runState, customer *db.Customer, site *db.Site, step *db.StepResult) error {
	fn, policy := c.stageFunc(step.Name, attempt, state, customer, site)

	now := time.Now()
	step.Status = consts.StepStatusRunning
	step.StartedAt = &now
	if err := c.store.UpdateAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("persisting step start, %v", err)
	}

	output, warning, attempts, err := callWithRetry(ctx, policy, c.cfg.Delivery.RetryInitialInterval, fn)
	c.recordStepOutcome(step, output, warning, attempts, err)

	if persistErr := c.store.UpdateAttempt(ctx, attempt); persistErr != nil {
		return fmt.Errorf("persisting step result, %v", persistErr)
	}
	return err
}

// executePair runs website_dns and email_dns concurrently. Both only need
// the zone id and are independent of each other's output; their results are
// recorded and persisted together before the next stage starts.
func (c *Coordinator) executePair(ctx context.Context, attempt *db.DeliveryAttempt, state *runState, websiteStep, emailStep *db.StepResult) error {
	now := time.Now()
	for _, step := range []*db.StepResult{websiteStep, emailStep} {
		step.Status = consts.StepStatusRunning
		step.StartedAt = &now
	}
	if err := c.store.UpdateAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("persisting step start, %v", err)
	}

	policy := c.defaultPolicy()
	var (
		websiteOut, emailOut           any
		websiteAttempts, emailAttempts int
		websiteErr, emailErr           error
	)
	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		websiteOut, _, websiteAttempts, websiteErr = callWithRetry(groupCtx, policy, c.cfg.Delivery.RetryInitialInterval, c.websiteDNSFunc(state))
		return nil
	})
	g.Go(func() error {
		emailOut, _, emailAttempts, emailErr = callWithRetry(groupCtx, policy, c.cfg.Delivery.RetryInitialInterval, c.emailDNSFunc(state))
		return nil
	})
	_ = g.Wait()

	c.recordStepOutcome(websiteStep, websiteOut, "", websiteAttempts, websiteErr)
	c.recordStepOutcome(emailStep, emailOut, "", emailAttempts, emailErr)

	if err := c.store.UpdateAttempt(ctx, attempt); err != nil {
		return fmt.Errorf("persisting step result, %v", err)
	}
	if websiteErr != nil {
		return websiteErr
	}
	return emailErr
}

func (c *Coordinator) recordStepOutcome(step *db.StepResult, output any, warning string, attempts int, err error) {
	completed := time.Now()
	step.CompletedAt = &completed
	step.AttemptCount += attempts

	switch {
	case err == nil:
		step.Status = consts.StepStatusSucceeded
		step.Warning = warning
		step.Error = nil
		if output != nil {
			if payload, marshalErr := json.Marshal(output); marshalErr == nil {
				step.Output = payload
			}
		}
	case isSkip(err):
		step.Status = consts.StepStatusSkipped
		step.Error = nil
	default:
		step.Status = consts.StepStatusFailed
		step.Error = &db.StepError{Kind: errs.Kind(err), Message: err.Error()}
		slog.Error("stage failed", "stage", step.Name, "attempts", step.AttemptCount, "err", err)
	}
}

func (c *Coordinator) checkCanceled(ctx context.Context, attempt *db.DeliveryAttempt) (bool, error) {
	current, err := c.store.GetAttempt(ctx, attempt.ID)
	if err != nil {
		return false, fmt.Errorf("reloading attempt %v, %v", attempt.ID, err)
	}
	return current.Status == consts.DeliveryStatusCanceled, nil
}

func (c *Coordinator) finishCanceled(ctx context.Context, attempt *db.DeliveryAttempt) (*db.DeliveryAttempt, error) {
	for i := range attempt.Steps {
		if attempt.Steps[i].Status == consts.StepStatusPending {
			attempt.Steps[i].Status = consts.StepStatusSkipped
		}
	}
	attempt.Status = consts.DeliveryStatusCanceled
	now := time.Now()
	attempt.CompletedAt = &now
	if err := c.store.UpdateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("persisting canceled attempt, %v", err)
	}
	slog.Info("delivery canceled by operator", "attempt", attempt.ID)
	return attempt, nil
}

func (c *Coordinator) finishFailed(ctx context.Context, attempt *db.DeliveryAttempt) (*db.DeliveryAttempt, error) {
	attempt.Status = consts.DeliveryStatusFailed
	now := time.Now()
	attempt.CompletedAt = &now
	if err := c.store.UpdateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("persisting failed attempt, %v", err)
	}
	c.signalFinished(ctx, attempt)
	return attempt, nil
}

func (c *Coordinator) finishCompleted(ctx context.Context, attempt *db.DeliveryAttempt) (*db.DeliveryAttempt, error) {
	attempt.Status = consts.DeliveryStatusCompleted
	if attempt.HasWarnings() {
		attempt.Status = consts.DeliveryStatusCompletedWithWarnings
	}
	now := time.Now()
	attempt.CompletedAt = &now
	if err := c.store.UpdateAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("persisting completed attempt, %v", err)
	}
	if err := c.store.UpdateSiteStatus(ctx, attempt.SiteID, consts.SiteStatusDelivered); err != nil {
		return nil, fmt.Errorf("marking site delivered, %v", err)
	}
	c.signalFinished(ctx, attempt)
	slog.Info("delivery finished", "attempt", attempt.ID, "status", attempt.Status)
	return attempt, nil
}

func (c *Coordinator) signalFinished(ctx context.Context, attempt *db.DeliveryAttempt) {
	event := events.DeliveryFinished{
		AttemptID: attempt.ID,
		Status:    attempt.Status,
		CreatedAt: time.Now(),
	}
	if err := c.store.InsertEvent(ctx, event); err != nil {
		slog.Error("error inserting finished event", "attempt", attempt.ID, "err", err)
	}
}

// rehydrate rebuilds the cross-step state from succeeded step outputs so a
// resumed run continues where the prior one stopped.
func (c *Coordinator) rehydrate(attempt *db.DeliveryAttempt, state *runState) error {
	if attempt.Domain != nil {
		state.domain = *attempt.Domain
	}
	for i := range attempt.Steps {
		step := &attempt.Steps[i]
		if step.Status != consts.StepStatusSucceeded || len(step.Output) == 0 {
			continue
		}
		switch step.Name {
		case consts.StageDomainSearch:
			var out searchOutput
			if err := json.Unmarshal(step.Output, &out); err != nil {
				return fmt.Errorf("rehydrating %v output, %v", step.Name, err)
			}
			state.domain = out.Domain
		case consts.StageDomainRegister:
			var out registerOutput
			if err := json.Unmarshal(step.Output, &out); err != nil {
				return fmt.Errorf("rehydrating %v output, %v", step.Name, err)
			}
			state.registration = interfaces.Registration{
				OrderID:     out.OrderID,
				ExpiresAt:   out.ExpiresAt,
				Nameservers: out.Nameservers,
			}
		case consts.StageZoneReady:
			var out zoneOutput
			if err := json.Unmarshal(step.Output, &out); err != nil {
				return fmt.Errorf("rehydrating %v output, %v", step.Name, err)
			}
			state.zone = interfaces.Zone{ID: out.ZoneID, Nameservers: out.Nameservers}
		}
	}
	return nil
}

func isSkip(err error) bool {
	return errors.Is(err, errSkipStage)
}

// sameNameserverSet compares two nameserver sets exactly but order-
// insensitively, ignoring trailing dots.
func sameNameserverSet(a, b []string) bool {
	if len(a) != len(b) || len(a) == 0 {
		return false
	}
	normalize := func(in []string) []string {
		out := make([]string, len(in))
		for i, ns := range in {
			out[i] = normalizeNameserver(ns)
		}
		sort.Strings(out)
		return out
	}
	na, nb := normalize(a), normalize(b)
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}

func normalizeNameserver(ns string) string {
	for len(ns) > 0 && ns[len(ns)-1] == '.' {
		ns = ns[:len(ns)-1]
	}
	return ns
}
