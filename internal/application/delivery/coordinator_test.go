package delivery_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/consts"
	"github.com/kuziva-m/mvp-sub001/internal/application/delivery"
	"github.com/kuziva-m/mvp-sub001/internal/application/errs"
	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
	"github.com/kuziva-m/mvp-sub001/internal/infra/accounts"
	"github.com/kuziva-m/mvp-sub001/internal/infra/config"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db"
	"github.com/kuziva-m/mvp-sub001/internal/infra/dnsprovider"
	"github.com/kuziva-m/mvp-sub001/internal/infra/hosting"
	"github.com/kuziva-m/mvp-sub001/internal/infra/registrar"
	shared "github.com/kuziva-m/mvp-sub001/pkg/interfaces"
	"github.com/stretchr/testify/require"
)

// memStore keeps attempts in memory with the same semantics the pg store
// gives the coordinator: copies in and out, cancel status is sticky.
type memStore struct {
	mu        sync.Mutex
	customers map[uuid.UUID]*db.Customer
	sites     map[uuid.UUID]*db.Site
	attempts  map[uuid.UUID]*db.DeliveryAttempt
	order     []uuid.UUID
	events    []shared.Event
}

func newMemStore() *memStore {
	return &memStore{
		customers: make(map[uuid.UUID]*db.Customer),
		sites:     make(map[uuid.UUID]*db.Site),
		attempts:  make(map[uuid.UUID]*db.DeliveryAttempt),
	}
}

func copyAttempt(attempt *db.DeliveryAttempt) *db.DeliveryAttempt {
	clone := *attempt
	clone.Steps = append([]db.StepResult(nil), attempt.Steps...)
	return &clone
}

func (s *memStore) GetCustomer(ctx context.Context, id uuid.UUID) (*db.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	customer, ok := s.customers[id]
	if !ok {
		return nil, errs.Permanent("no customer %v", id)
	}
	return customer, nil
}

func (s *memStore) GetSite(ctx context.Context, id uuid.UUID) (*db.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[id]
	if !ok {
		return nil, errs.Permanent("no site %v", id)
	}
	return site, nil
}

func (s *memStore) UpdateSiteStatus(ctx context.Context, id uuid.UUID, status consts.SiteStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[id]
	if !ok {
		return errs.Permanent("no site %v", id)
	}
	site.Status = status
	return nil
}

func (s *memStore) GetAttempt(ctx context.Context, id uuid.UUID) (*db.DeliveryAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[id]
	if !ok {
		return nil, errs.Permanent("no attempt %v", id)
	}
	return copyAttempt(attempt), nil
}

func (s *memStore) FindActiveAttempt(ctx context.Context, customerID, siteID uuid.UUID) (*db.DeliveryAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		attempt := s.attempts[id]
		if attempt.CustomerID == customerID && attempt.SiteID == siteID && !attempt.Status.IsTerminal() {
			return copyAttempt(attempt), nil
		}
	}
	return nil, nil
}

func (s *memStore) FindLatestAttempt(ctx context.Context, customerID, siteID uuid.UUID) (*db.DeliveryAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		attempt := s.attempts[s.order[i]]
		if attempt.CustomerID == customerID && attempt.SiteID == siteID {
			return copyAttempt(attempt), nil
		}
	}
	return nil, nil
}

func (s *memStore) ListAttempts(ctx context.Context, filter interfaces.AttemptFilter) ([]db.DeliveryAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []db.DeliveryAttempt
	for _, id := range s.order {
		out = append(out, *copyAttempt(s.attempts[id]))
	}
	return out, nil
}

func (s *memStore) InsertAttempt(ctx context.Context, attempt *db.DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.ID] = copyAttempt(attempt)
	s.order = append(s.order, attempt.ID)
	return nil
}

func (s *memStore) UpdateAttempt(ctx context.Context, attempt *db.DeliveryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	incoming := copyAttempt(attempt)
	if current, ok := s.attempts[attempt.ID]; ok && current.Status == consts.DeliveryStatusCanceled {
		incoming.Status = consts.DeliveryStatusCanceled
	}
	s.attempts[attempt.ID] = incoming
	return nil
}

func (s *memStore) InsertEvent(ctx context.Context, event shared.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// markCanceled flips the stored attempt, the way the cancel command does.
func (s *memStore) markCanceled(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[id].Status = consts.DeliveryStatusCanceled
}

func testConfig() *config.Config {
	return &config.Config{
		Providers: config.ProvidersMock,
		Delivery: config.DeliveryConfig{
			TLDPriority:            []string{".com.au", ".com"},
			RegistrationYears:      1,
			MailboxPrefix:          "admin",
			RetryMaxAttempts:       3,
			RetryInitialInterval:   time.Millisecond,
			PropagationMaxAttempts: 3,
			PropagationDelay:       time.Millisecond,
			StepTimeout:            time.Second,
		},
		Hosting: config.HostingConfig{Target: "d111abc.cloudfront.net"},
	}
}

type fixture struct {
	store      *memStore
	registrar  *registrar.MockRegistrar
	dns        *dnsprovider.MockDNSProvider
	hosting    *hosting.MockPublisher
	accounts   *accounts.MockProvisioner
	customerID uuid.UUID
	siteID     uuid.UUID
}

func newFixture(cfg *config.Config) *fixture {
	f := &fixture{
		store:      newMemStore(),
		registrar:  registrar.NewMockRegistrar(cfg.Delivery),
		dns:        dnsprovider.NewMockDNSProvider(),
		hosting:    hosting.NewMockPublisher(),
		accounts:   accounts.NewMockProvisioner(),
		customerID: uuid.New(),
		siteID:     uuid.New(),
	}
	f.store.customers[f.customerID] = &db.Customer{
		ID:           f.customerID,
		BusinessName: "Mario's Woodfired Pizza!!",
		FirstName:    "Mario",
		Email:        "mario@example.com",
	}
	f.store.sites[f.siteID] = &db.Site{
		ID:           f.siteID,
		CustomerID:   f.customerID,
		Status:       consts.SiteStatusPaid,
		ArtifactPath: "sites/" + f.siteID.String(),
	}
	return f
}

func (f *fixture) coordinator(cfg *config.Config, reg interfaces.Registrar, pub interfaces.HostingPublisher) *delivery.Coordinator {
	if reg == nil {
		reg = f.registrar
	}
	if pub == nil {
		pub = f.hosting
	}
	return delivery.NewCoordinator(cfg, f.store, reg, f.dns, pub, f.accounts)
}

func stepStatus(t *testing.T, attempt *db.DeliveryAttempt, stage consts.Stage) consts.StepStatus {
	t.Helper()
	step := attempt.Step(stage)
	require.NotNil(t, step)
	return step.Status
}

func TestDeliverCompletesEveryStage(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	coordinator := f.coordinator(cfg, nil, nil)

	attempt, err := coordinator.Deliver(context.Background(), f.customerID, f.siteID)
	require.NoError(t, err)
	require.Equal(t, consts.DeliveryStatusCompleted, attempt.Status)
	require.NotNil(t, attempt.Domain)
	require.Equal(t, "marioswoodfiredpizza.com.au", *attempt.Domain)
	require.NotNil(t, attempt.DeploymentURL)
	require.Equal(t, "https://marioswoodfiredpizza.com.au", *attempt.DeploymentURL)

	for _, stage := range consts.StageOrder {
		require.Equal(t, consts.StepStatusSucceeded, stepStatus(t, attempt, stage), "stage %v", stage)
	}

	// every stage started only after its predecessor completed. email_dns
	// runs alongside website_dns, so it is checked against the stage before
	// the pair instead of its list neighbor.
	for i := 1; i < len(consts.StageOrder); i++ {
		cur := attempt.Step(consts.StageOrder[i])
		prev := attempt.Step(consts.StageOrder[i-1])
		if cur.Name == consts.StageEmailDNS {
			prev = attempt.Step(consts.StageDNSPropagated)
		}
		require.NotNil(t, prev.CompletedAt, "stage %v", prev.Name)
		require.NotNil(t, cur.StartedAt, "stage %v", cur.Name)
		require.False(t, cur.StartedAt.Before(*prev.CompletedAt),
			"stage %v started before %v completed", cur.Name, prev.Name)
	}

	require.Equal(t, consts.SiteStatusDelivered, f.store.sites[f.siteID].Status)

	require.NotNil(t, attempt.Credentials.EmailAddress)
	require.Equal(t, "admin@marioswoodfiredpizza.com.au", *attempt.Credentials.EmailAddress)
	require.NotNil(t, attempt.Credentials.EmailPassword)
	require.NotNil(t, attempt.Credentials.CpanelUsername)
	require.NotNil(t, attempt.Credentials.CpanelURL)

	// registrar nameservers were synced to the zone's set
	require.Equal(t, 1, f.registrar.UpdateNSCalls)
	require.ElementsMatch(t,
		[]string{"ns1.zone-0001.mockdns.net", "ns2.zone-0001.mockdns.net"},
		f.registrar.NameserversOnFile("marioswoodfiredpizza.com.au"))

	require.Len(t, f.store.events, 1)
	require.Equal(t, "DeliveryFinished", f.store.events[0].GetType())
}

func TestDeliverPicksNextTLDWhenFirstTaken(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	f.registrar.MarkTaken("marioswoodfiredpizza.com.au")
	coordinator := f.coordinator(cfg, nil, nil)

	attempt, err := coordinator.Deliver(context.Background(), f.customerID, f.siteID)
	require.NoError(t, err)
	require.Equal(t, "marioswoodfiredpizza.com", *attempt.Domain)
}

func TestDeliverReturnsRunningAttemptUntouched(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	running := db.NewDeliveryAttempt(f.customerID, f.siteID)
	running.Status = consts.DeliveryStatusInProgress
	require.NoError(t, f.store.InsertAttempt(context.Background(), running))
	coordinator := f.coordinator(cfg, nil, nil)

	attempt, err := coordinator.Deliver(context.Background(), f.customerID, f.siteID)
	require.NoError(t, err)
	require.Equal(t, running.ID, attempt.ID)
	require.Equal(t, consts.DeliveryStatusInProgress, attempt.Status)
	require.Zero(t, f.registrar.SearchCalls)
}

func TestDeliverRejectsCompletedSite(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	done := db.NewDeliveryAttempt(f.customerID, f.siteID)
	done.Status = consts.DeliveryStatusCompleted
	require.NoError(t, f.store.InsertAttempt(context.Background(), done))
	coordinator := f.coordinator(cfg, nil, nil)

	_, err := coordinator.Deliver(context.Background(), f.customerID, f.siteID)
	require.Error(t, err)
	require.True(t, errs.IsPermanent(err))
}

func TestDeliverRejectsDraftSite(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	f.store.sites[f.siteID].Status = consts.SiteStatusDraft
	coordinator := f.coordinator(cfg, nil, nil)

	_, err := coordinator.Deliver(context.Background(), f.customerID, f.siteID)
	require.Error(t, err)
	require.True(t, errs.IsPermanent(err))
	require.Zero(t, f.registrar.SearchCalls)
}

func TestDeliverRejectsForeignSite(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	otherCustomer := uuid.New()
	f.store.customers[otherCustomer] = &db.Customer{ID: otherCustomer, BusinessName: "Other", Email: "other@example.com"}
	coordinator := f.coordinator(cfg, nil, nil)

	_, err := coordinator.Deliver(context.Background(), otherCustomer, f.siteID)
	require.Error(t, err)
	require.True(t, errs.IsPermanent(err))
}

// rejectingRegistrar fails every registration, the way a race on a just-taken
// domain surfaces.
type rejectingRegistrar struct {
	*registrar.MockRegistrar
	registerCalls int
}

func (r *rejectingRegistrar) Register(ctx context.Context, domain string, customerID uuid.UUID) (*interfaces.Registration, error) {
	r.registerCalls++
	return nil, errs.Permanent("domain %v is already taken", domain)
}

func TestRegisterFailureIsNotRetried(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	reg := &rejectingRegistrar{MockRegistrar: f.registrar}
	coordinator := f.coordinator(cfg, reg, nil)

	attempt, err := coordinator.Deliver(context.Background(), f.customerID, f.siteID)
	require.NoError(t, err)
	require.Equal(t, consts.DeliveryStatusFailed, attempt.Status)
	require.Equal(t, 1, reg.registerCalls)

	step := attempt.Step(consts.StageDomainRegister)
	require.Equal(t, consts.StepStatusFailed, step.Status)
	require.Equal(t, 1, step.AttemptCount)
	require.NotNil(t, step.Error)
	require.Equal(t, "permanent", step.Error.Kind)

	// nothing past the failed stage ran, and the site stays paid
	require.Zero(t, f.dns.FindOrCreateCalls)
	require.Equal(t, consts.StepStatusPending, stepStatus(t, attempt, consts.StageZoneReady))
	require.Equal(t, consts.SiteStatusPaid, f.store.sites[f.siteID].Status)

	require.Len(t, f.store.events, 1)
	require.Equal(t, "DeliveryFinished", f.store.events[0].GetType())
}

// flakyPublisher fails Publish until told otherwise.
type flakyPublisher struct {
	*hosting.MockPublisher
	mu          sync.Mutex
	failing     bool
	failedCalls int
}

func (p *flakyPublisher) Publish(ctx context.Context, domain string, siteID uuid.UUID, artifactPath string) (*interfaces.Deployment, error) {
	p.mu.Lock()
	failing := p.failing
	if failing {
		p.failedCalls++
	}
	p.mu.Unlock()
	if failing {
		return nil, errs.Transient("hosting api unavailable")
	}
	return p.MockPublisher.Publish(ctx, domain, siteID, artifactPath)
}

func (p *flakyPublisher) recover() {
	p.mu.Lock()
	p.failing = false
	p.mu.Unlock()
}

func TestResumeReExecutesOnlyUnfinishedStages(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	pub := &flakyPublisher{MockPublisher: f.hosting, failing: true}
	coordinator := f.coordinator(cfg, nil, pub)

	failed, err := coordinator.Deliver(context.Background(), f.customerID, f.siteID)
	require.NoError(t, err)
	require.Equal(t, consts.DeliveryStatusFailed, failed.Status)
	require.Equal(t, cfg.Delivery.RetryMaxAttempts, pub.failedCalls)
	require.Equal(t, consts.StepStatusFailed, stepStatus(t, failed, consts.StagePublish))
	require.Equal(t, consts.StepStatusSucceeded, stepStatus(t, failed, consts.StageWebsiteDNS))
	require.Equal(t, consts.StepStatusSucceeded, stepStatus(t, failed, consts.StageEmailDNS))

	pub.recover()
	resumed, err := coordinator.Resume(context.Background(), failed.ID)
	require.NoError(t, err)
	require.NotEqual(t, failed.ID, resumed.ID)
	require.Equal(t, consts.DeliveryStatusCompleted, resumed.Status)
	require.Equal(t, *failed.Domain, *resumed.Domain)

	// earlier stages were not re-executed
	require.Equal(t, 1, f.registrar.SearchCalls)
	require.Equal(t, 1, f.registrar.RegisterCalls)
	require.Equal(t, 1, f.dns.WebsiteCalls)
	require.Equal(t, 1, f.dns.EmailCalls)

	// the failed attempt's record stays failed
	prior, err := f.store.GetAttempt(context.Background(), failed.ID)
	require.NoError(t, err)
	require.Equal(t, consts.DeliveryStatusFailed, prior.Status)
}

func TestDeliverAutoResumesLatestFailedAttempt(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	pub := &flakyPublisher{MockPublisher: f.hosting, failing: true}
	coordinator := f.coordinator(cfg, nil, pub)

	failed, err := coordinator.Deliver(context.Background(), f.customerID, f.siteID)
	require.NoError(t, err)
	require.Equal(t, consts.DeliveryStatusFailed, failed.Status)

	pub.recover()
	attempt, err := coordinator.Deliver(context.Background(), f.customerID, f.siteID)
	require.NoError(t, err)
	require.NotEqual(t, failed.ID, attempt.ID)
	require.Equal(t, consts.DeliveryStatusCompleted, attempt.Status)
	require.Equal(t, 1, f.registrar.RegisterCalls)
}

func TestCorruptStepOutputFailsResumedAttempt(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	prior := db.NewDeliveryAttempt(f.customerID, f.siteID)
	prior.Status = consts.DeliveryStatusFailed
	step := prior.Step(consts.StageDomainSearch)
	step.Status = consts.StepStatusSucceeded
	step.Output = json.RawMessage("{")
	require.NoError(t, f.store.InsertAttempt(context.Background(), prior))
	coordinator := f.coordinator(cfg, nil, nil)

	_, err := coordinator.Resume(context.Background(), prior.ID)
	require.Error(t, err)

	// the new attempt must not stay in_progress, or the pair is blocked
	latest, err := f.store.FindLatestAttempt(context.Background(), f.customerID, f.siteID)
	require.NoError(t, err)
	require.NotEqual(t, prior.ID, latest.ID)
	require.Equal(t, consts.DeliveryStatusFailed, latest.Status)

	active, err := f.store.FindActiveAttempt(context.Background(), f.customerID, f.siteID)
	require.NoError(t, err)
	require.Nil(t, active)
}

func TestResumeRequiresFailedAttempt(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	coordinator := f.coordinator(cfg, nil, nil)

	attempt, err := coordinator.Deliver(context.Background(), f.customerID, f.siteID)
	require.NoError(t, err)
	require.Equal(t, consts.DeliveryStatusCompleted, attempt.Status)

	_, err = coordinator.Resume(context.Background(), attempt.ID)
	require.Error(t, err)
	require.True(t, errs.IsPermanent(err))
}

func TestPendingSSLCompletesWithWarnings(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	f.hosting.SSLStatusValue = "pending"
	coordinator := f.coordinator(cfg, nil, nil)

	attempt, err := coordinator.Deliver(context.Background(), f.customerID, f.siteID)
	require.NoError(t, err)
	require.Equal(t, consts.DeliveryStatusCompletedWithWarnings, attempt.Status)

	step := attempt.Step(consts.StageSSLVerify)
	require.Equal(t, consts.StepStatusSucceeded, step.Status)
	require.NotEmpty(t, step.Warning)
}

func TestSlowPropagationCompletesWithWarnings(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	f.dns.PropagateAfter = 100
	coordinator := f.coordinator(cfg, nil, nil)

	attempt, err := coordinator.Deliver(context.Background(), f.customerID, f.siteID)
	require.NoError(t, err)
	require.Equal(t, consts.DeliveryStatusCompletedWithWarnings, attempt.Status)
	require.Equal(t, cfg.Delivery.PropagationMaxAttempts, f.dns.PropagationPolls)

	step := attempt.Step(consts.StageDNSPropagated)
	require.Equal(t, consts.StepStatusSucceeded, step.Status)
	require.NotEmpty(t, step.Warning)
}

// presetRegistrar reports the zone's nameservers as already on file, so the
// sync stage has nothing to do.
type presetRegistrar struct {
	*registrar.MockRegistrar
}

func (r *presetRegistrar) Register(ctx context.Context, domain string, customerID uuid.UUID) (*interfaces.Registration, error) {
	reg, err := r.MockRegistrar.Register(ctx, domain, customerID)
	if err != nil {
		return nil, err
	}
	// trailing dots exercise normalization in the comparison
	reg.Nameservers = []string{"ns2.zone-0001.mockdns.net.", "ns1.zone-0001.mockdns.net."}
	return reg, nil
}

func TestNameserverSyncSkippedWhenAlreadyMatching(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	coordinator := f.coordinator(cfg, &presetRegistrar{MockRegistrar: f.registrar}, nil)

	attempt, err := coordinator.Deliver(context.Background(), f.customerID, f.siteID)
	require.NoError(t, err)
	require.Equal(t, consts.DeliveryStatusCompleted, attempt.Status)
	require.Equal(t, consts.StepStatusSkipped, stepStatus(t, attempt, consts.StageNameserversSynced))
	require.Zero(t, f.registrar.UpdateNSCalls)
}

// cancelingRegistrar flips the attempt to canceled while its own stage is
// still running, so the next stage boundary sees it.
type cancelingRegistrar struct {
	*registrar.MockRegistrar
	store     *memStore
	attemptID func() uuid.UUID
}

func (r *cancelingRegistrar) Register(ctx context.Context, domain string, customerID uuid.UUID) (*interfaces.Registration, error) {
	reg, err := r.MockRegistrar.Register(ctx, domain, customerID)
	if err != nil {
		return nil, err
	}
	r.store.markCanceled(r.attemptID())
	return reg, nil
}

func TestCancelTakesEffectAtNextStageBoundary(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	reg := &cancelingRegistrar{
		MockRegistrar: f.registrar,
		store:         f.store,
		attemptID: func() uuid.UUID {
			return f.store.order[len(f.store.order)-1]
		},
	}
	coordinator := f.coordinator(cfg, reg, nil)

	attempt, err := coordinator.Deliver(context.Background(), f.customerID, f.siteID)
	require.NoError(t, err)
	require.Equal(t, consts.DeliveryStatusCanceled, attempt.Status)

	// the in-flight stage finished, everything after was skipped
	require.Equal(t, consts.StepStatusSucceeded, stepStatus(t, attempt, consts.StageDomainRegister))
	require.Equal(t, consts.StepStatusSkipped, stepStatus(t, attempt, consts.StageZoneReady))
	require.Equal(t, consts.StepStatusSkipped, stepStatus(t, attempt, consts.StageCpanelCreate))
	require.Zero(t, f.dns.FindOrCreateCalls)
	require.NotNil(t, attempt.CompletedAt)
}

func TestCanceledPairStartsFreshAttempt(t *testing.T) {
	cfg := testConfig()
	f := newFixture(cfg)
	canceled := db.NewDeliveryAttempt(f.customerID, f.siteID)
	canceled.Status = consts.DeliveryStatusCanceled
	require.NoError(t, f.store.InsertAttempt(context.Background(), canceled))
	coordinator := f.coordinator(cfg, nil, nil)

	attempt, err := coordinator.Deliver(context.Background(), f.customerID, f.siteID)
	require.NoError(t, err)
	require.NotEqual(t, canceled.ID, attempt.ID)
	require.Equal(t, consts.DeliveryStatusCompleted, attempt.Status)
}
