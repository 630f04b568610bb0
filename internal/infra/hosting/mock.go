package hosting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
)

type mockDeployment struct {
	id           string
	siteID       uuid.UUID
	artifactPath string
}

// MockPublisher is the in-memory hosting publisher for mock mode and tests.
type MockPublisher struct {
	mu          sync.Mutex
	deployments map[string]*mockDeployment
	deploySeq   int

	// SSLStatusValue is returned by CheckSSL for bound domains;
	// defaults to "active".
	SSLStatusValue string

	PublishCalls  int
	CheckSSLCalls int
}

var _ interfaces.HostingPublisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		deployments:    make(map[string]*mockDeployment),
		SSLStatusValue: "active",
	}
}

func (m *MockPublisher) Publish(ctx context.Context, domain string, siteID uuid.UUID, artifactPath string) (*interfaces.Deployment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PublishCalls++

	deployment, ok := m.deployments[domain]
	if ok {
		// same domain republished: binding updated, not duplicated
		deployment.siteID = siteID
		deployment.artifactPath = artifactPath
	} else {
		m.deploySeq++
		deployment = &mockDeployment{
			id:           fmt.Sprintf("deploy-%04d", m.deploySeq),
			siteID:       siteID,
			artifactPath: artifactPath,
		}
		m.deployments[domain] = deployment
	}
	return &interfaces.Deployment{ID: deployment.id, URL: "https://" + domain}, nil
}

func (m *MockPublisher) CheckSSL(ctx context.Context, domain string) (*interfaces.SSLStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CheckSSLCalls++

	if _, ok := m.deployments[domain]; !ok {
		return &interfaces.SSLStatus{Configured: false, Status: "missing"}, nil
	}
	expires := time.Now().AddDate(0, 3, 0)
	return &interfaces.SSLStatus{
		Configured: true,
		Status:     m.SSLStatusValue,
		ExpiresAt:  &expires,
	}, nil
}

// DeploymentCount reports how many distinct bindings exist, for tests.
func (m *MockPublisher) DeploymentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deployments)
}
