package dnsprovider

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kuziva-m/mvp-sub001/internal/application/errs"
	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
)

type mockZone struct {
	domain  string
	records []interfaces.DNSRecord
}

// MockDNSProvider is the in-memory DNS provider for mock mode and tests.
// Propagation is simulated: records become visible after PropagateAfter
// polls (0 means immediately).
type MockDNSProvider struct {
	mu      sync.Mutex
	zones   map[string]*mockZone
	zoneSeq int

	// PropagateAfter is the number of polls before records turn visible.
	PropagateAfter int
	polls          map[string]int

	FindOrCreateCalls int
	WebsiteCalls      int
	EmailCalls        int
	PropagationPolls  int
}

var _ interfaces.DNSProvider = (*MockDNSProvider)(nil)

func NewMockDNSProvider() *MockDNSProvider {
	return &MockDNSProvider{
		zones: make(map[string]*mockZone),
		polls: make(map[string]int),
	}
}

func (m *MockDNSProvider) FindOrCreateZone(ctx context.Context, domain string) (*interfaces.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindOrCreateCalls++

	for id, zone := range m.zones {
		if zone.domain == domain {
			return &interfaces.Zone{ID: id, Nameservers: m.nameserversLocked(id)}, nil
		}
	}
	m.zoneSeq++
	id := fmt.Sprintf("zone-%04d", m.zoneSeq)
	m.zones[id] = &mockZone{domain: domain}
	return &interfaces.Zone{ID: id, Nameservers: m.nameserversLocked(id)}, nil
}

func (m *MockDNSProvider) ConfigureWebsiteRecords(ctx context.Context, zoneID, domain, target string) ([]interfaces.DNSRecord, error) {
	records := []interfaces.DNSRecord{
		{Type: "A", Name: domain, Value: target, TTL: 300},
		{Type: "CNAME", Name: "www." + domain, Value: domain, TTL: 300},
	}
	return m.upsert(zoneID, records, &m.WebsiteCalls)
}

func (m *MockDNSProvider) ConfigureEmailRecords(ctx context.Context, zoneID, domain, mailServer string) ([]interfaces.DNSRecord, error) {
	records := []interfaces.DNSRecord{
		{Type: "MX", Name: domain, Value: mailServer, TTL: 300, Priority: mxPriority},
		{Type: "TXT", Name: domain, Value: `"v=spf1 mx ~all"`, TTL: 300},
	}
	return m.upsert(zoneID, records, &m.EmailCalls)
}

func (m *MockDNSProvider) VerifyPropagation(ctx context.Context, zoneID, domain string, maxAttempts int, delay time.Duration) (bool, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		m.mu.Lock()
		m.PropagationPolls++
		m.polls[zoneID]++
		_, known := m.zones[zoneID]
		visible := known && m.polls[zoneID] > m.PropagateAfter
		m.mu.Unlock()

		if visible {
			return true, nil
		}
		if attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(delay):
		}
	}
	return false, nil
}

func (m *MockDNSProvider) GetNameservers(ctx context.Context, zoneID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.zones[zoneID]; !ok {
		return nil, errs.Permanent("zone %v does not exist", zoneID)
	}
	return m.nameserversLocked(zoneID), nil
}

// Records returns the zone's record set, for tests.
func (m *MockDNSProvider) Records(zoneID string) []interfaces.DNSRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if zone, ok := m.zones[zoneID]; ok {
		return append([]interfaces.DNSRecord(nil), zone.records...)
	}
	return nil
}

func (m *MockDNSProvider) upsert(zoneID string, records []interfaces.DNSRecord, counter *int) ([]interfaces.DNSRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter++

	zone, ok := m.zones[zoneID]
	if !ok {
		return nil, errs.Permanent("zone %v does not exist", zoneID)
	}
	for _, record := range records {
		replaced := false
		for i := range zone.records {
			if zone.records[i].Type == record.Type && zone.records[i].Name == record.Name {
				zone.records[i] = record
				replaced = true
				break
			}
		}
		if !replaced {
			zone.records = append(zone.records, record)
		}
	}
	return records, nil
}

func (m *MockDNSProvider) nameserversLocked(zoneID string) []string {
	return []string{
		fmt.Sprintf("ns1.%s.mockdns.net", zoneID),
		fmt.Sprintf("ns2.%s.mockdns.net", zoneID),
	}
}
