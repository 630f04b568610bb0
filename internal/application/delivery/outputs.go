package delivery

import (
	"time"

	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
)

// Step outputs are the only cross-step channel; later stages and resumed
// runs rehydrate from them instead of re-reading provider state.

type searchOutput struct {
	Domain string `json:"domain"`
}

type registerOutput struct {
	OrderID     string    `json:"orderId"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Nameservers []string  `json:"nameservers,omitempty"`
}

type zoneOutput struct {
	ZoneID      string   `json:"zoneId"`
	Nameservers []string `json:"nameservers"`
}

type nsSyncOutput struct {
	Updated     bool     `json:"updated"`
	Nameservers []string `json:"nameservers"`
}

type propagationOutput struct {
	Propagated bool `json:"propagated"`
	Attempts   int  `json:"attempts"`
}

type recordOutput struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	TTL      int    `json:"ttl,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

type recordsOutput struct {
	Records []recordOutput `json:"records"`
}

type publishOutput struct {
	DeploymentID  string `json:"deploymentId"`
	DeploymentURL string `json:"deploymentUrl"`
}

type sslOutput struct {
	Configured bool       `json:"configured"`
	Status     string     `json:"status"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
}

type mailboxOutput struct {
	Email string `json:"email"`
}

type cpanelOutput struct {
	Username string `json:"username"`
	PanelURL string `json:"panelUrl"`
}

func mapRecords(records []interfaces.DNSRecord) recordsOutput {
	out := recordsOutput{Records: make([]recordOutput, 0, len(records))}
	for _, r := range records {
		out.Records = append(out.Records, recordOutput{
			Type: r.Type, Name: r.Name, Value: r.Value, TTL: r.TTL, Priority: r.Priority,
		})
	}
	return out
}
