package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/consts"
)

type Customer struct {
	ID           uuid.UUID `db:"id"`
	BusinessName string    `db:"business_name"`
	FirstName    string    `db:"first_name"`
	SecondName   string    `db:"second_name"`
	Email        string    `db:"email"`
	StripeID     string    `db:"stripe_id"`
	CreatedAt    time.Time `db:"created_at"`
}

type Site struct {
	ID         uuid.UUID         `db:"id"`
	CustomerID uuid.UUID         `db:"customer_id"`
	Status     consts.SiteStatus `db:"status"`
	// ArtifactPath is the storage prefix of the built site, produced by the
	// content pipeline before delivery starts.
	ArtifactPath string    `db:"artifact_path"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

type Mail struct {
	ID         uint64    `db:"id"`
	MailType   string    `db:"type"`
	Recipients string    `db:"recipients"`
	Subject    string    `db:"subject"`
	Content    string    `db:"content"`
	SentAt     time.Time `db:"sent_at"`
}

type StepError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type StepResult struct {
	Name         consts.Stage      `json:"name"`
	Status       consts.StepStatus `json:"status"`
	StartedAt    *time.Time        `json:"startedAt,omitempty"`
	CompletedAt  *time.Time        `json:"completedAt,omitempty"`
	AttemptCount int               `json:"attemptCount"`
	Error        *StepError        `json:"error,omitempty"`
	Warning      string            `json:"warning,omitempty"`
	Output       json.RawMessage   `json:"output,omitempty"`
}

type Credentials struct {
	EmailAddress   *string `json:"emailAddress,omitempty"`
	EmailPassword  *string `json:"emailPassword,omitempty"`
	CpanelUsername *string `json:"cpanelUsername,omitempty"`
	CpanelPassword *string `json:"cpanelPassword,omitempty"`
	CpanelURL      *string `json:"cpanelUrl,omitempty"`
}

// DeliveryAttempt is one provisioning run for one (customer, site) pair.
// Steps are embedded as an ordered list and persisted as JSONB.
type DeliveryAttempt struct {
	ID            uuid.UUID             `db:"id"`
	CustomerID    uuid.UUID             `db:"customer_id"`
	SiteID        uuid.UUID             `db:"site_id"`
	Status        consts.DeliveryStatus `db:"status"`
	Domain        *string               `db:"domain"`
	DeploymentURL *string               `db:"deployment_url"`
	Credentials   Credentials           `db:"credentials"`
	Steps         []StepResult          `db:"steps"`
	CreatedAt     time.Time             `db:"created_at"`
	CompletedAt   *time.Time            `db:"completed_at"`
}

// NewDeliveryAttempt builds a pending attempt with every stage pending, in
// the fixed order.
func NewDeliveryAttempt(customerID, siteID uuid.UUID) *DeliveryAttempt {
	steps := make([]StepResult, 0, len(consts.StageOrder))
	for _, stage := range consts.StageOrder {
		steps = append(steps, StepResult{Name: stage, Status: consts.StepStatusPending})
	}
	return &DeliveryAttempt{
		ID:         uuid.New(),
		CustomerID: customerID,
		SiteID:     siteID,
		Status:     consts.DeliveryStatusPending,
		Steps:      steps,
		CreatedAt:  time.Now(),
	}
}

// Step returns the step record for a stage, nil if the attempt predates it.
func (a *DeliveryAttempt) Step(stage consts.Stage) *StepResult {
	for i := range a.Steps {
		if a.Steps[i].Name == stage {
			return &a.Steps[i]
		}
	}
	return nil
}

// HasWarnings reports whether any step carries a degraded-but-acceptable
// outcome.
func (a *DeliveryAttempt) HasWarnings() bool {
	for i := range a.Steps {
		if a.Steps[i].Warning != "" {
			return true
		}
	}
	return false
}

type Outbox struct {
	ID        uint64          `db:"id"`
	Event     string          `db:"event"`
	Status    int             `db:"status"`
	Payload   json.RawMessage `db:"payload"`
	CreatedAt time.Time       `db:"created_at"`
}
