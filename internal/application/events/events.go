package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/consts"
)

// DeliveryRequested is inserted by the payment webhook (or an operator
// action with async semantics) and picked up by the outbox poller.
type DeliveryRequested struct {
	CustomerID uuid.UUID
	SiteID     uuid.UUID
	CreatedAt  time.Time
}

func (e DeliveryRequested) GetType() string {
	return "DeliveryRequested"
}

// DeliveryFinished is the terminal-state notification signal. One event per
// attempt reaching completed, completed_with_warnings or failed.
type DeliveryFinished struct {
	AttemptID uuid.UUID
	Status    consts.DeliveryStatus
	CreatedAt time.Time
}

func (e DeliveryFinished) GetType() string {
	return "DeliveryFinished"
}

type SendMail struct {
	CustomerID uuid.UUID
	// Recipient overrides the customer's own address when set; failure
	// notices carry the operator address here.
	Recipient string
	Subject   string
	Data      interface{}
}

func (e SendMail) GetType() string {
	return "SendMail"
}
