package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/delivery"
	"github.com/kuziva-m/mvp-sub001/internal/application/events"
	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db"
)

// StartDelivery is the trigger interface consumed by the payment webhook
// handler and by operator actions.
type StartDelivery struct {
	store       interfaces.DeliveryStore
	coordinator *delivery.Coordinator
}

func NewStartDelivery(store interfaces.DeliveryStore, coordinator *delivery.Coordinator) *StartDelivery {
	return &StartDelivery{store: store, coordinator: coordinator}
}

// Execute runs delivery synchronously and returns once the run reaches a
// terminal or suspended state.
func (c *StartDelivery) Execute(ctx context.Context, customerID, siteID uuid.UUID) (*db.DeliveryAttempt, error) {
	return c.coordinator.Deliver(ctx, customerID, siteID)
}

// ExecuteAsync queues delivery through the outbox; callers poll the record
// store for progress.
func (c *StartDelivery) ExecuteAsync(ctx context.Context, customerID, siteID uuid.UUID) error {
	event := events.DeliveryRequested{
		CustomerID: customerID,
		SiteID:     siteID,
		CreatedAt:  time.Now(),
	}
	if err := c.store.InsertEvent(ctx, event); err != nil {
		return err
	}
	slog.Info("delivery queued", "customer", customerID, "site", siteID)
	return nil
}
