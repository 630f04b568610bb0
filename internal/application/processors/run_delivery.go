package processors

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kuziva-m/mvp-sub001/internal/application/delivery"
	"github.com/kuziva-m/mvp-sub001/internal/application/events"
	shared "github.com/kuziva-m/mvp-sub001/pkg/interfaces"
)

// RunDelivery picks up DeliveryRequested events from the outbox and drives a
// full delivery run. The coordinator persists through its own store, so no
// transaction is carried back to the poller.
type RunDelivery struct {
	coordinator *delivery.Coordinator
}

func NewRunDelivery(coordinator *delivery.Coordinator) *RunDelivery {
	return &RunDelivery{coordinator: coordinator}
}

func (c *RunDelivery) Handle(ctx context.Context, event events.DeliveryRequested) (shared.UoW, error) {
	attempt, err := c.coordinator.Deliver(ctx, event.CustomerID, event.SiteID)
	if err != nil {
		return nil, fmt.Errorf("err delivering site %v, %v", event.SiteID, err)
	}

	slog.Info("Delivery run finished", "attempt", attempt.ID, "status", attempt.Status)
	return nil, nil
}
