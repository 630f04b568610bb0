package commands

import (
	"context"

	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/delivery"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db"
)

// ResumeDelivery re-enters a failed attempt at its first non-succeeded
// stage.
type ResumeDelivery struct {
	coordinator *delivery.Coordinator
}

func NewResumeDelivery(coordinator *delivery.Coordinator) *ResumeDelivery {
	return &ResumeDelivery{coordinator: coordinator}
}

func (c *ResumeDelivery) Execute(ctx context.Context, attemptID uuid.UUID) (*db.DeliveryAttempt, error) {
	return c.coordinator.Resume(ctx, attemptID)
}
