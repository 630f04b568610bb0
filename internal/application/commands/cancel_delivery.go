package commands

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/consts"
	"github.com/kuziva-m/mvp-sub001/internal/application/errs"
	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db"
)

// CancelDelivery flags a non-terminal attempt as canceled. The running
// coordinator picks the flag up at the next stage boundary; an in-flight
// provider call is never interrupted.
type CancelDelivery struct {
	store interfaces.DeliveryStore
}

func NewCancelDelivery(store interfaces.DeliveryStore) *CancelDelivery {
	return &CancelDelivery{store: store}
}

func (c *CancelDelivery) Execute(ctx context.Context, attemptID uuid.UUID) (*db.DeliveryAttempt, error) {
	attempt, err := c.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status.IsTerminal() {
		return nil, errs.Permanent("attempt %v is already %v", attemptID, attempt.Status)
	}
	attempt.Status = consts.DeliveryStatusCanceled
	now := time.Now()
	attempt.CompletedAt = &now
	if err := c.store.UpdateAttempt(ctx, attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}
