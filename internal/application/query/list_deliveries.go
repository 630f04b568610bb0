package query

import (
	"context"

	"github.com/kuziva-m/mvp-sub001/internal/application/dto"
	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
)

type ListDeliveries struct {
	store interfaces.DeliveryStore
}

func NewListDeliveries(store interfaces.DeliveryStore) *ListDeliveries {
	return &ListDeliveries{store: store}
}

func (c *ListDeliveries) Query(ctx context.Context, filter interfaces.AttemptFilter) (dto.ListDeliveriesResponse, error) {
	attempts, err := c.store.ListAttempts(ctx, filter)
	if err != nil {
		return dto.ListDeliveriesResponse{}, err
	}

	resp := dto.ListDeliveriesResponse{Deliveries: make([]dto.GetDeliveryResponse, 0, len(attempts))}
	for i := range attempts {
		resp.Deliveries = append(resp.Deliveries, mapAttempt(&attempts[i]))
	}
	return resp, nil
}
