package query

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application/dto"
	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db"
)

type GetDelivery struct {
	store interfaces.DeliveryStore
}

func NewGetDelivery(store interfaces.DeliveryStore) *GetDelivery {
	return &GetDelivery{store: store}
}

func (c *GetDelivery) Query(ctx context.Context, attemptID uuid.UUID) (dto.GetDeliveryResponse, error) {
	attempt, err := c.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return dto.GetDeliveryResponse{}, err
	}
	return mapAttempt(attempt), nil
}

func mapAttempt(attempt *db.DeliveryAttempt) dto.GetDeliveryResponse {
	resp := dto.GetDeliveryResponse{
		ID:         attempt.ID,
		CustomerID: attempt.CustomerID,
		SiteID:     attempt.SiteID,
		Status:     string(attempt.Status),
		Steps:      make([]dto.StepResponse, 0, len(attempt.Steps)),
		CreatedAt:  attempt.CreatedAt.Format(time.RFC3339),
	}
	if attempt.Domain != nil {
		resp.Domain = *attempt.Domain
	}
	if attempt.DeploymentURL != nil {
		resp.DeploymentURL = *attempt.DeploymentURL
	}
	if attempt.CompletedAt != nil {
		resp.CompletedAt = attempt.CompletedAt.Format(time.RFC3339)
	}
	resp.Credentials = mapCredentials(attempt.Credentials)

	for _, step := range attempt.Steps {
		s := dto.StepResponse{
			Name:         string(step.Name),
			Status:       string(step.Status),
			AttemptCount: step.AttemptCount,
			Warning:      step.Warning,
		}
		if step.StartedAt != nil {
			s.StartedAt = step.StartedAt.Format(time.RFC3339)
		}
		if step.CompletedAt != nil {
			s.CompletedAt = step.CompletedAt.Format(time.RFC3339)
		}
		if step.Error != nil {
			s.Error = &dto.ErrorDetails{Kind: step.Error.Kind, Message: step.Error.Message}
		}
		resp.Steps = append(resp.Steps, s)
	}
	return resp
}

func mapCredentials(creds db.Credentials) *dto.CredentialsResponse {
	if creds.EmailAddress == nil && creds.CpanelUsername == nil {
		return nil
	}
	mapped := &dto.CredentialsResponse{}
	if creds.EmailAddress != nil {
		mapped.EmailAddress = *creds.EmailAddress
	}
	if creds.EmailPassword != nil {
		mapped.EmailPassword = *creds.EmailPassword
	}
	if creds.CpanelUsername != nil {
		mapped.CpanelUsername = *creds.CpanelUsername
	}
	if creds.CpanelPassword != nil {
		mapped.CpanelPassword = *creds.CpanelPassword
	}
	if creds.CpanelURL != nil {
		mapped.CpanelURL = *creds.CpanelURL
	}
	return mapped
}
