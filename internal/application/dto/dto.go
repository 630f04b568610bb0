package dto

import (
	"github.com/google/uuid"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type CreateDeliveryRequest struct {
	CustomerID uuid.UUID `json:"customerId"`
	SiteID     uuid.UUID `json:"siteId"`
}

type CreateDeliveryResponse struct {
	AttemptID uuid.UUID `json:"attemptId"`
	Status    string    `json:"status"`
}

type StepResponse struct {
	Name         string        `json:"name"`
	Status       string        `json:"status"`
	StartedAt    string        `json:"startedAt,omitempty"`
	CompletedAt  string        `json:"completedAt,omitempty"`
	AttemptCount int           `json:"attemptCount"`
	Warning      string        `json:"warning,omitempty"`
	Error        *ErrorDetails `json:"error,omitempty"`
}

type ErrorDetails struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type CredentialsResponse struct {
	EmailAddress   string `json:"emailAddress,omitempty"`
	EmailPassword  string `json:"emailPassword,omitempty"`
	CpanelUsername string `json:"cpanelUsername,omitempty"`
	CpanelPassword string `json:"cpanelPassword,omitempty"`
	CpanelURL      string `json:"cpanelUrl,omitempty"`
}

type GetDeliveryResponse struct {
	ID            uuid.UUID            `json:"id"`
	CustomerID    uuid.UUID            `json:"customerId"`
	SiteID        uuid.UUID            `json:"siteId"`
	Status        string               `json:"status"`
	Domain        string               `json:"domain,omitempty"`
	DeploymentURL string               `json:"deploymentUrl,omitempty"`
	Credentials   *CredentialsResponse `json:"credentials,omitempty"`
	Steps         []StepResponse       `json:"steps"`
	CreatedAt     string               `json:"createdAt"`
	CompletedAt   string               `json:"completedAt,omitempty"`
}

type ListDeliveriesResponse struct {
	Deliveries []GetDeliveryResponse `json:"deliveries"`
}
