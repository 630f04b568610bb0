package processors

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kuziva-m/mvp-sub001/internal/application/consts"
	"github.com/kuziva-m/mvp-sub001/internal/application/events"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db/repo"
	"github.com/kuziva-m/mvp-sub001/internal/infra/mail"
	dbs "github.com/kuziva-m/mvp-sub001/pkg/db"
	shared "github.com/kuziva-m/mvp-sub001/pkg/interfaces"
)

// NotifyDelivery turns a finished delivery into an email on the outbox:
// completions go to the customer, failures to the operator.
type NotifyDelivery struct {
	uowFactory    *dbs.UOWFactory
	operatorEmail string
}

func NewNotifyDelivery(uowFactory *dbs.UOWFactory, operatorEmail string) *NotifyDelivery {
	return &NotifyDelivery{uowFactory: uowFactory, operatorEmail: operatorEmail}
}

func (c *NotifyDelivery) Handle(ctx context.Context, event events.DeliveryFinished) (shared.UoW, error) {
	uow := c.uowFactory.GetUoW()
	if _, err := uow.Begin(); err != nil {
		return nil, err
	}

	deliveryRepo := repo.NewDeliveryRepo(uow.GetTx())
	attempt, err := deliveryRepo.GetAttemptByID(ctx, event.AttemptID)
	if err != nil {
		return uow, fmt.Errorf("err getting attempt %v, %v", event.AttemptID, err)
	}

	customerRepo := repo.NewCustomerRepo(uow.GetTx())
	customer, err := customerRepo.GetCustomerByID(ctx, attempt.CustomerID)
	if err != nil {
		return uow, fmt.Errorf("err getting customer, %v", err)
	}

	mailData := buildMailData(customer, attempt)
	sendMailEvent := events.SendMail{
		CustomerID: customer.ID,
		Recipient:  recipientFor(attempt, c.operatorEmail),
		Subject:    mailData.GetSubject(),
		Data:       mailData,
	}

	eventRepo := repo.NewEventRepo(uow.GetTx())
	if err = eventRepo.InsertEvent(ctx, sendMailEvent); err != nil {
		return uow, fmt.Errorf("error inserting mail event, %v", err)
	}

	return uow, nil
}

// recipientFor routes failure notices to the operator address. An empty
// return means the customer's own address, resolved at send time.
func recipientFor(attempt *db.DeliveryAttempt, operatorEmail string) string {
	if attempt.Status == consts.DeliveryStatusFailed {
		return operatorEmail
	}
	return ""
}

func buildMailData(customer *db.Customer, attempt *db.DeliveryAttempt) mail.MailData {
	year := strconv.Itoa(time.Now().Year())
	domain := ""
	if attempt.Domain != nil {
		domain = *attempt.Domain
	}

	if attempt.Status == consts.DeliveryStatusFailed {
		step, reason := firstFailure(attempt)
		return mail.DeliveryFailedData{
			CustomerFirstName:  customer.FirstName,
			CustomerSecondName: customer.SecondName,
			Domain:             domain,
			FailedStep:         step,
			Reason:             reason,
			Year:               year,
		}
	}

	data := mail.DeliveryCompletedData{
		CustomerFirstName:  customer.FirstName,
		CustomerSecondName: customer.SecondName,
		Domain:             domain,
		Warnings:           collectWarnings(attempt),
		Year:               year,
	}
	if attempt.DeploymentURL != nil {
		data.SiteURL = *attempt.DeploymentURL
	}
	if attempt.Credentials.EmailAddress != nil {
		data.MailboxEmail = *attempt.Credentials.EmailAddress
	}
	if attempt.Credentials.CpanelURL != nil {
		data.PanelURL = *attempt.Credentials.CpanelURL
	}
	return data
}

func firstFailure(attempt *db.DeliveryAttempt) (string, string) {
	for _, step := range attempt.Steps {
		if step.Status == consts.StepStatusFailed && step.Error != nil {
			return string(step.Name), step.Error.Message
		}
	}
	return "", ""
}

func collectWarnings(attempt *db.DeliveryAttempt) string {
	var warnings []string
	for _, step := range attempt.Steps {
		if step.Warning != "" {
			warnings = append(warnings, step.Warning)
		}
	}
	return strings.Join(warnings, "; ")
}
