package application

import (
	"github.com/kuziva-m/mvp-sub001/internal/application/commands"
	"github.com/kuziva-m/mvp-sub001/internal/application/commands/payment"
	"github.com/kuziva-m/mvp-sub001/internal/application/processors"
	"github.com/kuziva-m/mvp-sub001/internal/application/query"
)

type Collection struct {
	*commands.StartDelivery
	*commands.ResumeDelivery
	*commands.CancelDelivery
	*payment.Payment
	*query.GetDelivery
	*query.ListDeliveries
}

type Processors struct {
	RunDelivery    *processors.RunDelivery
	NotifyDelivery *processors.NotifyDelivery
	SendMail       *commands.SendMail
}
