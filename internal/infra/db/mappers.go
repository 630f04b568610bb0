package db

import (
	"encoding/json"
	"log/slog"

	"github.com/kuziva-m/mvp-sub001/internal/application/events"
)

func MapOutboxModelToDeliveryRequested(outbox Outbox) events.DeliveryRequested {
	var deliveryRequested events.DeliveryRequested
	if err := json.Unmarshal(outbox.Payload, &deliveryRequested); err != nil {
		slog.Error("error unmarshaling event", "err", err)
		return events.DeliveryRequested{}
	}
	deliveryRequested.CreatedAt = outbox.CreatedAt

	return deliveryRequested
}

func MapOutboxModelToDeliveryFinished(outbox Outbox) events.DeliveryFinished {
	var deliveryFinished events.DeliveryFinished
	if err := json.Unmarshal(outbox.Payload, &deliveryFinished); err != nil {
		slog.Error("error unmarshaling event", "err", err)
		return events.DeliveryFinished{}
	}
	deliveryFinished.CreatedAt = outbox.CreatedAt

	return deliveryFinished
}

func MapOutboxModelToSendMail(outbox Outbox) events.SendMail {
	var sendMail events.SendMail
	if err := json.Unmarshal(outbox.Payload, &sendMail); err != nil {
		slog.Error("error unmarshaling event", "err", err)
		return events.SendMail{}
	}

	return sendMail
}
