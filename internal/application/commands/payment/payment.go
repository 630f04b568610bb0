package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/kuziva-m/mvp-sub001/internal/application/events"
	"github.com/kuziva-m/mvp-sub001/internal/infra/db/repo"
	dbs "github.com/kuziva-m/mvp-sub001/pkg/db"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

type Payment struct {
	uowFactory *dbs.UOWFactory
	cfg        PaymentConfig
}

type PaymentConfig struct {
	apiKey     string
	webhookKey string
}

func NewPaymentConfig() PaymentConfig {
	return PaymentConfig{
		apiKey:     os.Getenv("STRIPE_KEY"),
		webhookKey: os.Getenv("STRIPE_WEBHOOK"),
	}
}

func NewPayment(uowFactory *dbs.UOWFactory, cfg PaymentConfig) *Payment {
	stripe.Key = cfg.apiKey
	stripe.SetHTTPClient(&http.Client{Timeout: 10 * time.Second})
	return &Payment{
		uowFactory: uowFactory,
		cfg:        cfg,
	}
}

// Webhook verifies the Stripe signature and turns a completed checkout
// into a delivery request on the outbox.
func (c *Payment) Webhook(ctx context.Context, req []byte, stripeHeader string) error {
	event, err := webhook.ConstructEvent(req, stripeHeader, c.cfg.webhookKey)
	if err != nil {
		return fmt.Errorf("error creating event, %v", err)
	}

	slog.Info("Handling event", "type", event.Type)

	switch event.Type {

	case "checkout.session.completed":
		return c.handleCheckoutCompleted(ctx, event)

	default:
		return fmt.Errorf("Unhandled event type: %s\n", event.Type)
	}
}

func (c *Payment) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("error parsing checkout session, %v", err)
	}
	if session.Customer == nil {
		return fmt.Errorf("checkout session %v has no customer", session.ID)
	}

	slog.Info("Checkout completed", "session", session.ID, "customer", session.Customer.ID)

	uow := c.uowFactory.GetUoW()
	_, err := uow.Begin()
	if err != nil {
		return err
	}
	defer uow.Finalize(&err)

	customerRepo := repo.NewCustomerRepo(uow.GetTx())
	customer, err := customerRepo.GetCustomerByStripeID(ctx, session.Customer.ID)
	if err != nil {
		return fmt.Errorf("err finding customer, %v", err)
	}

	site, err := customerRepo.GetLatestPaidSite(ctx, customer.ID)
	if err != nil {
		return fmt.Errorf("err finding paid site for customer %v, %v", customer.ID, err)
	}

	eventRepo := repo.NewEventRepo(uow.GetTx())
	if err = eventRepo.InsertEvent(ctx, events.DeliveryRequested{
		CustomerID: customer.ID,
		SiteID:     site.ID,
		CreatedAt:  time.Now(),
	}); err != nil {
		return fmt.Errorf("err inserting delivery request, %v", err)
	}

	return nil
}
