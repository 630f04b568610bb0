package rest

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kuziva-m/mvp-sub001/internal/application"
	"github.com/kuziva-m/mvp-sub001/internal/application/consts"
	"github.com/kuziva-m/mvp-sub001/internal/application/dto"
	"github.com/kuziva-m/mvp-sub001/internal/application/errs"
	"github.com/kuziva-m/mvp-sub001/internal/application/interfaces"
)

type Server struct {
	commands *application.Collection
}

func NewServer(commands *application.Collection) *Server {
	return &Server{commands: commands}
}

func (s *Server) RegisterRoutes(app *fiber.App) {
	app.Get("/health", s.Health)
	app.Post("/deliveries", s.CreateDelivery)
	app.Get("/deliveries", s.ListDeliveries)
	app.Get("/deliveries/:id", s.GetDelivery)
	app.Post("/deliveries/:id/resume", s.ResumeDelivery)
	app.Post("/deliveries/:id/cancel", s.CancelDelivery)
	app.Post("/webhooks/stripe", s.StripeWebhook)
}

func (s *Server) Health(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

func (s *Server) CreateDelivery(c *fiber.Ctx) error {
	var req dto.CreateDeliveryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	if req.CustomerID == uuid.Nil || req.SiteID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "customerId and siteId are required"})
	}

	if c.QueryBool("async") {
		if err := s.commands.StartDelivery.ExecuteAsync(c.Context(), req.CustomerID, req.SiteID); err != nil {
			return c.Status(statusFor(err)).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		return c.SendStatus(fiber.StatusAccepted)
	}

	attempt, err := s.commands.StartDelivery.Execute(c.Context(), req.CustomerID, req.SiteID)
	if err != nil {
		return c.Status(statusFor(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	resp := dto.CreateDeliveryResponse{
		AttemptID: attempt.ID,
		Status:    string(attempt.Status),
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (s *Server) GetDelivery(c *fiber.Ctx) error {
	attemptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid attempt id"})
	}

	resp, err := s.commands.GetDelivery.Query(c.Context(), attemptID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (s *Server) ListDeliveries(c *fiber.Ctx) error {
	var filter interfaces.AttemptFilter
	if raw := c.Query("customerId"); raw != "" {
		customerID, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid customer id"})
		}
		filter.CustomerID = &customerID
	}
	if raw := c.Query("status"); raw != "" {
		status := consts.DeliveryStatus(raw)
		filter.Status = &status
	}

	resp, err := s.commands.ListDeliveries.Query(c.Context(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (s *Server) ResumeDelivery(c *fiber.Ctx) error {
	attemptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid attempt id"})
	}

	attempt, err := s.commands.ResumeDelivery.Execute(c.Context(), attemptID)
	if err != nil {
		return c.Status(statusFor(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	resp := dto.CreateDeliveryResponse{
		AttemptID: attempt.ID,
		Status:    string(attempt.Status),
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (s *Server) CancelDelivery(c *fiber.Ctx) error {
	attemptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid attempt id"})
	}

	attempt, err := s.commands.CancelDelivery.Execute(c.Context(), attemptID)
	if err != nil {
		return c.Status(statusFor(err)).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	resp := dto.CreateDeliveryResponse{
		AttemptID: attempt.ID,
		Status:    string(attempt.Status),
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (s *Server) StripeWebhook(c *fiber.Ctx) error {
	err := s.commands.Payment.Webhook(c.Context(), c.Body(), c.Get("Stripe-Signature"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	return c.SendStatus(fiber.StatusOK)
}

func statusFor(err error) int {
	if errs.IsPermanent(err) {
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}
