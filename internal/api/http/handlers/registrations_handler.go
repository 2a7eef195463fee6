package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/sunenergyxt/service-portal/internal/api/dto"
	"github.com/sunenergyxt/service-portal/internal/domain"
	"github.com/sunenergyxt/service-portal/internal/service"
)

// RegistrationsHandler exposes partner applications.
type RegistrationsHandler struct {
	service *service.RegistrationService
}

// NewRegistrationsHandler constructs handler.
func NewRegistrationsHandler(registrationService *service.RegistrationService) *RegistrationsHandler {
	return &RegistrationsHandler{service: registrationService}
}

// Submit POST /registrations. Public.
func (h *RegistrationsHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitRegistrationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	created, err := h.service.Submit(c.UserContext(), service.RegistrationInput{
		CompanyName:   req.CompanyName,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Type:          req.Type,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewRegistrationResponse(created)})
}

// List GET /registrations?status=.
func (h *RegistrationsHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	reqs, err := h.service.List(c.UserContext(), actor, domain.RegistrationStatus(c.Query("status")))
	if err != nil {
		return err
	}
	items := make([]dto.RegistrationResponse, 0, len(reqs))
	for i := range reqs {
		items = append(items, dto.NewRegistrationResponse(&reqs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Decide POST /registrations/:id/decision.
func (h *RegistrationsHandler) Decide(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.DecideRegistrationRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	decided, err := h.service.Decide(c.UserContext(), actor, c.Params("id"), *req.Approve)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRegistrationResponse(decided)})
}
