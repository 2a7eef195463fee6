package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/sunenergyxt/service-portal/internal/api/dto"
	"github.com/sunenergyxt/service-portal/internal/domain"
	"github.com/sunenergyxt/service-portal/internal/service"
	"github.com/sunenergyxt/service-portal/internal/workflow"
)

// TicketsHandler exposes the ticket lifecycle.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), actor, service.TicketCreateInput{
		SLN:          req.SLN,
		Title:        req.Title,
		CustomerName: req.CustomerName,
		ProductID:    req.ProductID,
		Description:  req.Description,
		Priority:     req.Priority,
		ServiceTypes: req.ServiceTypes,
		SalesOwnerID: req.SalesOwnerID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets?search=&status=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListVisibleTickets(c.UserContext(), actor, workflow.ListFilter{
		SearchTerm: c.Query("search"),
		Status:     domain.TicketStatus(c.Query("status")),
	})
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items, "total": len(items)})
}

// Summary GET /tickets/summary.
func (h *TicketsHandler) Summary(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	summary, err := h.service.Summarize(c.UserContext(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": summary})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderETag, strconv.FormatInt(ticket.Version, 10))
	return c.JSON(fiber.Map{
		"data":         dto.NewTicketResponse(ticket),
		"capabilities": h.service.Capabilities(actor, ticket),
	})
}

// Actions GET /tickets/:id/actions.
func (h *TicketsHandler) Actions(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.service.Capabilities(actor, ticket)})
}

// AssignableStaff GET /tickets/:id/assignable-staff.
func (h *TicketsHandler) AssignableStaff(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	users, err := h.service.AssignableStaff(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewUserList(users)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AssignCompany POST /tickets/:id/assign-company.
func (h *TicketsHandler) AssignCompany(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.AssignCompanyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	version, err := versionFrom(c, req.Version)
	if err != nil {
		return err
	}
	ticket, err := h.service.AssignToCompany(c.UserContext(), actor, c.Params("id"), req.CompanyID, version)
	return respondTicket(c, ticket, err)
}

// AssignStaff POST /tickets/:id/assign-staff.
func (h *TicketsHandler) AssignStaff(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.AssignStaffRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	version, err := versionFrom(c, req.Version)
	if err != nil {
		return err
	}
	ticket, err := h.service.AssignToStaff(c.UserContext(), actor, c.Params("id"), req.UserID, version)
	return respondTicket(c, ticket, err)
}

// StartWork POST /tickets/:id/start.
func (h *TicketsHandler) StartWork(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.VersionedRequest
	if err := bindOptional(c, &req); err != nil {
		return err
	}
	version, err := versionFrom(c, req.Version)
	if err != nil {
		return err
	}
	ticket, err := h.service.StartWork(c.UserContext(), actor, c.Params("id"), version)
	return respondTicket(c, ticket, err)
}

// SubmitForAudit POST /tickets/:id/submit-audit.
func (h *TicketsHandler) SubmitForAudit(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.VersionedRequest
	if err := bindOptional(c, &req); err != nil {
		return err
	}
	version, err := versionFrom(c, req.Version)
	if err != nil {
		return err
	}
	ticket, err := h.service.SubmitForAudit(c.UserContext(), actor, c.Params("id"), version)
	return respondTicket(c, ticket, err)
}

// AuditDecision POST /tickets/:id/audit.
func (h *TicketsHandler) AuditDecision(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.DecisionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	version, err := versionFrom(c, req.Version)
	if err != nil {
		return err
	}
	ticket, err := h.service.AuditDecision(c.UserContext(), actor, c.Params("id"), *req.Approve, req.Note, version)
	return respondTicket(c, ticket, err)
}

// FinalReview POST /tickets/:id/final-review.
func (h *TicketsHandler) FinalReview(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.DecisionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	version, err := versionFrom(c, req.Version)
	if err != nil {
		return err
	}
	ticket, err := h.service.FinalReviewDecision(c.UserContext(), actor, c.Params("id"), *req.Approve, req.Note, version)
	return respondTicket(c, ticket, err)
}

// AddMessage POST /tickets/:id/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	version, err := versionFrom(c, req.Version)
	if err != nil {
		return err
	}
	ticket, err := h.service.AppendMessage(c.UserContext(), actor, c.Params("id"), req.Text, version)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

func respondTicket(c *fiber.Ctx, ticket *domain.Ticket, err error) error {
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderETag, strconv.FormatInt(ticket.Version, 10))
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}
