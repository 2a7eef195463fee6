package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sunenergyxt/service-portal/internal/api/dto"
	"github.com/sunenergyxt/service-portal/internal/service"
)

// CompaniesHandler exposes headquarters and partner companies.
type CompaniesHandler struct {
	service *service.PartnerService
}

// NewCompaniesHandler constructs handler.
func NewCompaniesHandler(partnerService *service.PartnerService) *CompaniesHandler {
	return &CompaniesHandler{service: partnerService}
}

// List GET /companies.
func (h *CompaniesHandler) List(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	companies, err := h.service.ListCompanies(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.CompanyResponse, 0, len(companies))
	for i := range companies {
		items = append(items, dto.NewCompanyResponse(&companies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /companies/:id.
func (h *CompaniesHandler) Get(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	company, err := h.service.GetCompany(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCompanyResponse(company)})
}

// Update PATCH /companies/:id.
func (h *CompaniesHandler) Update(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateCompanyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	company, err := h.service.UpdateCompany(c.UserContext(), actor, c.Params("id"), service.CompanyUpdate{
		Name:        req.Name,
		Address:     req.Address,
		Phone:       req.Phone,
		ServiceArea: req.ServiceArea,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCompanyResponse(company)})
}

// Delete DELETE /companies/:id removes a partner and returns its open tickets
// to headquarters.
func (h *CompaniesHandler) Delete(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return err
	}
	removal, err := h.service.DeletePartnerCompany(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": removal})
}
