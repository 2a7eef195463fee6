package dto

import (
	"time"

	"github.com/sunenergyxt/service-portal/internal/domain"
)

// UpdateCompanyRequest payload. Omitted fields are left unchanged.
type UpdateCompanyRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Address     *string `json:"address" validate:"omitempty,max=300"`
	Phone       *string `json:"phone" validate:"omitempty,max=40"`
	ServiceArea *string `json:"service_area" validate:"omitempty,max=200"`
}

// CompanyResponse view.
type CompanyResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Address        string    `json:"address"`
	Phone          string    `json:"phone"`
	ServiceArea    string    `json:"service_area"`
	IsHeadquarters bool      `json:"is_headquarters"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewCompanyResponse maps a company.
func NewCompanyResponse(c *domain.Company) CompanyResponse {
	return CompanyResponse{
		ID:             c.ID,
		Name:           c.Name,
		Address:        c.Address,
		Phone:          c.Phone,
		ServiceArea:    c.ServiceArea,
		IsHeadquarters: c.IsHeadquarters(),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// SubmitRegistrationRequest is the public partner application form.
type SubmitRegistrationRequest struct {
	CompanyName   string             `json:"company_name" validate:"required,max=200"`
	ContactPerson string             `json:"contact_person" validate:"required,max=120"`
	Email         string             `json:"email" validate:"required,email"`
	Phone         string             `json:"phone" validate:"max=40"`
	Type          domain.PartnerType `json:"type" validate:"omitempty,oneof=Distributor Installer"`
}

// DecideRegistrationRequest payload.
type DecideRegistrationRequest struct {
	Approve *bool `json:"approve" validate:"required"`
}

// RegistrationResponse view.
type RegistrationResponse struct {
	ID            string                    `json:"id"`
	CompanyName   string                    `json:"company_name"`
	ContactPerson string                    `json:"contact_person"`
	Email         string                    `json:"email"`
	Phone         string                    `json:"phone"`
	Type          domain.PartnerType        `json:"type,omitempty"`
	Status        domain.RegistrationStatus `json:"status"`
	RequestDate   time.Time                 `json:"request_date"`
	DecidedBy     string                    `json:"decided_by,omitempty"`
	DecidedAt     *time.Time                `json:"decided_at,omitempty"`
	CompanyID     string                    `json:"company_id,omitempty"`
	AdminUserID   string                    `json:"admin_user_id,omitempty"`
}

// NewRegistrationResponse maps a registration request.
func NewRegistrationResponse(r *domain.RegistrationRequest) RegistrationResponse {
	return RegistrationResponse{
		ID:            r.ID,
		CompanyName:   r.CompanyName,
		ContactPerson: r.ContactPerson,
		Email:         r.Email,
		Phone:         r.Phone,
		Type:          r.Type,
		Status:        r.Status,
		RequestDate:   r.RequestDate,
		DecidedBy:     r.DecidedBy,
		DecidedAt:     r.DecidedAt,
		CompanyID:     r.CompanyID,
		AdminUserID:   r.AdminUserID,
	}
}
