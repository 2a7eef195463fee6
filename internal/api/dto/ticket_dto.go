package dto

import (
	"time"

	"github.com/sunenergyxt/service-portal/internal/domain"
)

// CreateTicketRequest payload. SalesOwnerID is only read for SuperAdmin callers.
type CreateTicketRequest struct {
	SLN          string                `json:"sln" validate:"required,max=64"`
	Title        string                `json:"title" validate:"required,max=200"`
	CustomerName string                `json:"customer_name" validate:"required,max=200"`
	ProductID    string                `json:"product_id" validate:"max=64"`
	Description  string                `json:"description" validate:"max=5000"`
	Priority     domain.TicketPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH"`
	ServiceTypes []string              `json:"service_types" validate:"required,min=1,dive,required"`
	SalesOwnerID string                `json:"sales_owner_id"`
}

// VersionedRequest carries the optional version the client last read.
// Zero skips the check.
type VersionedRequest struct {
	Version int64 `json:"version" validate:"gte=0"`
}

// AssignCompanyRequest payload.
type AssignCompanyRequest struct {
	CompanyID string `json:"company_id" validate:"required"`
	Version   int64  `json:"version" validate:"gte=0"`
}

// AssignStaffRequest payload.
type AssignStaffRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Version int64  `json:"version" validate:"gte=0"`
}

// DecisionRequest payload for audit and final review.
type DecisionRequest struct {
	Approve *bool  `json:"approve" validate:"required"`
	Note    string `json:"note" validate:"max=1000"`
	Version int64  `json:"version" validate:"gte=0"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Text    string `json:"text" validate:"required,max=5000"`
	Version int64  `json:"version" validate:"gte=0"`
}

// TicketResponse is the full ticket with its history.
type TicketResponse struct {
	ID                  string                 `json:"id"`
	SLN                 string                 `json:"sln"`
	Title               string                 `json:"title"`
	CustomerName        string                 `json:"customer_name"`
	ProductID           string                 `json:"product_id,omitempty"`
	Status              domain.TicketStatus    `json:"status"`
	Priority            domain.TicketPriority  `json:"priority"`
	CreatedBy           string                 `json:"created_by"`
	CreatedRole         domain.Role            `json:"created_role"`
	CompanyID           string                 `json:"company_id"`
	UpstreamCompanyID   string                 `json:"upstream_company_id"`
	SalesOwnerID        string                 `json:"sales_owner_id,omitempty"`
	AssignedToCompanyID string                 `json:"assigned_to_company_id,omitempty"`
	AssignedToUserID    string                 `json:"assigned_to_user_id,omitempty"`
	Description         string                 `json:"description,omitempty"`
	ServiceTypes        []string               `json:"service_types"`
	Messages            []domain.TicketMessage `json:"messages"`
	Logs                []domain.TicketLog     `json:"logs"`
	Version             int64                  `json:"version"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// TicketSummary is the list view of a ticket.
type TicketSummary struct {
	ID                  string                `json:"id"`
	SLN                 string                `json:"sln"`
	Title               string                `json:"title"`
	CustomerName        string                `json:"customer_name"`
	Status              domain.TicketStatus   `json:"status"`
	Priority            domain.TicketPriority `json:"priority"`
	AssignedToCompanyID string                `json:"assigned_to_company_id,omitempty"`
	AssignedToUserID    string                `json:"assigned_to_user_id,omitempty"`
	Version             int64                 `json:"version"`
	CreatedAt           time.Time             `json:"created_at"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

// NewTicketResponse maps a ticket to its detail view.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	messages := t.Messages
	if messages == nil {
		messages = []domain.TicketMessage{}
	}
	logs := t.Logs
	if logs == nil {
		logs = []domain.TicketLog{}
	}
	return TicketResponse{
		ID:                  t.ID,
		SLN:                 t.SLN,
		Title:               t.Title,
		CustomerName:        t.CustomerName,
		ProductID:           t.ProductID,
		Status:              t.Status,
		Priority:            t.Priority,
		CreatedBy:           t.CreatedBy,
		CreatedRole:         t.CreatedRole,
		CompanyID:           t.CompanyID,
		UpstreamCompanyID:   t.UpstreamCompanyID,
		SalesOwnerID:        t.SalesOwnerID,
		AssignedToCompanyID: t.AssignedToCompanyID,
		AssignedToUserID:    t.AssignedToUserID,
		Description:         t.Description,
		ServiceTypes:        t.ServiceTypes,
		Messages:            messages,
		Logs:                logs,
		Version:             t.Version,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

// NewTicketSummary maps a ticket to its list view.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:                  t.ID,
		SLN:                 t.SLN,
		Title:               t.Title,
		CustomerName:        t.CustomerName,
		Status:              t.Status,
		Priority:            t.Priority,
		AssignedToCompanyID: t.AssignedToCompanyID,
		AssignedToUserID:    t.AssignedToUserID,
		Version:             t.Version,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}
