package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/sunenergyxt/service-portal/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketTransitioned  EventType = "ticket_transitioned"
	EventTicketMessageAdded  EventType = "ticket_message_added"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventTicketReverted      EventType = "ticket_reverted"
	EventPartnerRemoved      EventType = "partner_removed"
	EventRegistrationDecided EventType = "registration_decided"
)

// Actor identifies who triggered an event.
type Actor struct {
	UserID    string      `json:"user_id"`
	Role      domain.Role `json:"role"`
	CompanyID string      `json:"company_id"`
}

// ActorFrom builds event actor metadata from a user.
func ActorFrom(u *domain.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{UserID: u.ID, Role: u.Role, CompanyID: u.CompanyID}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, ticketID string, actor *domain.User, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     ActorFrom(actor),
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Status              domain.TicketStatus   `json:"status"`
	Priority            domain.TicketPriority `json:"priority"`
	Title               string                `json:"title"`
	SalesOwnerID        string                `json:"sales_owner_id,omitempty"`
	AssignedToCompanyID string                `json:"assigned_to_company_id,omitempty"`
	AssignedToUserID    string                `json:"assigned_to_user_id,omitempty"`
}

// TicketTransitionedPayload payload.
type TicketTransitionedPayload struct {
	Action              string              `json:"action"`
	OldStatus           domain.TicketStatus `json:"old_status"`
	NewStatus           domain.TicketStatus `json:"new_status"`
	AssignedToCompanyID string              `json:"assigned_to_company_id,omitempty"`
	AssignedToUserID    string              `json:"assigned_to_user_id,omitempty"`
	Note                string              `json:"note,omitempty"`
	Version             int64               `json:"version"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string `json:"message_id"`
	BodyPreview string `json:"body_preview"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	Status    domain.TicketStatus `json:"status"`
	CompanyID string              `json:"company_id"`
}

// TicketRevertedPayload payload.
type TicketRevertedPayload struct {
	RemovedCompanyID string              `json:"removed_company_id"`
	OldStatus        domain.TicketStatus `json:"old_status"`
}

// PartnerRemovedPayload payload.
type PartnerRemovedPayload struct {
	CompanyID       string   `json:"company_id"`
	CompanyName     string   `json:"company_name"`
	UsersRemoved    int      `json:"users_removed"`
	TicketsReverted []string `json:"tickets_reverted"`
}

// RegistrationDecidedPayload payload.
type RegistrationDecidedPayload struct {
	RequestID   string                    `json:"request_id"`
	Status      domain.RegistrationStatus `json:"status"`
	CompanyID   string                    `json:"company_id,omitempty"`
	AdminUserID string                    `json:"admin_user_id,omitempty"`
}
