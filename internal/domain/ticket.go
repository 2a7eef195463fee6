package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusDraft                TicketStatus = "DRAFT"
	TicketStatusPendingAssign        TicketStatus = "PENDING_ASSIGN"
	TicketStatusPendingDispatch      TicketStatus = "PENDING_DISPATCH"
	TicketStatusPendingProcess       TicketStatus = "PENDING_PROCESS"
	TicketStatusInProgress           TicketStatus = "IN_PROGRESS"
	TicketStatusPendingInternalAudit TicketStatus = "PENDING_INTERNAL_AUDIT"
	TicketStatusPendingFinalReview   TicketStatus = "PENDING_FINAL_REVIEW"
	TicketStatusClosed               TicketStatus = "CLOSED"
)

// TicketStatuses lists every status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusDraft,
	TicketStatusPendingAssign,
	TicketStatusPendingDispatch,
	TicketStatusPendingProcess,
	TicketStatusInProgress,
	TicketStatusPendingInternalAudit,
	TicketStatusPendingFinalReview,
	TicketStatusClosed,
}

// Valid reports whether s is a defined status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// Known service type tags offered at creation.
const (
	ServiceTypeNewInstallation = "NEW_INSTALLATION"
	ServiceTypeRemoval         = "REMOVAL"
)

// Ticket is the aggregate for a hardware support request.
//
// CreatedBy, CreatedRole and CompanyID never change after creation.
// Messages and Logs only ever grow. Version increases by one on every
// applied mutation and is used for compare-and-swap writes.
type Ticket struct {
	ID           string
	SLN          string
	Title        string
	CustomerName string
	ProductID    string
	Status       TicketStatus
	Priority     TicketPriority

	CreatedBy   string
	CreatedRole Role
	CompanyID   string

	UpstreamCompanyID   string
	SalesOwnerID        string
	AssignedToCompanyID string
	AssignedToUserID    string

	Description  string
	ServiceTypes []string
	Messages     []TicketMessage
	Logs         []TicketLog

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPartnerCreated reports whether a partner role opened the ticket.
func (t *Ticket) IsPartnerCreated() bool {
	return t.CreatedRole == RolePartnerAdmin || t.CreatedRole == RolePartnerStaff
}

// IsAssignedToHeadquarters reports whether headquarters executes the work.
func (t *Ticket) IsAssignedToHeadquarters() bool {
	return t.AssignedToCompanyID == HeadquartersID
}

// IsClosed reports whether the ticket reached its terminal state.
func (t *Ticket) IsClosed() bool {
	return t.Status == TicketStatusClosed
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	c.ServiceTypes = append([]string(nil), t.ServiceTypes...)
	c.Messages = append([]TicketMessage(nil), t.Messages...)
	c.Logs = append([]TicketLog(nil), t.Logs...)
	return &c
}
