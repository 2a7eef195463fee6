package workflow

import (
	"github.com/sunenergyxt/service-portal/internal/domain"
)

// Action names a lifecycle operation on a ticket.
type Action string

const (
	ActionAssignCompany Action = "ASSIGN_COMPANY"
	ActionAssignStaff   Action = "ASSIGN_STAFF"
	ActionStartWork     Action = "START_WORK"
	ActionSubmitAudit   Action = "SUBMIT_AUDIT"
	ActionAuditApprove  Action = "AUDIT_APPROVE"
	ActionAuditReject   Action = "AUDIT_REJECT"
	ActionFinalApprove  Action = "FINAL_APPROVE"
	ActionFinalReject   Action = "FINAL_REJECT"
)

// Actions lists every lifecycle action in the order a UI renders them.
var Actions = []Action{
	ActionAssignCompany,
	ActionAssignStaff,
	ActionStartWork,
	ActionSubmitAudit,
	ActionAuditReject,
	ActionAuditApprove,
	ActionFinalReject,
	ActionFinalApprove,
}

// gate is a named predicate over (actor, ticket).
type gate struct {
	required string
	allow    func(actor *domain.User, ticket *domain.Ticket) bool
}

var (
	headquartersGate = gate{
		required: "InternalSales or SuperAdmin",
		allow: func(actor *domain.User, _ *domain.Ticket) bool {
			return actor.Role.IsHeadquarters()
		},
	}

	assignedCompanyOwnerGate = gate{
		required: "PartnerAdmin of the assigned company, or InternalSales/SuperAdmin when assigned to headquarters",
		allow: func(actor *domain.User, ticket *domain.Ticket) bool {
			return isAssignedCompanyAdmin(actor, ticket) ||
				(actor.Role.IsHeadquarters() && ticket.IsAssignedToHeadquarters())
		},
	}

	executorGate = gate{
		required: "assigned installer, PartnerAdmin of the assigned company, or InternalSales/SuperAdmin",
		allow: func(actor *domain.User, ticket *domain.Ticket) bool {
			return (ticket.AssignedToUserID != "" && ticket.AssignedToUserID == actor.ID) ||
				isAssignedCompanyAdmin(actor, ticket) ||
				actor.Role.IsHeadquarters()
		},
	}
)

func isAssignedCompanyAdmin(actor *domain.User, ticket *domain.Ticket) bool {
	return actor.Role == domain.RolePartnerAdmin &&
		ticket.AssignedToCompanyID != "" &&
		actor.CompanyID == ticket.AssignedToCompanyID
}

type transitionKey struct {
	from   domain.TicketStatus
	action Action
}

// transitionRule resolves the next status for a permitted action.
type transitionRule struct {
	gate gate
	next func(ticket *domain.Ticket) domain.TicketStatus
}

func to(status domain.TicketStatus) func(*domain.Ticket) domain.TicketStatus {
	return func(*domain.Ticket) domain.TicketStatus { return status }
}

// auditApprovalTarget closes work done in-house or opened by a partner for
// itself; work headquarters delegated to a partner goes to final review.
func auditApprovalTarget(ticket *domain.Ticket) domain.TicketStatus {
	if ticket.IsPartnerCreated() || ticket.IsAssignedToHeadquarters() {
		return domain.TicketStatusClosed
	}
	return domain.TicketStatusPendingFinalReview
}

// transitions is the permission matrix: (state, action) -> gate and target.
// Absent keys are invalid transitions. Closed and Draft have no outbound edges.
var transitions = map[transitionKey]transitionRule{
	{domain.TicketStatusPendingAssign, ActionAssignCompany}: {
		gate: headquartersGate,
		next: to(domain.TicketStatusPendingDispatch),
	},
	{domain.TicketStatusPendingDispatch, ActionAssignStaff}: {
		gate: assignedCompanyOwnerGate,
		next: to(domain.TicketStatusPendingProcess),
	},
	{domain.TicketStatusPendingProcess, ActionStartWork}: {
		gate: executorGate,
		next: to(domain.TicketStatusInProgress),
	},
	{domain.TicketStatusInProgress, ActionSubmitAudit}: {
		gate: executorGate,
		next: to(domain.TicketStatusPendingInternalAudit),
	},
	{domain.TicketStatusPendingInternalAudit, ActionAuditReject}: {
		gate: assignedCompanyOwnerGate,
		next: to(domain.TicketStatusInProgress),
	},
	{domain.TicketStatusPendingInternalAudit, ActionAuditApprove}: {
		gate: assignedCompanyOwnerGate,
		next: auditApprovalTarget,
	},
	{domain.TicketStatusPendingFinalReview, ActionFinalReject}: {
		gate: headquartersGate,
		next: to(domain.TicketStatusInProgress),
	},
	{domain.TicketStatusPendingFinalReview, ActionFinalApprove}: {
		gate: headquartersGate,
		next: to(domain.TicketStatusClosed),
	},
}

// sourceStatuses returns the statuses from which action is defined.
func sourceStatuses(action Action) []domain.TicketStatus {
	var statuses []domain.TicketStatus
	for _, status := range domain.TicketStatuses {
		if _, ok := transitions[transitionKey{status, action}]; ok {
			statuses = append(statuses, status)
		}
	}
	return statuses
}

// CanDelete reports whether actor may hard-delete ticket.
func CanDelete(actor *domain.User, ticket *domain.Ticket) bool {
	if !CanView(actor, ticket) {
		return false
	}
	switch actor.Role {
	case domain.RoleSuperAdmin, domain.RoleInternalSales:
		return true
	case domain.RolePartnerAdmin:
		return ticket.CompanyID == actor.CompanyID
	default:
		return false
	}
}

// AvailableActions evaluates the matrix for actor against ticket's current status.
func AvailableActions(actor *domain.User, ticket *domain.Ticket) []Action {
	if !CanView(actor, ticket) {
		return nil
	}
	var available []Action
	for _, action := range Actions {
		rule, ok := transitions[transitionKey{ticket.Status, action}]
		if ok && rule.gate.allow(actor, ticket) {
			available = append(available, action)
		}
	}
	return available
}
