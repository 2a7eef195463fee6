package workflow

import (
	"strings"

	"github.com/sunenergyxt/service-portal/internal/domain"
)

// searchDateLayout is how the creation date is matched by free-text search.
const searchDateLayout = "2006-01-02"

// ListFilter narrows an actor's visible tickets. Filters never widen
// what the role rules allow.
type ListFilter struct {
	SearchTerm string
	Status     domain.TicketStatus
}

// CanView reports whether actor may see ticket. Unknown roles see nothing.
func CanView(actor *domain.User, ticket *domain.Ticket) bool {
	if actor == nil || ticket == nil {
		return false
	}
	switch actor.Role {
	case domain.RoleSuperAdmin:
		return true
	case domain.RoleInternalSales:
		return ticket.CreatedBy == actor.ID || ticket.SalesOwnerID == actor.ID
	case domain.RolePartnerAdmin:
		return ticket.CompanyID == actor.CompanyID ||
			(ticket.AssignedToCompanyID != "" && ticket.AssignedToCompanyID == actor.CompanyID)
	case domain.RolePartnerStaff:
		return ticket.AssignedToUserID != "" && ticket.AssignedToUserID == actor.ID
	default:
		return false
	}
}

// VisibleTickets returns the tickets actor may see that also match filter,
// preserving input order.
func VisibleTickets(actor *domain.User, tickets []domain.Ticket, filter ListFilter) []domain.Ticket {
	term := strings.ToLower(strings.TrimSpace(filter.SearchTerm))
	result := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		ticket := &tickets[i]
		if !CanView(actor, ticket) {
			continue
		}
		if filter.Status != "" && ticket.Status != filter.Status {
			continue
		}
		if term != "" && !matchesSearch(ticket, term) {
			continue
		}
		result = append(result, *ticket)
	}
	return result
}

func matchesSearch(ticket *domain.Ticket, term string) bool {
	fields := []string{
		ticket.Title,
		ticket.SLN,
		ticket.ID,
		ticket.CustomerName,
		ticket.CreatedAt.Format(searchDateLayout),
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}
