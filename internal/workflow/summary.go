package workflow

import "github.com/sunenergyxt/service-portal/internal/domain"

// Summary counts an actor's visible tickets.
type Summary struct {
	Total    int                         `json:"total"`
	Open     int                         `json:"open"`
	Closed   int                         `json:"closed"`
	ByStatus map[domain.TicketStatus]int `json:"by_status"`
}

// Summarize aggregates the tickets actor can see.
func Summarize(actor *domain.User, tickets []domain.Ticket) Summary {
	summary := Summary{ByStatus: make(map[domain.TicketStatus]int)}
	for _, ticket := range VisibleTickets(actor, tickets, ListFilter{}) {
		summary.Total++
		summary.ByStatus[ticket.Status]++
		if ticket.IsClosed() {
			summary.Closed++
		} else {
			summary.Open++
		}
	}
	return summary
}
