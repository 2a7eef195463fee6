package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunenergyxt/service-portal/internal/domain"
)

func visibilityCorpus() []domain.Ticket {
	ownedByRep1 := ticketAt(domain.TicketStatusPendingAssign, rep1, "", "")
	ownedByRep1.ID = "t1"

	routedToPartner := ticketAt(domain.TicketStatusPendingProcess, rep2, partnerID, installer.ID)
	routedToPartner.ID = "t2"

	partnerOwn := ticketAt(domain.TicketStatusPendingDispatch, partnerAdm, partnerID, "")
	partnerOwn.ID = "t3"

	superCreated := ticketAt(domain.TicketStatusPendingAssign, superAdmin, "", "")
	superCreated.ID = "t4"
	superCreated.SalesOwnerID = rep1.ID

	inHouse := ticketAt(domain.TicketStatusInProgress, rep2, domain.HeadquartersID, hqStaff.ID)
	inHouse.ID = "t5"
	inHouse.Title = "Removal of old panels"
	inHouse.CreatedAt = time.Date(2023, 11, 20, 10, 0, 0, 0, time.UTC)

	return []domain.Ticket{*ownedByRep1, *routedToPartner, *partnerOwn, *superCreated, *inHouse}
}

func ids(tickets []domain.Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, t.ID)
	}
	return out
}

func TestVisibleTicketsByRole(t *testing.T) {
	corpus := visibilityCorpus()

	cases := []struct {
		name  string
		actor *domain.User
		want  []string
	}{
		{"super admin sees everything", superAdmin, []string{"t1", "t2", "t3", "t4", "t5"}},
		{"sales rep sees created and owned", rep1, []string{"t1", "t4"}},
		{"other sales rep sees only own", rep2, []string{"t2", "t5"}},
		{"partner admin sees created and routed", partnerAdm, []string{"t2", "t3"}},
		{"installer sees only assigned", installer, []string{"t2"}},
		{"hq installer sees only assigned", hqStaff, []string{"t5"}},
		{"foreign partner admin sees nothing", otherAdm, []string{}},
		{"unknown role sees nothing", &domain.User{ID: "x", Role: "GUEST"}, []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := VisibleTickets(tc.actor, corpus, ListFilter{})
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestVisibleTicketsMatchesPredicateExactly(t *testing.T) {
	corpus := visibilityCorpus()
	actors := []*domain.User{superAdmin, rep1, rep2, partnerAdm, installer, hqStaff, otherAdm}

	for _, actor := range actors {
		result := VisibleTickets(actor, corpus, ListFilter{})
		included := make(map[string]bool, len(result))
		for i := range result {
			included[result[i].ID] = true
			assert.True(t, CanView(actor, &result[i]), "actor %s got invisible ticket %s", actor.ID, result[i].ID)
		}
		for i := range corpus {
			if !included[corpus[i].ID] {
				assert.False(t, CanView(actor, &corpus[i]), "actor %s missing visible ticket %s", actor.ID, corpus[i].ID)
			}
		}
	}
}

func TestVisibleTicketsIsIdempotent(t *testing.T) {
	corpus := visibilityCorpus()
	filter := ListFilter{SearchTerm: "battery"}

	first := VisibleTickets(partnerAdm, corpus, filter)
	second := VisibleTickets(partnerAdm, corpus, filter)

	assert.Equal(t, first, second)
	assert.Equal(t, visibilityCorpus(), corpus)
}

func TestVisibleTicketsFilters(t *testing.T) {
	corpus := visibilityCorpus()

	cases := []struct {
		name   string
		actor  *domain.User
		filter ListFilter
		want   []string
	}{
		{"title search is case insensitive", superAdmin, ListFilter{SearchTerm: "REMOVAL of"}, []string{"t5"}},
		{"id search", superAdmin, ListFilter{SearchTerm: "t3"}, []string{"t3"}},
		{"customer search", rep1, ListFilter{SearchTerm: "acme"}, []string{"t1", "t4"}},
		{"date search", superAdmin, ListFilter{SearchTerm: "2023-11-20"}, []string{"t5"}},
		{"status filter", superAdmin, ListFilter{Status: domain.TicketStatusPendingAssign}, []string{"t1", "t4"}},
		{"filters never widen visibility", installer, ListFilter{SearchTerm: "t1"}, []string{}},
		{"search and status combine", superAdmin, ListFilter{SearchTerm: "battery", Status: domain.TicketStatusPendingDispatch}, []string{"t3"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := VisibleTickets(tc.actor, corpus, tc.filter)
			assert.Equal(t, tc.want, ids(got))
		})
	}
}

func TestSuperAdminCreatedTicketVisibleOnlyToChosenOwner(t *testing.T) {
	engine := newTestEngine()
	in := createInput()
	in.SalesOwner = rep1

	ticket, err := engine.Create(superAdmin, in)
	require.NoError(t, err)

	corpus := []domain.Ticket{*ticket}
	assert.Empty(t, VisibleTickets(rep2, corpus, ListFilter{}))
	assert.Len(t, VisibleTickets(rep1, corpus, ListFilter{}), 1)
}

func TestSummarize(t *testing.T) {
	corpus := visibilityCorpus()
	closed := ticketAt(domain.TicketStatusClosed, partnerAdm, partnerID, installer.ID)
	closed.ID = "t6"
	corpus = append(corpus, *closed)

	summary := Summarize(partnerAdm, corpus)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Open)
	assert.Equal(t, 1, summary.Closed)
	assert.Equal(t, 1, summary.ByStatus[domain.TicketStatusClosed])
	assert.Equal(t, 1, summary.ByStatus[domain.TicketStatusPendingDispatch])
}
