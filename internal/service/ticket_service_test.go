package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunenergyxt/service-portal/internal/domain"
	"github.com/sunenergyxt/service-portal/internal/events"
	"github.com/sunenergyxt/service-portal/internal/workflow"
	apperrors "github.com/sunenergyxt/service-portal/pkg/util"
)

func TestDelegatedLifecycleThroughService(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ticket := h.dispatched(t)
	assert.Equal(t, domain.TicketStatusPendingDispatch, ticket.Status)
	assert.Equal(t, int64(2), ticket.Version)

	ticket, err := h.tickets.AssignToStaff(ctx, ian, ticket.ID, sam.ID, ticket.Version)
	require.NoError(t, err)
	ticket, err = h.tickets.StartWork(ctx, sam, ticket.ID, 0)
	require.NoError(t, err)
	ticket, err = h.tickets.SubmitForAudit(ctx, sam, ticket.ID, 0)
	require.NoError(t, err)
	ticket, err = h.tickets.AuditDecision(ctx, ian, ticket.ID, true, "", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPendingFinalReview, ticket.Status)

	ticket, err = h.tickets.FinalReviewDecision(ctx, alice, ticket.ID, true, "looks good", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
	assert.Equal(t, int64(7), ticket.Version)
	assert.Len(t, ticket.Logs, 7)

	stored, err := h.store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.Version, stored.Version)
	assert.Equal(t, "Status changed to: CLOSED (final review approved: looks good)", stored.Messages[len(stored.Messages)-1].Text)

	types := h.events.types()
	assert.Equal(t, events.EventTicketCreated, types[0])
	assert.Len(t, types, 7)
	for _, typ := range types[1:] {
		assert.Equal(t, events.EventTicketTransitioned, typ)
	}

	_, err = h.tickets.AppendMessage(ctx, alice, ticket.ID, "one more thing", 0)
	assert.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))
}

func TestStaleVersionIsConflictAndLeavesTicketUnchanged(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.dispatched(t)

	_, err := h.tickets.AssignToStaff(ctx, ian, ticket.ID, sam.ID, ticket.Version-1)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	stored, err := h.store.Tickets().GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.Version, stored.Version)
	assert.Equal(t, domain.TicketStatusPendingDispatch, stored.Status)
	assert.Empty(t, stored.AssignedToUserID)
}

func TestSecondWriterWithSameReadLoses(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.dispatched(t)
	read := ticket.Version

	_, err := h.tickets.AssignToStaff(ctx, ian, ticket.ID, sam.ID, read)
	require.NoError(t, err)
	_, err = h.tickets.AssignToStaff(ctx, ian, ticket.ID, sam.ID, read)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestCreateTicketAsSuperAdmin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.tickets.CreateTicket(ctx, superAdmin, ticketInput())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	in := ticketInput()
	in.SalesOwnerID = "missing"
	_, err = h.tickets.CreateTicket(ctx, superAdmin, in)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	in.SalesOwnerID = sam.ID
	_, err = h.tickets.CreateTicket(ctx, superAdmin, in)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	in.SalesOwnerID = bob.ID
	ticket, err := h.tickets.CreateTicket(ctx, superAdmin, in)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, ticket.SalesOwnerID)
	assert.Equal(t, domain.TicketStatusPendingAssign, ticket.Status)

	bobs, err := h.tickets.ListVisibleTickets(ctx, bob, workflow.ListFilter{})
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.Equal(t, ticket.ID, bobs[0].ID)

	alices, err := h.tickets.ListVisibleTickets(ctx, alice, workflow.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, alices)

	_, err = h.tickets.GetTicket(ctx, alice, ticket.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))
}

func TestListRejectsUnknownStatusFilter(t *testing.T) {
	h := newHarness(t)
	_, err := h.tickets.ListVisibleTickets(context.Background(), alice, workflow.ListFilter{Status: "OPEN"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestPartnerAdminCannotDeleteRoutedTicket(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.dispatched(t)

	err := h.tickets.DeleteTicket(ctx, ian, ticket.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))

	_, err = h.store.Tickets().GetByID(ctx, ticket.ID)
	assert.NoError(t, err)

	require.NoError(t, h.tickets.DeleteTicket(ctx, alice, ticket.ID))
	_, err = h.tickets.GetTicket(ctx, alice, ticket.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	assert.Contains(t, h.events.types(), events.EventTicketDeleted)
}

func TestPartnerAdminDeletesOwnTicket(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket, err := h.tickets.CreateTicket(ctx, ian, ticketInput())
	require.NoError(t, err)

	assert.True(t, apperrors.IsCode(h.tickets.DeleteTicket(ctx, sam, ticket.ID), apperrors.CodePermissionDenied))
	require.NoError(t, h.tickets.DeleteTicket(ctx, ian, ticket.ID))
}

func TestAssignToCompanyChecksPermissionBeforeTarget(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket, err := h.tickets.CreateTicket(ctx, alice, ticketInput())
	require.NoError(t, err)

	_, err = h.tickets.AssignToCompany(ctx, ian, ticket.ID, "nowhere", 0)
	assert.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))

	_, err = h.tickets.AssignToCompany(ctx, alice, ticket.ID, "nowhere", 0)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	_, err = h.tickets.AssignToCompany(ctx, alice, "missing", partnerID, 0)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestAssignToStaffRequiresInstallerOfAssignedCompany(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.dispatched(t)

	_, err := h.tickets.AssignToStaff(ctx, ian, ticket.ID, hqInstaller.ID, 0)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = h.tickets.AssignToStaff(ctx, ian, ticket.ID, "ghost", 0)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	staff, err := h.tickets.AssignableStaff(ctx, ian, ticket.ID)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, sam.ID, staff[0].ID)
}

func TestAppendMessageBumpsVersionAndPublishes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.dispatched(t)

	updated, err := h.tickets.AppendMessage(ctx, ian, ticket.ID, "on our way", ticket.Version)
	require.NoError(t, err)
	assert.Equal(t, ticket.Version+1, updated.Version)
	assert.Len(t, updated.Messages, len(ticket.Messages)+1)
	assert.Len(t, updated.Logs, len(ticket.Logs))
	last := updated.Messages[len(updated.Messages)-1]
	assert.Equal(t, "on our way", last.Text)
	assert.False(t, last.Sender.IsSystem())

	types := h.events.types()
	assert.Equal(t, events.EventTicketMessageAdded, types[len(types)-1])

	_, err = h.tickets.AppendMessage(ctx, sam, ticket.ID, "   ", 0)
	assert.Error(t, err)
}

func TestCapabilitiesFollowMatrix(t *testing.T) {
	h := newHarness(t)
	ticket := h.dispatched(t)

	caps := h.tickets.Capabilities(ian, ticket)
	assert.Equal(t, []workflow.Action{workflow.ActionAssignStaff}, caps.Actions)
	assert.False(t, caps.CanDelete)
	assert.True(t, caps.CanMessage)

	caps = h.tickets.Capabilities(alice, ticket)
	assert.Empty(t, caps.Actions)
	assert.True(t, caps.CanDelete)

	caps = h.tickets.Capabilities(hqInstaller, ticket)
	assert.Empty(t, caps.Actions)
	assert.False(t, caps.CanMessage)
}

func TestSummarizeCountsVisibleTickets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.dispatched(t)
	_, err := h.tickets.CreateTicket(ctx, bob, ticketInput())
	require.NoError(t, err)

	summary, err := h.tickets.Summarize(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Open)
	assert.Equal(t, 1, summary.ByStatus[domain.TicketStatusPendingDispatch])

	summary, err = h.tickets.Summarize(ctx, superAdmin)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
}
