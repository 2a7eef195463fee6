package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunenergyxt/service-portal/internal/domain"
	"github.com/sunenergyxt/service-portal/internal/events"
	"github.com/sunenergyxt/service-portal/internal/repository"
	apperrors "github.com/sunenergyxt/service-portal/pkg/util"
)

// closedPartnerTicket runs a partner-created ticket to Closed.
func (h *harness) closedPartnerTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ctx := context.Background()
	ticket, err := h.tickets.CreateTicket(ctx, ian, ticketInput())
	require.NoError(t, err)
	require.Equal(t, domain.TicketStatusPendingDispatch, ticket.Status)
	for _, step := range []func() (*domain.Ticket, error){
		func() (*domain.Ticket, error) { return h.tickets.AssignToStaff(ctx, ian, ticket.ID, sam.ID, 0) },
		func() (*domain.Ticket, error) { return h.tickets.StartWork(ctx, sam, ticket.ID, 0) },
		func() (*domain.Ticket, error) { return h.tickets.SubmitForAudit(ctx, sam, ticket.ID, 0) },
		func() (*domain.Ticket, error) { return h.tickets.AuditDecision(ctx, ian, ticket.ID, true, "", 0) },
	} {
		ticket, err = step()
		require.NoError(t, err)
	}
	require.Equal(t, domain.TicketStatusClosed, ticket.Status)
	return ticket
}

func TestDeletePartnerRevertsOpenTicketsOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	open := h.dispatched(t)
	closed := h.closedPartnerTicket(t)
	hqOnly, err := h.tickets.CreateTicket(ctx, bob, ticketInput())
	require.NoError(t, err)

	removal, err := h.partners.DeletePartnerCompany(ctx, alice, partnerID)
	require.NoError(t, err)
	assert.Equal(t, 2, removal.UsersRemoved)
	assert.Equal(t, []string{open.ID}, removal.TicketsReverted)

	reverted, err := h.store.Tickets().GetByID(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPendingAssign, reverted.Status)
	assert.Empty(t, reverted.AssignedToCompanyID)
	assert.Empty(t, reverted.AssignedToUserID)
	assert.Equal(t, domain.HeadquartersID, reverted.UpstreamCompanyID)
	assert.Equal(t, open.Version+1, reverted.Version)
	require.Len(t, reverted.Messages, len(open.Messages)+1)
	require.Len(t, reverted.Logs, len(open.Logs)+1)
	last := reverted.Messages[len(reverted.Messages)-1]
	assert.True(t, last.Sender.IsSystem())
	assert.Equal(t, "Status changed to: PENDING_ASSIGN (original partner removed, ticket returned to HQ)", last.Text)
	assert.Equal(t, alice.ID, reverted.Logs[len(reverted.Logs)-1].OperatorID)

	history, err := h.store.Tickets().GetByID(ctx, closed.ID)
	require.NoError(t, err)
	assert.Equal(t, partnerID, history.AssignedToCompanyID)
	assert.Equal(t, closed.Version, history.Version)

	untouched, err := h.store.Tickets().GetByID(ctx, hqOnly.ID)
	require.NoError(t, err)
	assert.Equal(t, hqOnly.Version, untouched.Version)

	_, err = h.store.Companies().GetByID(ctx, partnerID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	remaining, err := h.store.Users().List(ctx, repository.UserFilter{CompanyID: partnerID})
	require.NoError(t, err)
	assert.Empty(t, remaining)

	types := h.events.types()
	assert.Equal(t, []events.EventType{events.EventTicketReverted, events.EventPartnerRemoved}, types[len(types)-2:])

	// The reverted ticket can be routed again.
	_, err = h.tickets.AssignToCompany(ctx, alice, open.ID, domain.HeadquartersID, 0)
	assert.NoError(t, err)
}

func TestDeletePartnerGuards(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.partners.DeletePartnerCompany(ctx, ian, partnerID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))

	_, err = h.partners.DeletePartnerCompany(ctx, superAdmin, domain.HeadquartersID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = h.partners.DeletePartnerCompany(ctx, superAdmin, "c404")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	users, err := h.store.Users().List(ctx, repository.UserFilter{CompanyID: partnerID})
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

type failingTickets struct{ repository.TicketRepository }

func (failingTickets) Update(context.Context, *domain.Ticket, int64) error {
	return errors.New("disk full")
}

type failingTx struct{ repository.Store }

func (f failingTx) Tickets() repository.TicketRepository {
	return failingTickets{f.Store.Tickets()}
}

type failingStore struct{ repository.Store }

func (f failingStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return f.Store.WithinTx(ctx, func(tx repository.Store) error { return fn(failingTx{tx}) })
}

func TestDeletePartnerRollsBackOnTicketWriteFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	open := h.dispatched(t)

	partners := NewPartnerService(PartnerDependencies{Store: failingStore{h.store}, Engine: h.engine})
	_, err := partners.DeletePartnerCompany(ctx, alice, partnerID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeInternal))

	_, err = h.store.Companies().GetByID(ctx, partnerID)
	assert.NoError(t, err)
	users, err := h.store.Users().List(ctx, repository.UserFilter{CompanyID: partnerID})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	stored, err := h.store.Tickets().GetByID(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, open.Version, stored.Version)
	assert.Equal(t, partnerID, stored.AssignedToCompanyID)
}

func TestCompanyVisibilityAndEdits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	all, err := h.partners.ListCompanies(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := h.partners.ListCompanies(ctx, sam)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, partnerID, own[0].ID)

	_, err = h.partners.GetCompany(ctx, ian, domain.HeadquartersID)
	assert.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))

	area := "Bavaria"
	updated, err := h.partners.UpdateCompany(ctx, ian, partnerID, CompanyUpdate{ServiceArea: &area})
	require.NoError(t, err)
	assert.Equal(t, "Bavaria", updated.ServiceArea)

	_, err = h.partners.UpdateCompany(ctx, sam, partnerID, CompanyUpdate{ServiceArea: &area})
	assert.True(t, apperrors.IsCode(err, apperrors.CodePermissionDenied))

	blank := "  "
	_, err = h.partners.UpdateCompany(ctx, alice, partnerID, CompanyUpdate{Name: &blank})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}
