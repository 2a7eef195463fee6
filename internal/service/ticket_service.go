package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sunenergyxt/service-portal/internal/domain"
	"github.com/sunenergyxt/service-portal/internal/events"
	"github.com/sunenergyxt/service-portal/internal/observability"
	"github.com/sunenergyxt/service-portal/internal/repository"
	"github.com/sunenergyxt/service-portal/internal/workflow"
	apperrors "github.com/sunenergyxt/service-portal/pkg/util"
)

// TicketService coordinates ticket workflows: it loads the ticket, lets the
// lifecycle engine decide, then writes back with a version check.
type TicketService struct {
	store      repository.Store
	engine     *workflow.Engine
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Engine     *workflow.Engine
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	SLN          string
	Title        string
	CustomerName string
	ProductID    string
	Description  string
	Priority     domain.TicketPriority
	ServiceTypes []string
	SalesOwnerID string
}

// TicketCapabilities tells a client what the actor may do with a ticket.
type TicketCapabilities struct {
	Actions    []workflow.Action `json:"actions"`
	CanDelete  bool              `json:"can_delete"`
	CanMessage bool              `json:"can_message"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	engine := deps.Engine
	if engine == nil {
		engine = workflow.NewEngine()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		store:      deps.Store,
		engine:     engine,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
	}
}

// CreateTicket opens a ticket on behalf of actor.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	in := workflow.CreateInput{
		SLN:          input.SLN,
		Title:        input.Title,
		CustomerName: input.CustomerName,
		ProductID:    input.ProductID,
		Description:  input.Description,
		Priority:     input.Priority,
		ServiceTypes: input.ServiceTypes,
	}
	if actor != nil && actor.Role == domain.RoleSuperAdmin && input.SalesOwnerID != "" {
		owner, err := s.store.Users().GetByID(ctx, input.SalesOwnerID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperrors.NewValidationError("sales owner does not exist", map[string]any{
				"field": "sales_owner_id",
				"value": input.SalesOwnerID,
			})
		case err != nil:
			return nil, storeError(err, "user", input.SalesOwnerID)
		}
		in.SalesOwner = owner
	}

	ticket, err := s.engine.Create(actor, in)
	if err != nil {
		s.logger.Warn("ticket creation rejected", zap.String("operator_id", actorID(actor)), zap.Error(err))
		return nil, err
	}
	if err := s.store.Tickets().Create(ctx, ticket); err != nil {
		return nil, storeError(err, "ticket", ticket.ID)
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("status", string(ticket.Status)),
		zap.String("operator_id", actor.ID),
		zap.String("operator_role", string(actor.Role)))
	s.publish(ctx, events.New(events.EventTicketCreated, ticket.ID, actor, events.TicketCreatedPayload{
		Status:              ticket.Status,
		Priority:            ticket.Priority,
		Title:               ticket.Title,
		SalesOwnerID:        ticket.SalesOwnerID,
		AssignedToCompanyID: ticket.AssignedToCompanyID,
		AssignedToUserID:    ticket.AssignedToUserID,
	}))
	return ticket, nil
}

// ListVisibleTickets returns what actor may see, filtered and newest first.
func (s *TicketService) ListVisibleTickets(ctx context.Context, actor *domain.User, filter workflow.ListFilter) ([]domain.Ticket, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown status filter", map[string]any{
			"field": "status",
			"value": string(filter.Status),
		})
	}
	all, err := s.store.Tickets().List(ctx)
	if err != nil {
		return nil, storeError(err, "ticket", "")
	}
	return workflow.VisibleTickets(actor, all, filter), nil
}

// GetTicket returns a single ticket if actor can see it.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !workflow.CanView(actor, ticket) {
		return nil, apperrors.NewPermissionDenied("ticket is not visible to actor", "visibility of the ticket", map[string]any{
			"ticket_id": ticketID,
		})
	}
	return ticket, nil
}

// Capabilities evaluates the permission matrix for actor against ticket.
func (s *TicketService) Capabilities(actor *domain.User, ticket *domain.Ticket) TicketCapabilities {
	actions := workflow.AvailableActions(actor, ticket)
	if actions == nil {
		actions = []workflow.Action{}
	}
	return TicketCapabilities{
		Actions:    actions,
		CanDelete:  workflow.CanDelete(actor, ticket),
		CanMessage: workflow.CanView(actor, ticket) && !ticket.IsClosed(),
	}
}

// Summarize counts the tickets actor can see.
func (s *TicketService) Summarize(ctx context.Context, actor *domain.User) (workflow.Summary, error) {
	all, err := s.store.Tickets().List(ctx)
	if err != nil {
		return workflow.Summary{}, storeError(err, "ticket", "")
	}
	return workflow.Summarize(actor, all), nil
}

// AssignableStaff lists installers of the ticket's assigned company.
func (s *TicketService) AssignableStaff(ctx context.Context, actor *domain.User, ticketID string) ([]domain.User, error) {
	ticket, err := s.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.AssignedToCompanyID == "" {
		return []domain.User{}, nil
	}
	users, err := s.store.Users().List(ctx, repository.UserFilter{
		CompanyID: ticket.AssignedToCompanyID,
		Role:      domain.RolePartnerStaff,
	})
	if err != nil {
		return nil, storeError(err, "user", "")
	}
	return users, nil
}

// AssignToCompany routes a ticket to a partner or headquarters.
func (s *TicketService) AssignToCompany(ctx context.Context, actor *domain.User, ticketID, companyID string, expectedVersion int64) (*domain.Ticket, error) {
	return s.mutate(ctx, actor, ticketID, expectedVersion, workflow.ActionAssignCompany, "", func(t *domain.Ticket) error {
		if err := workflow.Authorize(actor, t, workflow.ActionAssignCompany); err != nil {
			return err
		}
		company, err := s.store.Companies().GetByID(ctx, companyID)
		if err != nil {
			return storeError(err, "company", companyID)
		}
		return s.engine.AssignToCompany(actor, t, company)
	})
}

// AssignToStaff dispatches a ticket to an installer.
func (s *TicketService) AssignToStaff(ctx context.Context, actor *domain.User, ticketID, userID string, expectedVersion int64) (*domain.Ticket, error) {
	return s.mutate(ctx, actor, ticketID, expectedVersion, workflow.ActionAssignStaff, "", func(t *domain.Ticket) error {
		if err := workflow.Authorize(actor, t, workflow.ActionAssignStaff); err != nil {
			return err
		}
		staff, err := s.store.Users().GetByID(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationError("staff member does not exist", map[string]any{"field": "user_id", "value": userID})
		}
		if err != nil {
			return storeError(err, "user", userID)
		}
		return s.engine.AssignToStaff(actor, t, staff)
	})
}

// StartWork moves a dispatched ticket into execution.
func (s *TicketService) StartWork(ctx context.Context, actor *domain.User, ticketID string, expectedVersion int64) (*domain.Ticket, error) {
	return s.mutate(ctx, actor, ticketID, expectedVersion, workflow.ActionStartWork, "", func(t *domain.Ticket) error {
		return s.engine.StartWork(actor, t)
	})
}

// SubmitForAudit hands finished work to internal audit.
func (s *TicketService) SubmitForAudit(ctx context.Context, actor *domain.User, ticketID string, expectedVersion int64) (*domain.Ticket, error) {
	return s.mutate(ctx, actor, ticketID, expectedVersion, workflow.ActionSubmitAudit, "", func(t *domain.Ticket) error {
		return s.engine.SubmitForAudit(actor, t)
	})
}

// AuditDecision approves or rejects work pending internal audit.
func (s *TicketService) AuditDecision(ctx context.Context, actor *domain.User, ticketID string, approve bool, note string, expectedVersion int64) (*domain.Ticket, error) {
	action := workflow.ActionAuditReject
	if approve {
		action = workflow.ActionAuditApprove
	}
	return s.mutate(ctx, actor, ticketID, expectedVersion, action, note, func(t *domain.Ticket) error {
		return s.engine.AuditDecision(actor, t, approve, note)
	})
}

// FinalReviewDecision is the sales-side sign-off on delegated work.
func (s *TicketService) FinalReviewDecision(ctx context.Context, actor *domain.User, ticketID string, approve bool, note string, expectedVersion int64) (*domain.Ticket, error) {
	action := workflow.ActionFinalReject
	if approve {
		action = workflow.ActionFinalApprove
	}
	return s.mutate(ctx, actor, ticketID, expectedVersion, action, note, func(t *domain.Ticket) error {
		return s.engine.FinalReviewDecision(actor, t, approve, note)
	})
}

// AppendMessage adds an operator message to an open ticket.
func (s *TicketService) AppendMessage(ctx context.Context, actor *domain.User, ticketID, text string, expectedVersion int64) (*domain.Ticket, error) {
	return s.mutate(ctx, actor, ticketID, expectedVersion, "", "", func(t *domain.Ticket) error {
		return s.engine.AppendMessage(actor, t, text)
	})
}

// DeleteTicket hard-deletes a ticket when the deletion rule allows it.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.User, ticketID string) error {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return err
	}
	if !workflow.CanDelete(actor, ticket) {
		s.logger.Warn("ticket deletion denied",
			zap.String("ticket_id", ticketID),
			zap.String("operator_id", actorID(actor)))
		return apperrors.NewPermissionDenied("actor may not delete this ticket",
			"InternalSales or SuperAdmin with visibility, or PartnerAdmin of the creating company",
			map[string]any{"ticket_id": ticketID, "company_id": ticket.CompanyID})
	}
	if err := s.store.Tickets().Delete(ctx, ticketID); err != nil {
		return storeError(err, "ticket", ticketID)
	}

	s.logger.Info("ticket deleted", zap.String("ticket_id", ticketID), zap.String("operator_id", actor.ID))
	s.publish(ctx, events.New(events.EventTicketDeleted, ticketID, actor, events.TicketDeletedPayload{
		Status:    ticket.Status,
		CompanyID: ticket.CompanyID,
	}))
	return nil
}

// mutate runs apply on a private copy of the ticket and persists it only if
// nobody else wrote the ticket in between. An empty action marks a message.
func (s *TicketService) mutate(
	ctx context.Context,
	actor *domain.User,
	ticketID string,
	expectedVersion int64,
	action workflow.Action,
	note string,
	apply func(t *domain.Ticket) error,
) (*domain.Ticket, error) {
	current, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if expectedVersion != 0 && current.Version != expectedVersion {
		s.metrics.RecordConflict()
		return nil, apperrors.NewConflict("ticket changed since it was read", map[string]any{
			"ticket_id":        ticketID,
			"expected_version": expectedVersion,
			"current_version":  current.Version,
			"status":           string(current.Status),
		})
	}

	working := current.Clone()
	if err := apply(working); err != nil {
		s.logger.Warn("ticket operation rejected",
			zap.String("ticket_id", ticketID),
			zap.String("action", string(action)),
			zap.String("status", string(current.Status)),
			zap.String("operator_id", actorID(actor)),
			zap.Error(err))
		return nil, err
	}

	if err := s.store.Tickets().Update(ctx, working, current.Version); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			s.metrics.RecordConflict()
			s.logger.Warn("ticket write conflict", zap.String("ticket_id", ticketID), zap.String("action", string(action)))
		}
		return nil, storeError(err, "ticket", ticketID)
	}

	if action == "" {
		last := working.Messages[len(working.Messages)-1]
		s.publish(ctx, events.New(events.EventTicketMessageAdded, ticketID, actor, events.TicketMessageAddedPayload{
			MessageID:   last.ID,
			BodyPreview: preview(last.Text),
		}))
		return working, nil
	}

	s.metrics.RecordTransition(string(current.Status), string(working.Status))
	s.logger.Info("ticket transitioned",
		zap.String("ticket_id", ticketID),
		zap.String("action", string(action)),
		zap.String("from", string(current.Status)),
		zap.String("to", string(working.Status)),
		zap.String("operator_id", actor.ID),
		zap.Int64("version", working.Version))
	s.publish(ctx, events.New(events.EventTicketTransitioned, ticketID, actor, events.TicketTransitionedPayload{
		Action:              string(action),
		OldStatus:           current.Status,
		NewStatus:           working.Status,
		AssignedToCompanyID: working.AssignedToCompanyID,
		AssignedToUserID:    working.AssignedToUserID,
		Note:                note,
		Version:             working.Version,
	}))
	return working, nil
}

func (s *TicketService) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.store.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, s.logger, s.metrics, event)
}

// publishEvent delivers event after the state change is durable. Handler
// failures are logged and never undo the change.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics, event events.Event) {
	if dispatcher == nil {
		return
	}
	metrics.RecordEvent(string(event.Type))
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Error("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

func actorID(actor *domain.User) string {
	if actor == nil {
		return ""
	}
	return actor.ID
}

func preview(text string) string {
	const limit = 120
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
