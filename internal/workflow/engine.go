package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sunenergyxt/service-portal/internal/domain"
	apperrors "github.com/sunenergyxt/service-portal/pkg/util"
)

// Default notes recorded when an operator leaves the note empty.
const (
	NoteAuditRejected       = "internal audit rejected"
	NoteAuditArchived       = "approved (archived)"
	NoteAuditToFinalReview  = "internal audit approved (sent to final review)"
	NoteFinalReviewRejected = "final review rejected"
	NoteFinalReviewApproved = "final review approved"

	partnerRemovedNote = "original partner removed, ticket returned to HQ"
)

// Clock returns the current time.
type Clock func() time.Time

// IDGenerator returns a fresh unique identifier.
type IDGenerator func() string

// Engine applies lifecycle operations to a single ticket held by the caller.
// It never touches storage: callers load, hand over a ticket, then persist.
// On error the ticket is left exactly as it was passed in.
type Engine struct {
	now   Clock
	newID IDGenerator
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.now = clock
		}
	}
}

// WithIDGenerator overrides id generation for tickets, messages and logs.
func WithIDGenerator(gen IDGenerator) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// NewEngine returns an engine using wall-clock UTC time and random UUIDs.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CreateInput carries caller-supplied ticket fields.
type CreateInput struct {
	SLN          string
	Title        string
	CustomerName string
	ProductID    string
	Description  string
	Priority     domain.TicketPriority
	ServiceTypes []string
	// SalesOwner is required when a SuperAdmin creates the ticket and
	// ignored otherwise.
	SalesOwner *domain.User
}

// Create builds a new ticket whose initial routing depends on the actor's role.
func (e *Engine) Create(actor *domain.User, in CreateInput) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	serviceTypes := normalizeServiceTypes(in.ServiceTypes)
	if len(serviceTypes) == 0 {
		return nil, apperrors.NewValidationError("at least one service type is required", map[string]any{"field": "service_types"})
	}
	priority := in.Priority
	switch priority {
	case "":
		priority = domain.TicketPriorityMedium
	case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh:
	default:
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"field": "priority", "value": string(priority)})
	}

	now := e.now()
	ticket := &domain.Ticket{
		ID:                e.newID(),
		SLN:               strings.TrimSpace(in.SLN),
		Title:             strings.TrimSpace(in.Title),
		CustomerName:      strings.TrimSpace(in.CustomerName),
		ProductID:         in.ProductID,
		Priority:          priority,
		CreatedBy:         actor.ID,
		CreatedRole:       actor.Role,
		CompanyID:         actor.CompanyID,
		UpstreamCompanyID: domain.HeadquartersID,
		Description:       strings.TrimSpace(in.Description),
		ServiceTypes:      serviceTypes,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	switch actor.Role {
	case domain.RoleSuperAdmin:
		if in.SalesOwner == nil {
			return nil, apperrors.NewValidationError("sales owner is required", map[string]any{"field": "sales_owner_id"})
		}
		if in.SalesOwner.Role != domain.RoleInternalSales {
			return nil, apperrors.NewValidationError("sales owner must be an InternalSales user", map[string]any{
				"field": "sales_owner_id",
				"value": in.SalesOwner.ID,
			})
		}
		ticket.Status = domain.TicketStatusPendingAssign
		ticket.SalesOwnerID = in.SalesOwner.ID
	case domain.RoleInternalSales:
		ticket.Status = domain.TicketStatusPendingAssign
		ticket.SalesOwnerID = actor.ID
	case domain.RolePartnerAdmin:
		ticket.Status = domain.TicketStatusPendingDispatch
		ticket.AssignedToCompanyID = actor.CompanyID
	case domain.RolePartnerStaff:
		ticket.Status = domain.TicketStatusPendingProcess
		ticket.AssignedToCompanyID = actor.CompanyID
		ticket.AssignedToUserID = actor.ID
	default:
		return nil, apperrors.NewPermissionDenied("role may not create tickets", "an authenticated portal role", map[string]any{
			"role": string(actor.Role),
		})
	}

	ticket.Logs = append(ticket.Logs, e.newLog(actor, "ticket created", now))
	if ticket.Description != "" {
		ticket.Messages = append(ticket.Messages, domain.TicketMessage{
			ID:        e.newID(),
			Sender:    domain.OperatorSender(actor),
			Text:      ticket.Description,
			CreatedAt: now,
		})
	}
	return ticket, nil
}

// AssignToCompany routes a PendingAssign ticket to a partner or headquarters.
func (e *Engine) AssignToCompany(actor *domain.User, ticket *domain.Ticket, company *domain.Company) error {
	rule, err := authorize(actor, ticket, ActionAssignCompany)
	if err != nil {
		return err
	}
	if company == nil || company.ID == "" {
		return apperrors.NewValidationError("target company is required", map[string]any{"field": "company_id"})
	}
	next := rule.next(ticket)
	ticket.AssignedToCompanyID = company.ID
	ticket.AssignedToUserID = ""
	ticket.UpstreamCompanyID = actor.CompanyID
	e.apply(actor, ticket, next,
		fmt.Sprintf("Ticket assigned to: %s", company.Name),
		fmt.Sprintf("assigned to company %s", company.Name))
	return nil
}

// AssignToStaff dispatches a ticket to an installer of the assigned company.
func (e *Engine) AssignToStaff(actor *domain.User, ticket *domain.Ticket, staff *domain.User) error {
	rule, err := authorize(actor, ticket, ActionAssignStaff)
	if err != nil {
		return err
	}
	if staff == nil {
		return apperrors.NewValidationError("target staff member is required", map[string]any{"field": "user_id"})
	}
	if staff.Role != domain.RolePartnerStaff || staff.CompanyID != ticket.AssignedToCompanyID {
		return apperrors.NewValidationError("user is not an installer of the assigned company", map[string]any{
			"field":      "user_id",
			"value":      staff.ID,
			"company_id": ticket.AssignedToCompanyID,
		})
	}
	next := rule.next(ticket)
	ticket.AssignedToUserID = staff.ID
	e.apply(actor, ticket, next,
		fmt.Sprintf("Dispatched to installer: %s", staff.Name),
		fmt.Sprintf("dispatched to %s", staff.Name))
	return nil
}

// StartWork moves a dispatched ticket into execution.
func (e *Engine) StartWork(actor *domain.User, ticket *domain.Ticket) error {
	rule, err := authorize(actor, ticket, ActionStartWork)
	if err != nil {
		return err
	}
	e.apply(actor, ticket, rule.next(ticket), "", "work started")
	return nil
}

// SubmitForAudit hands finished work to the company's internal audit.
func (e *Engine) SubmitForAudit(actor *domain.User, ticket *domain.Ticket) error {
	rule, err := authorize(actor, ticket, ActionSubmitAudit)
	if err != nil {
		return err
	}
	e.apply(actor, ticket, rule.next(ticket), "", "submitted for internal audit")
	return nil
}

// AuditDecision approves or rejects work pending internal audit. Approval
// archives in-house or partner-originated work and escalates delegated work
// to final review.
func (e *Engine) AuditDecision(actor *domain.User, ticket *domain.Ticket, approve bool, note string) error {
	action := ActionAuditReject
	if approve {
		action = ActionAuditApprove
	}
	rule, err := authorize(actor, ticket, action)
	if err != nil {
		return err
	}
	next := rule.next(ticket)
	defaultNote := NoteAuditRejected
	if approve {
		defaultNote = NoteAuditToFinalReview
		if next == domain.TicketStatusClosed {
			defaultNote = NoteAuditArchived
		}
	}
	summary := withNote(defaultNote, note)
	e.apply(actor, ticket, next, summary, summary)
	return nil
}

// FinalReviewDecision is the sales-side sign-off on delegated work.
func (e *Engine) FinalReviewDecision(actor *domain.User, ticket *domain.Ticket, approve bool, note string) error {
	action := ActionFinalReject
	defaultNote := NoteFinalReviewRejected
	if approve {
		action = ActionFinalApprove
		defaultNote = NoteFinalReviewApproved
	}
	rule, err := authorize(actor, ticket, action)
	if err != nil {
		return err
	}
	summary := withNote(defaultNote, note)
	e.apply(actor, ticket, rule.next(ticket), summary, summary)
	return nil
}

// AppendMessage adds an operator message without changing status.
func (e *Engine) AppendMessage(actor *domain.User, ticket *domain.Ticket, text string) error {
	if !CanView(actor, ticket) {
		return apperrors.NewPermissionDenied("ticket is not visible to actor", "visibility of the ticket", map[string]any{
			"ticket_id": ticket.ID,
		})
	}
	if ticket.IsClosed() {
		return apperrors.NewPermissionDenied("closed tickets are read-only", "a ticket that is not CLOSED", map[string]any{
			"ticket_id": ticket.ID,
			"status":    string(ticket.Status),
		})
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return apperrors.NewValidationError("message text is required", map[string]any{"field": "text"})
	}
	now := e.stamp(ticket)
	ticket.Messages = append(ticket.Messages, domain.TicketMessage{
		ID:        e.newID(),
		Sender:    domain.OperatorSender(actor),
		Text:      text,
		CreatedAt: now,
	})
	ticket.UpdatedAt = now
	ticket.Version++
	return nil
}

// RevertForPartnerRemoval sends an open ticket back to headquarters after its
// assigned partner was deleted. operator is the user who deleted the partner.
// Closed tickets are left untouched and reported as not reverted.
func (e *Engine) RevertForPartnerRemoval(operator *domain.User, ticket *domain.Ticket, companyName string) bool {
	if ticket.IsClosed() {
		return false
	}
	ticket.AssignedToCompanyID = ""
	ticket.AssignedToUserID = ""
	ticket.UpstreamCompanyID = domain.HeadquartersID
	e.apply(operator, ticket, domain.TicketStatusPendingAssign,
		partnerRemovedNote,
		fmt.Sprintf("partner %s removed, returned to headquarters", companyName))
	return true
}

// apply moves ticket to next and appends exactly one system message and one
// log entry. extra is appended to the status line when present.
func (e *Engine) apply(actor *domain.User, ticket *domain.Ticket, next domain.TicketStatus, extra, logAction string) {
	now := e.stamp(ticket)
	text := fmt.Sprintf("Status changed to: %s", next)
	if extra != "" {
		text = fmt.Sprintf("%s (%s)", text, extra)
	}
	ticket.Status = next
	ticket.Messages = append(ticket.Messages, domain.TicketMessage{
		ID:        e.newID(),
		Sender:    domain.SystemSender(),
		Text:      text,
		CreatedAt: now,
	})
	ticket.Logs = append(ticket.Logs, e.newLog(actor, logAction, now))
	ticket.UpdatedAt = now
	ticket.Version++
}

// stamp returns the mutation time, never earlier than the last update.
func (e *Engine) stamp(ticket *domain.Ticket) time.Time {
	now := e.now()
	if now.Before(ticket.UpdatedAt) {
		return ticket.UpdatedAt
	}
	return now
}

func (e *Engine) newLog(actor *domain.User, action string, at time.Time) domain.TicketLog {
	entry := domain.TicketLog{ID: e.newID(), Action: action, CreatedAt: at}
	if actor != nil {
		entry.OperatorID = actor.ID
		entry.OperatorName = actor.Name
		entry.OperatorRole = actor.Role
	}
	return entry
}

// Authorize reports whether actor may perform action on ticket right now.
// The error is the same PermissionError the matching engine call returns.
func Authorize(actor *domain.User, ticket *domain.Ticket, action Action) error {
	_, err := authorize(actor, ticket, action)
	return err
}

// authorize resolves the matrix entry for action, failing closed with a
// PermissionError that names what the caller is missing.
func authorize(actor *domain.User, ticket *domain.Ticket, action Action) (transitionRule, error) {
	if actor == nil {
		return transitionRule{}, apperrors.NewUnauthorized("actor required")
	}
	if !CanView(actor, ticket) {
		return transitionRule{}, apperrors.NewPermissionDenied("ticket is not visible to actor", "visibility of the ticket", map[string]any{
			"ticket_id": ticket.ID,
			"action":    string(action),
		})
	}
	rule, ok := transitions[transitionKey{ticket.Status, action}]
	if !ok {
		required := make([]string, 0, 2)
		for _, status := range sourceStatuses(action) {
			required = append(required, string(status))
		}
		return transitionRule{}, apperrors.NewPermissionDenied(
			fmt.Sprintf("%s is not allowed while ticket is %s", action, ticket.Status),
			"ticket status "+strings.Join(required, " or "),
			map[string]any{"status": string(ticket.Status), "action": string(action)},
		)
	}
	if !rule.gate.allow(actor, ticket) {
		return transitionRule{}, apperrors.NewPermissionDenied(
			fmt.Sprintf("%s requires %s", action, rule.gate.required),
			rule.gate.required,
			map[string]any{"status": string(ticket.Status), "action": string(action)},
		)
	}
	return rule, nil
}

func withNote(defaultNote, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return defaultNote
	}
	return fmt.Sprintf("%s: %s", defaultNote, note)
}

func normalizeServiceTypes(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		tag := strings.TrimSpace(raw)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
