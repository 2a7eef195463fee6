package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sunenergyxt/service-portal/internal/domain"
	"github.com/sunenergyxt/service-portal/internal/events"
	"github.com/sunenergyxt/service-portal/internal/observability"
	"github.com/sunenergyxt/service-portal/internal/repository"
	"github.com/sunenergyxt/service-portal/internal/workflow"
	apperrors "github.com/sunenergyxt/service-portal/pkg/util"
)

// PartnerService manages companies, including partner removal.
type PartnerService struct {
	store      repository.Store
	engine     *workflow.Engine
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

// PartnerDependencies bundles collaborators for the partner service.
type PartnerDependencies struct {
	Store      repository.Store
	Engine     *workflow.Engine
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
}

// CompanyUpdate carries optional company field changes.
type CompanyUpdate struct {
	Name        *string
	Address     *string
	Phone       *string
	ServiceArea *string
}

// PartnerRemoval reports the effects of deleting a partner company.
type PartnerRemoval struct {
	CompanyID       string   `json:"company_id"`
	UsersRemoved    int      `json:"users_removed"`
	TicketsReverted []string `json:"tickets_reverted"`
}

// NewPartnerService constructs the service.
func NewPartnerService(deps PartnerDependencies) *PartnerService {
	engine := deps.Engine
	if engine == nil {
		engine = workflow.NewEngine()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PartnerService{
		store:      deps.Store,
		engine:     engine,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ListCompanies returns every company to headquarters roles and only the
// actor's own company to partner roles.
func (s *PartnerService) ListCompanies(ctx context.Context, actor *domain.User) ([]domain.Company, error) {
	if actor.Role.IsHeadquarters() {
		companies, err := s.store.Companies().List(ctx)
		if err != nil {
			return nil, storeError(err, "company", "")
		}
		return companies, nil
	}
	company, err := s.store.Companies().GetByID(ctx, actor.CompanyID)
	if err != nil {
		return nil, storeError(err, "company", actor.CompanyID)
	}
	return []domain.Company{*company}, nil
}

// GetCompany returns one company if actor may see it.
func (s *PartnerService) GetCompany(ctx context.Context, actor *domain.User, companyID string) (*domain.Company, error) {
	if !actor.Role.IsHeadquarters() && actor.CompanyID != companyID {
		return nil, apperrors.NewPermissionDenied("company is not visible to actor", "InternalSales, SuperAdmin, or membership of the company", nil)
	}
	company, err := s.store.Companies().GetByID(ctx, companyID)
	if err != nil {
		return nil, storeError(err, "company", companyID)
	}
	return company, nil
}

// UpdateCompany edits company details. Headquarters roles may edit any
// company; a PartnerAdmin may edit only its own.
func (s *PartnerService) UpdateCompany(ctx context.Context, actor *domain.User, companyID string, update CompanyUpdate) (*domain.Company, error) {
	allowed := actor.Role.IsHeadquarters() ||
		(actor.Role == domain.RolePartnerAdmin && actor.CompanyID == companyID)
	if !allowed {
		return nil, apperrors.NewPermissionDenied("actor may not edit this company",
			"InternalSales, SuperAdmin, or PartnerAdmin of the company", map[string]any{"company_id": companyID})
	}

	company, err := s.store.Companies().GetByID(ctx, companyID)
	if err != nil {
		return nil, storeError(err, "company", companyID)
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("company name must not be empty", map[string]any{"field": "name"})
		}
		company.Name = name
	}
	if update.Address != nil {
		company.Address = strings.TrimSpace(*update.Address)
	}
	if update.Phone != nil {
		company.Phone = strings.TrimSpace(*update.Phone)
	}
	if update.ServiceArea != nil {
		company.ServiceArea = strings.TrimSpace(*update.ServiceArea)
	}
	company.UpdatedAt = s.now()

	if err := s.store.Companies().Update(ctx, company); err != nil {
		return nil, storeError(err, "company", companyID)
	}
	s.logger.Info("company updated", zap.String("company_id", companyID), zap.String("operator_id", actor.ID))
	return company, nil
}

// DeletePartnerCompany removes a partner, its users, and sends its open
// tickets back to headquarters. All three effects commit together. Closed
// tickets keep their assignment as history.
func (s *PartnerService) DeletePartnerCompany(ctx context.Context, actor *domain.User, companyID string) (*PartnerRemoval, error) {
	if !actor.Role.IsHeadquarters() {
		return nil, apperrors.NewPermissionDenied("actor may not delete partners", "InternalSales or SuperAdmin", map[string]any{
			"company_id": companyID,
		})
	}
	if companyID == domain.HeadquartersID {
		return nil, apperrors.NewValidationError("headquarters cannot be deleted", map[string]any{"company_id": companyID})
	}

	var (
		company  *domain.Company
		removal  = &PartnerRemoval{CompanyID: companyID, TicketsReverted: []string{}}
		reverted []events.Event
	)
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		company, err = tx.Companies().GetByID(ctx, companyID)
		if err != nil {
			return storeError(err, "company", companyID)
		}
		if err := tx.Companies().Delete(ctx, companyID); err != nil {
			return storeError(err, "company", companyID)
		}
		removal.UsersRemoved, err = tx.Users().DeleteByCompany(ctx, companyID)
		if err != nil {
			return storeError(err, "user", "")
		}

		open, err := tx.Tickets().ListOpenByAssignedCompany(ctx, companyID)
		if err != nil {
			return storeError(err, "ticket", "")
		}
		for i := range open {
			ticket := &open[i]
			previous := ticket.Version
			oldStatus := ticket.Status
			if !s.engine.RevertForPartnerRemoval(actor, ticket, company.Name) {
				continue
			}
			if err := tx.Tickets().Update(ctx, ticket, previous); err != nil {
				return storeError(err, "ticket", ticket.ID)
			}
			removal.TicketsReverted = append(removal.TicketsReverted, ticket.ID)
			reverted = append(reverted, events.New(events.EventTicketReverted, ticket.ID, actor, events.TicketRevertedPayload{
				RemovedCompanyID: companyID,
				OldStatus:        oldStatus,
			}))
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("partner deletion failed", zap.String("company_id", companyID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("partner deleted",
		zap.String("company_id", companyID),
		zap.String("operator_id", actor.ID),
		zap.Int("users_removed", removal.UsersRemoved),
		zap.Strings("tickets_reverted", removal.TicketsReverted))
	for _, event := range reverted {
		s.metrics.RecordTransition("", string(domain.TicketStatusPendingAssign))
		publishEvent(ctx, s.dispatcher, s.logger, s.metrics, event)
	}
	publishEvent(ctx, s.dispatcher, s.logger, s.metrics, events.New(events.EventPartnerRemoved, "", actor, events.PartnerRemovedPayload{
		CompanyID:       companyID,
		CompanyName:     company.Name,
		UsersRemoved:    removal.UsersRemoved,
		TicketsReverted: removal.TicketsReverted,
	}))
	return removal, nil
}
