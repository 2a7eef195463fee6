package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sunenergyxt/service-portal/internal/auth"
	"github.com/sunenergyxt/service-portal/internal/domain"
	"github.com/sunenergyxt/service-portal/internal/events"
	"github.com/sunenergyxt/service-portal/internal/observability"
	"github.com/sunenergyxt/service-portal/internal/repository"
	apperrors "github.com/sunenergyxt/service-portal/pkg/util"
)

const (
	pendingAddress     = "Address pending"
	pendingServiceArea = "Service area pending"
)

// RegistrationService handles public partner applications and their review.
type RegistrationService struct {
	store           repository.Store
	dispatcher      events.Dispatcher
	logger          *zap.Logger
	metrics         *observability.Metrics
	bcryptCost      int
	defaultPassword string
	now             func() time.Time
	newID           func() string
}

// RegistrationDependencies bundles collaborators for the registration service.
type RegistrationDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	BcryptCost int
	// DefaultPassword is the initial secret of the PartnerAdmin created on approval.
	DefaultPassword string
}

// RegistrationInput is the public application form.
type RegistrationInput struct {
	CompanyName   string
	ContactPerson string
	Email         string
	Phone         string
	Type          domain.PartnerType
}

// NewRegistrationService constructs the service.
func NewRegistrationService(deps RegistrationDependencies) *RegistrationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		store:           deps.Store,
		dispatcher:      deps.Dispatcher,
		logger:          logger,
		metrics:         deps.Metrics,
		bcryptCost:      deps.BcryptCost,
		defaultPassword: deps.DefaultPassword,
		now:             func() time.Time { return time.Now().UTC() },
		newID:           uuid.NewString,
	}
}

// Submit records a pending application. No authentication is required.
func (s *RegistrationService) Submit(ctx context.Context, input RegistrationInput) (*domain.RegistrationRequest, error) {
	req := &domain.RegistrationRequest{
		ID:            s.newID(),
		CompanyName:   strings.TrimSpace(input.CompanyName),
		ContactPerson: strings.TrimSpace(input.ContactPerson),
		Email:         strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:         strings.TrimSpace(input.Phone),
		Type:          input.Type,
		RequestDate:   s.now(),
		Status:        domain.RegistrationStatusPending,
	}
	missing := []string{}
	if req.CompanyName == "" {
		missing = append(missing, "company_name")
	}
	if req.ContactPerson == "" {
		missing = append(missing, "contact_person")
	}
	if req.Email == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("required fields are missing", map[string]any{"fields": missing})
	}
	switch req.Type {
	case "", domain.PartnerTypeDistributor, domain.PartnerTypeInstaller:
	default:
		return nil, apperrors.NewValidationError("unknown partner type", map[string]any{"field": "type", "value": string(req.Type)})
	}

	if err := s.store.Registrations().Create(ctx, req); err != nil {
		return nil, storeError(err, "registration", req.ID)
	}
	s.logger.Info("registration submitted", zap.String("request_id", req.ID), zap.String("company_name", req.CompanyName))
	return req, nil
}

// List returns applications, optionally narrowed to one status. Headquarters only.
func (s *RegistrationService) List(ctx context.Context, actor *domain.User, status domain.RegistrationStatus) ([]domain.RegistrationRequest, error) {
	if err := requireHeadquarters(actor, "list registrations"); err != nil {
		return nil, err
	}
	switch status {
	case "", domain.RegistrationStatusPending, domain.RegistrationStatusApproved, domain.RegistrationStatusRejected:
	default:
		return nil, apperrors.NewValidationError("unknown registration status", map[string]any{"field": "status", "value": string(status)})
	}
	reqs, err := s.store.Registrations().List(ctx, status)
	if err != nil {
		return nil, storeError(err, "registration", "")
	}
	return reqs, nil
}

// Decide approves or rejects a pending application. Approval creates the
// partner company and its first PartnerAdmin in the same transaction as the
// status change. A request can be decided only once.
func (s *RegistrationService) Decide(ctx context.Context, actor *domain.User, requestID string, approve bool) (*domain.RegistrationRequest, error) {
	if err := requireHeadquarters(actor, "decide registrations"); err != nil {
		return nil, err
	}

	var hash string
	if approve {
		var err error
		hash, err = auth.HashPassword(s.defaultPassword, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	var decided *domain.RegistrationRequest
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		req, err := tx.Registrations().GetByID(ctx, requestID)
		if err != nil {
			return storeError(err, "registration", requestID)
		}
		if req.IsDecided() {
			return apperrors.NewConflict("registration request was already decided", map[string]any{
				"id":     requestID,
				"status": string(req.Status),
			})
		}

		now := s.now()
		if approve {
			company := &domain.Company{
				ID:          s.newID(),
				Name:        req.CompanyName,
				Address:     pendingAddress,
				Phone:       req.Phone,
				ServiceArea: pendingServiceArea,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.Companies().Create(ctx, company); err != nil {
				return storeError(err, "company", company.ID)
			}
			admin := &domain.User{
				ID:           s.newID(),
				Name:         req.ContactPerson,
				Email:        req.Email,
				PasswordHash: hash,
				Role:         domain.RolePartnerAdmin,
				CompanyID:    company.ID,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := tx.Users().Create(ctx, admin); err != nil {
				return storeError(err, "user", req.Email)
			}
			req.Status = domain.RegistrationStatusApproved
			req.CompanyID = company.ID
			req.AdminUserID = admin.ID
		} else {
			req.Status = domain.RegistrationStatusRejected
		}
		req.DecidedBy = actor.ID
		req.DecidedAt = &now

		if err := tx.Registrations().Update(ctx, req); err != nil {
			return storeError(err, "registration", requestID)
		}
		decided = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("registration decided",
		zap.String("request_id", decided.ID),
		zap.String("status", string(decided.Status)),
		zap.String("operator_id", actor.ID))
	publishEvent(ctx, s.dispatcher, s.logger, s.metrics, events.New(events.EventRegistrationDecided, "", actor, events.RegistrationDecidedPayload{
		RequestID:   decided.ID,
		Status:      decided.Status,
		CompanyID:   decided.CompanyID,
		AdminUserID: decided.AdminUserID,
	}))
	return decided, nil
}

func requireHeadquarters(actor *domain.User, operation string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if !actor.Role.IsHeadquarters() {
		return apperrors.NewPermissionDenied("actor may not "+operation, "InternalSales or SuperAdmin", map[string]any{
			"role": string(actor.Role),
		})
	}
	return nil
}
