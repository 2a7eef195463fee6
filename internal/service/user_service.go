package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sunenergyxt/service-portal/internal/auth"
	"github.com/sunenergyxt/service-portal/internal/domain"
	"github.com/sunenergyxt/service-portal/internal/repository"
	apperrors "github.com/sunenergyxt/service-portal/pkg/util"
)

// UserService administers portal accounts.
type UserService struct {
	store           repository.Store
	logger          *zap.Logger
	bcryptCost      int
	defaultPassword string
	now             func() time.Time
	newID           func() string
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	Store           repository.Store
	Logger          *zap.Logger
	BcryptCost      int
	DefaultPassword string
}

// UserInput describes a new account.
type UserInput struct {
	Name      string
	Email     string
	Password  string
	Role      domain.Role
	CompanyID string
}

// ProfileUpdate carries optional profile changes.
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		store:           deps.Store,
		logger:          logger,
		bcryptCost:      deps.BcryptCost,
		defaultPassword: deps.DefaultPassword,
		now:             func() time.Time { return time.Now().UTC() },
		newID:           uuid.NewString,
	}
}

// CanManage reports whether actor may create, edit, reset, or delete an
// account with the given role in the given company.
//
// Headquarters holds internal roles and its own installers; a PartnerAdmin
// never belongs to headquarters. SuperAdmin manages internal accounts and
// everything InternalSales manages. InternalSales manages headquarters
// installers and every partner account. PartnerAdmin manages installers of
// its own company.
func CanManage(actor *domain.User, role domain.Role, companyID string) bool {
	if actor == nil {
		return false
	}
	atHeadquarters := companyID == domain.HeadquartersID
	switch actor.Role {
	case domain.RoleSuperAdmin:
		if atHeadquarters {
			return role == domain.RoleSuperAdmin || role == domain.RoleInternalSales || role == domain.RolePartnerStaff
		}
		return role == domain.RolePartnerAdmin || role == domain.RolePartnerStaff
	case domain.RoleInternalSales:
		if atHeadquarters {
			return role == domain.RolePartnerStaff
		}
		return role == domain.RolePartnerAdmin || role == domain.RolePartnerStaff
	case domain.RolePartnerAdmin:
		return role == domain.RolePartnerStaff && companyID == actor.CompanyID
	}
	return false
}

// CreateUser adds an account. An empty password falls back to the
// configured initial secret.
func (s *UserService) CreateUser(ctx context.Context, actor *domain.User, input UserInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("name and email are required", map[string]any{"fields": []string{"name", "email"}})
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"field": "role", "value": string(input.Role)})
	}
	companyID := input.CompanyID
	if companyID == "" && actor != nil && actor.Role == domain.RolePartnerAdmin {
		companyID = actor.CompanyID
	}
	if input.Role.IsHeadquarters() && companyID != domain.HeadquartersID {
		return nil, apperrors.NewValidationError("internal roles belong to headquarters", map[string]any{
			"field": "company_id",
			"value": companyID,
		})
	}
	if input.Role == domain.RolePartnerAdmin && companyID == domain.HeadquartersID {
		return nil, apperrors.NewValidationError("partner admins belong to a partner company", map[string]any{
			"field": "company_id",
			"value": companyID,
		})
	}
	if !CanManage(actor, input.Role, companyID) {
		return nil, s.denied(actor, "create", input.Role, companyID)
	}
	if _, err := s.store.Companies().GetByID(ctx, companyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewValidationError("company does not exist", map[string]any{"field": "company_id", "value": companyID})
		}
		return nil, storeError(err, "company", companyID)
	}

	password := input.Password
	if password == "" {
		password = s.defaultPassword
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewValidationError("password must not be empty", map[string]any{"field": "password"})
	}

	now := s.now()
	user := &domain.User{
		ID:           s.newID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		CompanyID:    companyID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		return nil, storeError(err, "user", email)
	}
	s.logger.Info("user created",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("company_id", user.CompanyID),
		zap.String("operator_id", actor.ID))
	return user, nil
}

// ListUsers returns accounts visible to actor. Partner roles only see their
// own company regardless of the requested filter.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, filter repository.UserFilter) ([]domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !actor.Role.IsHeadquarters() {
		filter.CompanyID = actor.CompanyID
	}
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role filter", map[string]any{"field": "role", "value": string(filter.Role)})
	}
	users, err := s.store.Users().List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "user", "")
	}
	return users, nil
}

// GetUser returns one account if actor may see it.
func (s *UserService) GetUser(ctx context.Context, actor *domain.User, userID string) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user", userID)
	}
	if actor.ID != user.ID && !actor.Role.IsHeadquarters() && actor.CompanyID != user.CompanyID {
		return nil, apperrors.NewPermissionDenied("user is not visible to actor", "InternalSales, SuperAdmin, or membership of the user's company", nil)
	}
	return user, nil
}

// UpdateProfile changes name or email. Users may always edit themselves.
func (s *UserService) UpdateProfile(ctx context.Context, actor *domain.User, userID string, update ProfileUpdate) (*domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user", userID)
	}
	if actor.ID != user.ID && !CanManage(actor, user.Role, user.CompanyID) {
		return nil, s.denied(actor, "edit", user.Role, user.CompanyID)
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name must not be empty", map[string]any{"field": "name"})
		}
		user.Name = name
	}
	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if email == "" {
			return nil, apperrors.NewValidationError("email must not be empty", map[string]any{"field": "email"})
		}
		user.Email = email
	}
	user.UpdatedAt = s.now()
	if err := s.store.Users().Update(ctx, user); err != nil {
		return nil, storeError(err, "user", userID)
	}
	return user, nil
}

// ResetPassword sets a new secret for a managed account. Users change their
// own secret through ChangePassword.
func (s *UserService) ResetPassword(ctx context.Context, actor *domain.User, userID, newPassword string) error {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return storeError(err, "user", userID)
	}
	if actor.ID == user.ID || !CanManage(actor, user.Role, user.CompanyID) {
		return s.denied(actor, "reset password of", user.Role, user.CompanyID)
	}
	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return err
	}
	s.logger.Info("password reset", zap.String("user_id", userID), zap.String("operator_id", actor.ID))
	return nil
}

// ChangePassword lets actor replace its own secret after proving the current one.
func (s *UserService) ChangePassword(ctx context.Context, actor *domain.User, currentPassword, newPassword string) error {
	user, err := s.store.Users().GetByID(ctx, actor.ID)
	if err != nil {
		return storeError(err, "user", actor.ID)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("current password does not match")
	}
	return s.setPassword(ctx, user, newPassword)
}

// DeleteUser removes an account. Tickets referencing the user are left as is.
func (s *UserService) DeleteUser(ctx context.Context, actor *domain.User, userID string) error {
	if actor.ID == userID {
		return apperrors.NewValidationError("users cannot delete themselves", map[string]any{"id": userID})
	}
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return storeError(err, "user", userID)
	}
	if !CanManage(actor, user.Role, user.CompanyID) {
		return s.denied(actor, "delete", user.Role, user.CompanyID)
	}
	if err := s.store.Users().Delete(ctx, userID); err != nil {
		return storeError(err, "user", userID)
	}
	s.logger.Info("user deleted", zap.String("user_id", userID), zap.String("operator_id", actor.ID))
	return nil
}

func (s *UserService) setPassword(ctx context.Context, user *domain.User, password string) error {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.NewValidationError("password must not be empty", map[string]any{"field": "password"})
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now()
	if err := s.store.Users().Update(ctx, user); err != nil {
		return storeError(err, "user", user.ID)
	}
	return nil
}

func (s *UserService) denied(actor *domain.User, verb string, role domain.Role, companyID string) error {
	s.logger.Warn("user administration denied",
		zap.String("operator_id", actorID(actor)),
		zap.String("verb", verb),
		zap.String("target_role", string(role)),
		zap.String("target_company_id", companyID))
	return apperrors.NewPermissionDenied("actor may not "+verb+" this account",
		"SuperAdmin for internal accounts; SuperAdmin or InternalSales for headquarters installers and partner accounts; PartnerAdmin for its own installers",
		map[string]any{"role": string(role), "company_id": companyID})
}
