package repository

import (
	"context"
	"errors"

	"github.com/sunenergyxt/service-portal/internal/domain"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a compare-and-swap write sees a
	// different stored version than the caller expected.
	ErrVersionConflict = errors.New("version conflict")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate record")
)

// TicketRepository persists ticket aggregates including their message and
// log history.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update replaces the stored ticket only if its version still equals
	// expectedVersion.
	Update(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context) ([]domain.Ticket, error)
	ListOpenByAssignedCompany(ctx context.Context, companyID string) ([]domain.Ticket, error)
}

// UserFilter narrows user listings. Zero values match everything.
type UserFilter struct {
	CompanyID string
	Role      domain.Role
}

// UserRepository defines persistence access for portal accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	DeleteByCompany(ctx context.Context, companyID string) (int, error)
}

// CompanyRepository persists headquarters and partner companies.
type CompanyRepository interface {
	Create(ctx context.Context, company *domain.Company) error
	Update(ctx context.Context, company *domain.Company) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Company, error)
	List(ctx context.Context) ([]domain.Company, error)
}

// RegistrationRepository persists partner applications.
type RegistrationRepository interface {
	Create(ctx context.Context, req *domain.RegistrationRequest) error
	Update(ctx context.Context, req *domain.RegistrationRequest) error
	GetByID(ctx context.Context, id string) (*domain.RegistrationRequest, error)
	List(ctx context.Context, status domain.RegistrationStatus) ([]domain.RegistrationRequest, error)
}

// Store groups the repositories and provides atomic multi-entity writes.
type Store interface {
	Tickets() TicketRepository
	Users() UserRepository
	Companies() CompanyRepository
	Registrations() RegistrationRepository
	// WithinTx runs fn against a transactional view of the store. Writes made
	// through tx become visible together when fn returns nil and are discarded
	// otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
