package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sunenergyxt/service-portal/internal/domain"
)

type memoryState struct {
	tickets       map[string]*domain.Ticket
	users         map[string]*domain.User
	companies     map[string]*domain.Company
	registrations map[string]*domain.RegistrationRequest
}

func newMemoryState() *memoryState {
	return &memoryState{
		tickets:       map[string]*domain.Ticket{},
		users:         map[string]*domain.User{},
		companies:     map[string]*domain.Company{},
		registrations: map[string]*domain.RegistrationRequest{},
	}
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		tickets:       make(map[string]*domain.Ticket, len(s.tickets)),
		users:         make(map[string]*domain.User, len(s.users)),
		companies:     make(map[string]*domain.Company, len(s.companies)),
		registrations: make(map[string]*domain.RegistrationRequest, len(s.registrations)),
	}
	for k, v := range s.tickets {
		c.tickets[k] = v.Clone()
	}
	for k, v := range s.users {
		c.users[k] = v.Clone()
	}
	for k, v := range s.companies {
		c.companies[k] = v.Clone()
	}
	for k, v := range s.registrations {
		c.registrations[k] = v.Clone()
	}
	return c
}

// MemoryStore keeps every entity in maps keyed by id. Values are cloned on
// the way in and out so callers never share memory with the store.
type MemoryStore struct {
	mu    *sync.RWMutex
	state **memoryState
	// inTx marks a transactional view whose caller already holds mu.
	inTx bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	state := newMemoryState()
	return &MemoryStore{mu: &sync.RWMutex{}, state: &state}
}

func (s *MemoryStore) Tickets() TicketRepository             { return memoryTickets{s} }
func (s *MemoryStore) Users() UserRepository                 { return memoryUsers{s} }
func (s *MemoryStore) Companies() CompanyRepository          { return memoryCompanies{s} }
func (s *MemoryStore) Registrations() RegistrationRepository { return memoryRegistrations{s} }

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// WithinTx runs fn on a private copy of the state under the write lock and
// swaps it in only on success. Nested calls join the outer transaction.
func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	working := (*s.state).clone()
	tx := &MemoryStore{mu: s.mu, state: &working, inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	*s.state = working
	return nil
}

func (s *MemoryStore) read(ctx context.Context, fn func(st *memoryState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.inTx {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	return fn(*s.state)
}

func (s *MemoryStore) write(ctx context.Context, fn func(st *memoryState) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(*s.state)
}

type memoryTickets struct{ s *MemoryStore }

func (r memoryTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	return r.s.write(ctx, func(st *memoryState) error {
		if _, exists := st.tickets[ticket.ID]; exists {
			return ErrDuplicate
		}
		st.tickets[ticket.ID] = ticket.Clone()
		return nil
	})
}

func (r memoryTickets) Update(ctx context.Context, ticket *domain.Ticket, expectedVersion int64) error {
	return r.s.write(ctx, func(st *memoryState) error {
		current, ok := st.tickets[ticket.ID]
		if !ok {
			return ErrNotFound
		}
		if current.Version != expectedVersion {
			return ErrVersionConflict
		}
		st.tickets[ticket.ID] = ticket.Clone()
		return nil
	})
}

func (r memoryTickets) Delete(ctx context.Context, id string) error {
	return r.s.write(ctx, func(st *memoryState) error {
		if _, ok := st.tickets[id]; !ok {
			return ErrNotFound
		}
		delete(st.tickets, id)
		return nil
	})
}

func (r memoryTickets) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var out *domain.Ticket
	err := r.s.read(ctx, func(st *memoryState) error {
		t, ok := st.tickets[id]
		if !ok {
			return ErrNotFound
		}
		out = t.Clone()
		return nil
	})
	return out, err
}

func (r memoryTickets) List(ctx context.Context) ([]domain.Ticket, error) {
	return r.collect(ctx, func(*domain.Ticket) bool { return true })
}

func (r memoryTickets) ListOpenByAssignedCompany(ctx context.Context, companyID string) ([]domain.Ticket, error) {
	return r.collect(ctx, func(t *domain.Ticket) bool {
		return t.AssignedToCompanyID == companyID && !t.IsClosed()
	})
}

func (r memoryTickets) collect(ctx context.Context, keep func(*domain.Ticket) bool) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.s.read(ctx, func(st *memoryState) error {
		out = make([]domain.Ticket, 0, len(st.tickets))
		for _, t := range st.tickets {
			if keep(t) {
				out = append(out, *t.Clone())
			}
		}
		return nil
	})
	sortTickets(out)
	return out, err
}

// sortTickets orders newest first with id as tie-breaker, matching the SQL
// store's ORDER BY.
func sortTickets(tickets []domain.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		if !tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
		}
		return tickets[i].ID < tickets[j].ID
	})
}

type memoryUsers struct{ s *MemoryStore }

func emailTaken(st *memoryState, email, exceptID string) bool {
	for id, u := range st.users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r memoryUsers) Create(ctx context.Context, user *domain.User) error {
	return r.s.write(ctx, func(st *memoryState) error {
		if _, exists := st.users[user.ID]; exists {
			return ErrDuplicate
		}
		if emailTaken(st, user.Email, "") {
			return ErrDuplicate
		}
		st.users[user.ID] = user.Clone()
		return nil
	})
}

func (r memoryUsers) Update(ctx context.Context, user *domain.User) error {
	return r.s.write(ctx, func(st *memoryState) error {
		if _, ok := st.users[user.ID]; !ok {
			return ErrNotFound
		}
		if emailTaken(st, user.Email, user.ID) {
			return ErrDuplicate
		}
		st.users[user.ID] = user.Clone()
		return nil
	})
}

func (r memoryUsers) Delete(ctx context.Context, id string) error {
	return r.s.write(ctx, func(st *memoryState) error {
		if _, ok := st.users[id]; !ok {
			return ErrNotFound
		}
		delete(st.users, id)
		return nil
	})
}

func (r memoryUsers) DeleteByCompany(ctx context.Context, companyID string) (int, error) {
	removed := 0
	err := r.s.write(ctx, func(st *memoryState) error {
		for id, u := range st.users {
			if u.CompanyID == companyID {
				delete(st.users, id)
				removed++
			}
		}
		return nil
	})
	return removed, err
}

func (r memoryUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var out *domain.User
	err := r.s.read(ctx, func(st *memoryState) error {
		u, ok := st.users[id]
		if !ok {
			return ErrNotFound
		}
		out = u.Clone()
		return nil
	})
	return out, err
}

func (r memoryUsers) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.s.read(ctx, func(st *memoryState) error {
		for _, u := range st.users {
			if strings.EqualFold(u.Email, email) {
				out = u.Clone()
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

func (r memoryUsers) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	var out []domain.User
	err := r.s.read(ctx, func(st *memoryState) error {
		out = make([]domain.User, 0, len(st.users))
		for _, u := range st.users {
			if filter.CompanyID != "" && u.CompanyID != filter.CompanyID {
				continue
			}
			if filter.Role != "" && u.Role != filter.Role {
				continue
			}
			out = append(out, *u.Clone())
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

type memoryCompanies struct{ s *MemoryStore }

func (r memoryCompanies) Create(ctx context.Context, company *domain.Company) error {
	return r.s.write(ctx, func(st *memoryState) error {
		if _, exists := st.companies[company.ID]; exists {
			return ErrDuplicate
		}
		st.companies[company.ID] = company.Clone()
		return nil
	})
}

func (r memoryCompanies) Update(ctx context.Context, company *domain.Company) error {
	return r.s.write(ctx, func(st *memoryState) error {
		if _, ok := st.companies[company.ID]; !ok {
			return ErrNotFound
		}
		st.companies[company.ID] = company.Clone()
		return nil
	})
}

func (r memoryCompanies) Delete(ctx context.Context, id string) error {
	return r.s.write(ctx, func(st *memoryState) error {
		if _, ok := st.companies[id]; !ok {
			return ErrNotFound
		}
		delete(st.companies, id)
		return nil
	})
}

func (r memoryCompanies) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	var out *domain.Company
	err := r.s.read(ctx, func(st *memoryState) error {
		c, ok := st.companies[id]
		if !ok {
			return ErrNotFound
		}
		out = c.Clone()
		return nil
	})
	return out, err
}

func (r memoryCompanies) List(ctx context.Context) ([]domain.Company, error) {
	var out []domain.Company
	err := r.s.read(ctx, func(st *memoryState) error {
		out = make([]domain.Company, 0, len(st.companies))
		for _, c := range st.companies {
			out = append(out, *c.Clone())
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

type memoryRegistrations struct{ s *MemoryStore }

func (r memoryRegistrations) Create(ctx context.Context, req *domain.RegistrationRequest) error {
	return r.s.write(ctx, func(st *memoryState) error {
		if _, exists := st.registrations[req.ID]; exists {
			return ErrDuplicate
		}
		st.registrations[req.ID] = req.Clone()
		return nil
	})
}

func (r memoryRegistrations) Update(ctx context.Context, req *domain.RegistrationRequest) error {
	return r.s.write(ctx, func(st *memoryState) error {
		if _, ok := st.registrations[req.ID]; !ok {
			return ErrNotFound
		}
		st.registrations[req.ID] = req.Clone()
		return nil
	})
}

func (r memoryRegistrations) GetByID(ctx context.Context, id string) (*domain.RegistrationRequest, error) {
	var out *domain.RegistrationRequest
	err := r.s.read(ctx, func(st *memoryState) error {
		req, ok := st.registrations[id]
		if !ok {
			return ErrNotFound
		}
		out = req.Clone()
		return nil
	})
	return out, err
}

func (r memoryRegistrations) List(ctx context.Context, status domain.RegistrationStatus) ([]domain.RegistrationRequest, error) {
	var out []domain.RegistrationRequest
	err := r.s.read(ctx, func(st *memoryState) error {
		out = make([]domain.RegistrationRequest, 0, len(st.registrations))
		for _, req := range st.registrations {
			if status != "" && req.Status != status {
				continue
			}
			out = append(out, *req.Clone())
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestDate.Equal(out[j].RequestDate) {
			return out[i].RequestDate.After(out[j].RequestDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}
