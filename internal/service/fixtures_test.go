package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sunenergyxt/service-portal/internal/auth"
	"github.com/sunenergyxt/service-portal/internal/domain"
	"github.com/sunenergyxt/service-portal/internal/events"
	"github.com/sunenergyxt/service-portal/internal/repository"
	"github.com/sunenergyxt/service-portal/internal/workflow"
)

const partnerID = "c2"

var (
	superAdmin  = &domain.User{ID: "u0", Name: "Root", Email: "root@sunenergyxt.com", Role: domain.RoleSuperAdmin, CompanyID: domain.HeadquartersID}
	alice       = &domain.User{ID: "u1", Name: "Alice", Email: "alice@sunenergyxt.com", Role: domain.RoleInternalSales, CompanyID: domain.HeadquartersID}
	bob         = &domain.User{ID: "u5", Name: "Bob", Email: "bob@sunenergyxt.com", Role: domain.RoleInternalSales, CompanyID: domain.HeadquartersID}
	ian         = &domain.User{ID: "u3", Name: "Ian", Email: "ian@fastfix.com", Role: domain.RolePartnerAdmin, CompanyID: partnerID}
	sam         = &domain.User{ID: "u4", Name: "Sam", Email: "sam@fastfix.com", Role: domain.RolePartnerStaff, CompanyID: partnerID}
	hqInstaller = &domain.User{ID: "u7", Name: "Make", Email: "make@sunenergyxt.com", Role: domain.RolePartnerStaff, CompanyID: domain.HeadquartersID}
)

// recorder collects every published event.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type harness struct {
	store         *repository.MemoryStore
	engine        *workflow.Engine
	events        *recorder
	tickets       *TicketService
	partners      *PartnerService
	registrations *RegistrationService
	users         *UserService
	auth          *AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, c := range []*domain.Company{
		{ID: domain.HeadquartersID, Name: "SunEnergyXT HQ", CreatedAt: created, UpdatedAt: created},
		{ID: partnerID, Name: "FastFix Energy Services", CreatedAt: created, UpdatedAt: created},
	} {
		require.NoError(t, store.Companies().Create(ctx, c))
	}
	hash, err := auth.HashPassword("123", bcrypt.MinCost)
	require.NoError(t, err)
	for _, u := range []*domain.User{superAdmin, alice, bob, ian, sam, hqInstaller} {
		cp := u.Clone()
		cp.PasswordHash = hash
		require.NoError(t, store.Users().Create(ctx, cp))
	}

	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	engine := workflow.NewEngine(
		workflow.WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
		workflow.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
	)

	rec := &recorder{}
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.SubscribeAll(rec.handle)

	return &harness{
		store:  store,
		engine: engine,
		events: rec,
		tickets: NewTicketService(TicketDependencies{
			Store: store, Engine: engine, Dispatcher: dispatcher,
		}),
		partners: NewPartnerService(PartnerDependencies{
			Store: store, Engine: engine, Dispatcher: dispatcher,
		}),
		registrations: NewRegistrationService(RegistrationDependencies{
			Store: store, Dispatcher: dispatcher, BcryptCost: bcrypt.MinCost, DefaultPassword: "123",
		}),
		users: NewUserService(UserDependencies{
			Store: store, BcryptCost: bcrypt.MinCost, DefaultPassword: "123",
		}),
		auth: NewAuthService(AuthDependencies{
			UserRepo:     store.Users(),
			TokenManager: auth.NewTokenManager("test-secret", 5),
		}),
	}
}

func ticketInput() TicketCreateInput {
	return TicketCreateInput{
		SLN:          "SLN-001",
		Title:        "Inverter offline",
		CustomerName: "John Doe",
		ProductID:    "p1",
		Description:  "Unit shows fault code E04",
		ServiceTypes: []string{domain.ServiceTypeNewInstallation},
	}
}

// dispatched creates a ticket as Alice and routes it to the partner.
func (h *harness) dispatched(t *testing.T) *domain.Ticket {
	t.Helper()
	ctx := context.Background()
	ticket, err := h.tickets.CreateTicket(ctx, alice, ticketInput())
	require.NoError(t, err)
	ticket, err = h.tickets.AssignToCompany(ctx, alice, ticket.ID, partnerID, 0)
	require.NoError(t, err)
	return ticket
}
