// Package seed loads YAML fixtures into an empty entity store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sunenergyxt/service-portal/internal/auth"
	"github.com/sunenergyxt/service-portal/internal/domain"
	"github.com/sunenergyxt/service-portal/internal/repository"
)

// Demo selects the built-in fixture instead of a file path.
const Demo = "demo"

//go:embed demo.yaml
var demoFixture []byte

// Fixture is the YAML document shape.
type Fixture struct {
	Password      string         `yaml:"password"`
	Companies     []Company      `yaml:"companies"`
	Users         []User         `yaml:"users"`
	Tickets       []Ticket       `yaml:"tickets"`
	Registrations []Registration `yaml:"registrations"`
}

type Company struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Address     string `yaml:"address"`
	Phone       string `yaml:"phone"`
	ServiceArea string `yaml:"service_area"`
}

type User struct {
	ID        string      `yaml:"id"`
	Name      string      `yaml:"name"`
	Email     string      `yaml:"email"`
	Password  string      `yaml:"password"`
	Role      domain.Role `yaml:"role"`
	CompanyID string      `yaml:"company_id"`
}

type Message struct {
	ID       string    `yaml:"id"`
	SenderID string    `yaml:"sender_id"`
	Text     string    `yaml:"text"`
	At       time.Time `yaml:"at"`
}

type Ticket struct {
	ID                  string                `yaml:"id"`
	SLN                 string                `yaml:"sln"`
	Title               string                `yaml:"title"`
	CustomerName        string                `yaml:"customer_name"`
	Status              domain.TicketStatus   `yaml:"status"`
	Priority            domain.TicketPriority `yaml:"priority"`
	ProductID           string                `yaml:"product_id"`
	CreatedBy           string                `yaml:"created_by"`
	SalesOwnerID        string                `yaml:"sales_owner_id"`
	AssignedToCompanyID string                `yaml:"assigned_to_company_id"`
	AssignedToUserID    string                `yaml:"assigned_to_user_id"`
	Description         string                `yaml:"description"`
	ServiceTypes        []string              `yaml:"service_types"`
	CreatedAt           time.Time             `yaml:"created_at"`
	UpdatedAt           time.Time             `yaml:"updated_at"`
	Messages            []Message             `yaml:"messages"`
}

type Registration struct {
	ID            string             `yaml:"id"`
	CompanyName   string             `yaml:"company_name"`
	ContactPerson string             `yaml:"contact_person"`
	Email         string             `yaml:"email"`
	Phone         string             `yaml:"phone"`
	Type          domain.PartnerType `yaml:"type"`
	RequestDate   time.Time          `yaml:"request_date"`
}

// Read returns the fixture named by source: Demo for the built-in one,
// otherwise a file path.
func Read(source string) (*Fixture, error) {
	data := demoFixture
	if source != Demo {
		var err error
		data, err = os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("seed: read %s: %w", source, err)
		}
	}
	return Parse(data)
}

// Parse decodes and checks a fixture document.
func Parse(data []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	if err := fx.check(); err != nil {
		return nil, err
	}
	return &fx, nil
}

func (fx *Fixture) check() error {
	companies := make(map[string]bool, len(fx.Companies))
	for _, c := range fx.Companies {
		companies[c.ID] = true
	}
	if !companies[domain.HeadquartersID] {
		return fmt.Errorf("seed: headquarters company %q missing", domain.HeadquartersID)
	}
	users := make(map[string]User, len(fx.Users))
	for _, u := range fx.Users {
		if !u.Role.Valid() {
			return fmt.Errorf("seed: user %s: unknown role %q", u.ID, u.Role)
		}
		if !companies[u.CompanyID] {
			return fmt.Errorf("seed: user %s: unknown company %q", u.ID, u.CompanyID)
		}
		users[u.ID] = u
	}
	for _, t := range fx.Tickets {
		if !t.Status.Valid() {
			return fmt.Errorf("seed: ticket %s: unknown status %q", t.ID, t.Status)
		}
		if _, ok := users[t.CreatedBy]; !ok {
			return fmt.Errorf("seed: ticket %s: unknown creator %q", t.ID, t.CreatedBy)
		}
		if len(t.ServiceTypes) == 0 {
			return fmt.Errorf("seed: ticket %s: no service types", t.ID)
		}
		for _, m := range t.Messages {
			if _, ok := users[m.SenderID]; !ok {
				return fmt.Errorf("seed: ticket %s message %s: unknown sender %q", t.ID, m.ID, m.SenderID)
			}
		}
	}
	return nil
}

// Result counts what Apply inserted.
type Result struct {
	Applied       bool
	Companies     int
	Users         int
	Tickets       int
	Registrations int
}

// Apply inserts the fixture in one transaction. A store that already holds
// companies is left untouched.
func Apply(ctx context.Context, store repository.Store, fx *Fixture, bcryptCost int, logger *zap.Logger) (Result, error) {
	var res Result
	existing, err := store.Companies().List(ctx)
	if err != nil {
		return res, fmt.Errorf("seed: list companies: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("store already populated; skipping seed", zap.Int("companies", len(existing)))
		return res, nil
	}

	hashes := map[string]string{}
	hashFor := func(password string) (string, error) {
		if password == "" {
			password = fx.Password
		}
		if h, ok := hashes[password]; ok {
			return h, nil
		}
		h, err := auth.HashPassword(password, bcryptCost)
		if err != nil {
			return "", err
		}
		hashes[password] = h
		return h, nil
	}

	byID := make(map[string]*domain.User, len(fx.Users))
	now := time.Now().UTC()
	err = store.WithinTx(ctx, func(tx repository.Store) error {
		for _, c := range fx.Companies {
			if err := tx.Companies().Create(ctx, &domain.Company{
				ID: c.ID, Name: c.Name, Address: c.Address, Phone: c.Phone, ServiceArea: c.ServiceArea,
				CreatedAt: now, UpdatedAt: now,
			}); err != nil {
				return fmt.Errorf("company %s: %w", c.ID, err)
			}
			res.Companies++
		}
		for _, u := range fx.Users {
			hash, err := hashFor(u.Password)
			if err != nil {
				return fmt.Errorf("user %s: %w", u.ID, err)
			}
			user := &domain.User{
				ID: u.ID, Name: u.Name, Email: strings.ToLower(u.Email), PasswordHash: hash,
				Role: u.Role, CompanyID: u.CompanyID, CreatedAt: now, UpdatedAt: now,
			}
			if err := tx.Users().Create(ctx, user); err != nil {
				return fmt.Errorf("user %s: %w", u.ID, err)
			}
			byID[u.ID] = user
			res.Users++
		}
		for _, t := range fx.Tickets {
			if err := tx.Tickets().Create(ctx, toTicket(t, byID)); err != nil {
				return fmt.Errorf("ticket %s: %w", t.ID, err)
			}
			res.Tickets++
		}
		for _, r := range fx.Registrations {
			if err := tx.Registrations().Create(ctx, &domain.RegistrationRequest{
				ID: r.ID, CompanyName: r.CompanyName, ContactPerson: r.ContactPerson,
				Email: strings.ToLower(r.Email), Phone: r.Phone, Type: r.Type,
				RequestDate: r.RequestDate, Status: domain.RegistrationStatusPending,
			}); err != nil {
				return fmt.Errorf("registration %s: %w", r.ID, err)
			}
			res.Registrations++
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("seed: %w", err)
	}
	res.Applied = true
	logger.Info("seed applied",
		zap.Int("companies", res.Companies),
		zap.Int("users", res.Users),
		zap.Int("tickets", res.Tickets),
		zap.Int("registrations", res.Registrations))
	return res, nil
}

func toTicket(t Ticket, users map[string]*domain.User) *domain.Ticket {
	creator := users[t.CreatedBy]
	priority := t.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	updated := t.UpdatedAt
	if updated.IsZero() {
		updated = t.CreatedAt
	}
	ticket := &domain.Ticket{
		ID:                  t.ID,
		SLN:                 t.SLN,
		Title:               t.Title,
		CustomerName:        t.CustomerName,
		ProductID:           t.ProductID,
		Status:              t.Status,
		Priority:            priority,
		CreatedBy:           creator.ID,
		CreatedRole:         creator.Role,
		CompanyID:           creator.CompanyID,
		UpstreamCompanyID:   domain.HeadquartersID,
		SalesOwnerID:        t.SalesOwnerID,
		AssignedToCompanyID: t.AssignedToCompanyID,
		AssignedToUserID:    t.AssignedToUserID,
		Description:         t.Description,
		ServiceTypes:        append([]string(nil), t.ServiceTypes...),
		Messages:            []domain.TicketMessage{},
		Logs:                []domain.TicketLog{},
		Version:             1,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           updated,
	}
	for _, m := range t.Messages {
		ticket.Messages = append(ticket.Messages, domain.TicketMessage{
			ID:        m.ID,
			Sender:    domain.OperatorSender(users[m.SenderID]),
			Text:      m.Text,
			CreatedAt: m.At,
		})
	}
	return ticket
}
