package workflow

import (
	"fmt"
	"time"

	"github.com/sunenergyxt/service-portal/internal/domain"
)

const partnerID = "c2"

var (
	superAdmin = &domain.User{ID: "u0", Name: "Root", Role: domain.RoleSuperAdmin, CompanyID: domain.HeadquartersID}
	rep1       = &domain.User{ID: "u1", Name: "Alice", Role: domain.RoleInternalSales, CompanyID: domain.HeadquartersID}
	rep2       = &domain.User{ID: "u5", Name: "Bob", Role: domain.RoleInternalSales, CompanyID: domain.HeadquartersID}
	partnerAdm = &domain.User{ID: "u3", Name: "Ian", Role: domain.RolePartnerAdmin, CompanyID: partnerID}
	installer  = &domain.User{ID: "u4", Name: "Sam", Role: domain.RolePartnerStaff, CompanyID: partnerID}
	hqStaff    = &domain.User{ID: "u7", Name: "Make", Role: domain.RolePartnerStaff, CompanyID: domain.HeadquartersID}
	otherAdm   = &domain.User{ID: "u9", Name: "Olga", Role: domain.RolePartnerAdmin, CompanyID: "c3"}

	headquarters = &domain.Company{ID: domain.HeadquartersID, Name: "SunEnergyXT HQ"}
	fastFix      = &domain.Company{ID: partnerID, Name: "FastFix Energy Services"}
)

// stepClock advances one second per call starting at a fixed instant.
type stepClock struct{ t time.Time }

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func seqIDs() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestEngine() *Engine {
	return NewEngine(WithClock(newStepClock().Now), WithIDGenerator(seqIDs()))
}

func createInput() CreateInput {
	return CreateInput{
		SLN:          "SLN-001",
		Title:        "Inverter offline",
		CustomerName: "John Doe",
		ProductID:    "p1",
		Description:  "Unit shows fault code E04",
		ServiceTypes: []string{domain.ServiceTypeNewInstallation},
	}
}

// ticketAt builds a ticket in status with the given routing, bypassing the engine.
func ticketAt(status domain.TicketStatus, createdBy *domain.User, assignedCompany, assignedUser string) *domain.Ticket {
	created := time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	t := &domain.Ticket{
		ID:                  "t-" + string(status),
		SLN:                 "SLN-9",
		Title:               "Battery swap",
		CustomerName:        "Acme Solar Farm",
		Status:              status,
		Priority:            domain.TicketPriorityMedium,
		CreatedBy:           createdBy.ID,
		CreatedRole:         createdBy.Role,
		CompanyID:           createdBy.CompanyID,
		UpstreamCompanyID:   domain.HeadquartersID,
		AssignedToCompanyID: assignedCompany,
		AssignedToUserID:    assignedUser,
		ServiceTypes:        []string{domain.ServiceTypeRemoval},
		Version:             3,
		CreatedAt:           created,
		UpdatedAt:           created,
	}
	if createdBy.Role == domain.RoleInternalSales {
		t.SalesOwnerID = createdBy.ID
	}
	return t
}
