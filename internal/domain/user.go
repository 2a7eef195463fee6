package domain

import "time"

// Role is the closed set of portal roles. A user holds exactly one.
type Role string

const (
	RoleSuperAdmin    Role = "SUPER_ADMIN"
	RoleInternalSales Role = "INTERNAL_SALES"
	RolePartnerAdmin  Role = "PARTNER_ADMIN"
	RolePartnerStaff  Role = "PARTNER_STAFF"
)

// Valid reports whether r is one of the four portal roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleInternalSales, RolePartnerAdmin, RolePartnerStaff:
		return true
	}
	return false
}

// IsHeadquarters reports whether r is an internal (headquarters) role.
func (r Role) IsHeadquarters() bool {
	return r == RoleSuperAdmin || r == RoleInternalSales
}

// User is a portal account bound to exactly one company.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CompanyID    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Clone returns a copy of the user.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
