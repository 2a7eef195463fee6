package domain

import "time"

// HeadquartersID is the fixed id of the vendor's own company.
const HeadquartersID = "c0"

// Company is either headquarters or an onboarded partner.
type Company struct {
	ID          string
	Name        string
	Address     string
	Phone       string
	ServiceArea string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsHeadquarters reports whether the company is the vendor itself.
func (c *Company) IsHeadquarters() bool {
	return c != nil && c.ID == HeadquartersID
}

// Clone returns a copy of the company.
func (c *Company) Clone() *Company {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
