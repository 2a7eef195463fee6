package domain

import "time"

// RegistrationStatus tracks a partner application. Approved and Rejected are terminal.
type RegistrationStatus string

const (
	RegistrationStatusPending  RegistrationStatus = "PENDING"
	RegistrationStatusApproved RegistrationStatus = "APPROVED"
	RegistrationStatusRejected RegistrationStatus = "REJECTED"
)

// PartnerType is the optional kind of business applying.
type PartnerType string

const (
	PartnerTypeDistributor PartnerType = "Distributor"
	PartnerTypeInstaller   PartnerType = "Installer"
)

// RegistrationRequest is a public application to become a partner.
type RegistrationRequest struct {
	ID            string
	CompanyName   string
	ContactPerson string
	Email         string
	Phone         string
	RequestDate   time.Time
	Status        RegistrationStatus
	Type          PartnerType

	DecidedBy   string
	DecidedAt   *time.Time
	CompanyID   string
	AdminUserID string
}

// IsDecided reports whether the request already left Pending.
func (r *RegistrationRequest) IsDecided() bool {
	return r.Status != RegistrationStatusPending
}

// Clone returns a copy of the request.
func (r *RegistrationRequest) Clone() *RegistrationRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.DecidedAt != nil {
		at := *r.DecidedAt
		c.DecidedAt = &at
	}
	return &c
}
