package models

import "time"

// Role is a coarse user role in the directory.
type Role string

const (
	RoleTourist Role = "tourist"
	RolePartner Role = "partner"
	RoleStaff   Role = "staff"
)

// PartnerStatus tracks partner onboarding. Only approved partners receive
// partner-targeted notifications.
type PartnerStatus string

const (
	PartnerStatusNone     PartnerStatus = "none"
	PartnerStatusPending  PartnerStatus = "pending"
	PartnerStatusApproved PartnerStatus = "approved"
	PartnerStatusRejected PartnerStatus = "rejected"
)

// User is the minimal user identity needed by the resolvers. The full account
// model lives in the web application; this core only reads it.
type User struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Email         string        `json:"email,omitempty"`
	Role          Role          `json:"role"`
	PartnerStatus PartnerStatus `json:"partner_status"`
	Active        bool          `json:"active"`
}

// DeviceToken is one push identity registered for a user on a provider.
type DeviceToken struct {
	UserID    string       `json:"user_id"`
	Provider  ProviderName `json:"provider"`
	Token     string       `json:"token"`
	CreatedAt time.Time    `json:"created_at"`
}

// AudienceRole is the closed set of role selectors accepted in audience criteria.
type AudienceRole string

const (
	AudienceAll     AudienceRole = "all"
	AudiencePartner AudienceRole = "partner"
	AudienceStaff   AudienceRole = "staff"
)

// AudienceCriteria is an abstract recipient descriptor resolved at dispatch
// time. Exactly one selector should be set; empty or unrecognized criteria
// resolve to no recipients.
type AudienceCriteria struct {
	Broadcast bool         `json:"broadcast,omitempty"`
	Role      AudienceRole `json:"role,omitempty"`
	UserID    string       `json:"user_id,omitempty"`
}
