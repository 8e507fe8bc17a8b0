package models

import "time"

// Agent application states
const (
	AgentStatusPending  = "pending"
	AgentStatusApproved = "approved"
	AgentStatusDenied   = "denied"
)

// Agent is a professional profile subject to the admin-gated approval
// workflow. It is distinct from a login-capable User.
type Agent struct {
	ID              string
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Company         string
	City            string
	State           string
	Country         string
	Website         string
	LinkedIn        string
	LicenseNumber   string
	LicenseState    string
	Bio             string
	Specializations []string
	YearsExperience int
	LanguagesSpoken []string
	PhotoURL        string
	ReferralLink    string
	Status          string // "pending", "approved", "denied"
	IsApproved      bool
	ApprovedBy      *string
	ApprovedAt      *time.Time
	RejectionReason *string
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FullName returns the agent's display name.
func (a *Agent) FullName() string {
	return a.FirstName + " " + a.LastName
}

// AgentPage is the generated public profile record for an approved agent,
// keyed by a "country/name" slug.
type AgentPage struct {
	ID        string
	AgentID   string
	Slug      string
	IsActive  bool
	CreatedAt time.Time
}

// AgentStats aggregates application counts for the admin dashboard.
type AgentStats struct {
	Total    int64
	Pending  int64
	Approved int64
	Denied   int64
}
