package models

import "time"

// Property share-model bounds: a listing is split into weekly shares.
const (
	MinPropertyShares = 1
	MaxPropertyShares = 52
)

// Property is a listing entity supporting fractional ownership: TotalShares
// weekly shares priced at SharePrice each. It optionally references an Agent
// (non-owning; the reference is nulled when the agent is deleted).
type Property struct {
	ID            string // human-assigned slug-style identifier
	Name          string
	Location      string
	Description   string
	PricePerNight string // decimal string, two fraction digits max
	TotalShares   int
	SharePrice    string // decimal string, two fraction digits max
	Images        []string
	Amenities     []string
	MaxGuests     int
	Bedrooms      int
	Bathrooms     int
	IsActive      bool
	AgentID       *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PropertyAgentInfo is the agent contact data attached to public property
// responses when the listing references an approved agent.
type PropertyAgentInfo struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	City      string
}
