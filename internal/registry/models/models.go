package models

import (
	"time"
)

// EntityClass names an identifier namespace. Each class has its own sequence
// and its own base letter, so identifiers never collide across classes.
type EntityClass string

const (
	EntityClient EntityClass = "client"
	EntityAgent  EntityClass = "agent"
)

// AgentStatus is opaque apart from AgentStatusActive, the only value the
// authorization check treats as meaningful.
type AgentStatus string

const AgentStatusActive AgentStatus = "ACTIVE"

// Client is a registered account.
//
// Invariants:
//   - ClientID matches [A-Z]{2}\d{4} and is never reused
//   - Email and Phone are unique across all clients
//   - Created only by registration, removed only by deletion, never mutated
type Client struct {
	ClientID  string    `json:"client_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Agent is the trading-bot identity issued 1:1 with a Client in the same
// registration transaction.
type Agent struct {
	BotID    string      `json:"bot_id"`
	ClientID string      `json:"client_id"`
	Status   AgentStatus `json:"status"`
}

func (a *Agent) IsActive() bool {
	return a.Status == AgentStatusActive
}

// Registration is the linked pair produced by a successful registration.
type Registration struct {
	ClientID string
	BotID    string
}

// Stats are three independent row counts.
type Stats struct {
	TotalClients int
	TotalBots    int
	ActiveBots   int
}

// listingDateLayout renders created_at as day-month-year.
const listingDateLayout = "02-01-2006"

// ClientListing is one row of the client directory: a client left-joined with
// its agent. BotID is nil when the client has no agent; CreatedAt is nil when
// the stored timestamp is null.
type ClientListing struct {
	ClientID  string
	Name      string
	Email     string
	Phone     string
	BotID     *string
	CreatedAt *time.Time
}

// CreatedDate formats CreatedAt as DD-MM-YYYY, or nil for a null timestamp.
func (l ClientListing) CreatedDate() *string {
	if l.CreatedAt == nil {
		return nil
	}
	s := l.CreatedAt.Format(listingDateLayout)
	return &s
}
