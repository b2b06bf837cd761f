package audit

import "time"

// Action names a registry event.
type Action string

const (
	ActionClientRegistered Action = "client_registered"
	ActionClientDeleted    Action = "client_deleted"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    Action    `json:"action"`
	ClientID  string    `json:"client_id"`
	BotIDs    []string  `json:"bot_ids,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
}
