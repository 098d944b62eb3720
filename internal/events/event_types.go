package events

import (
	"time"

	"github.com/spec-kit/netsupport-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketAssigned     EventType = "ticket_assigned"
	EventTicketClosed       EventType = "ticket_closed"
	EventPresenceMarked     EventType = "presence_marked"
	EventAccountDeactivated EventType = "account_deactivated"
	EventAccountReactivated EventType = "account_reactivated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"`
	ActorRole domain.Role `json:"actor_role"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketID    string             `json:"ticket_id"`
	SN          string             `json:"sn"`
	ProblemType domain.ProblemType `json:"problem_type"`
	AdminID     string             `json:"admin_id"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	TicketID     string `json:"ticket_id"`
	TechnicianID string `json:"technician_id"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	TicketID string `json:"ticket_id"`
}

// PresenceMarkedPayload payload.
type PresenceMarkedPayload struct {
	TechnicianID string `json:"technician_id"`
	Present      bool   `json:"present"`
}

// AccountActivationPayload payload for deactivate/reactivate events.
type AccountActivationPayload struct {
	AccountID string      `json:"account_id"`
	Role      domain.Role `json:"role"`
}
