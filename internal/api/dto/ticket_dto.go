package dto

import (
	"time"

	"github.com/spec-kit/netsupport-service/internal/domain"
	"github.com/spec-kit/netsupport-service/internal/geo"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	SN          string             `json:"sn"`
	ProblemType domain.ProblemType `json:"typeProbleme"`
	Location    *geo.Point         `json:"localisation"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	TechnicianID string `json:"technicienId"`
}

// UpdateTicketStatusRequest payload; the only accepted target is CLOTURE.
type UpdateTicketStatusRequest struct {
	Status domain.TicketStatus `json:"statut"`
}

// TicketResponse is the public representation of a ticket.
type TicketResponse struct {
	ID           string              `json:"id"`
	SN           string              `json:"sn"`
	ProblemType  domain.ProblemType  `json:"typeProbleme"`
	Status       domain.TicketStatus `json:"statut"`
	Location     geo.Point           `json:"localisation"`
	ClientID     string              `json:"clientId"`
	AdminID      string              `json:"adminId"`
	TechnicianID *string             `json:"technicienId,omitempty"`
	CreatedAt    time.Time           `json:"creeLe"`
	AssignedAt   *time.Time          `json:"affecteLe,omitempty"`
	ClosedAt     *time.Time          `json:"clotureLe,omitempty"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:           ticket.ID,
		SN:           ticket.SN,
		ProblemType:  ticket.ProblemType,
		Status:       ticket.Status,
		Location:     ticket.Location,
		ClientID:     ticket.ClientID,
		AdminID:      ticket.AdminID,
		TechnicianID: ticket.TechnicianID,
		CreatedAt:    ticket.CreatedAt,
		AssignedAt:   ticket.AssignedAt,
		ClosedAt:     ticket.ClosedAt,
	}
}

// NewTicketResponses maps a slice.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	result := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		result = append(result, NewTicketResponse(&tickets[i]))
	}
	return result
}
