package domain

import (
	"time"

	"github.com/spec-kit/netsupport-service/internal/geo"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OUVERT"
	TicketStatusInProgress TicketStatus = "EN_COURS"
	TicketStatusClosed     TicketStatus = "CLOTURE"
)

// ProblemType enumerates reportable network-service issues.
type ProblemType string

const (
	ProblemTotalOutage     ProblemType = "COUPURE_TOTALE"
	ProblemDegradedQuality ProblemType = "QUALITE_DEGRADEE"
	ProblemModemDefective  ProblemType = "MODEM_DEFECTUEUX"
	ProblemConfigModem     ProblemType = "CONFIG_MODEM"
	ProblemDamagedCable    ProblemType = "CABLE_ENDOMMAGE"
	ProblemLowBandwidth    ProblemType = "DEBIT_FAIBLE"
)

// ValidProblemType reports whether pt is a known problem type.
func ValidProblemType(pt ProblemType) bool {
	switch pt {
	case ProblemTotalOutage, ProblemDegradedQuality, ProblemModemDefective,
		ProblemConfigModem, ProblemDamagedCable, ProblemLowBandwidth:
		return true
	}
	return false
}

// MaxActiveAssignments is the EN_COURS ceiling per technician.
const MaxActiveAssignments = 5

// Ticket is the aggregate for reported service issues.
type Ticket struct {
	ID           string
	SN           string // 16-char service serial, non-unique lookup key
	ProblemType  ProblemType
	Status       TicketStatus
	Location     geo.Point
	ClientID     string
	AdminID      string
	TechnicianID *string
	CreatedAt    time.Time
	AssignedAt   *time.Time
	ClosedAt     *time.Time

	// Reserved columns, never written by this service.
	Priority                *int
	ExpectedResponseMinutes *int
}
