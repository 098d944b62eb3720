package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/netsupport-service/internal/domain"
	"github.com/spec-kit/netsupport-service/internal/events"
	"github.com/spec-kit/netsupport-service/internal/geo"
	"github.com/spec-kit/netsupport-service/internal/repository"
	"github.com/spec-kit/netsupport-service/internal/validate"
	apperrors "github.com/spec-kit/netsupport-service/pkg/util"
)

// TicketService owns the ticket lifecycle: geographic routing on creation,
// assignment to a technician and closure.
type TicketService struct {
	tickets    repository.TicketRepository
	accounts   repository.AccountRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles what the ticket service needs.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	AccountRepo repository.AccountRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		accounts:   deps.AccountRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        time.Now,
	}
}

// CreateTicket opens a ticket for the client and routes it to the active
// admin whose zone contains the equipment location; with several candidates
// the least loaded one (fewest OUVERT tickets) wins.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.Account, sn string, problemType domain.ProblemType, location *geo.Point) (*domain.Ticket, error) {
	if actor.Role != domain.RoleClient {
		return nil, apperrors.NewForbidden("only a client may open a ticket")
	}
	if !validate.SerialNumber(sn) {
		return nil, apperrors.NewValidationError("serial number must be 16 uppercase alphanumeric characters", nil)
	}
	if !domain.ValidProblemType(problemType) {
		return nil, apperrors.NewValidationError("unknown problem type", nil)
	}
	if location == nil {
		return nil, apperrors.NewValidationError("equipment location is required", nil)
	}

	admin, err := s.selectAdmin(ctx, *location)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		SN:          sn,
		ProblemType: problemType,
		Status:      domain.TicketStatusOpen,
		Location:    *location,
		ClientID:    actor.ID,
		AdminID:     admin.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("sn", ticket.SN),
		zap.String("admin_id", admin.ID),
	)
	s.publish(ctx, actor, events.EventTicketCreated, events.TicketCreatedPayload{
		TicketID:    ticket.ID,
		SN:          ticket.SN,
		ProblemType: ticket.ProblemType,
		AdminID:     admin.ID,
	})
	return ticket, nil
}

// AssignTicket hands an OUVERT ticket of the acting admin to one of its
// technicians. The technician must be active, present today, of a category
// able to handle the problem, and under the concurrent-assignment ceiling.
func (s *TicketService) AssignTicket(ctx context.Context, actor *domain.Account, ticketID, technicianID string) (*domain.Ticket, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.AdminID != actor.ID {
		return nil, apperrors.NewForbidden("this ticket is routed to another admin")
	}
	if ticket.Status != domain.TicketStatusOpen {
		return nil, apperrors.NewConflict("only an open ticket can be assigned", nil)
	}

	technician, err := s.accounts.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("technician not found")
		}
		return nil, apperrors.MapError(err)
	}
	if technician.Role != domain.RoleTechnician {
		return nil, apperrors.NewNotFound("technician not found")
	}
	if technician.CreatedByID() != actor.ID {
		return nil, apperrors.NewForbidden("this technician is not managed by this admin")
	}
	if !technician.Active {
		return nil, apperrors.NewForbidden("this technician is deactivated")
	}
	now := s.now()
	if !technician.PresentOn(now) {
		return nil, apperrors.NewConflict("technician is not present today", nil)
	}
	if technician.Category == nil || !technician.Category.CanHandle(ticket.ProblemType) {
		return nil, apperrors.NewForbidden("technician category cannot handle this problem type")
	}
	active, err := s.tickets.CountByTechnicianAndStatus(ctx, technician.ID, domain.TicketStatusInProgress)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if active >= domain.MaxActiveAssignments {
		return nil, apperrors.NewConflict("technician already has the maximum number of tickets in progress", nil)
	}

	updated, err := s.tickets.Assign(ctx, ticket.ID, actor.ID, technician.ID, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !updated {
		// Lost the race: another assignment landed between the read and the write.
		return nil, apperrors.NewConflict("only an open ticket can be assigned", nil)
	}

	ticket.Status = domain.TicketStatusInProgress
	ticket.TechnicianID = &technician.ID
	ticket.AssignedAt = &now

	s.logger.Info("ticket assigned",
		zap.String("ticket_id", ticket.ID),
		zap.String("technician_id", technician.ID),
	)
	s.publish(ctx, actor, events.EventTicketAssigned, events.TicketAssignedPayload{
		TicketID:     ticket.ID,
		TechnicianID: technician.ID,
	})
	return ticket, nil
}

// CloseTicket lets the assigned technician move its EN_COURS ticket to
// CLOTURE. No other transition is accepted on this path.
func (s *TicketService) CloseTicket(ctx context.Context, actor *domain.Account, ticketID string, requested domain.TicketStatus) (*domain.Ticket, error) {
	if actor.Role != domain.RoleTechnician {
		return nil, apperrors.NewForbidden("technician role required")
	}

	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.TechnicianID == nil || *ticket.TechnicianID != actor.ID {
		return nil, apperrors.NewForbidden("this ticket is not assigned to this technician")
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, apperrors.NewConflict("ticket is already closed", nil)
	}
	if ticket.Status == domain.TicketStatusOpen {
		return nil, apperrors.NewForbidden("ticket must first be assigned")
	}
	if requested != domain.TicketStatusClosed {
		return nil, apperrors.NewValidationError("the only allowed transition is to CLOTURE", nil)
	}

	now := s.now()
	updated, err := s.tickets.Close(ctx, ticket.ID, actor.ID, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !updated {
		return nil, apperrors.NewConflict("ticket is no longer in progress", nil)
	}

	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &now

	s.logger.Info("ticket closed", zap.String("ticket_id", ticket.ID))
	s.publish(ctx, actor, events.EventTicketClosed, events.TicketClosedPayload{TicketID: ticket.ID})
	return ticket, nil
}

// ListClientTickets returns the caller's own tickets, newest first.
func (s *TicketService) ListClientTickets(ctx context.Context, actor *domain.Account) ([]domain.Ticket, error) {
	if actor.Role != domain.RoleClient {
		return nil, apperrors.NewForbidden("client role required")
	}
	tickets, err := s.tickets.ListByClient(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListAdminTickets returns the tickets routed to the acting admin.
func (s *TicketService) ListAdminTickets(ctx context.Context, actor *domain.Account) ([]domain.Ticket, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	tickets, err := s.tickets.ListByAdmin(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListTechnicianTickets returns the tickets assigned to the acting technician.
func (s *TicketService) ListTechnicianTickets(ctx context.Context, actor *domain.Account) ([]domain.Ticket, error) {
	if actor.Role != domain.RoleTechnician {
		return nil, apperrors.NewForbidden("technician role required")
	}
	tickets, err := s.tickets.ListByTechnician(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// HistoryBySN returns every ticket ever opened for a piece of equipment,
// newest first. Staff use it to spot recurring faults on the same modem.
func (s *TicketService) HistoryBySN(ctx context.Context, actor *domain.Account, sn string) ([]domain.Ticket, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleTechnician {
		return nil, apperrors.NewForbidden("staff role required")
	}
	if !validate.SerialNumber(sn) {
		return nil, apperrors.NewValidationError("serial number must be 16 uppercase alphanumeric characters", nil)
	}
	tickets, err := s.tickets.ListBySN(ctx, sn)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// selectAdmin picks the target admin for a location: active admins whose
// zone contains the point, then the one with the fewest OUVERT tickets.
// Candidate order is creation order, so ties keep the first encountered.
func (s *TicketService) selectAdmin(ctx context.Context, location geo.Point) (*domain.Account, error) {
	admins, err := s.accounts.ListActiveAdmins(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	var (
		best     *domain.Account
		bestLoad int
	)
	for i := range admins {
		admin := &admins[i]
		if admin.Zone == nil || !admin.Zone.Contains(location) {
			continue
		}
		load, err := s.tickets.CountByAdminAndStatus(ctx, admin.ID, domain.TicketStatusOpen)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if best == nil || load < bestLoad {
			best = admin
			bestLoad = load
		}
	}
	if best == nil {
		return nil, apperrors.NewNotFound("no admin covers this location")
	}
	return best, nil
}

func (s *TicketService) getTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket not found")
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) publish(ctx context.Context, actor *domain.Account, eventType events.EventType, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Timestamp: s.now(),
		Payload:   payload,
	})
}
