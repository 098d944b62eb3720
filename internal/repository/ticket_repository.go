package repository

import (
	"context"
	"time"

	"github.com/spec-kit/netsupport-service/internal/domain"
)

// TicketRepository encapsulates ticket persistence. Assign and Close are
// conditional writes: the status is re-checked inside the UPDATE so that two
// concurrent transitions on the same ticket cannot both succeed.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListByClient(ctx context.Context, clientID string) ([]domain.Ticket, error)
	ListByAdmin(ctx context.Context, adminID string) ([]domain.Ticket, error)
	ListByTechnician(ctx context.Context, technicianID string) ([]domain.Ticket, error)
	ListBySN(ctx context.Context, sn string) ([]domain.Ticket, error)
	CountByAdminAndStatus(ctx context.Context, adminID string, status domain.TicketStatus) (int, error)
	CountByTechnicianAndStatus(ctx context.Context, technicianID string, status domain.TicketStatus) (int, error)
	Assign(ctx context.Context, ticketID, adminID, technicianID string, at time.Time) (bool, error)
	Close(ctx context.Context, ticketID, technicianID string, at time.Time) (bool, error)
}

const ticketColumns = `id, sn, problem_type, status, lat, lng, client_id, admin_id, technician_id,
               created_at, assigned_at, closed_at, priority, expected_response_minutes`

type ticketRepository struct {
	pool PgxPool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool PgxPool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (sn, problem_type, status, lat, lng, client_id, admin_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		ticket.SN,
		ticket.ProblemType,
		ticket.Status,
		ticket.Location.Lat,
		ticket.Location.Lng,
		ticket.ClientID,
		ticket.AdminID,
	).Scan(&ticket.ID, &ticket.CreatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByClient(ctx context.Context, clientID string) ([]domain.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE client_id=$1 ORDER BY created_at DESC`, clientID)
}

func (r *ticketRepository) ListByAdmin(ctx context.Context, adminID string) ([]domain.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE admin_id=$1 ORDER BY created_at DESC`, adminID)
}

func (r *ticketRepository) ListByTechnician(ctx context.Context, technicianID string) ([]domain.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE technician_id=$1 ORDER BY created_at DESC`, technicianID)
}

func (r *ticketRepository) ListBySN(ctx context.Context, sn string) ([]domain.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE sn=$1 ORDER BY created_at DESC`, sn)
}

func (r *ticketRepository) CountByAdminAndStatus(ctx context.Context, adminID string, status domain.TicketStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE admin_id=$1 AND status=$2`
	var count int
	if err := r.pool.QueryRow(ctx, query, adminID, status).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ticketRepository) CountByTechnicianAndStatus(ctx context.Context, technicianID string, status domain.TicketStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE technician_id=$1 AND status=$2`
	var count int
	if err := r.pool.QueryRow(ctx, query, technicianID, status).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Assign moves an OUVERT ticket to EN_COURS. Returns false when the ticket
// was not OUVERT anymore (lost race or wrong status) or the technician is
// already at the active-assignment ceiling. The capacity subquery re-checks
// the ceiling inside the UPDATE so two assignments of different tickets to
// the same technician cannot both slip past the service-level count.
func (r *ticketRepository) Assign(ctx context.Context, ticketID, adminID, technicianID string, at time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET technician_id=$1, admin_id=$2, status=$3, assigned_at=$4
        WHERE id=$5 AND status=$6
          AND (SELECT COUNT(*) FROM tickets WHERE technician_id=$1 AND status=$3) < $7`
	cmd, err := r.pool.Exec(ctx, query,
		technicianID, adminID, domain.TicketStatusInProgress, at,
		ticketID, domain.TicketStatusOpen, domain.MaxActiveAssignments,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

// Close moves an EN_COURS ticket owned by the technician to CLOTURE.
func (r *ticketRepository) Close(ctx context.Context, ticketID, technicianID string, at time.Time) (bool, error) {
	const query = `
        UPDATE tickets SET status=$1, closed_at=$2
        WHERE id=$3 AND status=$4 AND technician_id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		domain.TicketStatusClosed, at,
		ticketID, domain.TicketStatusInProgress, technicianID,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) list(ctx context.Context, query string, arg any) ([]domain.Ticket, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func scanTicket(row rowScanner, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.SN,
		&ticket.ProblemType,
		&ticket.Status,
		&ticket.Location.Lat,
		&ticket.Location.Lng,
		&ticket.ClientID,
		&ticket.AdminID,
		&ticket.TechnicianID,
		&ticket.CreatedAt,
		&ticket.AssignedAt,
		&ticket.ClosedAt,
		&ticket.Priority,
		&ticket.ExpectedResponseMinutes,
	)
}
