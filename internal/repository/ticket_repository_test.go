package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/netsupport-service/internal/domain"
	"github.com/spec-kit/netsupport-service/internal/geo"
)

var ticketCols = []string{
	"id", "sn", "problem_type", "status", "lat", "lng", "client_id", "admin_id", "technician_id",
	"created_at", "assigned_at", "closed_at", "priority", "expected_response_minutes",
}

func ticketRow(id string, status domain.TicketStatus) []any {
	return []any{
		id, "ABCDEF1234567890", domain.ProblemTotalOutage, status, 36.8, 10.1,
		"c-1", "a-1", nil, time.Now(), nil, nil, nil, nil,
	}
}

func TestTicketRepository_Create(t *testing.T) {
	mock := newPool(t)
	defer mock.Close()
	r := NewTicketRepository(mock)

	ticket := &domain.Ticket{
		SN:          "ABCDEF1234567890",
		ProblemType: domain.ProblemTotalOutage,
		Status:      domain.TicketStatusOpen,
		Location:    geo.Point{Lat: 36.8, Lng: 10.1},
		ClientID:    "c-1",
		AdminID:     "a-1",
	}
	now := time.Now()
	mock.ExpectQuery(`INSERT INTO tickets`).
		WithArgs(ticket.SN, ticket.ProblemType, ticket.Status, ticket.Location.Lat, ticket.Location.Lng,
			ticket.ClientID, ticket.AdminID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow("tk-1", now))

	require.NoError(t, r.Create(context.Background(), ticket))
	require.Equal(t, "tk-1", ticket.ID)
}

func TestTicketRepository_GetByID_NotFound(t *testing.T) {
	mock := newPool(t)
	defer mock.Close()
	r := NewTicketRepository(mock)

	mock.ExpectQuery(`SELECT (.+) FROM tickets WHERE id=\$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	_, err := r.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestTicketRepository_ListBySN(t *testing.T) {
	mock := newPool(t)
	defer mock.Close()
	r := NewTicketRepository(mock)

	rows := pgxmock.NewRows(ticketCols).
		AddRow(ticketRow("tk-2", domain.TicketStatusClosed)...).
		AddRow(ticketRow("tk-1", domain.TicketStatusOpen)...)
	mock.ExpectQuery(`FROM tickets WHERE sn=\$1 ORDER BY created_at DESC`).
		WithArgs("ABCDEF1234567890").
		WillReturnRows(rows)

	tickets, err := r.ListBySN(context.Background(), "ABCDEF1234567890")
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	require.Equal(t, "tk-2", tickets[0].ID)
}

func TestTicketRepository_Assign_ConditionalOnOpenStatus(t *testing.T) {
	mock := newPool(t)
	defer mock.Close()
	r := NewTicketRepository(mock)
	at := time.Now()

	mock.ExpectExec(`UPDATE tickets SET technician_id=\$1, admin_id=\$2, status=\$3, assigned_at=\$4\s+WHERE id=\$5 AND status=\$6\s+AND \(SELECT COUNT\(\*\) FROM tickets WHERE technician_id=\$1 AND status=\$3\) < \$7`).
		WithArgs("t-1", "a-1", domain.TicketStatusInProgress, at, "tk-1", domain.TicketStatusOpen, domain.MaxActiveAssignments).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	updated, err := r.Assign(context.Background(), "tk-1", "a-1", "t-1", at)
	require.NoError(t, err)
	require.True(t, updated)

	// Status changed between read and write, or the technician reached the
	// ceiling meanwhile: zero rows means the caller lost the race.
	mock.ExpectExec(`UPDATE tickets SET technician_id=\$1, admin_id=\$2, status=\$3, assigned_at=\$4\s+WHERE id=\$5 AND status=\$6\s+AND \(SELECT COUNT\(\*\) FROM tickets WHERE technician_id=\$1 AND status=\$3\) < \$7`).
		WithArgs("t-1", "a-1", domain.TicketStatusInProgress, at, "tk-1", domain.TicketStatusOpen, domain.MaxActiveAssignments).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	updated, err = r.Assign(context.Background(), "tk-1", "a-1", "t-1", at)
	require.NoError(t, err)
	require.False(t, updated)
}

func TestTicketRepository_Close_RequiresOwnerAndInProgress(t *testing.T) {
	mock := newPool(t)
	defer mock.Close()
	r := NewTicketRepository(mock)
	at := time.Now()

	mock.ExpectExec(`UPDATE tickets SET status=\$1, closed_at=\$2\s+WHERE id=\$3 AND status=\$4 AND technician_id=\$5`).
		WithArgs(domain.TicketStatusClosed, at, "tk-1", domain.TicketStatusInProgress, "t-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	updated, err := r.Close(context.Background(), "tk-1", "t-1", at)
	require.NoError(t, err)
	require.True(t, updated)

	mock.ExpectExec(`UPDATE tickets SET status=\$1, closed_at=\$2\s+WHERE id=\$3 AND status=\$4 AND technician_id=\$5`).
		WithArgs(domain.TicketStatusClosed, at, "tk-1", domain.TicketStatusInProgress, "t-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	updated, err = r.Close(context.Background(), "tk-1", "t-2", at)
	require.NoError(t, err)
	require.False(t, updated)
}

func TestTicketRepository_CountByTechnicianAndStatus(t *testing.T) {
	mock := newPool(t)
	defer mock.Close()
	r := NewTicketRepository(mock)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tickets WHERE technician_id=\$1 AND status=\$2`).
		WithArgs("t-1", domain.TicketStatusInProgress).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))

	count, err := r.CountByTechnicianAndStatus(context.Background(), "t-1", domain.TicketStatusInProgress)
	require.NoError(t, err)
	require.Equal(t, 4, count)
}
