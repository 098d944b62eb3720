package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/netsupport-service/internal/config"
	"github.com/spec-kit/netsupport-service/internal/domain"
	"github.com/spec-kit/netsupport-service/internal/geo"
	"github.com/spec-kit/netsupport-service/internal/repository"
)

// fakeAccountRepo is an in-memory AccountRepository for service tests.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	seq      int
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (f *fakeAccountRepo) add(account *domain.Account) *domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account.ID == "" {
		f.seq++
		account.ID = fmt.Sprintf("acc-%d", f.seq)
	}
	if account.CreatedAt.IsZero() {
		f.seq++
		account.CreatedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(f.seq) * time.Minute)
	}
	clone := *account
	f.accounts[account.ID] = &clone
	return account
}

func (f *fakeAccountRepo) Create(_ context.Context, account *domain.Account) error {
	f.mu.Lock()
	for _, existing := range f.accounts {
		if existing.Email == account.Email || existing.Handle == account.Handle {
			f.mu.Unlock()
			return &pgconn.PgError{Code: "23505"}
		}
	}
	f.mu.Unlock()
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	f.add(account)
	return nil
}

func (f *fakeAccountRepo) Update(_ context.Context, account *domain.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[account.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *account
	f.accounts[account.ID] = &clone
	return nil
}

func (f *fakeAccountRepo) UpdatePassword(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.PasswordHash = hash
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *account
	return &clone, nil
}

func (f *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.Email == email {
			clone := *account
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAccountRepo) GetByHandle(_ context.Context, handle string) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.accounts {
		if account.Handle == handle {
			clone := *account
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAccountRepo) ListActiveAdmins(_ context.Context) ([]domain.Account, error) {
	return f.list(func(a *domain.Account) bool {
		return a.Role == domain.RoleAdmin && a.Active
	}), nil
}

func (f *fakeAccountRepo) ListAdmins(_ context.Context) ([]domain.Account, error) {
	return f.list(func(a *domain.Account) bool { return a.Role == domain.RoleAdmin }), nil
}

func (f *fakeAccountRepo) ListTechniciansByCreator(_ context.Context, adminID string, activeOnly bool) ([]domain.Account, error) {
	return f.list(func(a *domain.Account) bool {
		if a.Role != domain.RoleTechnician || a.CreatedByID() != adminID {
			return false
		}
		return !activeOnly || a.Active
	}), nil
}

func (f *fakeAccountRepo) SetActive(_ context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.Active = active
	return nil
}

func (f *fakeAccountRepo) SetPresence(_ context.Context, id string, present bool, at *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.Present = present
	account.PresenceAt = at
	return nil
}

func (f *fakeAccountRepo) SetEmailVerified(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	account.EmailVerified = true
	return nil
}

// list returns matches sorted by creation time, the order the SQL queries use.
func (f *fakeAccountRepo) list(match func(*domain.Account) bool) []domain.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Account
	for _, account := range f.accounts {
		if match(account) {
			result = append(result, *account)
		}
	}
	for i := 1; i < len(result); i++ {
		for j := i; j > 0 && result[j].CreatedAt.Before(result[j-1].CreatedAt); j-- {
			result[j], result[j-1] = result[j-1], result[j]
		}
	}
	return result
}

// fakeTicketRepo is an in-memory TicketRepository.
type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	seq     int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*domain.Ticket)}
}

func (f *fakeTicketRepo) add(ticket *domain.Ticket) *domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticket.ID == "" {
		f.seq++
		ticket.ID = fmt.Sprintf("tk-%d", f.seq)
	}
	clone := *ticket
	f.tickets[ticket.ID] = &clone
	return ticket
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.CreatedAt = time.Now()
	f.add(ticket)
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (f *fakeTicketRepo) ListByClient(_ context.Context, clientID string) ([]domain.Ticket, error) {
	return f.list(func(t *domain.Ticket) bool { return t.ClientID == clientID }), nil
}

func (f *fakeTicketRepo) ListByAdmin(_ context.Context, adminID string) ([]domain.Ticket, error) {
	return f.list(func(t *domain.Ticket) bool { return t.AdminID == adminID }), nil
}

func (f *fakeTicketRepo) ListByTechnician(_ context.Context, technicianID string) ([]domain.Ticket, error) {
	return f.list(func(t *domain.Ticket) bool {
		return t.TechnicianID != nil && *t.TechnicianID == technicianID
	}), nil
}

func (f *fakeTicketRepo) ListBySN(_ context.Context, sn string) ([]domain.Ticket, error) {
	return f.list(func(t *domain.Ticket) bool { return t.SN == sn }), nil
}

func (f *fakeTicketRepo) CountByAdminAndStatus(_ context.Context, adminID string, status domain.TicketStatus) (int, error) {
	return len(f.list(func(t *domain.Ticket) bool {
		return t.AdminID == adminID && t.Status == status
	})), nil
}

func (f *fakeTicketRepo) CountByTechnicianAndStatus(_ context.Context, technicianID string, status domain.TicketStatus) (int, error) {
	return len(f.list(func(t *domain.Ticket) bool {
		return t.TechnicianID != nil && *t.TechnicianID == technicianID && t.Status == status
	})), nil
}

func (f *fakeTicketRepo) Assign(_ context.Context, ticketID, adminID, technicianID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[ticketID]
	if !ok || ticket.Status != domain.TicketStatusOpen {
		return false, nil
	}
	active := 0
	for _, t := range f.tickets {
		if t.TechnicianID != nil && *t.TechnicianID == technicianID && t.Status == domain.TicketStatusInProgress {
			active++
		}
	}
	if active >= domain.MaxActiveAssignments {
		return false, nil
	}
	ticket.Status = domain.TicketStatusInProgress
	ticket.AdminID = adminID
	tech := technicianID
	ticket.TechnicianID = &tech
	ticket.AssignedAt = &at
	return true, nil
}

func (f *fakeTicketRepo) Close(_ context.Context, ticketID, technicianID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[ticketID]
	if !ok || ticket.Status != domain.TicketStatusInProgress {
		return false, nil
	}
	if ticket.TechnicianID == nil || *ticket.TechnicianID != technicianID {
		return false, nil
	}
	ticket.Status = domain.TicketStatusClosed
	ticket.ClosedAt = &at
	return true, nil
}

func (f *fakeTicketRepo) list(match func(*domain.Ticket) bool) []domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		if match(ticket) {
			result = append(result, *ticket)
		}
	}
	return result
}

// fakeCodeRepo keeps codes in memory, ignoring TTLs.
type fakeCodeRepo struct {
	mu       sync.Mutex
	codes    map[string]string
	verified map[string]bool
}

func newFakeCodeRepo() *fakeCodeRepo {
	return &fakeCodeRepo{codes: make(map[string]string), verified: make(map[string]bool)}
}

func (f *fakeCodeRepo) key(kind repository.CodeKind, accountID string) string {
	return string(kind) + ":" + accountID
}

func (f *fakeCodeRepo) Store(_ context.Context, kind repository.CodeKind, accountID, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[f.key(kind, accountID)] = code
	return nil
}

func (f *fakeCodeRepo) Get(_ context.Context, kind repository.CodeKind, accountID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	code, ok := f.codes[f.key(kind, accountID)]
	if !ok {
		return "", repository.ErrCodeNotFound
	}
	return code, nil
}

func (f *fakeCodeRepo) Clear(_ context.Context, kind repository.CodeKind, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.codes, f.key(kind, accountID))
	return nil
}

func (f *fakeCodeRepo) MarkResetVerified(_ context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified[accountID] = true
	return nil
}

func (f *fakeCodeRepo) IsResetVerified(_ context.Context, accountID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verified[accountID], nil
}

func (f *fakeCodeRepo) ClearResetVerified(_ context.Context, accountID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.verified, accountID)
	return nil
}

// fakeMailer records outbound codes.
type fakeMailer struct {
	mu    sync.Mutex
	sent  []string
	codes []string
}

func (f *fakeMailer) SendVerificationCode(to, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeMailer) SendResetCode(to, code string) error {
	return f.SendVerificationCode(to, code)
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:              "test-secret",
			AccessTokenTTLMinutes:  60,
			CodeTTLMinutes:         10,
			ResetConfirmTTLMinutes: 15,
			BcryptCost:             4,
		},
	}
}

func strPtr(s string) *string { return &s }

func catPtr(c domain.Category) *domain.Category { return &c }

func squareZone(minLat, minLng, maxLat, maxLng float64) geo.Polygon {
	return geo.Polygon{
		{Lat: minLat, Lng: minLng},
		{Lat: minLat, Lng: maxLng},
		{Lat: maxLat, Lng: maxLng},
		{Lat: maxLat, Lng: minLng},
	}
}
