package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/netsupport-service/internal/domain"
	"github.com/spec-kit/netsupport-service/internal/geo"
)

// AccountRepository defines persistence access for accounts of all roles.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	Update(ctx context.Context, account *domain.Account) error
	UpdatePassword(ctx context.Context, id, hash string) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	GetByHandle(ctx context.Context, handle string) (*domain.Account, error)
	ListActiveAdmins(ctx context.Context) ([]domain.Account, error)
	ListAdmins(ctx context.Context) ([]domain.Account, error)
	ListTechniciansByCreator(ctx context.Context, adminID string, activeOnly bool) ([]domain.Account, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetPresence(ctx context.Context, id string, present bool, at *time.Time) error
	SetEmailVerified(ctx context.Context, id string) error
}

const accountColumns = `id, handle, email, password_hash, role, created_by, zone, categorie, phone,
               email_verified, present, presence_at, active, created_at, updated_at`

type accountRepository struct {
	pool PgxPool
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool PgxPool) AccountRepository {
	return &accountRepository{pool: pool}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO accounts (handle, email, password_hash, role, created_by, zone, categorie, phone, email_verified)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`

	zone, err := zoneValue(account.Zone)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, query,
		account.Handle,
		account.Email,
		account.PasswordHash,
		account.Role,
		account.CreatedBy,
		zone,
		account.Category,
		account.Phone,
		account.EmailVerified,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
}

func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	const query = `
        UPDATE accounts SET handle=$1, email=$2, password_hash=$3, phone=$4, updated_at=NOW()
        WHERE id=$5`

	cmd, err := r.pool.Exec(ctx, query,
		account.Handle,
		account.Email,
		account.PasswordHash,
		account.Phone,
		account.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	const query = `UPDATE accounts SET password_hash=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, hash, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.fetchSingle(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id)
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.fetchSingle(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email=$1`, email)
}

func (r *accountRepository) GetByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	return r.fetchSingle(ctx, `SELECT `+accountColumns+` FROM accounts WHERE handle=$1`, handle)
}

// ListActiveAdmins returns active admins in creation order, which makes the
// zone router's tie-break stable.
func (r *accountRepository) ListActiveAdmins(ctx context.Context) ([]domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts
        WHERE role='ADMIN' AND active=TRUE ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *accountRepository) ListAdmins(ctx context.Context) ([]domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts
        WHERE role='ADMIN' ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *accountRepository) ListTechniciansByCreator(ctx context.Context, adminID string, activeOnly bool) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts
        WHERE role='TECHNICIEN' AND created_by=$1`
	if activeOnly {
		query += ` AND active=TRUE`
	}
	query += ` ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, adminID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAccounts(rows)
}

func (r *accountRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE accounts SET active=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, active, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) SetPresence(ctx context.Context, id string, present bool, at *time.Time) error {
	const query = `UPDATE accounts SET present=$1, presence_at=$2, updated_at=NOW() WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, present, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) SetEmailVerified(ctx context.Context, id string) error {
	const query = `UPDATE accounts SET email_verified=TRUE, updated_at=NOW() WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *accountRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Account, error) {
	account, err := scanAccount(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	return account, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		account  domain.Account
		zoneRaw  []byte
		category *string
	)
	if err := row.Scan(
		&account.ID,
		&account.Handle,
		&account.Email,
		&account.PasswordHash,
		&account.Role,
		&account.CreatedBy,
		&zoneRaw,
		&category,
		&account.Phone,
		&account.EmailVerified,
		&account.Present,
		&account.PresenceAt,
		&account.Active,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if zoneRaw != nil {
		var zone geo.Polygon
		if err := json.Unmarshal(zoneRaw, &zone); err != nil {
			return nil, err
		}
		account.Zone = zone
	}
	if category != nil {
		c := domain.Category(*category)
		account.Category = &c
	}
	return &account, nil
}

func scanAccounts(rows pgx.Rows) ([]domain.Account, error) {
	var result []domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *account)
	}
	return result, rows.Err()
}

func zoneValue(zone geo.Polygon) (any, error) {
	if zone == nil {
		return nil, nil
	}
	raw, err := json.Marshal(zone)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
