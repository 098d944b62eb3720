package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeKind distinguishes the two mutually exclusive one-time code flows.
type CodeKind string

const (
	CodeKindVerification CodeKind = "verify"
	CodeKindReset        CodeKind = "reset"
)

// CodeRepository stores one-time codes for email verification and password
// reset. Expiry rides on the key TTL, so a stale code simply stops existing;
// consuming or reissuing a code clears the previous one.
type CodeRepository interface {
	Store(ctx context.Context, kind CodeKind, accountID, code string) error
	Get(ctx context.Context, kind CodeKind, accountID string) (string, error)
	Clear(ctx context.Context, kind CodeKind, accountID string) error
	MarkResetVerified(ctx context.Context, accountID string) error
	IsResetVerified(ctx context.Context, accountID string) (bool, error)
	ClearResetVerified(ctx context.Context, accountID string) error
}

// ErrCodeNotFound is returned when no live code exists for the account.
var ErrCodeNotFound = errors.New("code not found or expired")

type codeRepository struct {
	client     *redis.Client
	codeTTL    time.Duration
	confirmTTL time.Duration
}

// NewCodeRepository returns a Redis-backed code store.
func NewCodeRepository(client *redis.Client, codeTTL, confirmTTL time.Duration) CodeRepository {
	return &codeRepository{client: client, codeTTL: codeTTL, confirmTTL: confirmTTL}
}

func codeKey(kind CodeKind, accountID string) string {
	return "code:" + string(kind) + ":" + accountID
}

func resetVerifiedKey(accountID string) string {
	return "code:reset_ok:" + accountID
}

func (r *codeRepository) Store(ctx context.Context, kind CodeKind, accountID, code string) error {
	return r.client.Set(ctx, codeKey(kind, accountID), code, r.codeTTL).Err()
}

func (r *codeRepository) Get(ctx context.Context, kind CodeKind, accountID string) (string, error) {
	code, err := r.client.Get(ctx, codeKey(kind, accountID)).Result()
	if err == redis.Nil {
		return "", ErrCodeNotFound
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

func (r *codeRepository) Clear(ctx context.Context, kind CodeKind, accountID string) error {
	return r.client.Del(ctx, codeKey(kind, accountID)).Err()
}

func (r *codeRepository) MarkResetVerified(ctx context.Context, accountID string) error {
	return r.client.Set(ctx, resetVerifiedKey(accountID), "1", r.confirmTTL).Err()
}

func (r *codeRepository) IsResetVerified(ctx context.Context, accountID string) (bool, error) {
	_, err := r.client.Get(ctx, resetVerifiedKey(accountID)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *codeRepository) ClearResetVerified(ctx context.Context, accountID string) error {
	return r.client.Del(ctx, resetVerifiedKey(accountID)).Err()
}
