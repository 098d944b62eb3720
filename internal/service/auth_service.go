package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/netsupport-service/internal/auth"
	"github.com/spec-kit/netsupport-service/internal/config"
	"github.com/spec-kit/netsupport-service/internal/domain"
	"github.com/spec-kit/netsupport-service/internal/mail"
	"github.com/spec-kit/netsupport-service/internal/repository"
	"github.com/spec-kit/netsupport-service/internal/validate"
	apperrors "github.com/spec-kit/netsupport-service/pkg/util"
)

// AuthService coordinates registration, login, email verification and the
// three-step password reset flow.
type AuthService struct {
	accounts   repository.AccountRepository
	codes      repository.CodeRepository
	mailer     mail.Sender
	tokenMgr   *auth.TokenManager
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	AccountRepo repository.AccountRepository
	CodeRepo    repository.CodeRepository
	Mailer      mail.Sender
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		accounts:   deps.AccountRepo,
		codes:      deps.CodeRepo,
		mailer:     deps.Mailer,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		logger:     deps.Logger,
		bcryptCost: cfg.Auth.BcryptCost,
		now:        time.Now,
	}
}

// RegisterClient creates a CLIENT account and mails a verification code.
func (s *AuthService) RegisterClient(ctx context.Context, handle, email, password, phone string) (*domain.Account, error) {
	email = validate.NormalizeEmail(email)
	if handle == "" || email == "" || password == "" || phone == "" {
		return nil, apperrors.NewValidationError("handle, email, password and phone are required", nil)
	}
	if !validate.Email(email) {
		return nil, apperrors.NewValidationError("invalid email format", nil)
	}
	normalizedPhone := validate.NormalizePhone(phone)
	if normalizedPhone == "" {
		return nil, apperrors.NewValidationError("invalid phone number, expected 8 digits or +216 prefix", nil)
	}
	if !validate.Password(password) {
		return nil, apperrors.NewValidationError("password must contain at least 8 characters with lower, upper, digit and special character", nil)
	}
	if err := s.ensureIdentityFree(ctx, handle, email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	account := &domain.Account{
		Handle:       handle,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleClient,
		Phone:        &normalizedPhone,
		Active:       true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("handle or email already in use", nil)
		}
		return nil, apperrors.MapError(err)
	}

	if err := s.issueCode(ctx, repository.CodeKindVerification, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Login authenticates any role and issues a token. Clients must have a
// verified email; deactivated accounts are always refused.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Account, string, time.Time, error) {
	email = validate.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("email and password required", nil)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !account.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("account deactivated, contact an administrator")
	}
	if account.Role == domain.RoleClient && !account.EmailVerified {
		return nil, "", time.Time{}, apperrors.NewForbidden("email not verified, check your inbox")
	}

	token, exp, err := s.tokenMgr.GenerateToken(account.ID, account.Role, account.Email)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return account, token, exp, nil
}

// VerifyEmail consumes the signup verification code.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	email = validate.NormalizeEmail(email)
	if email == "" || code == "" {
		return apperrors.NewValidationError("email and code required", nil)
	}
	account, err := s.getByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account.EmailVerified {
		return apperrors.NewConflict("email already verified", nil)
	}

	stored, err := s.codes.Get(ctx, repository.CodeKindVerification, account.ID)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return apperrors.NewValidationError("verification code expired, request a new one", nil)
		}
		return apperrors.MapError(err)
	}
	if stored != code {
		return apperrors.NewValidationError("incorrect verification code", nil)
	}

	if err := s.codes.Clear(ctx, repository.CodeKindVerification, account.ID); err != nil {
		return apperrors.MapError(err)
	}
	if err := s.accounts.SetEmailVerified(ctx, account.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// ResendCode reissues a verification code, replacing any previous one.
func (s *AuthService) ResendCode(ctx context.Context, email string) error {
	email = validate.NormalizeEmail(email)
	if email == "" {
		return apperrors.NewValidationError("email required", nil)
	}
	account, err := s.getByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account.EmailVerified {
		return apperrors.NewConflict("email already verified", nil)
	}
	return s.issueCode(ctx, repository.CodeKindVerification, account)
}

// ForgotPassword starts the reset flow by mailing a reset code.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = validate.NormalizeEmail(email)
	if email == "" {
		return apperrors.NewValidationError("email required", nil)
	}
	if !validate.Email(email) {
		return apperrors.NewValidationError("invalid email format", nil)
	}
	account, err := s.getByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account.Role == domain.RoleSuperAdmin {
		return apperrors.NewForbidden("not available for the super admin")
	}
	if !account.Active {
		return apperrors.NewForbidden("account deactivated, contact an administrator")
	}
	if err := s.codes.ClearResetVerified(ctx, account.ID); err != nil {
		return apperrors.MapError(err)
	}
	return s.issueCode(ctx, repository.CodeKindReset, account)
}

// VerifyResetCode confirms the reset code, unlocking ResetPassword.
func (s *AuthService) VerifyResetCode(ctx context.Context, email, code string) error {
	email = validate.NormalizeEmail(email)
	if email == "" || code == "" {
		return apperrors.NewValidationError("email and code required", nil)
	}
	account, err := s.getByEmail(ctx, email)
	if err != nil {
		return err
	}

	stored, err := s.codes.Get(ctx, repository.CodeKindReset, account.ID)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return apperrors.NewValidationError("incorrect or expired code", nil)
		}
		return apperrors.MapError(err)
	}
	if stored != code {
		return apperrors.NewValidationError("incorrect or expired code", nil)
	}

	if err := s.codes.Clear(ctx, repository.CodeKindReset, account.ID); err != nil {
		return apperrors.MapError(err)
	}
	if err := s.codes.MarkResetVerified(ctx, account.ID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// ResetPassword replaces the credential after a verified reset code,
// rejecting reuse of the previous password.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword, confirmation string) error {
	email = validate.NormalizeEmail(email)
	if email == "" || newPassword == "" || confirmation == "" {
		return apperrors.NewValidationError("email, new password and confirmation required", nil)
	}
	if newPassword != confirmation {
		return apperrors.NewValidationError("passwords do not match", nil)
	}
	if !validate.Password(newPassword) {
		return apperrors.NewValidationError("password must contain at least 8 characters with lower, upper, digit and special character", nil)
	}

	account, err := s.getByEmail(ctx, email)
	if err != nil {
		return err
	}
	verified, err := s.codes.IsResetVerified(ctx, account.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !verified {
		return apperrors.NewValidationError("no reset request in progress, restart the process", nil)
	}
	if auth.ComparePassword(account.PasswordHash, newPassword) == nil {
		return apperrors.NewValidationError("new password must differ from the old one", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return apperrors.MapError(err)
	}
	return apperrors.MapError(s.codes.ClearResetVerified(ctx, account.ID))
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) getByEmail(ctx context.Context, email string) (*domain.Account, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("no account associated with this email")
		}
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

func (s *AuthService) ensureIdentityFree(ctx context.Context, handle, email string) error {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return apperrors.NewConflict("email address already in use", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}
	if _, err := s.accounts.GetByHandle(ctx, handle); err == nil {
		return apperrors.NewConflict("handle already taken", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}
	return nil
}

// issueCode generates, stores and mails a one-time code. Storing supersedes
// any previous code; mail delivery failures are logged, not surfaced.
func (s *AuthService) issueCode(ctx context.Context, kind repository.CodeKind, account *domain.Account) error {
	code, err := mail.GenerateCode()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.codes.Store(ctx, kind, account.ID, code); err != nil {
		return apperrors.MapError(err)
	}

	email := account.Email
	go func() {
		var sendErr error
		if kind == repository.CodeKindReset {
			sendErr = s.mailer.SendResetCode(email, code)
		} else {
			sendErr = s.mailer.SendVerificationCode(email, code)
		}
		if sendErr != nil && s.logger != nil {
			s.logger.Warn("failed to send code email", zap.String("email", email), zap.Error(sendErr))
		}
	}()
	return nil
}
