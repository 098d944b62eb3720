package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/netsupport-service/internal/auth"
	"github.com/spec-kit/netsupport-service/internal/config"
	"github.com/spec-kit/netsupport-service/internal/domain"
	"github.com/spec-kit/netsupport-service/internal/events"
	"github.com/spec-kit/netsupport-service/internal/geo"
	"github.com/spec-kit/netsupport-service/internal/repository"
	"github.com/spec-kit/netsupport-service/internal/validate"
	apperrors "github.com/spec-kit/netsupport-service/pkg/util"
)

// AccountService manages hierarchical provisioning, activation toggles,
// technician presence and profile maintenance.
type AccountService struct {
	accounts   repository.AccountRepository
	dispatcher events.Dispatcher
	bcryptCost int
	now        func() time.Time
}

// AccountDependencies encapsulates repo requirements for the account service.
type AccountDependencies struct {
	AccountRepo repository.AccountRepository
	Dispatcher  events.Dispatcher
}

// NewAccountService constructs the service.
func NewAccountService(cfg config.Config, deps AccountDependencies) *AccountService {
	return &AccountService{
		accounts:   deps.AccountRepo,
		dispatcher: deps.Dispatcher,
		bcryptCost: cfg.Auth.BcryptCost,
		now:        time.Now,
	}
}

// TechnicianPresence pairs a technician with its derived presence for today.
type TechnicianPresence struct {
	Account      domain.Account
	PresentToday bool
}

// ProfileUpdate carries optional profile changes; nil fields are untouched.
type ProfileUpdate struct {
	Handle   *string
	Email    *string
	Password *string
	Phone    *string
}

// CreateAdmin provisions an ADMIN with an intervention zone. Actor must be
// the super admin.
func (s *AccountService) CreateAdmin(ctx context.Context, actor *domain.Account, handle, email, password string, zone geo.Polygon) (*domain.Account, error) {
	if actor.Role != domain.RoleSuperAdmin {
		return nil, apperrors.NewForbidden("only the super admin may create admins")
	}
	if err := s.validateNewAccount(ctx, handle, &email, password); err != nil {
		return nil, err
	}
	if zone == nil {
		return nil, apperrors.NewValidationError("intervention zone is required for an admin", nil)
	}
	if err := zone.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	creator := actor.ID
	admin := &domain.Account{
		Handle:        handle,
		Email:         email,
		PasswordHash:  hash,
		Role:          domain.RoleAdmin,
		CreatedBy:     &creator,
		Zone:          zone,
		EmailVerified: true, // provisioned accounts skip email verification
		Active:        true,
	}
	if err := s.accounts.Create(ctx, admin); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("handle or email already in use", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return admin, nil
}

// CreateTechnician provisions a TECHNICIEN under the acting admin. The zone
// is inherited verbatim from the admin and is never independently settable.
func (s *AccountService) CreateTechnician(ctx context.Context, actor *domain.Account, handle, email, password string, category domain.Category) (*domain.Account, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("only an admin may create technicians")
	}
	if err := s.validateNewAccount(ctx, handle, &email, password); err != nil {
		return nil, err
	}
	if !domain.ValidCategory(category) {
		return nil, apperrors.NewValidationError("category is required for a technician (UGS or ULS)", nil)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	creator := actor.ID
	technician := &domain.Account{
		Handle:        handle,
		Email:         email,
		PasswordHash:  hash,
		Role:          domain.RoleTechnician,
		CreatedBy:     &creator,
		Zone:          actor.Zone,
		Category:      &category,
		EmailVerified: true,
		Active:        true,
	}
	if err := s.accounts.Create(ctx, technician); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("handle or email already in use", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return technician, nil
}

// SetActivation toggles the soft-delete flag. Super admin acts on admins
// only; an admin acts on clients generally and on its own technicians.
func (s *AccountService) SetActivation(ctx context.Context, actor *domain.Account, targetID string, active bool) (*domain.Account, error) {
	target, err := s.getByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case domain.RoleSuperAdmin:
		// Existence of non-admin accounts is not confirmed to the super admin.
		if target.Role != domain.RoleAdmin {
			return nil, apperrors.NewNotFound("admin not found")
		}
	case domain.RoleAdmin:
		if target.Role != domain.RoleTechnician && target.Role != domain.RoleClient {
			return nil, apperrors.NewForbidden("an admin may only act on technicians or clients")
		}
		if target.Role == domain.RoleTechnician && target.CreatedByID() != actor.ID {
			return nil, apperrors.NewForbidden("this technician is not managed by this admin")
		}
	default:
		return nil, apperrors.NewForbidden("insufficient role")
	}

	if target.Active == active {
		if active {
			return nil, apperrors.NewConflict("account already active", nil)
		}
		return nil, apperrors.NewConflict("account already deactivated", nil)
	}
	if err := s.accounts.SetActive(ctx, target.ID, active); err != nil {
		return nil, apperrors.MapError(err)
	}
	target.Active = active

	eventType := events.EventAccountDeactivated
	if active {
		eventType = events.EventAccountReactivated
	}
	s.publish(ctx, actor, eventType, events.AccountActivationPayload{AccountID: target.ID, Role: target.Role})
	return target, nil
}

// MarkPresent flags an owned technician as present for the current day.
func (s *AccountService) MarkPresent(ctx context.Context, actor *domain.Account, technicianID string) (*domain.Account, error) {
	technician, err := s.ownedTechnician(ctx, actor, technicianID)
	if err != nil {
		return nil, err
	}
	if !technician.Active {
		return nil, apperrors.NewForbidden("this technician is deactivated")
	}
	now := s.now()
	if technician.PresentOn(now) {
		return nil, apperrors.NewConflict("technician already marked present today", nil)
	}
	if err := s.accounts.SetPresence(ctx, technician.ID, true, &now); err != nil {
		return nil, apperrors.MapError(err)
	}
	technician.Present = true
	technician.PresenceAt = &now
	s.publish(ctx, actor, events.EventPresenceMarked, events.PresenceMarkedPayload{TechnicianID: technician.ID, Present: true})
	return technician, nil
}

// MarkAbsent clears the presence flag; the technician must currently count
// as present today.
func (s *AccountService) MarkAbsent(ctx context.Context, actor *domain.Account, technicianID string) (*domain.Account, error) {
	technician, err := s.ownedTechnician(ctx, actor, technicianID)
	if err != nil {
		return nil, err
	}
	if !technician.PresentOn(s.now()) {
		return nil, apperrors.NewConflict("technician is not marked present", nil)
	}
	if err := s.accounts.SetPresence(ctx, technician.ID, false, nil); err != nil {
		return nil, apperrors.MapError(err)
	}
	technician.Present = false
	technician.PresenceAt = nil
	s.publish(ctx, actor, events.EventPresenceMarked, events.PresenceMarkedPayload{TechnicianID: technician.ID, Present: false})
	return technician, nil
}

// ListTechnicians returns the admin's active technicians with their derived
// presence, optionally filtered on it.
func (s *AccountService) ListTechnicians(ctx context.Context, actor *domain.Account, presentFilter *bool) ([]TechnicianPresence, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	technicians, err := s.accounts.ListTechniciansByCreator(ctx, actor.ID, true)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	now := s.now()
	result := make([]TechnicianPresence, 0, len(technicians))
	for i := range technicians {
		present := technicians[i].PresentOn(now)
		if presentFilter != nil && present != *presentFilter {
			continue
		}
		result = append(result, TechnicianPresence{Account: technicians[i], PresentToday: present})
	}
	return result, nil
}

// ListAdmins returns all admins for the super admin.
func (s *AccountService) ListAdmins(ctx context.Context, actor *domain.Account) ([]domain.Account, error) {
	if actor.Role != domain.RoleSuperAdmin {
		return nil, apperrors.NewForbidden("super admin role required")
	}
	admins, err := s.accounts.ListAdmins(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return admins, nil
}

// GetProfile returns the caller's own account. The super admin has no
// profile surface.
func (s *AccountService) GetProfile(ctx context.Context, actor *domain.Account) (*domain.Account, error) {
	if actor.Role == domain.RoleSuperAdmin {
		return nil, apperrors.NewForbidden("not available for the super admin")
	}
	return actor, nil
}

// UpdateProfile applies the caller's own profile changes under the same
// uniqueness and format rules as registration. Password changes are hashed
// here and only here.
func (s *AccountService) UpdateProfile(ctx context.Context, actor *domain.Account, update ProfileUpdate) (*domain.Account, error) {
	if actor.Role == domain.RoleSuperAdmin {
		return nil, apperrors.NewForbidden("not available for the super admin")
	}

	if update.Handle != nil && *update.Handle != "" && *update.Handle != actor.Handle {
		if _, err := s.accounts.GetByHandle(ctx, *update.Handle); err == nil {
			return nil, apperrors.NewConflict("handle already taken", nil)
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		actor.Handle = *update.Handle
	}

	if update.Email != nil && *update.Email != "" {
		email := validate.NormalizeEmail(*update.Email)
		if !validate.Email(email) {
			return nil, apperrors.NewValidationError("invalid email format", nil)
		}
		if email != actor.Email {
			if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
				return nil, apperrors.NewConflict("email address already in use", nil)
			} else if !errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.MapError(err)
			}
			actor.Email = email
		}
	}

	if update.Password != nil && *update.Password != "" {
		if !validate.Password(*update.Password) {
			return nil, apperrors.NewValidationError("password must contain at least 8 characters with lower, upper, digit and special character", nil)
		}
		if auth.ComparePassword(actor.PasswordHash, *update.Password) == nil {
			return nil, apperrors.NewValidationError("new password must differ from the old one", nil)
		}
		hash, err := auth.HashPassword(*update.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		actor.PasswordHash = hash
	}

	if update.Phone != nil && *update.Phone != "" && actor.Role == domain.RoleClient {
		normalized := validate.NormalizePhone(*update.Phone)
		if normalized == "" {
			return nil, apperrors.NewValidationError("invalid phone number, expected 8 digits or +216 prefix", nil)
		}
		actor.Phone = &normalized
	}

	if err := s.accounts.Update(ctx, actor); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("handle or email already in use", nil)
		}
		return nil, apperrors.MapError(err)
	}
	return actor, nil
}

func (s *AccountService) validateNewAccount(ctx context.Context, handle string, email *string, password string) error {
	*email = validate.NormalizeEmail(*email)
	if handle == "" || *email == "" || password == "" {
		return apperrors.NewValidationError("handle, email and password are required", nil)
	}
	if !validate.Email(*email) {
		return apperrors.NewValidationError("invalid email format", nil)
	}
	if !validate.Password(password) {
		return apperrors.NewValidationError("password must contain at least 8 characters with lower, upper, digit and special character", nil)
	}
	if _, err := s.accounts.GetByEmail(ctx, *email); err == nil {
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

// ownedTechnician loads a technician and enforces the creePar ownership
// chain against the acting admin.
func (s *AccountService) ownedTechnician(ctx context.Context, actor *domain.Account, technicianID string) (*domain.Account, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	technician, err := s.getByID(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if technician.Role != domain.RoleTechnician {
		return nil, apperrors.NewNotFound("technician not found")
	}
	if technician.CreatedByID() != actor.ID {
		return nil, apperrors.NewForbidden("this technician is not managed by this admin")
	}
	return technician, nil
}

func (s *AccountService) getByID(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("account not found")
		}
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

func (s *AccountService) publish(ctx context.Context, actor *domain.Account, eventType events.EventType, payload interface{}) {
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
