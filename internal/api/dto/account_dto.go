package dto

import (
	"time"

	"github.com/spec-kit/netsupport-service/internal/domain"
	"github.com/spec-kit/netsupport-service/internal/geo"
	"github.com/spec-kit/netsupport-service/internal/service"
)

// CreateAdminRequest payload (super admin only).
type CreateAdminRequest struct {
	Handle   string      `json:"nom"`
	Email    string      `json:"email"`
	Password string      `json:"motDePasse"`
	Zone     geo.Polygon `json:"zoneIntervention"`
}

// CreateTechnicianRequest payload (admin only). The zone is inherited from
// the admin and is therefore absent here.
type CreateTechnicianRequest struct {
	Handle   string          `json:"nom"`
	Email    string          `json:"email"`
	Password string          `json:"motDePasse"`
	Category domain.Category `json:"categorie"`
}

// UpdateProfileRequest payload; omitted fields are left untouched.
type UpdateProfileRequest struct {
	Handle   *string `json:"nom"`
	Email    *string `json:"email"`
	Password *string `json:"motDePasse"`
	Phone    *string `json:"numTelephone"`
}

// AccountResponse is the public representation of an account. The password
// hash never leaves the service.
type AccountResponse struct {
	ID            string           `json:"id"`
	Handle        string           `json:"nom"`
	Email         string           `json:"email"`
	Role          domain.Role      `json:"role"`
	Phone         *string          `json:"numTelephone,omitempty"`
	Zone          geo.Polygon      `json:"zoneIntervention,omitempty"`
	Category      *domain.Category `json:"categorie,omitempty"`
	EmailVerified bool             `json:"emailVerifie"`
	Active        bool             `json:"actif"`
	CreatedAt     time.Time        `json:"creeLe"`
}

// TechnicianResponse adds the day-scoped presence flag.
type TechnicianResponse struct {
	AccountResponse
	PresentToday bool `json:"presentAujourdhui"`
}

// NewAccountResponse maps a domain account.
func NewAccountResponse(account *domain.Account) AccountResponse {
	return AccountResponse{
		ID:            account.ID,
		Handle:        account.Handle,
		Email:         account.Email,
		Role:          account.Role,
		Phone:         account.Phone,
		Zone:          account.Zone,
		Category:      account.Category,
		EmailVerified: account.EmailVerified,
		Active:        account.Active,
		CreatedAt:     account.CreatedAt,
	}
}

// NewAccountResponses maps a slice.
func NewAccountResponses(accounts []domain.Account) []AccountResponse {
	result := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		result = append(result, NewAccountResponse(&accounts[i]))
	}
	return result
}

// NewTechnicianResponses maps technicians with their derived presence.
func NewTechnicianResponses(technicians []service.TechnicianPresence) []TechnicianResponse {
	result := make([]TechnicianResponse, 0, len(technicians))
	for i := range technicians {
		result = append(result, TechnicianResponse{
			AccountResponse: NewAccountResponse(&technicians[i].Account),
			PresentToday:    technicians[i].PresentToday,
		})
	}
	return result
}
