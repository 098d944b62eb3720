package dto

import (
	"time"

	"github.com/spec-kit/netsupport-service/internal/domain"
)

// RegisterClientRequest payload. Wire keys follow the historical French API.
type RegisterClientRequest struct {
	Handle   string `json:"nom"`
	Email    string `json:"email"`
	Password string `json:"motDePasse"`
	Phone    string `json:"numTelephone"`
}

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"motDePasse"`
}

// LoginResponse carries the bearer token and the authenticated identity.
type LoginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	Account   AccountResponse `json:"utilisateur"`
}

// VerifyEmailRequest payload, also used for the reset-code check.
type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// EmailRequest payload for resend-code and forgot-password.
type EmailRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest payload for the final reset step.
type ResetPasswordRequest struct {
	Email           string `json:"email"`
	NewPassword     string `json:"nouveauMotDePasse"`
	ConfirmPassword string `json:"confirmationMotDePasse"`
}

// MessageResponse is the generic acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// NewLoginResponse builds the login body.
func NewLoginResponse(account *domain.Account, token string, expiresAt time.Time) LoginResponse {
	return LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   NewAccountResponse(account),
	}
}
