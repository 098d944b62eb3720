package domain

import (
	"time"

	"github.com/spec-kit/netsupport-service/internal/geo"
)

// Role enumerates the four account roles.
type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleTechnician Role = "TECHNICIEN"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Category is the technician specialization: UGS works remotely, ULS on site.
type Category string

const (
	CategoryRemote Category = "UGS"
	CategoryOnSite Category = "ULS"
)

// ValidCategory reports whether c is a known technician category.
func ValidCategory(c Category) bool {
	return c == CategoryRemote || c == CategoryOnSite
}

// CanHandle reports whether a technician of this category may take a ticket
// of the given problem type. Remote technicians handle modem configuration
// only; on-site technicians handle everything else.
func (c Category) CanHandle(pt ProblemType) bool {
	if c == CategoryRemote {
		return pt == ProblemConfigModem
	}
	return pt != ProblemConfigModem
}

// Account is the single storage shape shared by all four roles.
// Role-conditional fields are nil for roles they do not apply to.
type Account struct {
	ID            string
	Handle        string
	Email         string
	PasswordHash  string
	Role          Role
	CreatedBy     *string     // ADMIN -> creating SUPER_ADMIN, TECHNICIEN -> creating ADMIN
	Zone          geo.Polygon // ADMIN and TECHNICIEN only
	Category      *Category   // TECHNICIEN only
	Phone         *string     // CLIENT only
	EmailVerified bool
	Present       bool
	PresenceAt    *time.Time
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PresentOn reports whether the technician's presence mark is valid for the
// calendar day of now. Staleness is resolved here on read, there is no
// midnight reset job.
func (a *Account) PresentOn(now time.Time) bool {
	if !a.Present || a.PresenceAt == nil {
		return false
	}
	y1, m1, d1 := a.PresenceAt.In(now.Location()).Date()
	y2, m2, d2 := now.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// CreatedByID returns the parent account id or "" when unset.
func (a *Account) CreatedByID() string {
	if a.CreatedBy == nil {
		return ""
	}
	return *a.CreatedBy
}
