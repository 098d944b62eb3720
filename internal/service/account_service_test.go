package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/netsupport-service/internal/auth"
	"github.com/spec-kit/netsupport-service/internal/domain"
	"github.com/spec-kit/netsupport-service/internal/events"
	"github.com/spec-kit/netsupport-service/internal/geo"
)

func newAccountService(accounts *fakeAccountRepo) *AccountService {
	return NewAccountService(testConfig(), AccountDependencies{
		AccountRepo: accounts,
		Dispatcher:  events.NewInMemoryDispatcher(),
	})
}

func seedSuperAdmin(accounts *fakeAccountRepo) *domain.Account {
	return accounts.add(&domain.Account{
		Handle: "root", Email: "root@example.com",
		Role: domain.RoleSuperAdmin, EmailVerified: true, Active: true,
	})
}

func TestCreateAdmin(t *testing.T) {
	accounts := newFakeAccountRepo()
	svc := newAccountService(accounts)
	super := seedSuperAdmin(accounts)
	zone := squareZone(36.7, 10.0, 36.95, 10.4)

	admin, err := svc.CreateAdmin(context.Background(), super, "admin-tunis", "admin@example.com", "Str0ng!pass", zone)
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, admin.Role)
	require.Equal(t, super.ID, admin.CreatedByID())
	require.True(t, admin.EmailVerified)
	require.True(t, admin.Active)
	require.Equal(t, zone, admin.Zone)
	require.NotEqual(t, "Str0ng!pass", admin.PasswordHash)
}

func TestCreateAdmin_RequiresZoneAndRole(t *testing.T) {
	accounts := newFakeAccountRepo()
	svc := newAccountService(accounts)
	super := seedSuperAdmin(accounts)

	_, err := svc.CreateAdmin(context.Background(), super, "admin-x", "x@example.com", "Str0ng!pass", nil)
	requireDomainError(t, err, "VALIDATION_FAILED")

	_, err = svc.CreateAdmin(context.Background(), super, "admin-x", "x@example.com", "Str0ng!pass", geo.Polygon{{Lat: 1, Lng: 1}})
	requireDomainError(t, err, "VALIDATION_FAILED")

	admin := seedAdmin(accounts, "admin-y", squareZone(1, 1, 2, 2))
	_, err = svc.CreateAdmin(context.Background(), admin, "admin-z", "z@example.com", "Str0ng!pass", admin.Zone)
	requireDomainError(t, err, "FORBIDDEN")
}

func TestCreateAdmin_DuplicateIdentity(t *testing.T) {
	accounts := newFakeAccountRepo()
	svc := newAccountService(accounts)
	super := seedSuperAdmin(accounts)
	zone := squareZone(36.7, 10.0, 36.95, 10.4)

	_, err := svc.CreateAdmin(context.Background(), super, "admin-tunis", "admin@example.com", "Str0ng!pass", zone)
	require.NoError(t, err)

	_, err = svc.CreateAdmin(context.Background(), super, "admin-tunis", "other@example.com", "Str0ng!pass", zone)
	requireDomainError(t, err, "CONFLICT")
}

func TestCreateTechnician_InheritsAdminZone(t *testing.T) {
	accounts := newFakeAccountRepo()
	svc := newAccountService(accounts)
	admin := seedAdmin(accounts, "admin-tunis", squareZone(36.7, 10.0, 36.95, 10.4))

	tech, err := svc.CreateTechnician(context.Background(), admin, "tech-1", "tech@example.com", "Str0ng!pass", domain.CategoryOnSite)
	require.NoError(t, err)
	require.Equal(t, domain.RoleTechnician, tech.Role)
	require.Equal(t, admin.ID, tech.CreatedByID())
	require.Equal(t, admin.Zone, tech.Zone)
	require.NotNil(t, tech.Category)
	require.Equal(t, domain.CategoryOnSite, *tech.Category)
}

func TestCreateTechnician_RequiresCategory(t *testing.T) {
	accounts := newFakeAccountRepo()
	svc := newAccountService(accounts)
	admin := seedAdmin(accounts, "admin-tunis", squareZone(36.7, 10.0, 36.95, 10.4))

	_, err := svc.CreateTechnician(context.Background(), admin, "tech-1", "tech@example.com", "Str0ng!pass", domain.Category(""))
	requireDomainError(t, err, "VALIDATION_FAILED")

	super := seedSuperAdmin(accounts)
	_, err = svc.CreateTechnician(context.Background(), super, "tech-2", "tech2@example.com", "Str0ng!pass", domain.CategoryOnSite)
	requireDomainError(t, err, "FORBIDDEN")
}

func TestSetActivation_SuperAdminOnAdmins(t *testing.T) {
	accounts := newFakeAccountRepo()
	svc := newAccountService(accounts)
	super := seedSuperAdmin(accounts)
	admin := seedAdmin(accounts, "admin-tunis", squareZone(36.7, 10.0, 36.95, 10.4))

	deactivated, err := svc.SetActivation(context.Background(), super, admin.ID, false)
	require.NoError(t, err)
	require.False(t, deactivated.Active)

	// Already deactivated.
	_, err = svc.SetActivation(context.Background(), super, admin.ID, false)
	requireDomainError(t, err, "CONFLICT")

	reactivated, err := svc.SetActivation(context.Background(), super, admin.ID, true)
	require.NoError(t, err)
	require.True(t, reactivated.Active)

	// The super admin never confirms non-admin account existence.
	client := seedClient(accounts)
	_, err = svc.SetActivation(context.Background(), super, client.ID, false)
	requireDomainError(t, err, "NOT_FOUND")
}

func TestSetActivation_AdminScope(t *testing.T) {
	accounts := newFakeAccountRepo()
	svc := newAccountService(accounts)
	admin := seedAdmin(accounts, "admin-tunis", squareZone(36.7, 10.0, 36.95, 10.4))
	other := seedAdmin(accounts, "admin-sfax", squareZone(34.6, 10.5, 34.9, 10.9))
	now := time.Now()
	ownTech := seedTechnician(accounts, admin, "tech-own", domain.CategoryOnSite, &now)
	foreignTech := seedTechnician(accounts, other, "tech-foreign", domain.CategoryOnSite, &now)
	client := seedClient(accounts)

	deactivated, err := svc.SetActivation(context.Background(), admin, ownTech.ID, false)
	require.NoError(t, err)
	require.False(t, deactivated.Active)

	_, err = svc.SetActivation(context.Background(), admin, foreignTech.ID, false)
	requireDomainError(t, err, "FORBIDDEN")

	_, err = svc.SetActivation(context.Background(), admin, other.ID, false)
	requireDomainError(t, err, "FORBIDDEN")

	// Clients are fair game for any admin.
	deactivatedClient, err := svc.SetActivation(context.Background(), admin, client.ID, false)
	require.NoError(t, err)
	require.False(t, deactivatedClient.Active)

	_, err = svc.SetActivation(context.Background(), admin, "missing", false)
	requireDomainError(t, err, "NOT_FOUND")
}

func TestMarkPresent_And_Absent(t *testing.T) {
	accounts := newFakeAccountRepo()
	svc := newAccountService(accounts)
	admin := seedAdmin(accounts, "admin-tunis", squareZone(36.7, 10.0, 36.95, 10.4))
	tech := seedTechnician(accounts, admin, "tech-1", domain.CategoryOnSite, nil)

	marked, err := svc.MarkPresent(context.Background(), admin, tech.ID)
	require.NoError(t, err)
	require.True(t, marked.Present)
	require.NotNil(t, marked.PresenceAt)

	_, err = svc.MarkPresent(context.Background(), admin, tech.ID)
	requireDomainError(t, err, "CONFLICT")

	cleared, err := svc.MarkAbsent(context.Background(), admin, tech.ID)
	require.NoError(t, err)
	require.False(t, cleared.Present)

	_, err = svc.MarkAbsent(context.Background(), admin, tech.ID)
	requireDomainError(t, err, "CONFLICT")
}

func TestMarkPresent_StaleFlagRollsOver(t *testing.T) {
	accounts := newFakeAccountRepo()
	svc := newAccountService(accounts)
	admin := seedAdmin(accounts, "admin-tunis", squareZone(36.7, 10.0, 36.95, 10.4))
	yesterday := time.Now().Add(-24 * time.Hour)
	tech := seedTechnician(accounts, admin, "tech-1", domain.CategoryOnSite, &yesterday)

	// Yesterday's flag does not block marking presence today.
	marked, err := svc.MarkPresent(context.Background(), admin, tech.ID)
	require.NoError(t, err)
	require.True(t, marked.Present)
}

func TestMarkPresent_OwnershipAndState(t *testing.T) {
	accounts := newFakeAccountRepo()
	svc := newAccountService(accounts)
	admin := seedAdmin(accounts, "admin-tunis", squareZone(36.7, 10.0, 36.95, 10.4))
	other := seedAdmin(accounts, "admin-sfax", squareZone(34.6, 10.5, 34.9, 10.9))
	tech := seedTechnician(accounts, other, "tech-foreign", domain.CategoryOnSite, nil)

	_, err := svc.MarkPresent(context.Background(), admin, tech.ID)
	requireDomainError(t, err, "FORBIDDEN")

	_, err = svc.MarkPresent(context.Background(), admin, "missing")
	requireDomainError(t, err, "NOT_FOUND")

	own := seedTechnician(accounts, admin, "tech-off", domain.CategoryOnSite, nil)
	require.NoError(t, accounts.SetActive(context.Background(), own.ID, false))
	_, err = svc.MarkPresent(context.Background(), admin, own.ID)
	requireDomainError(t, err, "FORBIDDEN")
}

func TestListTechnicians_PresenceFilter(t *testing.T) {
	accounts := newFakeAccountRepo()
	svc := newAccountService(accounts)
	admin := seedAdmin(accounts, "admin-tunis", squareZone(36.7, 10.0, 36.95, 10.4))
	now := time.Now()
	seedTechnician(accounts, admin, "tech-here", domain.CategoryOnSite, &now)
	seedTechnician(accounts, admin, "tech-away", domain.CategoryRemote, nil)

	all, err := svc.ListTechnicians(context.Background(), admin, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	present := true
	here, err := svc.ListTechnicians(context.Background(), admin, &present)
	require.NoError(t, err)
	require.Len(t, here, 1)
	require.Equal(t, "tech-here", here[0].Account.Handle)
	require.True(t, here[0].PresentToday)

	absent := false
	away, err := svc.ListTechnicians(context.Background(), admin, &absent)
	require.NoError(t, err)
	require.Len(t, away, 1)
	require.Equal(t, "tech-away", away[0].Account.Handle)
}

func TestListAdmins(t *testing.T) {
	accounts := newFakeAccountRepo()
	svc := newAccountService(accounts)
	super := seedSuperAdmin(accounts)
	seedAdmin(accounts, "admin-tunis", squareZone(36.7, 10.0, 36.95, 10.4))
	seedAdmin(accounts, "admin-sfax", squareZone(34.6, 10.5, 34.9, 10.9))

	admins, err := svc.ListAdmins(context.Background(), super)
	require.NoError(t, err)
	require.Len(t, admins, 2)

	admin := admins[0]
	_, err = svc.ListAdmins(context.Background(), &admin)
	requireDomainError(t, err, "FORBIDDEN")
}

func TestUpdateProfile(t *testing.T) {
	accounts := newFakeAccountRepo()
	svc := newAccountService(accounts)
	hash, err := auth.HashPassword("Str0ng!pass", 4)
	require.NoError(t, err)
	client := accounts.add(&domain.Account{
		Handle: "client-1", Email: "client@example.com", PasswordHash: hash,
		Role: domain.RoleClient, EmailVerified: true, Active: true,
	})

	updated, err := svc.UpdateProfile(context.Background(), client, ProfileUpdate{
		Handle: strPtr("client-renamed"),
		Phone:  strPtr("12 34 56 78"),
	})
	require.NoError(t, err)
	require.Equal(t, "client-renamed", updated.Handle)
	require.NotNil(t, updated.Phone)
	require.Equal(t, "+21612345678", *updated.Phone)
}

func TestUpdateProfile_Conflicts(t *testing.T) {
	accounts := newFakeAccountRepo()
	svc := newAccountService(accounts)
	hash, err := auth.HashPassword("Str0ng!pass", 4)
	require.NoError(t, err)
	client := accounts.add(&domain.Account{
		Handle: "client-1", Email: "client@example.com", PasswordHash: hash,
		Role: domain.RoleClient, EmailVerified: true, Active: true,
	})
	accounts.add(&domain.Account{
		Handle: "client-2", Email: "taken@example.com",
		Role: domain.RoleClient, EmailVerified: true, Active: true,
	})

	_, err = svc.UpdateProfile(context.Background(), client, ProfileUpdate{Handle: strPtr("client-2")})
	requireDomainError(t, err, "CONFLICT")

	_, err = svc.UpdateProfile(context.Background(), client, ProfileUpdate{Email: strPtr("taken@example.com")})
	requireDomainError(t, err, "CONFLICT")

	_, err = svc.UpdateProfile(context.Background(), client, ProfileUpdate{Email: strPtr("not-an-email")})
	requireDomainError(t, err, "VALIDATION_FAILED")

	// Reusing the current password is refused.
	_, err = svc.UpdateProfile(context.Background(), client, ProfileUpdate{Password: strPtr("Str0ng!pass")})
	requireDomainError(t, err, "VALIDATION_FAILED")

	_, err = svc.UpdateProfile(context.Background(), client, ProfileUpdate{Password: strPtr("weak")})
	requireDomainError(t, err, "VALIDATION_FAILED")
}

func TestProfile_SuperAdminExcluded(t *testing.T) {
	accounts := newFakeAccountRepo()
	svc := newAccountService(accounts)
	super := seedSuperAdmin(accounts)

	_, err := svc.GetProfile(context.Background(), super)
	requireDomainError(t, err, "FORBIDDEN")

	_, err = svc.UpdateProfile(context.Background(), super, ProfileUpdate{Handle: strPtr("x")})
	requireDomainError(t, err, "FORBIDDEN")
}
