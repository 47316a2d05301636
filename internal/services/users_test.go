package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rojanatorn/apiserver/internal/auth"
	"github.com/rojanatorn/apiserver/internal/directory"
	"github.com/rojanatorn/apiserver/types"
)

func newUserService() (*UserService, *directory.MemoryDirectory) {
	dir := directory.NewMemoryDirectory()
	tokens := auth.NewTokenService("test-secret", "atelier-api", "atelier-dashboard", time.Hour)
	return NewUserService(dir, tokens), dir
}

func TestBootstrapOnce(t *testing.T) {
	ctx := context.Background()
	svc, dir := newUserService()

	user, session, err := svc.Bootstrap(ctx, "owner@example.com", "longenough1", "")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if user.Role != types.RoleAdmin {
		t.Errorf("expected admin role by default, got %q", user.Role)
	}
	if session.Token == "" {
		t.Error("expected a session token")
	}

	if _, _, err := svc.Bootstrap(ctx, "second@example.com", "longenough1", ""); !errors.Is(err, ErrBootstrapClosed) {
		t.Errorf("expected ErrBootstrapClosed, got %v", err)
	}
	count, _ := dir.Count(ctx)
	if count != 1 {
		t.Errorf("expected exactly 1 user after rejected bootstrap, got %d", count)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, dir := newUserService()

	if _, _, err := svc.Bootstrap(ctx, "owner@example.com", "longenough1", ""); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	session, err := svc.Login(ctx, "OWNER@example.com", "longenough1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Role != types.RoleAdmin {
		t.Errorf("expected admin role, got %q", session.Role)
	}

	if _, err := svc.Login(ctx, "owner@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "longenough1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}

	user, err := dir.GetByEmail(ctx, "owner@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if user.LastLoginAt == nil {
		t.Error("expected last-login stamp after login")
	}
}

func TestLoginRejectsPendingInvite(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService()

	if _, _, err := svc.Bootstrap(ctx, "owner@example.com", "longenough1", ""); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if _, err := svc.Invite(ctx, "alice@example.com", "member", 3); err != nil {
		t.Fatalf("invite: %v", err)
	}

	if _, err := svc.Login(ctx, "alice@example.com", "anything"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials before invite acceptance, got %v", err)
	}
}

func TestInviteRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService()

	if _, _, err := svc.Bootstrap(ctx, "owner@example.com", "longenough1", ""); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	invite, err := svc.Invite(ctx, "Alice@Example.com", "member", 3)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if invite.Email != "alice@example.com" {
		t.Errorf("expected normalized email, got %q", invite.Email)
	}
	if invite.Role != types.RoleMember {
		t.Errorf("expected member role, got %q", invite.Role)
	}
	wantExpiry := time.Now().UTC().AddDate(0, 0, 3)
	if diff := invite.ExpiresAt.Sub(wantExpiry); diff < -time.Minute || diff > time.Minute {
		t.Errorf("expected expiry ~3 days out, got %v", invite.ExpiresAt)
	}

	details, err := svc.InviteDetails(ctx, invite.Token)
	if err != nil {
		t.Fatalf("invite details: %v", err)
	}
	if details.Email != invite.Email || details.Role != invite.Role {
		t.Errorf("details mismatch: %+v vs %+v", details, invite)
	}
}

func TestInviteExpiryClamp(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService()
	if _, _, err := svc.Bootstrap(ctx, "owner@example.com", "longenough1", ""); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	cases := []struct {
		requested int
		wantDays  int
	}{
		{0, 7},
		{-5, 1},
		{1, 1},
		{30, 30},
		{90, 30},
	}
	for i, tc := range cases {
		invite, err := svc.Invite(ctx, fmt.Sprintf("u%d@example.com", i), "member", tc.requested)
		if err != nil {
			t.Fatalf("invite %d: %v", i, err)
		}
		want := time.Now().UTC().AddDate(0, 0, tc.wantDays)
		if diff := invite.ExpiresAt.Sub(want); diff < -time.Minute || diff > time.Minute {
			t.Errorf("requested %d days: expected expiry ~%d days out, got %v", tc.requested, tc.wantDays, invite.ExpiresAt)
		}
	}
}

func TestInviteConflictsAndOverwrites(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService()
	if _, _, err := svc.Bootstrap(ctx, "owner@example.com", "longenough1", ""); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	// Re-inviting an active account conflicts.
	if _, err := svc.Invite(ctx, "owner@example.com", "member", 7); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken for active account, got %v", err)
	}

	// Re-inviting a pending account overwrites it in place.
	first, err := svc.Invite(ctx, "alice@example.com", "member", 7)
	if err != nil {
		t.Fatalf("first invite: %v", err)
	}
	second, err := svc.Invite(ctx, "alice@example.com", "admin", 7)
	if err != nil {
		t.Fatalf("second invite: %v", err)
	}
	if second.Token == first.Token {
		t.Error("expected a fresh token on re-invite")
	}
	if second.Role != types.RoleAdmin {
		t.Errorf("expected role reset to admin, got %q", second.Role)
	}
	if _, err := svc.InviteDetails(ctx, first.Token); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected old token invalidated, got %v", err)
	}
}

func TestAcceptInviteOnce(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService()
	if _, _, err := svc.Bootstrap(ctx, "owner@example.com", "longenough1", ""); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	invite, err := svc.Invite(ctx, "alice@example.com", "member", 3)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	session, err := svc.AcceptInvite(ctx, invite.Token, "longenough1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if session.Role != types.RoleMember {
		t.Errorf("expected member role, got %q", session.Role)
	}

	if _, err := svc.AcceptInvite(ctx, invite.Token, "longenough1"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound on second accept, got %v", err)
	}
	if _, err := svc.InviteDetails(ctx, invite.Token); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected details 404 after acceptance, got %v", err)
	}

	login, err := svc.Login(ctx, "alice@example.com", "longenough1")
	if err != nil {
		t.Fatalf("login after accept: %v", err)
	}
	if login.Role != types.RoleMember {
		t.Errorf("expected member role on login, got %q", login.Role)
	}
}

func TestAcceptInviteExpired(t *testing.T) {
	ctx := context.Background()
	svc, dir := newUserService()
	if _, _, err := svc.Bootstrap(ctx, "owner@example.com", "longenough1", ""); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	invite, err := svc.Invite(ctx, "alice@example.com", "member", 3)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	user, err := dir.GetByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	past := time.Now().UTC().Add(-time.Hour)
	user.InviteExpiresAt = &past
	if err := dir.Upsert(ctx, user); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if _, err := svc.AcceptInvite(ctx, invite.Token, "longenough1"); !errors.Is(err, ErrInviteExpired) {
		t.Errorf("expected ErrInviteExpired, got %v", err)
	}
	if _, err := svc.InviteDetails(ctx, invite.Token); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected details not found for expired invite, got %v", err)
	}
}

func TestDeleteGuards(t *testing.T) {
	ctx := context.Background()
	svc, dir := newUserService()

	admin, _, err := svc.Bootstrap(ctx, "owner@example.com", "longenough1", "")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	if err := svc.Delete(ctx, admin.ID, admin.ID); !errors.Is(err, ErrSelfDelete) {
		t.Errorf("expected ErrSelfDelete, got %v", err)
	}
	if err := svc.Delete(ctx, admin.ID, "missing-id"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	// A second admin created by another admin, then deleting down to one.
	other := types.User{ID: "admin-2", Email: "second@example.com", PasswordHash: "x", Role: types.RoleAdmin}
	if err := dir.Create(ctx, other); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, admin.ID, other.ID); err != nil {
		t.Fatalf("delete second admin: %v", err)
	}

	// The caller is now the last admin; nobody may remove it.
	if err := svc.Delete(ctx, "admin-2", admin.ID); !errors.Is(err, ErrLastAdmin) {
		t.Errorf("expected ErrLastAdmin, got %v", err)
	}
	count, _ := dir.Count(ctx)
	if count != 1 {
		t.Errorf("expected user count unchanged at 1, got %d", count)
	}
}

func TestLastAdminCountIsExhaustive(t *testing.T) {
	ctx := context.Background()
	svc, dir := newUserService()

	admin, _, err := svc.Bootstrap(ctx, "owner@example.com", "longenough1", "")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	// Bury a second admin past the first listing page among many members.
	for i := 0; i < 250; i++ {
		u := types.User{ID: fmt.Sprintf("member-%03d", i), Email: fmt.Sprintf("m%03d@example.com", i), PasswordHash: "x", Role: types.RoleMember}
		if err := dir.Create(ctx, u); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	second := types.User{ID: "zz-admin", Email: "zz@example.com", PasswordHash: "x", Role: types.RoleAdmin}
	if err := dir.Create(ctx, second); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Two admins exist, so deleting one must succeed even though the
	// second sorts beyond the first page.
	if err := svc.Delete(ctx, second.ID, admin.ID); err != nil {
		t.Fatalf("expected delete to succeed with two admins, got %v", err)
	}
}

// repeatingDirectory re-delivers its first page on a second page, the way a
// scan-style store may hand out the same member twice while rehashing.
type repeatingDirectory struct {
	directory.Directory
}

func (d repeatingDirectory) List(ctx context.Context, limit int, continuationToken string) ([]types.User, string, error) {
	users, _, err := d.Directory.List(ctx, limit, "")
	if err != nil {
		return nil, "", err
	}
	if continuationToken == "" {
		return users, "rescan", nil
	}
	return users, "", nil
}

func TestLastAdminCountIgnoresDuplicateDelivery(t *testing.T) {
	ctx := context.Background()
	dir := directory.NewMemoryDirectory()
	tokens := auth.NewTokenService("test-secret", "atelier-api", "atelier-dashboard", time.Hour)
	svc := NewUserService(repeatingDirectory{Directory: dir}, tokens)

	only := types.User{ID: "only-admin", Email: "owner@example.com", PasswordHash: "x", Role: types.RoleAdmin}
	if err := dir.Create(ctx, only); err != nil {
		t.Fatalf("create: %v", err)
	}

	// The sole admin arrives on both pages. Counted naively that reads as
	// two admins and the guard would let the directory lose its last one.
	if err := svc.Delete(ctx, "stale-caller", only.ID); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("expected ErrLastAdmin, got %v", err)
	}
}

func TestListStatuses(t *testing.T) {
	ctx := context.Background()
	svc, _ := newUserService()

	if _, _, err := svc.Bootstrap(ctx, "owner@example.com", "longenough1", ""); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if _, err := svc.Invite(ctx, "alice@example.com", "member", 3); err != nil {
		t.Fatalf("invite: %v", err)
	}

	page, err := svc.List(ctx, 50, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(page.Users))
	}
	statuses := map[string]string{}
	for _, u := range page.Users {
		statuses[u.Email] = u.Status
	}
	if statuses["owner@example.com"] != types.AccountStatusActive {
		t.Errorf("expected owner active, got %q", statuses["owner@example.com"])
	}
	if statuses["alice@example.com"] != types.AccountStatusInvited {
		t.Errorf("expected alice invited, got %q", statuses["alice@example.com"])
	}
}
