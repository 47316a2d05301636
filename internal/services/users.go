package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rojanatorn/apiserver/internal/auth"
	"github.com/rojanatorn/apiserver/internal/directory"
	"github.com/rojanatorn/apiserver/types"
)

// Workflow errors the handler layer maps to HTTP statuses.
var (
	ErrBootstrapClosed    = errors.New("initial user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an active user with this email already exists")
	ErrInviteExpired      = errors.New("invite has expired")
	ErrSelfDelete         = errors.New("you cannot delete your own account")
	ErrLastAdmin          = errors.New("cannot delete the last remaining admin")
	ErrUserNotFound       = errors.New("user not found")
)

const (
	defaultInviteDays = 7
	minInviteDays     = 1
	maxInviteDays     = 30

	// adminCountPage sizes the directory pages walked when counting admins.
	// The walk is exhaustive, so the guard stays correct past one page.
	adminCountPage = 200
)

// Session is the result of a successful authentication.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Role      types.Role
}

// Invite summarizes a pending invitation.
type Invite struct {
	Email     string
	Role      types.Role
	Token     string
	ExpiresAt time.Time
}

// UserSummary is one row of the admin user listing.
type UserSummary struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Role        types.Role `json:"role"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
}

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users             []UserSummary `json:"users"`
	ContinuationToken string        `json:"continuationToken,omitempty"`
}

// UserService orchestrates bootstrap, login, and the invite workflow over the
// user directory and token service.
type UserService struct {
	dir    directory.Directory
	tokens *auth.TokenService
}

func NewUserService(dir directory.Directory, tokens *auth.TokenService) *UserService {
	return &UserService{dir: dir, tokens: tokens}
}

// Bootstrap creates the very first account. It is only permitted while the
// directory is empty; afterwards it fails with ErrBootstrapClosed. The
// bootstrap account is created active with the admin role unless the caller
// asks for member explicitly.
func (s *UserService) Bootstrap(ctx context.Context, email, password, role string) (types.User, Session, error) {
	count, err := s.dir.Count(ctx)
	if err != nil {
		return types.User{}, Session{}, err
	}
	if count > 0 {
		return types.User{}, Session{}, ErrBootstrapClosed
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return types.User{}, Session{}, err
	}

	now := time.Now().UTC()
	bootstrapRole := types.RoleAdmin
	if strings.TrimSpace(role) != "" {
		bootstrapRole = types.NormalizeRole(role)
	}
	user := types.User{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Role:         bootstrapRole,
		CreatedAt:    now,
		ActivatedAt:  &now,
		LastLoginAt:  &now,
		UpdatedAt:    now,
	}
	if err := s.dir.Create(ctx, user); err != nil {
		if errors.Is(err, directory.ErrEmailExists) {
			return types.User{}, Session{}, ErrBootstrapClosed
		}
		return types.User{}, Session{}, err
	}

	session, err := s.issueSession(user)
	if err != nil {
		return types.User{}, Session{}, err
	}
	return user, session, nil
}

// Login authenticates by email and password. Accounts with a pending invite
// (empty password hash) cannot log in. A matching password stamps last-login,
// and hashes made with an outdated cost are transparently regenerated.
func (s *UserService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.dir.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if user.PasswordHash == "" {
		return Session{}, ErrInvalidCredentials
	}

	switch auth.VerifyPassword(user.PasswordHash, password) {
	case auth.VerifyFailed:
		return Session{}, ErrInvalidCredentials
	case auth.VerifySuccessRehashNeeded:
		if rehash, err := auth.HashPassword(password); err == nil {
			if err := s.dir.UpdatePassword(ctx, user.ID, rehash); err == nil {
				user.PasswordHash = rehash
			}
		}
	}

	now := time.Now().UTC()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := s.dir.Upsert(ctx, user); err != nil {
		return Session{}, err
	}
	return s.issueSession(user)
}

// Invite creates or refreshes an invitation. An active account at the email
// conflicts with ErrEmailTaken; a pending invite is overwritten in place with
// a fresh token, role, and expiry. expiresInDays is clamped to [1, 30] and
// defaults to 7 when zero.
func (s *UserService) Invite(ctx context.Context, email, role string, expiresInDays int) (Invite, error) {
	email = normalizeEmail(email)

	token, err := auth.NewInviteToken()
	if err != nil {
		return Invite{}, err
	}
	now := time.Now().UTC()
	expiresAt := now.AddDate(0, 0, clampInviteDays(expiresInDays))
	inviteRole := types.NormalizeRole(role)

	existing, err := s.dir.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.PasswordHash != "" {
			return Invite{}, ErrEmailTaken
		}
		existing.Role = inviteRole
		existing.InviteToken = token
		existing.InviteExpiresAt = &expiresAt
		existing.UpdatedAt = now
		if err := s.dir.Upsert(ctx, existing); err != nil {
			return Invite{}, err
		}
	case errors.Is(err, directory.ErrNotFound):
		user := types.User{
			ID:              uuid.NewString(),
			Email:           email,
			Role:            inviteRole,
			InviteToken:     token,
			InviteExpiresAt: &expiresAt,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := s.dir.Create(ctx, user); err != nil {
			if errors.Is(err, directory.ErrEmailExists) {
				return Invite{}, ErrEmailTaken
			}
			return Invite{}, err
		}
	default:
		return Invite{}, err
	}

	return Invite{Email: email, Role: inviteRole, Token: token, ExpiresAt: expiresAt}, nil
}

// InviteDetails resolves a pending invite token. Tokens that are unknown,
// already consumed, or past expiry all surface as ErrUserNotFound so callers
// cannot distinguish them.
func (s *UserService) InviteDetails(ctx context.Context, token string) (Invite, error) {
	user, err := s.dir.GetByInviteToken(ctx, token)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Invite{}, ErrUserNotFound
		}
		return Invite{}, err
	}
	if user.InviteExpiresAt == nil || !user.InviteExpiresAt.After(time.Now().UTC()) {
		return Invite{}, ErrUserNotFound
	}
	return Invite{
		Email:     user.Email,
		Role:      user.Role,
		Token:     user.InviteToken,
		ExpiresAt: *user.InviteExpiresAt,
	}, nil
}

// AcceptInvite consumes an invite token, sets the account password, and logs
// the user in. Unknown tokens return ErrUserNotFound; expired ones
// ErrInviteExpired. The token is cleared, so a second accept finds nothing.
func (s *UserService) AcceptInvite(ctx context.Context, token, password string) (Session, error) {
	user, err := s.dir.GetByInviteToken(ctx, token)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return Session{}, ErrUserNotFound
		}
		return Session{}, err
	}
	if user.InviteExpiresAt == nil || !user.InviteExpiresAt.After(time.Now().UTC()) {
		return Session{}, ErrInviteExpired
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, err
	}

	now := time.Now().UTC()
	user.PasswordHash = hash
	user.InviteToken = ""
	user.InviteExpiresAt = nil
	user.ActivatedAt = &now
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := s.dir.Upsert(ctx, user); err != nil {
		return Session{}, err
	}
	return s.issueSession(user)
}

// Delete removes an account. Callers cannot delete themselves, and the last
// remaining admin cannot be deleted.
func (s *UserService) Delete(ctx context.Context, callerID, targetID string) error {
	if callerID == targetID {
		return ErrSelfDelete
	}
	target, err := s.dir.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if target.Role == types.RoleAdmin {
		admins, err := s.countAdmins(ctx)
		if err != nil {
			return err
		}
		if admins <= 1 {
			return ErrLastAdmin
		}
	}
	if err := s.dir.Delete(ctx, targetID); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// List returns one page of the user listing with per-account status.
func (s *UserService) List(ctx context.Context, limit int, continuationToken string) (UserPage, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	users, next, err := s.dir.List(ctx, limit, continuationToken)
	if err != nil {
		return UserPage{}, err
	}

	now := time.Now().UTC()
	page := UserPage{Users: make([]UserSummary, 0, len(users)), ContinuationToken: next}
	for _, u := range users {
		page.Users = append(page.Users, UserSummary{
			ID:          u.ID,
			Email:       u.Email,
			Role:        u.Role,
			Status:      u.AccountStatus(now),
			CreatedAt:   u.CreatedAt,
			LastLoginAt: u.LastLoginAt,
		})
	}
	return page, nil
}

// countAdmins walks the whole directory. Listing pages until the store stops
// returning a continuation token keeps the count exact at any directory size.
// Scan-style stores may deliver a user on more than one page, so admins are
// counted by distinct id.
func (s *UserService) countAdmins(ctx context.Context) (int, error) {
	seen := make(map[string]struct{})
	var token string
	for {
		users, next, err := s.dir.List(ctx, adminCountPage, token)
		if err != nil {
			return 0, err
		}
		for _, u := range users {
			if u.Role != types.RoleAdmin {
				continue
			}
			seen[u.ID] = struct{}{}
		}
		if next == "" || len(users) == 0 {
			return len(seen), nil
		}
		token = next
	}
}

func (s *UserService) issueSession(user types.User) (Session, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token.Value, ExpiresAt: token.ExpiresAt, Role: user.Role}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func clampInviteDays(days int) int {
	switch {
	case days == 0:
		return defaultInviteDays
	case days < minInviteDays:
		return minInviteDays
	case days > maxInviteDays:
		return maxInviteDays
	}
	return days
}
