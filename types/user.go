package types

import (
	"strings"
	"time"
)

// Role is the closed set of authorization levels in the system.
type Role string

const (
	// RoleMember is the default role for invited staff accounts.
	RoleMember Role = "member"

	// RoleAdmin grants access to user management endpoints.
	RoleAdmin Role = "admin"
)

// NormalizeRole maps free-form role input onto the closed enum.
// Unrecognized or empty values default to RoleMember.
func NormalizeRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RoleAdmin):
		return RoleAdmin
	default:
		return RoleMember
	}
}

// Account statuses reported by the user directory listing.
const (
	AccountStatusInvited = "invited"
	AccountStatusActive  = "active"
)

// User represents a staff account in the directory.
//
// The struct round-trips through the directory's document store, so every
// field carries a JSON tag; handlers never serialize it directly and expose
// profile DTOs instead.
type User struct {
	// ID is the opaque identifier of the account.
	ID string `json:"id"`

	// Email is the unique login address, stored lowercased and trimmed.
	Email string `json:"email"`

	// PasswordHash is empty until the account's invite has been accepted.
	PasswordHash string `json:"passwordHash"`

	// Role is the account's authorization level.
	Role Role `json:"role"`

	// InviteToken is the single-use token permitting one password-set
	// operation. Cleared on acceptance.
	InviteToken string `json:"inviteToken,omitempty"`

	// InviteExpiresAt bounds the invite token's validity.
	InviteExpiresAt *time.Time `json:"inviteExpiresAt,omitempty"`

	// CreatedAt is the timestamp the account record was created.
	CreatedAt time.Time `json:"createdAt"`

	// ActivatedAt is set when the invite is accepted.
	ActivatedAt *time.Time `json:"activatedAt,omitempty"`

	// LastLoginAt is stamped on every successful login.
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`

	// UpdatedAt is the timestamp of the most recent mutation.
	UpdatedAt time.Time `json:"updatedAt"`
}

// AccountStatus classifies the account for directory listings: invited while
// no password is set and the invite has not lapsed, active otherwise.
func (u User) AccountStatus(now time.Time) string {
	if u.PasswordHash == "" && (u.InviteExpiresAt == nil || u.InviteExpiresAt.After(now)) {
		return AccountStatusInvited
	}
	return AccountStatusActive
}
