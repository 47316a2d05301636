// Package directory stores staff accounts. The contract is document-store
// shaped: lookups by id, email, or invite token, plus cursor-based listing
// with an opaque continuation token. Two adapters exist — an in-memory map
// for tests and local runs, and Redis for production.
package directory

import (
	"context"
	"errors"

	"github.com/rojanatorn/apiserver/types"
)

// ErrNotFound is returned when an account does not exist.
var ErrNotFound = errors.New("user not found")

// ErrEmailExists is returned by Create when the email is already taken.
// The check is atomic in both adapters so concurrent creates cannot both
// pass it.
var ErrEmailExists = errors.New("email already exists")

// Directory is the user store contract.
//
// Emails are matched case-insensitively; implementations store them
// lowercased and trimmed. Continuation tokens returned by List are opaque
// and store-specific — callers must not assume numeric offsets. An empty
// returned token means the listing is exhausted.
type Directory interface {
	GetByEmail(ctx context.Context, email string) (types.User, error)
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByInviteToken(ctx context.Context, token string) (types.User, error)

	// Create inserts a new account and fails with ErrEmailExists when the
	// email is already present.
	Create(ctx context.Context, user types.User) error

	// Upsert creates or replaces the account with the given id.
	Upsert(ctx context.Context, user types.User) error

	// UpdatePassword replaces only the password hash of an account.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)

	// List returns up to limit users and the continuation token for the
	// next page.
	List(ctx context.Context, limit int, continuationToken string) ([]types.User, string, error)
}
