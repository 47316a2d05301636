package directory

import (
	"context"
	"encoding/base64"
	"sort"
	"strings"
	"sync"

	"github.com/rojanatorn/apiserver/types"
)

// MemoryDirectory is a concurrent in-memory Directory used for tests and
// for local runs without a configured document store. Accounts are keyed by
// id with secondary indexes by email and invite token.
type MemoryDirectory struct {
	mu       sync.RWMutex
	users    map[string]types.User
	byEmail  map[string]string
	byInvite map[string]string
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		users:    make(map[string]types.User),
		byEmail:  make(map[string]string),
		byInvite: make(map[string]string),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (d *MemoryDirectory) GetByEmail(_ context.Context, email string) (types.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byEmail[normalizeEmail(email)]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return d.users[id], nil
}

func (d *MemoryDirectory) GetByID(_ context.Context, id string) (types.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return u, nil
}

func (d *MemoryDirectory) GetByInviteToken(_ context.Context, token string) (types.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if token == "" {
		return types.User{}, ErrNotFound
	}
	id, ok := d.byInvite[token]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return d.users[id], nil
}

func (d *MemoryDirectory) Create(_ context.Context, user types.User) error {
	user.Email = normalizeEmail(user.Email)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.byEmail[user.Email]; exists {
		return ErrEmailExists
	}
	d.storeLocked(user)
	return nil
}

func (d *MemoryDirectory) Upsert(_ context.Context, user types.User) error {
	user.Email = normalizeEmail(user.Email)

	d.mu.Lock()
	defer d.mu.Unlock()
	if old, ok := d.users[user.ID]; ok {
		delete(d.byEmail, old.Email)
		if old.InviteToken != "" {
			delete(d.byInvite, old.InviteToken)
		}
	}
	d.storeLocked(user)
	return nil
}

func (d *MemoryDirectory) storeLocked(user types.User) {
	d.users[user.ID] = user
	d.byEmail[user.Email] = user.ID
	if user.InviteToken != "" {
		d.byInvite[user.InviteToken] = user.ID
	}
}

func (d *MemoryDirectory) UpdatePassword(_ context.Context, id, passwordHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	d.users[id] = u
	return nil
}

func (d *MemoryDirectory) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(d.users, id)
	delete(d.byEmail, u.Email)
	if u.InviteToken != "" {
		delete(d.byInvite, u.InviteToken)
	}
	return nil
}

func (d *MemoryDirectory) Count(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users), nil
}

// List pages through accounts ordered by id. The continuation token encodes
// the last id of the previous page.
func (d *MemoryDirectory) List(_ context.Context, limit int, continuationToken string) ([]types.User, string, error) {
	if limit < 1 {
		limit = 50
	}

	after := ""
	if continuationToken != "" {
		decoded, err := base64.RawURLEncoding.DecodeString(continuationToken)
		if err != nil {
			return nil, "", err
		}
		after = string(decoded)
	}

	d.mu.RLock()
	ids := make([]string, 0, len(d.users))
	for id := range d.users {
		if id > after {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if len(ids) > limit {
		ids = ids[:limit]
	}
	page := make([]types.User, 0, len(ids))
	for _, id := range ids {
		page = append(page, d.users[id])
	}
	remaining := len(d.users)
	d.mu.RUnlock()

	next := ""
	if len(page) == limit && remaining > 0 {
		hasMore := false
		last := page[len(page)-1].ID
		d.mu.RLock()
		for id := range d.users {
			if id > last {
				hasMore = true
				break
			}
		}
		d.mu.RUnlock()
		if hasMore {
			next = base64.RawURLEncoding.EncodeToString([]byte(last))
		}
	}
	return page, next, nil
}
