package directory

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/rojanatorn/apiserver/types"
)

const (
	keyIDSet       = "users:ids"
	keyDocPrefix   = "users:doc:"
	keyEmailPrefix = "users:email:"
	keyTokenPrefix = "users:invite:"
)

// RedisDirectory is the production Directory adapter: one JSON document per
// account plus email and invite-token index keys. The continuation token
// returned by List is the native SSCAN cursor, which makes it opaque and
// store-specific by construction.
type RedisDirectory struct {
	rdb *redis.Client
}

func NewRedisDirectory(rdb *redis.Client) *RedisDirectory {
	return &RedisDirectory{rdb: rdb}
}

func (d *RedisDirectory) GetByEmail(ctx context.Context, email string) (types.User, error) {
	id, err := d.rdb.Get(ctx, keyEmailPrefix+normalizeEmail(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return d.GetByID(ctx, id)
}

func (d *RedisDirectory) GetByID(ctx context.Context, id string) (types.User, error) {
	raw, err := d.rdb.Get(ctx, keyDocPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	var u types.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return types.User{}, err
	}
	return u, nil
}

func (d *RedisDirectory) GetByInviteToken(ctx context.Context, token string) (types.User, error) {
	if token == "" {
		return types.User{}, ErrNotFound
	}
	id, err := d.rdb.Get(ctx, keyTokenPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return d.GetByID(ctx, id)
}

// Create claims the email index with SETNX before writing the document, so
// two concurrent creates for the same address cannot both succeed.
func (d *RedisDirectory) Create(ctx context.Context, user types.User) error {
	user.Email = normalizeEmail(user.Email)

	claimed, err := d.rdb.SetNX(ctx, keyEmailPrefix+user.Email, user.ID, 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return ErrEmailExists
	}
	return d.writeDoc(ctx, user)
}

func (d *RedisDirectory) Upsert(ctx context.Context, user types.User) error {
	user.Email = normalizeEmail(user.Email)

	if old, err := d.GetByID(ctx, user.ID); err == nil {
		if old.Email != user.Email {
			_ = d.rdb.Del(ctx, keyEmailPrefix+old.Email).Err()
		}
		if old.InviteToken != "" && old.InviteToken != user.InviteToken {
			_ = d.rdb.Del(ctx, keyTokenPrefix+old.InviteToken).Err()
		}
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if err := d.rdb.Set(ctx, keyEmailPrefix+user.Email, user.ID, 0).Err(); err != nil {
		return err
	}
	return d.writeDoc(ctx, user)
}

func (d *RedisDirectory) writeDoc(ctx context.Context, user types.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := d.rdb.Set(ctx, keyDocPrefix+user.ID, raw, 0).Err(); err != nil {
		return err
	}
	if user.InviteToken != "" {
		if err := d.rdb.Set(ctx, keyTokenPrefix+user.InviteToken, user.ID, 0).Err(); err != nil {
			return err
		}
	}
	return d.rdb.SAdd(ctx, keyIDSet, user.ID).Err()
}

func (d *RedisDirectory) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	u, err := d.GetByID(ctx, id)
	if err != nil {
		return err
	}
	u.PasswordHash = passwordHash
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return d.rdb.Set(ctx, keyDocPrefix+id, raw, 0).Err()
}

func (d *RedisDirectory) Delete(ctx context.Context, id string) error {
	u, err := d.GetByID(ctx, id)
	if err != nil {
		return err
	}
	keys := []string{keyDocPrefix + id, keyEmailPrefix + u.Email}
	if u.InviteToken != "" {
		keys = append(keys, keyTokenPrefix+u.InviteToken)
	}
	if err := d.rdb.Del(ctx, keys...).Err(); err != nil {
		return err
	}
	return d.rdb.SRem(ctx, keyIDSet, id).Err()
}

func (d *RedisDirectory) Count(ctx context.Context) (int, error) {
	n, err := d.rdb.SCard(ctx, keyIDSet).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// List walks the id set with SSCAN. The page size is a hint to the store,
// matching the approximate paging of the original document store.
func (d *RedisDirectory) List(ctx context.Context, limit int, continuationToken string) ([]types.User, string, error) {
	if limit < 1 {
		limit = 50
	}

	var cursor uint64
	if continuationToken != "" {
		parsed, err := strconv.ParseUint(continuationToken, 10, 64)
		if err != nil {
			return nil, "", err
		}
		cursor = parsed
	}

	ids, next, err := d.rdb.SScan(ctx, keyIDSet, cursor, "", int64(limit)).Result()
	if err != nil {
		return nil, "", err
	}

	users := make([]types.User, 0, len(ids))
	for _, id := range ids {
		u, err := d.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, "", err
		}
		users = append(users, u)
	}

	token := ""
	if next != 0 {
		token = strconv.FormatUint(next, 10)
	}
	return users, token, nil
}
