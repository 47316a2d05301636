package directory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rojanatorn/apiserver/types"
)

func TestMemoryDirectoryCreateAndLookup(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()

	user := types.User{ID: "u1", Email: "Owner@Example.com", Role: types.RoleAdmin, InviteToken: "tok-1"}
	if err := dir.Create(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := dir.GetByEmail(ctx, "OWNER@example.COM")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.Email != "owner@example.com" {
		t.Errorf("expected lowercased email, got %q", got.Email)
	}

	if _, err := dir.GetByID(ctx, "u1"); err != nil {
		t.Errorf("get by id: %v", err)
	}
	if _, err := dir.GetByInviteToken(ctx, "tok-1"); err != nil {
		t.Errorf("get by invite token: %v", err)
	}
	if _, err := dir.GetByInviteToken(ctx, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty token, got %v", err)
	}

	if err := dir.Create(ctx, types.User{ID: "u2", Email: "owner@example.com"}); !errors.Is(err, ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
}

func TestMemoryDirectoryUpsertReplacesIndexes(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()

	if err := dir.Create(ctx, types.User{ID: "u1", Email: "a@example.com", InviteToken: "old"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := dir.Upsert(ctx, types.User{ID: "u1", Email: "a@example.com", InviteToken: "new"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if _, err := dir.GetByInviteToken(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected old token index removed, got %v", err)
	}
	if _, err := dir.GetByInviteToken(ctx, "new"); err != nil {
		t.Errorf("expected new token resolvable: %v", err)
	}
}

func TestMemoryDirectoryDelete(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()

	if err := dir.Create(ctx, types.User{ID: "u1", Email: "a@example.com", InviteToken: "tok"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := dir.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := dir.Delete(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := dir.GetByEmail(ctx, "a@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected email index removed, got %v", err)
	}
	if _, err := dir.GetByInviteToken(ctx, "tok"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected token index removed, got %v", err)
	}
}

func TestMemoryDirectoryListPagination(t *testing.T) {
	ctx := context.Background()
	dir := NewMemoryDirectory()

	for i := 0; i < 7; i++ {
		user := types.User{ID: fmt.Sprintf("u%02d", i), Email: fmt.Sprintf("u%02d@example.com", i)}
		if err := dir.Create(ctx, user); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	seen := map[string]bool{}
	token := ""
	pages := 0
	for {
		page, next, err := dir.List(ctx, 3, token)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(page) > 3 {
			t.Fatalf("page larger than limit: %d", len(page))
		}
		for _, u := range page {
			if seen[u.ID] {
				t.Errorf("user %s returned twice", u.ID)
			}
			seen[u.ID] = true
		}
		pages++
		if next == "" {
			break
		}
		token = next
		if pages > 10 {
			t.Fatal("continuation token never terminated")
		}
	}
	if len(seen) != 7 {
		t.Errorf("expected 7 users across pages, got %d", len(seen))
	}

	count, err := dir.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 7 {
		t.Errorf("expected count 7, got %d", count)
	}
}
