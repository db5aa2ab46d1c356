package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"userCrudAPI/internal/db"
)

func openRepoDB(t *testing.T, name string) (*sqlx.DB, string) {
	t.Helper()
	url := "file:" + name + "?mode=memory&cache=shared"
	d, err := db.Open(url)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d, url
}

// exerciseStore runs the same CRUD sequence against any UserStore.
func exerciseStore(t *testing.T, repo UserStore) {
	t.Helper()
	ctx := context.Background()

	// List on empty table
	list, err := repo.List(ctx)
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("empty list: %v %#v", err, list)
	}

	// Create
	u, err := repo.Create(ctx, "alice", "a@x.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.ID <= 0 || u.Name != "alice" || u.Email != "a@x.com" {
		t.Fatalf("unexpected created user: %+v", u)
	}
	other, err := repo.Create(ctx, "bob", "b@x.com")
	if err != nil || other.ID == u.ID {
		t.Fatalf("create second: %v %+v", err, other)
	}

	// GetByID
	g, err := repo.GetByID(ctx, u.ID)
	if err != nil || g == nil || g.Name != "alice" || g.Email != "a@x.com" {
		t.Fatalf("get by id: %v %+v", err, g)
	}
	missing, err := repo.GetByID(ctx, 9999)
	if err != nil || missing != nil {
		t.Fatalf("get missing: %v %+v", err, missing)
	}

	// List
	list, err = repo.List(ctx)
	if err != nil || len(list) != 2 || list[0].ID != u.ID || list[1].ID != other.ID {
		t.Fatalf("list: %v %+v", err, list)
	}

	// UpdateByID
	n, err := repo.UpdateByID(ctx, u.ID, "alicia", "alicia@x.com")
	if err != nil || n != 1 {
		t.Fatalf("update: n=%d err=%v", n, err)
	}
	g, _ = repo.GetByID(ctx, u.ID)
	if g.ID != u.ID || g.Name != "alicia" || g.Email != "alicia@x.com" {
		t.Fatalf("not updated: %+v", g)
	}
	g2, _ := repo.GetByID(ctx, other.ID)
	if g2.Name != "bob" {
		t.Fatalf("unrelated row changed: %+v", g2)
	}
	if n, err := repo.UpdateByID(ctx, 9999, "x", "y"); err != nil || n != 0 {
		t.Fatalf("update missing: n=%d err=%v", n, err)
	}

	// DeleteByID
	if n, err := repo.DeleteByID(ctx, u.ID); err != nil || n != 1 {
		t.Fatalf("delete: n=%d err=%v", n, err)
	}
	gone, err := repo.GetByID(ctx, u.ID)
	if err != nil || gone != nil {
		t.Fatalf("expected user deleted, got: %+v err=%v", gone, err)
	}
	if n, err := repo.DeleteByID(ctx, u.ID); err != nil || n != 0 {
		t.Fatalf("delete missing: n=%d err=%v", n, err)
	}
}

func TestUserRepository_CRUD(t *testing.T) {
	d, _ := openRepoDB(t, "userrepo")
	repo := NewUserRepository(d)
	exerciseStore(t, repo)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestPerCallStore_CRUD(t *testing.T) {
	// The pooled handle keeps the shared in-memory database alive between calls.
	_, url := openRepoDB(t, "percallrepo")
	store := NewPerCallStore(url)
	exerciseStore(t, store)
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestPerCallStore_ConnectFailureIsUnavailable(t *testing.T) {
	store := NewPerCallStoreWith(func(ctx context.Context) (*sqlx.DB, error) {
		return nil, errors.New("connection refused")
	})
	ctx := context.Background()

	if _, err := store.Create(ctx, "a", "b"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("create: expected ErrUnavailable, got %v", err)
	}
	if _, err := store.GetByID(ctx, 1); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("get: expected ErrUnavailable, got %v", err)
	}
	if _, err := store.List(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("list: expected ErrUnavailable, got %v", err)
	}
	if _, err := store.UpdateByID(ctx, 1, "a", "b"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("update: expected ErrUnavailable, got %v", err)
	}
	if _, err := store.DeleteByID(ctx, 1); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("delete: expected ErrUnavailable, got %v", err)
	}
	if err := store.Ping(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("ping: expected ErrUnavailable, got %v", err)
	}
}

func TestPerCallStore_BadURLIsUnavailable(t *testing.T) {
	store := NewPerCallStore("mysql://nowhere")
	if _, err := store.List(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestUserRepository_PingClosedPool(t *testing.T) {
	d, err := db.Open("file:closedrepo?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	repo := NewUserRepository(d)
	_ = d.Close()
	if err := repo.Ping(context.Background()); err == nil {
		t.Fatalf("expected ping on closed pool to fail")
	}
}
