package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"userCrudAPI/internal/db"
	"userCrudAPI/models"
)

// ConnectFunc opens a fresh, verified database handle.
type ConnectFunc func(ctx context.Context) (*sqlx.DB, error)

// PerCallStore opens a new database connection for every operation and closes
// it once the single statement has run.
type PerCallStore struct {
	connect ConnectFunc
}

// NewPerCallStore returns a store connecting to the given DATABASE_URL on every call.
func NewPerCallStore(url string) *PerCallStore {
	return NewPerCallStoreWith(func(ctx context.Context) (*sqlx.DB, error) {
		return db.Connect(ctx, url)
	})
}

// NewPerCallStoreWith is NewPerCallStore with a custom connect function.
func NewPerCallStoreWith(connect ConnectFunc) *PerCallStore {
	return &PerCallStore{connect: connect}
}

// withConn runs fn on a fresh connection. Connect failures are wrapped with ErrUnavailable.
func (s *PerCallStore) withConn(ctx context.Context, fn func(ctx context.Context, d *sqlx.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()
	d, err := s.connect(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer d.Close()
	return classify(fn(ctx, d))
}

func (s *PerCallStore) Create(ctx context.Context, name, email string) (*models.User, error) {
	var u *models.User
	err := s.withConn(ctx, func(ctx context.Context, d *sqlx.DB) error {
		var err error
		u, err = createUser(ctx, d, name, email)
		return err
	})
	return u, err
}

func (s *PerCallStore) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var u *models.User
	err := s.withConn(ctx, func(ctx context.Context, d *sqlx.DB) error {
		var err error
		u, err = getUser(ctx, d, id)
		return err
	})
	return u, err
}

func (s *PerCallStore) List(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := s.withConn(ctx, func(ctx context.Context, d *sqlx.DB) error {
		var err error
		out, err = listUsers(ctx, d)
		return err
	})
	return out, err
}

func (s *PerCallStore) UpdateByID(ctx context.Context, id int64, name, email string) (int64, error) {
	var n int64
	err := s.withConn(ctx, func(ctx context.Context, d *sqlx.DB) error {
		var err error
		n, err = updateUser(ctx, d, id, name, email)
		return err
	})
	return n, err
}

func (s *PerCallStore) DeleteByID(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := s.withConn(ctx, func(ctx context.Context, d *sqlx.DB) error {
		var err error
		n, err = deleteUser(ctx, d, id)
		return err
	})
	return n, err
}

// Ping succeeds when a fresh connection can be established.
func (s *PerCallStore) Ping(ctx context.Context) error {
	return s.withConn(ctx, func(context.Context, *sqlx.DB) error { return nil })
}
