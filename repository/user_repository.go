package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jmoiron/sqlx"

	"userCrudAPI/models"
)

const (
	statementTimeout = 3 * time.Second
	listTimeout      = 5 * time.Second
)

// UserRepository runs every statement on one shared connection pool.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user and returns it with its generated ID.
func (r *UserRepository) Create(ctx context.Context, name, email string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()
	u, err := createUser(ctx, r.db, name, email)
	return u, classify(err)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()
	u, err := getUser(ctx, r.db, id)
	return u, classify(err)
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()
	out, err := listUsers(ctx, r.db)
	return out, classify(err)
}

// UpdateByID sets name and email of the user with the given id.
func (r *UserRepository) UpdateByID(ctx context.Context, id int64, name, email string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()
	n, err := updateUser(ctx, r.db, id, name, email)
	return n, classify(err)
}

func (r *UserRepository) DeleteByID(ctx context.Context, id int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()
	n, err := deleteUser(ctx, r.db, id)
	return n, classify(err)
}

func (r *UserRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()
	return classify(r.db.PingContext(ctx))
}

// The statements below are shared by both connection policies. Placeholders are
// written as ? and rebound for the driver in use.

func createUser(ctx context.Context, db *sqlx.DB, name, email string) (*models.User, error) {
	var id int64
	q := db.Rebind(`INSERT INTO users (name, email) VALUES (?, ?) RETURNING id`)
	if err := db.QueryRowxContext(ctx, q, name, email).Scan(&id); err != nil {
		return nil, err
	}
	return &models.User{ID: id, Name: name, Email: email}, nil
}

func getUser(ctx context.Context, db *sqlx.DB, id int64) (*models.User, error) {
	var u models.User
	err := db.GetContext(ctx, &u, db.Rebind(`SELECT id, name, email FROM users WHERE id = ?`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func listUsers(ctx context.Context, db *sqlx.DB) ([]models.User, error) {
	out := []models.User{}
	if err := db.SelectContext(ctx, &out, `SELECT id, name, email FROM users ORDER BY id`); err != nil {
		return nil, err
	}
	return out, nil
}

func updateUser(ctx context.Context, db *sqlx.DB, id int64, name, email string) (int64, error) {
	res, err := db.ExecContext(ctx, db.Rebind(`UPDATE users SET name = ?, email = ? WHERE id = ?`), name, email, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func deleteUser(ctx context.Context, db *sqlx.DB, id int64) (int64, error) {
	res, err := db.ExecContext(ctx, db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// classify marks connection-level failures with ErrUnavailable.
func classify(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	var opErr *net.OpError
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &opErr) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
