package repository

import (
	"context"
	"errors"

	"userCrudAPI/models"
)

// ErrUnavailable wraps failures to reach the database at all, as opposed to
// a statement that reached it and failed.
var ErrUnavailable = errors.New("database unavailable")

// UserStore defines operations on User entities.
// Implementations must be safe for concurrent use.
type UserStore interface {
	Create(ctx context.Context, name, email string) (*models.User, error)
	// GetByID returns nil, nil when no row has the id.
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// List returns every user ordered by id; never nil.
	List(ctx context.Context) ([]models.User, error)
	// UpdateByID returns the number of rows changed.
	UpdateByID(ctx context.Context, id int64, name, email string) (int64, error)
	// DeleteByID returns the number of rows removed.
	DeleteByID(ctx context.Context, id int64) (int64, error)
}

// Pinger reports whether the database behind a store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
