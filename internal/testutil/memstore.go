package testutil

import (
	"context"
	"sort"
	"sync"

	"userCrudAPI/models"
	"userCrudAPI/repository"
)

var _ repository.UserStore = (*MemoryUserStore)(nil)

// MemoryUserStore is an in-memory UserStore for handler tests.
// Setting Err makes every call fail with it.
type MemoryUserStore struct {
	mu     sync.Mutex
	users  map[int64]models.User
	nextID int64

	Err error
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: map[int64]models.User{}, nextID: 1}
}

func (s *MemoryUserStore) Create(_ context.Context, name, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u := models.User{ID: s.nextID, Name: name, Email: email}
	s.users[u.ID] = u
	s.nextID++
	return &u, nil
}

func (s *MemoryUserStore) GetByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *MemoryUserStore) List(_ context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryUserStore) UpdateByID(_ context.Context, id int64, name, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	if _, ok := s.users[id]; !ok {
		return 0, nil
	}
	s.users[id] = models.User{ID: id, Name: name, Email: email}
	return 1, nil
}

func (s *MemoryUserStore) DeleteByID(_ context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	if _, ok := s.users[id]; !ok {
		return 0, nil
	}
	delete(s.users, id)
	return 1, nil
}

// SetErr changes the injected failure under the store's lock.
func (s *MemoryUserStore) SetErr(err error) {
	s.mu.Lock()
	s.Err = err
	s.mu.Unlock()
}
