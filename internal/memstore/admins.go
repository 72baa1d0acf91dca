package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/qrcourses/backend/internal/models"
)

// Admins is the in-memory admin account store.
type Admins struct{ s *Store }

// Create inserts an admin with a unique username.
func (r *Admins) Create(_ context.Context, username, passwordHash string) (*models.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.admins {
		if a.Username == username {
			return nil, models.ErrUsernameTaken
		}
	}
	a := models.Admin{ID: uuid.New(), Username: username, PasswordHash: passwordHash, CreatedAt: r.s.now()}
	r.s.admins[a.ID] = a
	return &a, nil
}

// GetByUsername looks up an admin by exact username.
func (r *Admins) GetByUsername(_ context.Context, username string) (*models.Admin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, a := range r.s.admins {
		if a.Username == username {
			return &a, nil
		}
	}
	return nil, models.ErrAdminNotFound
}

// GetByID looks up an admin by id.
func (r *Admins) GetByID(_ context.Context, id uuid.UUID) (*models.Admin, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.admins[id]
	if !ok {
		return nil, models.ErrAdminNotFound
	}
	return &a, nil
}
