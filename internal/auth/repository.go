package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qrcourses/backend/internal/models"
)

const uniqueViolation = "23505"

// Repository handles admin persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID returns an admin by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	const q = `SELECT id, username, password_hash, created_at FROM admins WHERE id = $1`
	return scanAdmin(r.pool.QueryRow(ctx, q, id))
}

// GetByUsername returns an admin by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	const q = `SELECT id, username, password_hash, created_at FROM admins WHERE username = $1`
	return scanAdmin(r.pool.QueryRow(ctx, q, username))
}

// Create inserts a new admin.
func (r *Repository) Create(ctx context.Context, username, passwordHash string) (*models.Admin, error) {
	const q = `INSERT INTO admins (username, password_hash) VALUES ($1, $2)
		RETURNING id, username, password_hash, created_at`
	a, err := scanAdmin(r.pool.QueryRow(ctx, q, username, passwordHash))
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return nil, models.ErrUsernameTaken
	}
	return a, err
}

func scanAdmin(row pgx.Row) (*models.Admin, error) {
	var a models.Admin
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrAdminNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
