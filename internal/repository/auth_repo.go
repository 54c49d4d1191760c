package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"voxnow-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// AuthRepository handles admin user rows.
type AuthRepository interface {
	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
	ListUsers() ([]*models.User, error)
	DeleteUser(id int64) error
	CountUsers() (int, error)
}

type authRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewAuthRepository creates a new repository.
func NewAuthRepository(db *sqlx.DB, logger *zap.Logger) AuthRepository {
	return &authRepository{db: db, logger: logger}
}

func (r *authRepository) CreateUser(user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	// RETURNING works on both drivers; lib/pq does not support LastInsertId.
	query := r.db.Rebind(`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?) RETURNING id`)
	if err := r.db.QueryRow(query, user.Username, user.PasswordHash, user.Role, user.CreatedAt).Scan(&user.ID); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *authRepository) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	query := r.db.Rebind(`SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?`)
	if err := r.db.Get(&user, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *authRepository) ListUsers() ([]*models.User, error) {
	var users []*models.User
	query := `SELECT id, username, password_hash, role, created_at FROM users ORDER BY id`
	if err := r.db.Select(&users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *authRepository) DeleteUser(id int64) error {
	query := r.db.Rebind(`DELETE FROM users WHERE id = ?`)
	res, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *authRepository) CountUsers() (int, error) {
	var count int
	if err := r.db.Get(&count, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
