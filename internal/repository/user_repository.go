package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"brokerdesk/internal/domain"
)

const userColumns = `
	id, name, email, phone, pan, aadhar_no, password_hash, role, status,
	is_verified, rejection_reason, profile_image_url, pan_card_url,
	aadhar_front_url, aadhar_back_url, last_login, created_at, updated_at
`

// UserRepositoryImpl implements the UserRepository interface
type UserRepositoryImpl struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create creates a new user
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (
			id, name, email, phone, pan, aadhar_no, password_hash, role, status,
			is_verified, profile_image_url, pan_card_url, aadhar_front_url,
			aadhar_back_url, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
	`

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.Phone,
		user.PAN,
		user.AadharNo,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.IsVerified,
		user.ProfileImageURL,
		user.PANCardURL,
		user.AadharFrontURL,
		user.AadharBackURL,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateUser
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.PAN,
		&user.AadharNo,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&user.IsVerified,
		&user.RejectionReason,
		&user.ProfileImageURL,
		&user.PANCardURL,
		&user.AadharFrontURL,
		&user.AadharBackURL,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

// GetByEmail retrieves a user by email
func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *UserRepositoryImpl) queryUsers(ctx context.Context, query string, args ...interface{}) ([]*domain.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// GetAll retrieves all users
func (r *UserRepositoryImpl) GetAll(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`
	return r.queryUsers(ctx, query)
}

// GetPending retrieves users awaiting verification
func (r *UserRepositoryImpl) GetPending(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE is_verified = false AND role = $1
		ORDER BY created_at ASC
	`
	return r.queryUsers(ctx, query, domain.RoleUser)
}

// MarkVerified persists a new credential hash and flips the user to verified
func (r *UserRepositoryImpl) MarkVerified(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1, is_verified = true, rejection_reason = NULL, updated_at = NOW()
		WHERE id = $2
	`

	tag, err := r.db.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// MarkRejected flips the user back to unverified and records the reason
func (r *UserRepositoryImpl) MarkRejected(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
		UPDATE users
		SET is_verified = false, rejection_reason = $1, updated_at = NOW()
		WHERE id = $2
	`

	tag, err := r.db.Exec(ctx, query, reason, id)
	if err != nil {
		return fmt.Errorf("failed to mark user rejected: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// UpdatePassword replaces the stored credential hash
func (r *UserRepositoryImpl) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $1, updated_at = NOW()
		WHERE id = $2
	`

	tag, err := r.db.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// UpdateLastLogin stamps a successful login
func (r *UserRepositoryImpl) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE users
		SET last_login = $1, updated_at = NOW()
		WHERE id = $2
	`

	_, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

// Counts returns total and verified user counts
func (r *UserRepositoryImpl) Counts(ctx context.Context) (int, int, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_verified)
		FROM users
		WHERE role = $1
	`

	var total, verified int
	if err := r.db.QueryRow(ctx, query, domain.RoleUser).Scan(&total, &verified); err != nil {
		return 0, 0, fmt.Errorf("failed to count users: %w", err)
	}

	return total, verified, nil
}

// CountsInWindow returns how many users registered inside [from, to)
func (r *UserRepositoryImpl) CountsInWindow(ctx context.Context, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM users
		WHERE role = $1 AND created_at >= $2 AND created_at < $3
	`

	var count int
	if err := r.db.QueryRow(ctx, query, domain.RoleUser, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users in window: %w", err)
	}

	return count, nil
}
