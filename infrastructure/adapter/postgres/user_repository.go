package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/fixora/accounts/application/port/outbound"
	"github.com/fixora/accounts/domain/entity"
)

const uniqueViolation = pq.ErrorCode("23505")

const selectUser = `
	SELECT id, username, gmail, password, birthday, rol, created_at, updated_at
	FROM users
`

type UserRepositoryAdapter struct {
	db *sqlx.DB
}

func NewUserRepositoryAdapter(db *sqlx.DB) *UserRepositoryAdapter {
	return &UserRepositoryAdapter{
		db: db,
	}
}

var _ outbound.UserRepository = (*UserRepositoryAdapter)(nil)

// FindByID returns ErrUserNotFound for ids that are not UUIDs, since no row can match them.
func (r *UserRepositoryAdapter) FindByID(ctx context.Context, id string) (*entity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, outbound.ErrUserNotFound
	}

	var user entity.User
	err := r.db.GetContext(ctx, &user, selectUser+`WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outbound.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return &user, nil
}

func (r *UserRepositoryAdapter) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	if username == "" {
		return nil, outbound.ErrUserNotFound
	}

	var user entity.User
	err := r.db.GetContext(ctx, &user, selectUser+`WHERE username = $1 LIMIT 1`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, outbound.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}

	return &user, nil
}

func (r *UserRepositoryAdapter) FindAll(ctx context.Context) ([]*entity.User, error) {
	users := []*entity.User{}
	if err := r.db.SelectContext(ctx, &users, selectUser+`ORDER BY created_at, username`); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *UserRepositoryAdapter) Create(ctx context.Context, user *entity.User) error {
	if user == nil {
		return fmt.Errorf("user cannot be nil")
	}
	if user.ID == "" || user.Username == "" || user.Gmail == "" || user.Password == "" {
		return fmt.Errorf("user ID, username, gmail and password are required")
	}

	query := `
		INSERT INTO users (id, username, gmail, password, birthday, rol, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Gmail,
		user.Password,
		user.Birthday,
		user.Rol,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return outbound.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *UserRepositoryAdapter) Update(ctx context.Context, user *entity.User) error {
	if user == nil {
		return fmt.Errorf("user cannot be nil")
	}
	if _, err := uuid.Parse(user.ID); err != nil {
		return outbound.ErrUserNotFound
	}

	query := `
		UPDATE users
		SET username = $1, gmail = $2, password = $3, birthday = $4, rol = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := r.db.ExecContext(ctx, query,
		user.Username,
		user.Gmail,
		user.Password,
		user.Birthday,
		user.Rol,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return outbound.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	return expectOneRow(result)
}

func (r *UserRepositoryAdapter) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return outbound.ErrUserNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return expectOneRow(result)
}

func (r *UserRepositoryAdapter) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)`, username)
	if err != nil {
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}
	return exists, nil
}

func (r *UserRepositoryAdapter) ExistsByGmail(ctx context.Context, gmail string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE gmail = $1)`, gmail)
	if err != nil {
		return false, fmt.Errorf("failed to check gmail existence: %w", err)
	}
	return exists, nil
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return outbound.ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
