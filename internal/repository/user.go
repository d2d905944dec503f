package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/order-desk/internal/domain/user"
)

const userColumns = `id, uuid, username, first_name, last_name, email, cpf, password_hash,
	is_staff, is_active, created_at`

const (
	getUserByIDSQL       = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByUsernameSQL = `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	createUserSQL = `INSERT INTO users
		(uuid, username, first_name, last_name, email, cpf, password_hash, is_staff, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	updateUserSQL = `UPDATE users
		SET username = $2, first_name = $3, last_name = $4, email = $5, cpf = $6,
			password_hash = $7, is_active = $8
		WHERE id = $1`

	deleteUserSQL = `DELETE FROM users WHERE id = $1`

	getProfilesByIDsSQL = `SELECT id, uuid, username, first_name, last_name, email, cpf, is_staff
		FROM users WHERE id = ANY($1)`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID returns the user with the given id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	return r.get(ctx, getUserByIDSQL, id)
}

// GetByUsername returns the user with the given username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.get(ctx, getUserByUsernameSQL, username)
}

func (r *UserRepository) get(ctx context.Context, query string, arg any) (*user.User, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("getting user %v: %w", arg, err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("getting user %v: %w", arg, err)
	}
	return &u, nil
}

// Create inserts u and fills its generated fields.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	err := r.pool.QueryRow(ctx, createUserSQL,
		u.UUID, u.Username, u.FirstName, u.LastName, u.Email, u.CPF, u.PasswordHash, u.IsStaff, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "users_username_key") {
			return user.ErrUsernameTaken
		}
		return fmt.Errorf("creating user %q: %w", u.Username, err)
	}
	return nil
}

// Update writes the mutable fields of u.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	tag, err := r.pool.Exec(ctx, updateUserSQL,
		u.ID, u.Username, u.FirstName, u.LastName, u.Email, u.CPF, u.PasswordHash, u.IsActive,
	)
	if err != nil {
		if isUniqueViolation(err, "users_username_key") {
			return user.ErrUsernameTaken
		}
		return fmt.Errorf("updating user %d: %w", u.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

// Delete removes the user. Orders reference users with ON DELETE RESTRICT,
// so a user with orders yields user.ErrHasOrders.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, deleteUserSQL, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return user.ErrHasOrders
		}
		return fmt.Errorf("deleting user %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func profilesByIDs(ctx context.Context, q dbtx, ids []int64) ([]user.Profile, error) {
	rows, err := q.Query(ctx, getProfilesByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting profiles: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (user.Profile, error) {
		var p user.Profile
		err := row.Scan(&p.ID, &p.UUID, &p.Username, &p.FirstName, &p.LastName, &p.Email, &p.CPF, &p.IsStaff)
		return p, err
	})
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var u user.User
	err := row.Scan(
		&u.ID, &u.UUID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.CPF, &u.PasswordHash,
		&u.IsStaff, &u.IsActive, &u.CreatedAt,
	)
	return u, err
}
