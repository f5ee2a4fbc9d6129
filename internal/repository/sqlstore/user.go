package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/gitfolio/internal/apperror"
	"github.com/sakif/gitfolio/internal/model"
	"github.com/sakif/gitfolio/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, email, name, created_at, updated_at`

// CreateUser inserts a new user, filling in ID and timestamps in place.
// A duplicate email surfaces as apperror.ErrConflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx, db.rebind(
		`INSERT INTO users (id, username, email, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		user.ID,
		user.Username,
		user.Email,
		user.Name,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("email already registered")
		}
		return apperror.Store("creating user", fmt.Errorf("sqlstore: inserting user %s: %w", user.Email, err))
	}
	return nil
}

// GetUserByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx, db.rebind(
		`SELECT `+userColumns+` FROM users WHERE id = ?`), id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, apperror.Store("getting user", fmt.Errorf("sqlstore: getting user %s: %w", id, err))
	}
	return u, nil
}

func (db *DB) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.findUserByEmail(ctx, db.conn, email)
}

func (db *DB) findUserByEmail(ctx context.Context, q querier, email string) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, db.rebind(
		`SELECT `+userColumns+` FROM users WHERE email = ?`), email))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, apperror.Store("finding user", fmt.Errorf("sqlstore: finding user %s: %w", email, err))
	}
	return u, nil
}

// ListUsers returns every user, oldest first.
func (db *DB) ListUsers(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, apperror.Store("listing users", fmt.Errorf("sqlstore: listing users: %w", err))
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, apperror.Store("listing users", fmt.Errorf("sqlstore: scanning user row: %w", err))
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Store("listing users", fmt.Errorf("sqlstore: iterating user rows: %w", err))
	}
	return users, nil
}

// UpdateUser applies a partial update. Nil fields keep their stored value
// (COALESCE with a NULL parameter).
func (db *DB) UpdateUser(ctx context.Context, id string, upd model.UserUpdate) (*model.User, error) {
	res, err := db.conn.ExecContext(ctx, db.rebind(
		`UPDATE users SET
			username   = COALESCE(?, username),
			email      = COALESCE(?, email),
			name       = COALESCE(?, name),
			updated_at = ?
		 WHERE id = ?`),
		nullable(upd.Username),
		nullable(upd.Email),
		nullable(upd.Name),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("email already registered")
		}
		return nil, apperror.Store("updating user", fmt.Errorf("sqlstore: updating user %s: %w", id, err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, apperror.Store("updating user", fmt.Errorf("sqlstore: rows affected: %w", err))
	}
	if n == 0 {
		return nil, apperror.NotFound("user", id)
	}

	return db.GetUserByID(ctx, id)
}

// DeleteUser removes a user and returns the deleted row. Users who still own
// portfolios are refused with apperror.ErrConflict.
func (db *DB) DeleteUser(ctx context.Context, id string) (*model.User, error) {
	var deleted *model.User

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		u, err := scanUser(tx.QueryRowContext(ctx, db.rebind(
			`SELECT `+userColumns+` FROM users WHERE id = ?`), id))
		if err != nil {
			if isNoRows(err) {
				return apperror.NotFound("user", id)
			}
			return apperror.Store("deleting user", fmt.Errorf("sqlstore: loading user %s: %w", id, err))
		}

		var owned int
		if err := tx.QueryRowContext(ctx, db.rebind(
			`SELECT COUNT(*) FROM portfolios WHERE owner_id = ?`), id).Scan(&owned); err != nil {
			return apperror.Store("deleting user", fmt.Errorf("sqlstore: counting portfolios of %s: %w", id, err))
		}
		if owned > 0 {
			return apperror.Conflict(fmt.Sprintf("user still owns %d portfolio(s)", owned))
		}

		if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM users WHERE id = ?`), id); err != nil {
			if isForeignKeyViolation(err) {
				return apperror.Conflict("user still owns portfolios")
			}
			return apperror.Store("deleting user", fmt.Errorf("sqlstore: deleting user %s: %w", id, err))
		}

		deleted = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Name,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// nullable turns a nil pointer into SQL NULL.
func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
