package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sakif/cashflow-api/internal/apperror"
	"github.com/sakif/cashflow-api/internal/model"
	"github.com/sakif/cashflow-api/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, full_name, password_hash, google_id, is_email_verified, metadata, created_at, updated_at`

// CreateUser inserts a user and its starter categories atomically.
//
// The user row and every category row go through one sql.Tx. If any insert
// fails the deferred Rollback undoes all of them, so an account never
// exists without its categories.
func (db *DB) CreateUser(ctx context.Context, user *model.User, inflowCategories, outflowCategories []string) error {
	now := db.timestamp()
	user.ID = newID()
	user.CreatedAt = now
	user.UpdatedAt = now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning user transaction: %w", err)
	}
	// Rollback after a successful Commit is a no-op.
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.FullName,
		nullableString(user.PasswordHash),
		nullableString(user.GoogleID),
		user.IsEmailVerified,
		nullableJSON(user.Metadata),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("User with this email already exists", map[string]any{"email": user.Email})
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
	}

	seeds := []struct {
		kind  model.TransactionKind
		names []string
	}{
		{model.Inflow, inflowCategories},
		{model.Outflow, outflowCategories},
	}
	for _, seed := range seeds {
		tables, err := tablesFor(seed.kind)
		if err != nil {
			return err
		}
		for _, name := range seed.names {
			_, err := tx.ExecContext(ctx,
				fmt.Sprintf(`INSERT INTO %s (id, user_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`, tables.categories),
				newID(), user.ID, name, now, now,
			)
			if err != nil {
				return fmt.Errorf("sqlite: seeding %s category %q: %w", seed.kind, name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing user %s: %w", user.Email, err)
	}
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByEmail matches case-insensitively, using the lower(email) index.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower(?)`, email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

func (db *DB) GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = ?`, googleID)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", googleID)
		}
		return nil, fmt.Errorf("sqlite: getting user by google id: %w", err)
	}
	return u, nil
}

// LinkGoogleAccount attaches a Google identity to an existing account.
// Google has verified the address, so the account is marked verified too.
func (db *DB) LinkGoogleAccount(ctx context.Context, userID, googleID string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET google_id = ?, is_email_verified = 1, updated_at = ? WHERE id = ?`,
		googleID, db.timestamp(), userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Google account is already linked to another user", map[string]any{"googleId": googleID})
		}
		return fmt.Errorf("sqlite: linking google account for user %s: %w", userID, err)
	}
	return requireOneRow(res, "user", userID)
}

func (db *DB) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, db.timestamp(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating password for user %s: %w", userID, err)
	}
	return requireOneRow(res, "user", userID)
}

func (db *DB) UpdateMetadata(ctx context.Context, userID string, metadata []byte) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET metadata = ?, updated_at = ? WHERE id = ?`,
		nullableJSON(metadata), db.timestamp(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating metadata for user %s: %w", userID, err)
	}
	return requireOneRow(res, "user", userID)
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u            model.User
		passwordHash sql.NullString
		googleID     sql.NullString
		metadata     sql.NullString
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FullName,
		&passwordHash,
		&googleID,
		&u.IsEmailVerified,
		&metadata,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if passwordHash.Valid {
		u.PasswordHash = &passwordHash.String
	}
	if googleID.Valid {
		u.GoogleID = &googleID.String
	}
	if metadata.Valid {
		u.Metadata = json.RawMessage(metadata.String)
	}
	return &u, nil
}

// requireOneRow turns "no rows affected" into a not-found error.
func requireOneRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
