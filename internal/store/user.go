package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/socialnet/apiserver/types"
)

const pqUniqueViolation = "23505"

const userColumns = `id, name, username, email, password_hash, image, bio, followers, following, created_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Image,
		&user.Bio,
		pq.Array(&user.Followers),
		pq.Array(&user.Following),
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

// GetByIDs returns the users whose ids are listed, in no particular order.
// Unknown ids are skipped.
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]types.User, error) {
	if len(ids) == 0 {
		return []types.User{}, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]types.User, 0, len(ids))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	user.Followers = []string{}
	user.Following = []string{}

	const query = `
		INSERT INTO users (id, name, username, email, password_hash, image, bio, followers, following, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Name,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Image,
		user.Bio,
		pq.Array(user.Followers),
		pq.Array(user.Following),
		user.CreatedAt,
	)
	if err != nil {
		return types.User{}, translateUniqueViolation(err)
	}
	return user, nil
}

// UpdateProfile persists the editable profile fields of user.
func (r *UserRepository) UpdateProfile(ctx context.Context, user types.User) (types.User, error) {
	query := `
		UPDATE users
		SET name = $1,
			username = $2,
			bio = $3,
			image = $4
		WHERE id = $5
		RETURNING ` + userColumns
	updated, err := scanUser(r.db.QueryRowContext(
		ctx,
		query,
		user.Name,
		user.Username,
		user.Bio,
		user.Image,
		user.ID,
	))
	if err != nil {
		return types.User{}, translateUniqueViolation(err)
	}
	return updated, nil
}

// ToggleFollow flips whether actorID follows targetID and reports the new
// state. Both rows are locked and rewritten in a single transaction.
func (r *UserRepository) ToggleFollow(ctx context.Context, actorID, targetID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Lock in id order so two opposing toggles cannot deadlock.
	const lockQuery = `SELECT id, following FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, lockQuery, pq.Array([]string{actorID, targetID}))
	if err != nil {
		return false, err
	}
	var actorFollowing []string
	found := 0
	for rows.Next() {
		var id string
		var following []string
		if err := rows.Scan(&id, pq.Array(&following)); err != nil {
			_ = rows.Close()
			return false, err
		}
		if id == actorID {
			actorFollowing = following
		}
		found++
	}
	if err := rows.Close(); err != nil {
		return false, err
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	if found < 2 {
		return false, ErrNotFound
	}

	following := !containsString(actorFollowing, targetID)

	var actorQuery, targetQuery string
	if following {
		actorQuery = `UPDATE users SET following = array_append(following, $1) WHERE id = $2`
		targetQuery = `UPDATE users SET followers = array_append(followers, $1) WHERE id = $2`
	} else {
		actorQuery = `UPDATE users SET following = array_remove(following, $1) WHERE id = $2`
		targetQuery = `UPDATE users SET followers = array_remove(followers, $1) WHERE id = $2`
	}

	if _, err := tx.ExecContext(ctx, actorQuery, targetID, actorID); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, targetQuery, actorID, targetID); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return following, nil
}

func translateUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pqUniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case "users_email_key":
		return ErrDuplicateEmail
	case "users_username_key":
		return ErrDuplicateUsername
	default:
		return ErrDuplicate
	}
}

func containsString(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
