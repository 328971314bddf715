package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, username, name, password_hash, google_id, email, bio, profile_img, cover_img, created_at, updated_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u        model.User
		googleID sql.NullString
	)
	err := s.Scan(
		&u.ID,
		&u.Username,
		&u.Name,
		&u.PasswordHash,
		&googleID,
		&u.Email,
		&u.Bio,
		&u.ProfileImg,
		&u.CoverImg,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.GoogleID = googleID.String
	u.Followers = []string{}
	u.Following = []string{}
	return &u, nil
}

// nullable stores "" as NULL so UNIQUE(google_id) only applies to real ids.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// CreateUser inserts a new account. The ID and timestamps are assigned here and
// written back into user.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.ApplyDefaults()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.Name,
		user.PasswordHash,
		nullable(user.GoogleID),
		user.Email,
		user.Bio,
		user.ProfileImg,
		user.CoverImg,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(err.Error(), "google_id") {
				return apperror.Conflict("google account", user.GoogleID)
			}
			return apperror.Conflict("username", user.Username)
		}
		return fmt.Errorf("sqlite: creating user %q: %w", user.Username, err)
	}
	return nil
}

// GetUserByID retrieves a user with both follow sets.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUserWhere(ctx, "id = ?", id, "user", id)
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return db.getUserWhere(ctx, "username = ?", username, "user", username)
}

func (db *DB) GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	if googleID == "" {
		return nil, apperror.NotFound("google account", googleID)
	}
	return db.getUserWhere(ctx, "google_id = ?", googleID, "google account", googleID)
}

func (db *DB) getUserWhere(ctx context.Context, where string, arg any, resource, key string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound(resource, key)
		}
		return nil, fmt.Errorf("sqlite: getting %s %s: %w", resource, key, err)
	}

	if err := db.loadFollowSets(ctx, []*model.User{u}); err != nil {
		return nil, err
	}
	return u, nil
}

// GetUsersByIDs returns the users in the order of ids. Unknown ids are skipped.
func (db *DB) GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}

	byID := make(map[string]*model.User, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		byID[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	// Close before the follow-set query: the pool holds a single connection.
	rows.Close()

	found := make([]*model.User, 0, len(byID))
	for _, u := range byID {
		found = append(found, u)
	}
	if err := db.loadFollowSets(ctx, found); err != nil {
		return nil, err
	}

	users := make([]model.User, 0, len(byID))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, *u)
		}
	}
	return users, nil
}

// loadFollowSets fills Followers and Following for every user in one query,
// in edge creation order.
func (db *DB) loadFollowSets(ctx context.Context, users []*model.User) error {
	if len(users) == 0 {
		return nil
	}
	byID := make(map[string]*model.User, len(users))
	ids := make([]string, 0, len(users))
	for _, u := range users {
		byID[u.ID] = u
		ids = append(ids, u.ID)
	}

	in := placeholders(len(ids))
	args := append(stringArgs(ids), stringArgs(ids)...)
	rows, err := db.conn.QueryContext(ctx,
		`SELECT follower_id, followee_id FROM follows
		 WHERE follower_id IN (`+in+`) OR followee_id IN (`+in+`)
		 ORDER BY rowid`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading follow edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var follower, followee string
		if err := rows.Scan(&follower, &followee); err != nil {
			return fmt.Errorf("sqlite: scanning follow edge: %w", err)
		}
		if u, ok := byID[follower]; ok {
			u.Following = append(u.Following, followee)
		}
		if u, ok := byID[followee]; ok {
			u.Followers = append(u.Followers, follower)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating follow edges: %w", err)
	}
	return nil
}

// UpdateUser persists the editable profile fields.
func (db *DB) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET name = ?, bio = ?, profile_img = ?, cover_img = ?, password_hash = ?, updated_at = ?
		 WHERE id = ?`,
		user.Name,
		user.Bio,
		user.ProfileImg,
		user.CoverImg,
		user.PasswordHash,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// ToggleFollow removes the edge if present, otherwise inserts it. Both happen in
// one transaction, so the two sides of the relationship change together.
func (db *DB) ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning follow transaction: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback()

	for _, id := range []string{followerID, followeeID} {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE id = ?`, id).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("sqlite: checking user %s: %w", id, err)
		}
		if exists == 0 {
			return false, apperror.NotFound("user", id)
		}
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = ? AND followee_id = ?`,
		followerID, followeeID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: removing follow edge: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	following := removed == 0
	if following {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO follows (follower_id, followee_id, created_at) VALUES (?, ?, ?)`,
			followerID, followeeID, time.Now().UTC(),
		)
		if err != nil {
			return false, fmt.Errorf("sqlite: adding follow edge: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing follow: %w", err)
	}
	return following, nil
}
