// Package sqlite implements the repository interfaces on an embedded SQLite file.
//
// The production deployment uses MongoDB (repository/mongo); this store backs
// local development (STORAGE_DRIVER=sqlite) and every service and handler test,
// which run against ":memory:" databases.
//
// DOCUMENT → RELATIONAL MAPPING:
// Posts embed comments, tags and likes in the document model. Here each embedded
// collection gets its own table keyed by post id with ON DELETE CASCADE, and the
// follow sets become a single follows table holding one row per edge. Insertion
// order (rowid) preserves the "ordered set" semantics of the document fields.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// modernc.org/sqlite is a pure Go translation of SQLite: no CGo, no C compiler,
// cross-compilation just works.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// Importing the driver package registers "sqlite" with database/sql in its init().
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and implements both
// repository.UserRepository and repository.PostRepository.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/blog.db" → file-based database (persistent)
//   - ":memory:"     → in-memory database (tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// ONE CONNECTION:
	// Every ":memory:" connection is a separate empty database, and PRAGMAs are
	// per connection. Pinning the pool to one connection keeps both coherent.
	// SQLite serializes writers anyway, so little throughput is lost.
	// Consequence: rows must be closed before the next query is issued.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in progress.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default; the cascades below depend on them.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			name          TEXT NOT NULL,
			password_hash TEXT NOT NULL DEFAULT '',
			google_id     TEXT UNIQUE,
			email         TEXT NOT NULL DEFAULT '',
			bio           TEXT NOT NULL DEFAULT '',
			profile_img   TEXT NOT NULL DEFAULT '',
			cover_img     TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL,
			updated_at    DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// One row per follow edge. Both "followers" and "following" of the document
	// model are read from here, so the two sides can never disagree.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS follows (
			follower_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			followee_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at  DATETIME NOT NULL,
			PRIMARY KEY (follower_id, followee_id),
			CHECK (follower_id <> followee_id)
		);
		CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows(followee_id);
	`)
	if err != nil {
		return fmt.Errorf("creating follows table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			summary    TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL DEFAULT '',
			cover      TEXT NOT NULL DEFAULT '',
			views      INTEGER NOT NULL DEFAULT 0,
			author_id  TEXT NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
		CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts(author_id);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS post_tags (
			post_id  TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			tag      TEXT NOT NULL,
			position INTEGER NOT NULL,
			PRIMARY KEY (post_id, tag)
		);
		CREATE INDEX IF NOT EXISTS idx_post_tags_tag ON post_tags(tag);

		CREATE TABLE IF NOT EXISTS comments (
			id         TEXT PRIMARY KEY,
			post_id    TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL,
			content    TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);

		CREATE TABLE IF NOT EXISTS post_likes (
			post_id TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			PRIMARY KEY (post_id, user_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating post detail tables: %w", err)
	}

	return nil
}

// placeholders returns "?,?,?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// stringArgs converts ids into query arguments.
func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// primary code only, when extended result codes are off
			return strings.Contains(se.Error(), "UNIQUE")
		}
	}
	return false
}
