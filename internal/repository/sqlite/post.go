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

var _ repository.PostRepository = (*DB)(nil)

const postColumns = `p.id, p.title, p.summary, p.content, p.cover, p.views, p.author_id, p.created_at, p.updated_at`

func scanPost(s rowScanner) (*model.Post, error) {
	var p model.Post
	err := s.Scan(
		&p.ID,
		&p.Title,
		&p.Summary,
		&p.Content,
		&p.Cover,
		&p.Views,
		&p.AuthorID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Tags = []string{}
	p.Comments = []model.Comment{}
	p.Likes = []string{}
	return &p, nil
}

// CreatePost inserts the post and its tags in one transaction.
// A zero CreatedAt is set to now.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC()
	post.ID = xid.New().String()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	if post.Tags == nil {
		post.Tags = []string{}
	}
	post.Comments = []model.Comment{}
	post.Likes = []string{}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning create post: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO posts (id, title, summary, content, cover, views, author_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.Title,
		post.Summary,
		post.Content,
		post.Cover,
		post.Views,
		post.AuthorID,
		post.CreatedAt.UTC(),
		post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}

	if err := insertTags(ctx, tx, post.ID, post.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing post: %w", err)
	}
	return nil
}

func insertTags(ctx context.Context, tx *sql.Tx, postID string, tags []string) error {
	for i, tag := range tags {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO post_tags (post_id, tag, position) VALUES (?, ?, ?)`,
			postID, tag, i,
		)
		if err != nil {
			return fmt.Errorf("sqlite: tagging post %s with %q: %w", postID, tag, err)
		}
	}
	return nil
}

// GetPostByID returns the post with tags, comments and likes loaded.
func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	p, err := scanPost(db.conn.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts p WHERE p.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}

	if err := db.loadPostDetails(ctx, []*model.Post{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdatePost replaces the editable fields and the tag list.
func (db *DB) UpdatePost(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now().UTC()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning update post: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE posts
		 SET title = ?, summary = ?, content = ?, cover = ?, updated_at = ?
		 WHERE id = ?`,
		post.Title,
		post.Summary,
		post.Content,
		post.Cover,
		post.UpdatedAt,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("post", post.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, post.ID); err != nil {
		return fmt.Errorf("sqlite: clearing tags of post %s: %w", post.ID, err)
	}
	if err := insertTags(ctx, tx, post.ID, post.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing post update: %w", err)
	}
	return nil
}

// DeletePost removes the post. Tags, comments and likes go with it (ON DELETE CASCADE).
func (db *DB) DeletePost(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("post", id)
	}
	return nil
}

// whereClause renders a PostFilter as a SQL condition over the alias p.
func whereClause(f repository.PostFilter) (string, []any) {
	conds := []string{"1 = 1"}
	var args []any

	if f.TitleSearch != "" {
		// instr() matches literally, so %, _ and regex metacharacters need no escaping.
		conds = append(conds, "instr(lower(p.title), lower(?)) > 0")
		args = append(args, f.TitleSearch)
	}
	if len(f.Tags) > 0 {
		conds = append(conds,
			`EXISTS (SELECT 1 FROM post_tags t WHERE t.post_id = p.id AND t.tag IN (`+placeholders(len(f.Tags))+`))`)
		args = append(args, stringArgs(f.Tags)...)
	}
	if f.AuthorIDs != nil {
		if len(f.AuthorIDs) == 0 {
			conds = append(conds, "0 = 1")
		} else {
			conds = append(conds, "p.author_id IN ("+placeholders(len(f.AuthorIDs))+")")
			args = append(args, stringArgs(f.AuthorIDs)...)
		}
	}

	return strings.Join(conds, " AND "), args
}

// CountPosts counts posts matching the filter.
func (db *DB) CountPosts(ctx context.Context, filter repository.PostFilter) (int64, error) {
	where, args := whereClause(filter)

	var n int64
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts p WHERE `+where, args...,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}
	return n, nil
}

// ListPosts returns one page of matching posts with their details loaded.
//
// LIMIT -1 is SQLite's spelling of "no limit", used when opts.Limit <= 0.
func (db *DB) ListPosts(ctx context.Context, filter repository.PostFilter, opts repository.ListOptions) ([]model.Post, error) {
	where, args := whereClause(filter)

	dir := "DESC"
	if opts.SortAscending {
		dir = "ASC"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts p
		 WHERE `+where+`
		 ORDER BY p.created_at `+dir+`, p.id `+dir+`
		 LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}

	ptrs := make([]*model.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		ptrs = append(ptrs, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}
	rows.Close()

	if err := db.loadPostDetails(ctx, ptrs); err != nil {
		return nil, err
	}

	posts := make([]model.Post, len(ptrs))
	for i, p := range ptrs {
		posts[i] = *p
	}
	return posts, nil
}

// loadPostDetails fills tags, comments and likes for a batch of posts with one
// query per table.
func (db *DB) loadPostDetails(ctx context.Context, posts []*model.Post) error {
	if len(posts) == 0 {
		return nil
	}
	byID := make(map[string]*model.Post, len(posts))
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	in := placeholders(len(ids))
	args := stringArgs(ids)

	err := db.eachRow(ctx,
		`SELECT post_id, tag FROM post_tags WHERE post_id IN (`+in+`) ORDER BY post_id, position`, args,
		func(rows *sql.Rows) error {
			var postID, tag string
			if err := rows.Scan(&postID, &tag); err != nil {
				return err
			}
			byID[postID].Tags = append(byID[postID].Tags, tag)
			return nil
		})
	if err != nil {
		return fmt.Errorf("sqlite: loading tags: %w", err)
	}

	err = db.eachRow(ctx,
		`SELECT id, post_id, user_id, content, created_at FROM comments WHERE post_id IN (`+in+`) ORDER BY rowid`, args,
		func(rows *sql.Rows) error {
			var (
				c      model.Comment
				postID string
			)
			if err := rows.Scan(&c.ID, &postID, &c.UserID, &c.Content, &c.CreatedAt); err != nil {
				return err
			}
			byID[postID].Comments = append(byID[postID].Comments, c)
			return nil
		})
	if err != nil {
		return fmt.Errorf("sqlite: loading comments: %w", err)
	}

	err = db.eachRow(ctx,
		`SELECT post_id, user_id FROM post_likes WHERE post_id IN (`+in+`) ORDER BY rowid`, args,
		func(rows *sql.Rows) error {
			var postID, userID string
			if err := rows.Scan(&postID, &userID); err != nil {
				return err
			}
			byID[postID].Likes = append(byID[postID].Likes, userID)
			return nil
		})
	if err != nil {
		return fmt.Errorf("sqlite: loading likes: %w", err)
	}
	return nil
}

// eachRow runs query and calls fn for every row, closing the rows before returning.
func (db *DB) eachRow(ctx context.Context, query string, args []any, fn func(*sql.Rows) error) error {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// =========================================================================
// EMBEDDED COMMENTS
// =========================================================================

// AddComment appends a comment. ID and CreatedAt are assigned here.
// Returns apperror.ErrNotFound when the post does not exist.
func (db *DB) AddComment(ctx context.Context, postID string, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.CreatedAt = time.Now().UTC()

	// INSERT ... SELECT inserts nothing when the post is missing.
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, post_id, user_id, content, created_at)
		 SELECT ?, id, ?, ?, ? FROM posts WHERE id = ?`,
		comment.ID, comment.UserID, comment.Content, comment.CreatedAt, postID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding comment to post %s: %w", postID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("post", postID)
	}
	return nil
}

func (db *DB) UpdateComment(ctx context.Context, postID, commentID, content string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE comments SET content = ? WHERE id = ? AND post_id = ?`,
		content, commentID, postID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating comment %s: %w", commentID, err)
	}
	return commentAffected(result, commentID)
}

func (db *DB) DeleteComment(ctx context.Context, postID, commentID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM comments WHERE id = ? AND post_id = ?`,
		commentID, postID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", commentID, err)
	}
	return commentAffected(result, commentID)
}

func commentAffected(result sql.Result, commentID string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("comment", commentID)
	}
	return nil
}

// =========================================================================
// LIKES AND VIEWS
// =========================================================================

// ToggleLike removes the like if present, otherwise adds it, and returns the
// resulting like set in insertion order.
func (db *DB) ToggleLike(ctx context.Context, postID, userID string) ([]string, bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: beginning like toggle: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts WHERE id = ?`, postID).Scan(&exists); err != nil {
		return nil, false, fmt.Errorf("sqlite: checking post %s: %w", postID, err)
	}
	if exists == 0 {
		return nil, false, apperror.NotFound("post", postID)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`, postID, userID)
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: removing like: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	liked := removed == 0
	if liked {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_likes (post_id, user_id) VALUES (?, ?)`, postID, userID); err != nil {
			return nil, false, fmt.Errorf("sqlite: adding like: %w", err)
		}
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT user_id FROM post_likes WHERE post_id = ? ORDER BY rowid`, postID)
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: reading likes: %w", err)
	}
	likes := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, false, fmt.Errorf("sqlite: scanning like: %w", err)
		}
		likes = append(likes, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, false, fmt.Errorf("sqlite: iterating likes: %w", err)
	}
	rows.Close()

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("sqlite: committing like toggle: %w", err)
	}
	return likes, liked, nil
}

// IncrementViews adds one view. RETURNING gives the new counter in the same statement.
func (db *DB) IncrementViews(ctx context.Context, postID string) (int64, error) {
	var views int64
	err := db.conn.QueryRowContext(ctx,
		`UPDATE posts SET views = views + 1 WHERE id = ? RETURNING views`, postID,
	).Scan(&views)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound("post", postID)
		}
		return 0, fmt.Errorf("sqlite: incrementing views of post %s: %w", postID, err)
	}
	return views, nil
}
