package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const postsSchema = `
CREATE TABLE IF NOT EXISTS posts (
    id            INTEGER  PRIMARY KEY,
    href          TEXT     NOT NULL UNIQUE,
    title         TEXT     NOT NULL,
    description   TEXT     NOT NULL DEFAULT '',
    published_at  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_published_at ON posts (published_at DESC);
`

// SetupSchema creates the posts table if it does not exist.
func SetupSchema(db *sql.DB) error {
	_, err := db.Exec(postsSchema)
	return err
}

// Store keeps posts in SQLite. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// NewStore returns a store backed by db. SetupSchema must have been run.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Posts implements Source.
func (s *Store) Posts(ctx context.Context) ([]Post, error) {
	return s.List(ctx)
}

// List returns every post, newest first.
func (s *Store) List(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, href, title, description, published_at FROM posts ORDER BY published_at DESC, href`)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var posts []Post
	for rows.Next() {
		var p Post
		if err = rows.Scan(&p.ID, &p.Href, &p.Title, &p.Description, &p.Date); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		p.Date = p.Date.UTC()
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// Get returns the post with the given href.
func (s *Store) Get(ctx context.Context, href string) (Post, error) {
	var p Post
	err := s.db.QueryRowContext(ctx,
		`SELECT id, href, title, description, published_at FROM posts WHERE href = ?`, href).
		Scan(&p.ID, &p.Href, &p.Title, &p.Description, &p.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	if err != nil {
		return Post{}, fmt.Errorf("failed to get post %s: %w", href, err)
	}
	p.Date = p.Date.UTC()
	return p, nil
}

// Upsert inserts a post or updates the one with the same href, returning its id.
func (s *Store) Upsert(ctx context.Context, p Post) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return upsert(ctx, s.db, p)
}

// Delete removes the post with the given href.
func (s *Store) Delete(ctx context.Context, href string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE href = ?`, href)
	if err != nil {
		return fmt.Errorf("failed to delete post %s: %w", href, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Replace makes the store hold exactly posts, in a single transaction.
// Existing rows keep their ids when their href is still present.
func (s *Store) Replace(ctx context.Context, posts []Post) error {
	for _, p := range posts {
		if err := p.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS keep_hrefs (href TEXT PRIMARY KEY)`); err != nil {
		return fmt.Errorf("failed to create temp table: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM keep_hrefs`); err != nil {
		return fmt.Errorf("failed to clear temp table: %w", err)
	}
	for _, p := range posts {
		if _, err = upsert(ctx, tx, p); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO keep_hrefs (href) VALUES (?)`, p.Href); err != nil {
			return fmt.Errorf("failed to record href: %w", err)
		}
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM posts WHERE href NOT IN (SELECT href FROM keep_hrefs)`); err != nil {
		return fmt.Errorf("failed to prune posts: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit posts transaction: %w", err)
	}
	return nil
}

// Count returns the number of stored posts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	return n, err
}

type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func upsert(ctx context.Context, q execQuerier, p Post) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
        INSERT INTO posts (href, title, description, published_at) VALUES (?, ?, ?, ?)
        ON CONFLICT(href) DO UPDATE SET title = excluded.title, description = excluded.description,
            published_at = excluded.published_at
        RETURNING id
    `, p.Href, p.Title, p.Description, p.Date.UTC().Truncate(time.Second)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert post %s: %w", p.Href, err)
	}
	return id, nil
}
