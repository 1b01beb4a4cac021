// Package sitestore persists converted sites in SQLite with an index on the
// content hash of the source stream.
package sitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dgallion1/docsite/internal/export"
	"github.com/dgallion1/docsite/internal/sitemodel"
)

// ErrNotFound is returned for unknown site ids.
var ErrNotFound = errors.New("sitestore: site not found")

// RetryableError wraps an SQLite busy or locked condition.
type RetryableError struct {
	Op  string
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s: database busy: %v", e.Op, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

const schema = `
CREATE TABLE IF NOT EXISTS sites (
	id            TEXT PRIMARY KEY,
	content_hash  TEXT NOT NULL,
	filename      TEXT NOT NULL,
	title         TEXT NOT NULL,
	section_count INTEGER NOT NULL,
	item_count    INTEGER NOT NULL,
	model_json    TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sites_content_hash ON sites(content_hash);
CREATE INDEX IF NOT EXISTS idx_sites_created_at ON sites(created_at);
`

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Site is a stored conversion result.
type Site struct {
	ID          string
	ContentHash string
	Filename    string
	CreatedAt   time.Time
	Model       *sitemodel.SiteModel
}

// Summary describes a stored site without its model.
type Summary struct {
	ID          string    `json:"site_id"`
	ContentHash string    `json:"content_hash"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	Sections    int       `json:"sections"`
	Items       int       `json:"items"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is the SQLite-backed site repository.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string, log *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sitestore: open: %w", err)
	}

	pragmas := []string{"PRAGMA busy_timeout = 5000", "PRAGMA synchronous = NORMAL"}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sitestore: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sitestore: create schema: %w", err)
	}

	log.Info("site store opened", "path", path)
	return &Store{db: db, log: log}, nil
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return wrap("ping", s.db.PingContext(ctx))
}

// Put inserts or replaces a site.
func (s *Store) Put(ctx context.Context, site *Site) error {
	data, err := export.Marshal(site.Model)
	if err != nil {
		return err
	}
	items := 0
	for _, sec := range site.Model.Sections {
		items += len(sec.Items)
	}
	created := site.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sites (id, content_hash, filename, title, section_count, item_count, model_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content_hash = excluded.content_hash,
			filename = excluded.filename,
			title = excluded.title,
			section_count = excluded.section_count,
			item_count = excluded.item_count,
			model_json = excluded.model_json,
			created_at = excluded.created_at`,
		site.ID, site.ContentHash, site.Filename, site.Model.SiteTitle,
		len(site.Model.Sections), items, string(data), created.UTC().Format(timeLayout))
	return wrap("put site", err)
}

// Get loads a site by id.
func (s *Store) Get(ctx context.Context, id string) (*Site, error) {
	var (
		site    Site
		data    string
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, content_hash, filename, model_json, created_at FROM sites WHERE id = ?`, id,
	).Scan(&site.ID, &site.ContentHash, &site.Filename, &data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrap("get site", err)
	}

	site.Model, err = export.Unmarshal([]byte(data))
	if err != nil {
		return nil, err
	}
	if site.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("get site %s: %w", id, err)
	}
	return &site, nil
}

// FindByHash returns the newest site converted from content with hash.
func (s *Store) FindByHash(ctx context.Context, hash string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM sites WHERE content_hash = ? ORDER BY created_at DESC, id DESC LIMIT 1`, hash,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("find by hash", err)
	}
	return id, true, nil
}

// List returns up to limit summaries, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content_hash, filename, title, section_count, item_count, created_at
		FROM sites ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, wrap("list sites", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var sum Summary
		var created string
		if err := rows.Scan(&sum.ID, &sum.ContentHash, &sum.Filename, &sum.Title, &sum.Sections, &sum.Items, &created); err != nil {
			return nil, wrap("scan site", err)
		}
		if sum.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("list sites: site %s: %w", sum.ID, err)
		}
		out = append(out, sum)
	}
	return out, wrap("list sites", rows.Err())
}

// Delete removes a site.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sites WHERE id = ?`, id)
	if err != nil {
		return wrap("delete site", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrap("delete site", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	s.log.Info("site deleted", "site_id", id)
	return nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t, nil
}

// IsBusy reports whether err is an SQLite busy or locked condition.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsBusy(err) {
		return &RetryableError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
