package blobstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SQLiteStore keeps objects as rows of a single table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ Store = &SQLiteStore{}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite blobstore: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite blobstore: open")
	}
	// a single connection keeps ":memory:" databases coherent
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	if s == nil || s.db == nil {
		return errors.New("sqlite blobstore: db is nil")
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS blobs (
			key TEXT NOT NULL PRIMARY KEY,
			body BLOB NOT NULL,
			content_type TEXT NOT NULL DEFAULT '',
			size INTEGER NOT NULL DEFAULT 0,
			modified_at_ms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS blobs_by_modified ON blobs(modified_at_ms);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "sqlite blobstore: migrate")
		}
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite blobstore: db is nil")
	}
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM blobs WHERE key = ?`, key).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrNotFound, "sqlite blobstore: %s", key)
	}
	if err != nil {
		return nil, errors.Wrap(err, "sqlite blobstore: select")
	}
	return body, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite blobstore: db is nil")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("sqlite blobstore: empty key")
	}
	if body == nil {
		body = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs(key, body, content_type, size, modified_at_ms)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			body = excluded.body,
			content_type = excluded.content_type,
			size = excluded.size,
			modified_at_ms = excluded.modified_at_ms
	`, key, body, contentType, len(body), s.now().UnixMilli())
	if err != nil {
		return errors.Wrap(err, "sqlite blobstore: upsert")
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite blobstore: db is nil")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, size, modified_at_ms FROM blobs
		WHERE substr(key, 1, length(?)) = ?
		ORDER BY key ASC
	`, prefix, prefix)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite blobstore: list")
	}
	defer func() { _ = rows.Close() }()

	out := []ObjectInfo{}
	for rows.Next() {
		var (
			info       ObjectInfo
			modifiedMs int64
		)
		if err := rows.Scan(&info.Key, &info.Size, &modifiedMs); err != nil {
			return nil, errors.Wrap(err, "sqlite blobstore: scan")
		}
		info.LastModified = time.UnixMilli(modifiedMs)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite blobstore: rows")
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return errors.New("sqlite blobstore: db is nil")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blobs WHERE key = ?`, key); err != nil {
		return errors.Wrap(err, "sqlite blobstore: delete")
	}
	return nil
}
