package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sidilemine/InsightSprint-sub001/pkg/errorsx"
	"github.com/sidilemine/InsightSprint-sub001/pkg/session"
)

// SQLite persists interviews and sessions as JSON documents in a local
// database file.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS interviews (
	id   TEXT PRIMARY KEY,
	data TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
	id     TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	data   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
`

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, errorsx.Wrap(fmt.Errorf("open sqlite %s: %w", path, err), errorsx.ReasonStoreUnavailable)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errorsx.Wrap(fmt.Errorf("apply schema: %w", err), errorsx.ReasonStoreUnavailable)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) PutInterview(ctx context.Context, iv session.Interview) error {
	data, err := json.Marshal(iv)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO interviews(id, data) VALUES(?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`,
		iv.ID, string(data))
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonStoreUnavailable)
	}
	return nil
}

func (s *SQLite) Interview(ctx context.Context, id string) (session.Interview, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM interviews WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Interview{}, session.ErrNotFound
	}
	if err != nil {
		return session.Interview{}, errorsx.Wrap(err, errorsx.ReasonStoreUnavailable)
	}
	var iv session.Interview
	if err := json.Unmarshal([]byte(data), &iv); err != nil {
		return session.Interview{}, err
	}
	return iv, nil
}

func (s *SQLite) CreateSession(ctx context.Context, sess session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions(id, status, data) VALUES(?, ?, ?)`,
		sess.ID, string(sess.Status), string(data))
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonStoreUnavailable)
	}
	return nil
}

func (s *SQLite) Session(ctx context.Context, id string) (session.Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, session.ErrNotFound
	}
	if err != nil {
		return session.Session{}, errorsx.Wrap(err, errorsx.ReasonStoreUnavailable)
	}
	var sess session.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return session.Session{}, err
	}
	if sess.Responses == nil {
		sess.Responses = make(map[string]session.Response)
	}
	return sess, nil
}

func (s *SQLite) SaveSession(ctx context.Context, sess session.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, data = ? WHERE id = ?`,
		string(sess.Status), string(data), sess.ID)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonStoreUnavailable)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonStoreUnavailable)
	}
	if affected == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

var _ session.Store = (*SQLite)(nil)
