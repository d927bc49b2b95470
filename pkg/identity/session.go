package identity

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// sessionIDAlphabet avoids characters that need escaping in a Set-Cookie
// value.
const sessionIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

const sessionIDLength = 32

// ErrSessionNotFound covers both an unknown id and one that has expired;
// sessions are deleted lazily on lookup, so the two are indistinguishable
// to callers.
var ErrSessionNotFound = errors.New("identity: session not found")

// Session is a browser login. Embedded store, not the catalog:
// sessions are ephemeral and churn far faster than the relational data they
// point at.
type Session struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
	UserAgent string
	IP        string
}

// SessionStore persists sessions in SQLite with WAL journaling, via
// mattn/go-sqlite3 (otherwise unused by the catalog, which talks to
// Postgres). WAL gives one writer and many concurrent readers without an
// external service.
type SessionStore struct {
	db *sql.DB
}

func OpenSessionStore(path string) (*SessionStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("identity: opening session store: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver is not safe for concurrent writers beyond WAL's single-writer model

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			expires_at DATETIME NOT NULL,
			user_agent TEXT NOT NULL DEFAULT '',
			ip TEXT NOT NULL DEFAULT ''
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("identity: migrating session store: %w", err)
	}
	return &SessionStore{db: db}, nil
}

func (s *SessionStore) Close() error { return s.db.Close() }

func (s *SessionStore) Create(ctx context.Context, userID int64, ttl time.Duration, userAgent, ip string) (*Session, error) {
	id, err := newSessionID()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		UserAgent: userAgent,
		IP:        ip,
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, created_at, expires_at, user_agent, ip) VALUES (?, ?, ?, ?, ?, ?)
	`, sess.ID, sess.UserID, sess.CreatedAt, sess.ExpiresAt, sess.UserAgent, sess.IP)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, created_at, expires_at, user_agent, ip FROM sessions WHERE id = ?
	`, id).Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt, &sess.UserAgent, &sess.IP)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if sess.ExpiresAt.Before(time.Now()) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// DeleteExpired is run on a schedule by the background sweeper (reuses
// the same cron runner for this).
func (s *SessionStore) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func newSessionID() (string, error) {
	raw := make([]byte, sessionIDLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	// Map random bytes onto the alphabet rather than base64, so the id is
	// safe to drop straight into a cookie value with no further escaping.
	var b strings.Builder
	b.Grow(sessionIDLength)
	alphabetLen := len(sessionIDAlphabet)
	for _, v := range raw {
		b.WriteByte(sessionIDAlphabet[int(v)%alphabetLen])
	}
	return b.String(), nil
}

// encodeCookieValue is a defensive no-op placeholder kept symmetrical with
// decodeCookieValue; session ids are already cookie-safe by construction.
func encodeCookieValue(id string) string { return id }

func decodeCookieValue(v string) (string, error) {
	if len(v) != sessionIDLength {
		return "", fmt.Errorf("identity: malformed session cookie")
	}
	for i := 0; i < len(v); i++ {
		if !strings.ContainsRune(sessionIDAlphabet, rune(v[i])) {
			return "", fmt.Errorf("identity: malformed session cookie")
		}
	}
	return v, nil
}
