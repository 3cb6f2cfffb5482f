package linkstore

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Dialect selects the SQL flavor the store speaks.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// stateBytes is the nonce entropy; hex-encoded it yields 100 characters.
const stateBytes = 50

// ErrStateNotFound is returned when a callback arrives with a state nonce
// that matches no pending link. Forged and stale callbacks land here.
var ErrStateNotFound = errors.New("no link found for state")

// Link is one row of the polymart_links table.
type Link struct {
	ID          int64
	UserID      string
	RandomState string
	Token       sql.NullString
	CreatedAt   time.Time
}

// Store reads and writes Polymart link records.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New creates a store over an open database handle.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS polymart_links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	random_state TEXT NOT NULL,
	token TEXT,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_polymart_links_user ON polymart_links (user_id);
CREATE INDEX IF NOT EXISTS idx_polymart_links_state ON polymart_links (random_state);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS polymart_links (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	random_state TEXT NOT NULL,
	token TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_polymart_links_user ON polymart_links (user_id);
CREATE INDEX IF NOT EXISTS idx_polymart_links_state ON polymart_links (random_state);
`

// InitSchema creates the polymart_links table when it does not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := sqliteSchema
	if s.dialect == DialectPostgres {
		schema = postgresSchema
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create polymart_links schema: %w", err)
	}
	return nil
}

// rebind converts ? placeholders to the $n form PostgreSQL expects.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// NewState generates the cryptographically random nonce embedded in the
// linking handshake.
func NewState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate link state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// CreatePending inserts a pending link (no token yet) and returns the state
// nonce the callback must echo.
func (s *Store) CreatePending(ctx context.Context, userID string) (string, error) {
	state, err := NewState()
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO polymart_links (user_id, random_state) VALUES (?, ?)`),
		userID, state)
	if err != nil {
		return "", fmt.Errorf("insert pending link: %w", err)
	}
	return state, nil
}

// FindByState returns the most recent link carrying the given state nonce,
// or ErrStateNotFound.
func (s *Store) FindByState(ctx context.Context, state string) (*Link, error) {
	link := &Link{}
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, user_id, random_state, token, created_at
			FROM polymart_links WHERE random_state = ? ORDER BY id DESC LIMIT 1`),
		state).Scan(&link.ID, &link.UserID, &link.RandomState, &link.Token, &link.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find link by state: %w", err)
	}
	return link, nil
}

// SetToken stores the token delivered by the callback, completing the link.
func (s *Store) SetToken(ctx context.Context, id int64, token string) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE polymart_links SET token = ? WHERE id = ?`), token, id)
	if err != nil {
		return fmt.Errorf("store link token: %w", err)
	}
	return nil
}

// ListByUser returns every link row for a user, pending ones included.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]Link, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT id, user_id, random_state, token, created_at
			FROM polymart_links WHERE user_id = ?`), userID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var links []Link
	for rows.Next() {
		var link Link
		if err := rows.Scan(&link.ID, &link.UserID, &link.RandomState, &link.Token, &link.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// DeleteByUser removes every link row for a user.
func (s *Store) DeleteByUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM polymart_links WHERE user_id = ?`), userID)
	if err != nil {
		return fmt.Errorf("delete links: %w", err)
	}
	return nil
}

// IsLinked reports whether the user holds at least one completed link.
func (s *Store) IsLinked(ctx context.Context, userID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM polymart_links WHERE user_id = ? AND token IS NOT NULL`),
		userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count links: %w", err)
	}
	return count > 0, nil
}

// Token returns the user's link token, or empty when unlinked. It satisfies
// the providers.TokenSource contract the Polymart adapter consumes.
func (s *Store) Token(ctx context.Context, userID string) (string, error) {
	var token sql.NullString
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT token FROM polymart_links
			WHERE user_id = ? AND token IS NOT NULL ORDER BY id DESC LIMIT 1`),
		userID).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load link token: %w", err)
	}
	return token.String, nil
}

// DeleteStalePending removes pending links older than maxAge. A pending row
// whose callback never arrived is useless and only widens the replay window.
func (s *Store) DeleteStalePending(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	res, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM polymart_links WHERE token IS NULL AND created_at < ?`), cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale pending links: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}
