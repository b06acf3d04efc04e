package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"taskdesk/internal/model"

	_ "modernc.org/sqlite"
)

const (
	keyToken = "token"
	keyUser  = "user"

	sessionFileName = "session.sqlite"
)

// Record is what survives a restart: the opaque token and the cached user.
type Record struct {
	Token string
	User  model.User
}

// Persister is durable key/value storage for the session. Save and Clear
// always write both keys together.
type Persister interface {
	Load(ctx context.Context) (Record, bool, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

// SQLitePersister keeps the session in a small SQLite db inside the state dir.
type SQLitePersister struct {
	Dir string
}

func (p SQLitePersister) Path() string {
	return filepath.Join(filepath.Clean(p.Dir), sessionFileName)
}

func (p SQLitePersister) open(ctx context.Context) (*sql.DB, error) {
	if strings.TrimSpace(p.Dir) == "" {
		return nil, errors.New("session: missing state dir")
	}
	if err := os.MkdirAll(p.Dir, 0o700); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", p.Path())
	if err != nil {
		return nil, err
	}
	// WAL + busy_timeout: a CLI command and the TUI may touch the db at once.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pr := range pragmas {
		if _, err := db.ExecContext(ctx, pr); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (p SQLitePersister) Load(ctx context.Context) (Record, bool, error) {
	db, err := p.open(ctx)
	if err != nil {
		return Record{}, false, err
	}
	defer db.Close()

	vals := map[string]string{}
	rows, err := db.QueryContext(ctx, `SELECT k, v FROM kv WHERE k IN (?, ?)`, keyToken, keyUser)
	if err != nil {
		return Record{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Record{}, false, err
		}
		vals[k] = v
	}
	if err := rows.Err(); err != nil {
		return Record{}, false, err
	}
	return decodeRecord(vals)
}

func (p SQLitePersister) Save(ctx context.Context, rec Record) error {
	userJSON, err := json.Marshal(rec.User)
	if err != nil {
		return err
	}
	db, err := p.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO kv(k, v) VALUES(?, ?)`, keyToken, rec.Token); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO kv(k, v) VALUES(?, ?)`, keyUser, string(userJSON)); err != nil {
		return err
	}
	return tx.Commit()
}

func (p SQLitePersister) Clear(ctx context.Context) error {
	db, err := p.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, `DELETE FROM kv WHERE k IN (?, ?)`, keyToken, keyUser)
	return err
}

// decodeRecord treats a half-written pair (token without user or vice versa)
// as no session.
func decodeRecord(vals map[string]string) (Record, bool, error) {
	tok := strings.TrimSpace(vals[keyToken])
	raw := strings.TrimSpace(vals[keyUser])
	if tok == "" || raw == "" {
		return Record{}, false, nil
	}
	var u model.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return Record{}, false, fmt.Errorf("session: decode persisted user: %w", err)
	}
	return Record{Token: tok, User: u}, true, nil
}

// MemoryPersister is an in-process Persister, handy for tests.
type MemoryPersister struct {
	mu     sync.Mutex
	vals   map[string]string
	Saves  int
	Clears int
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{vals: map[string]string{}}
}

func (m *MemoryPersister) Load(_ context.Context) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decodeRecord(m.vals)
}

func (m *MemoryPersister) Save(_ context.Context, rec Record) error {
	b, err := json.Marshal(rec.User)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[keyToken] = rec.Token
	m.vals[keyUser] = string(b)
	m.Saves++
	return nil
}

func (m *MemoryPersister) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, keyToken)
	delete(m.vals, keyUser)
	m.Clears++
	return nil
}

// ClearCount is safe to call while requests are in flight.
func (m *MemoryPersister) ClearCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Clears
}
