// Package store persists bot state in SQLite: in-flight trades awaiting
// confirmation, the observed price history and session counters.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"twmarketbot/market"
)

// PendingAction is a trade that was submitted but whose effect has not been
// confirmed from a fresh page read yet.
type PendingAction struct {
	ID              string `db:"id"`
	Kind            string `db:"kind"`
	MerchantsBefore int    `db:"merchants_before"`
	MerchantsDelta  int    `db:"merchants_delta"`
	ReceiveResource string `db:"receive_resource"`
	ReceiveAmount   int    `db:"receive_amount"`
	CreatedAt       int64  `db:"created_at"`
}

// Created returns the submission time.
func (p PendingAction) Created() time.Time {
	return time.Unix(p.CreatedAt, 0)
}

// Store wraps a SQLite connection.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates the database at the given path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pending_actions (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		merchants_before INTEGER NOT NULL,
		merchants_delta INTEGER NOT NULL,
		receive_resource TEXT NOT NULL,
		receive_amount INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS price_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		resource TEXT NOT NULL,
		ts INTEGER NOT NULL,
		price REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS stats (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_price_resource_ts ON price_history(resource, ts);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// AddPending records a submitted trade.
func (s *Store) AddPending(p PendingAction) error {
	_, err := s.conn.Exec(`INSERT INTO pending_actions
		(id, kind, merchants_before, merchants_delta, receive_resource, receive_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Kind, p.MerchantsBefore, p.MerchantsDelta,
		p.ReceiveResource, p.ReceiveAmount, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pending %s: %w", p.ID, err)
	}
	return nil
}

// Pendings returns all unconfirmed trades, oldest first.
func (s *Store) Pendings() ([]PendingAction, error) {
	var out []PendingAction
	err := s.conn.Select(&out,
		"SELECT * FROM pending_actions ORDER BY created_at ASC")
	return out, err
}

// DeletePending drops a confirmed or expired trade.
func (s *Store) DeletePending(id string) error {
	_, err := s.conn.Exec("DELETE FROM pending_actions WHERE id = ?", id)
	return err
}

// maximum retained observations per resource
const priceHistoryCap = 100

// AddPricePoint appends a price observation and trims that resource's
// history to the cap.
func (s *Store) AddPricePoint(r market.Resource, at time.Time, price float64) error {
	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO price_history (resource, ts, price) VALUES (?, ?, ?)",
		string(r), at.Unix(), price,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM price_history WHERE resource = ? AND id NOT IN
		(SELECT id FROM price_history WHERE resource = ? ORDER BY ts DESC, id DESC LIMIT ?)`,
		string(r), string(r), priceHistoryCap,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// PricePoints returns the stored observations for a resource, oldest first.
func (s *Store) PricePoints(r market.Resource) ([]market.PricePoint, error) {
	type row struct {
		Resource string  `db:"resource"`
		TS       int64   `db:"ts"`
		Price    float64 `db:"price"`
	}
	var rows []row
	err := s.conn.Select(&rows,
		"SELECT resource, ts, price FROM price_history WHERE resource = ? ORDER BY ts ASC, id ASC",
		string(r),
	)
	if err != nil {
		return nil, err
	}
	pts := make([]market.PricePoint, len(rows))
	for i, rw := range rows {
		pts[i] = market.PricePoint{
			Resource: market.Resource(rw.Resource),
			At:       time.Unix(rw.TS, 0),
			Price:    rw.Price,
		}
	}
	return pts, nil
}

// LoadHistory rebuilds the in-memory price history from the database.
func (s *Store) LoadHistory() (*market.History, error) {
	h := market.NewHistory()
	for _, r := range market.Resources {
		pts, err := s.PricePoints(r)
		if err != nil {
			return nil, err
		}
		for _, p := range pts {
			h.Add(p.Resource, p.At, p.Price)
		}
	}
	return h, nil
}

// IncrStat adds delta to a named counter.
func (s *Store) IncrStat(key string, delta int) error {
	_, err := s.conn.Exec(`INSERT INTO stats (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = value + excluded.value`,
		key, delta,
	)
	return err
}

// Stat returns a counter's value, 0 when unset.
func (s *Store) Stat(key string) (int, error) {
	var v int
	err := s.conn.Get(&v, "SELECT value FROM stats WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return v, err
}

// SetMeta stores an arbitrary value under a key, JSON-encoded.
func (s *Store) SetMeta(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, string(raw),
	)
	return err
}

// GetMeta decodes the value stored under a key into out. Returns false when
// the key is unset.
func (s *Store) GetMeta(key string, out any) (bool, error) {
	var raw string
	err := s.conn.Get(&raw, "SELECT value FROM meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal([]byte(raw), out)
}
