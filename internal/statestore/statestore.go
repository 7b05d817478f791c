// Package statestore reads and rewrites the host application's key-value
// state store (the ItemTable of its state database). Only four keys are
// touched: the session-token slot, the auth-status JSON, the onboarding
// flag, and one legacy auth key that gets deleted.
package statestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lalds/AntigravityManager/internal/common"
	"github.com/lalds/AntigravityManager/internal/dbx"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// Keys this store reads or writes inside the host's ItemTable.
const (
	TokenKey      = "antigravityUnifiedStateSync.oauthToken"
	AuthStatusKey = "antigravityAuthStatus"
	OnboardingKey = "antigravityOnboarding"
	LegacyAuthKey = "google.antigravity"
)

// AuthStatus is the JSON record the host keeps under AuthStatusKey.
type AuthStatus struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	APIKey string `json:"apiKey"`
}

// Store wraps the host's state database. The design assumes at most one
// writer process at a time; there is no locking beyond what SQLite provides.
type Store struct {
	db *sql.DB
}

// Open opens the state database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already-open handle. Used by tests.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key, or common.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM ItemTable WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("key %q: %w", key, common.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get %q: %w", key, err)
	}
	return value, nil
}

// ReadAuthStatus returns the host's current auth-status record, or
// common.ErrNotFound if the host has no signed-in identity.
func (s *Store) ReadAuthStatus(ctx context.Context) (*AuthStatus, error) {
	value, err := s.Get(ctx, AuthStatusKey)
	if err != nil {
		return nil, err
	}

	var status AuthStatus
	if err := json.Unmarshal([]byte(value), &status); err != nil {
		return nil, fmt.Errorf("parse auth status: %w", err)
	}
	return &status, nil
}

// InjectSession writes the session token blob, the auth-status JSON, and the
// onboarding flag, and deletes the stale legacy auth key. All four writes
// commit as a single transaction; any failure rolls the whole step back so a
// partial injection is never observable.
func (s *Store) InjectSession(ctx context.Context, tokenBlob string, status AuthStatus) error {
	statusJSON, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal auth status: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// The table should exist in any initialized host profile; creating
		// it keeps injection working on a fresh one.
		if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS ItemTable (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
			return err
		}
		if err := upsert(ctx, tx, TokenKey, tokenBlob); err != nil {
			return err
		}
		if err := upsert(ctx, tx, AuthStatusKey, string(statusJSON)); err != nil {
			return err
		}
		if err := upsert(ctx, tx, OnboardingKey, "true"); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM ItemTable WHERE key = ?`, LegacyAuthKey)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %s", common.ErrStoreWriteFailed, err)
	}
	return nil
}

func upsert(ctx context.Context, tx dbx.DBTX, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ItemTable (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}
