package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lalds/AntigravityManager/internal/common"
	"github.com/lalds/AntigravityManager/internal/dbx"
)

// SQLiteRepository provides raw-row CRUD over the accounts table using a
// DBTX (either *sql.DB or *sql.Tx). Envelope fields pass through untouched;
// decryption lives in Store.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// The host GUI writes NULLs for fields it has not populated yet.
const selectColumns = `email, COALESCE(token_json, ''), COALESCE(quota_json, ''),
	COALESCE(name, ''), COALESCE(avatar_url, ''), COALESCE(last_used, 0), COALESCE(is_active, 0)`

// GetAll lists all account rows ordered by most-recently-used first.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]Record, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts ORDER BY last_used DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select accounts: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByEmail returns a single row by its exact email key.
func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*Record, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts WHERE email = ?`
	row := r.db.QueryRowContext(ctx, query, email)

	var rec Record
	var active int
	err := row.Scan(&rec.Email, &rec.TokenCipher, &rec.QuotaCipher, &rec.Name, &rec.AvatarURL, &rec.LastUsed, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	rec.IsActive = active != 0
	return &rec, nil
}

// Insert adds a new account row. The email must not already exist.
func (r *SQLiteRepository) Insert(ctx context.Context, rec *Record) error {
	query := `INSERT INTO accounts (email, token_json, quota_json, name, avatar_url, last_used, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rec.Email, rec.TokenCipher, rec.QuotaCipher, rec.Name, rec.AvatarURL, rec.LastUsed, boolToInt(rec.IsActive))
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

// UpdateTokenCipher rewrites only the token envelope of one account.
func (r *SQLiteRepository) UpdateTokenCipher(ctx context.Context, email, cipher string) error {
	return r.updateField(ctx, `UPDATE accounts SET token_json = ? WHERE email = ?`, email, cipher)
}

// UpdateQuotaCipher rewrites only the quota envelope of one account.
func (r *SQLiteRepository) UpdateQuotaCipher(ctx context.Context, email, cipher string) error {
	return r.updateField(ctx, `UPDATE accounts SET quota_json = ? WHERE email = ?`, email, cipher)
}

// MarkActive flags one account active and everything else inactive, and
// stamps its last_used.
func (r *SQLiteRepository) MarkActive(ctx context.Context, email string, lastUsedMS int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE accounts SET is_active = 0 WHERE email <> ?`, email); err != nil {
		return fmt.Errorf("failed to clear active flags: %w", err)
	}
	_, err := r.db.ExecContext(ctx, `UPDATE accounts SET is_active = 1, last_used = ? WHERE email = ?`, lastUsedMS, email)
	if err != nil {
		return fmt.Errorf("failed to mark account active: %w", err)
	}
	return nil
}

// Delete removes one account row by its exact email key.
func (r *SQLiteRepository) Delete(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE email = ?`, email)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) updateField(ctx context.Context, query, email, cipher string) error {
	res, err := r.db.ExecContext(ctx, query, cipher, email)
	if err != nil {
		return fmt.Errorf("failed to update account field: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return common.ErrNotFound
	}
	return nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var active int
	if err := rows.Scan(&rec.Email, &rec.TokenCipher, &rec.QuotaCipher, &rec.Name, &rec.AvatarURL, &rec.LastUsed, &active); err != nil {
		return Record{}, fmt.Errorf("failed to scan account row: %w", err)
	}
	rec.IsActive = active != 0
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
