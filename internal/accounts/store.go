package accounts

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lalds/AntigravityManager/internal/common"
	"github.com/lalds/AntigravityManager/internal/envelope"
	"github.com/lalds/AntigravityManager/internal/logging"
)

// KeyResolver recovers the master key sealing the envelope fields. It is
// invoked once per logical store operation; the key is never cached across
// calls because the on-disk material may rotate.
type KeyResolver interface {
	Resolve(ctx context.Context) ([]byte, error)
}

// Store is the decrypting view over the accounts table. Reads tolerate
// per-field decryption failures: a garbled quota never hides the token or
// the row. Writes re-encrypt only the single field being written, with a
// fresh IV.
type Store struct {
	db   *sql.DB
	keys KeyResolver
	log  logging.Logger
}

// NewStore returns a Store over db using keys for envelope recovery.
func NewStore(db *sql.DB, keys KeyResolver, log logging.Logger) *Store {
	return &Store{db: db, keys: keys, log: log}
}

// List returns all accounts ordered by most-recently-used first, with token
// and quota decrypted where possible. If the master key cannot be recovered
// the rows are still returned with both views absent.
func (s *Store) List(ctx context.Context) ([]Account, error) {
	records, err := NewSQLiteRepository(s.db).GetAll(ctx)
	if err != nil {
		return nil, err
	}

	key, err := s.keys.Resolve(ctx)
	if err != nil {
		s.log.Warn(ctx, "master key unavailable, returning accounts without decrypted fields", "error", err)
		key = nil
	}

	result := make([]Account, 0, len(records))
	for _, rec := range records {
		acc := Account{Record: rec}
		if key != nil {
			acc.Token = s.decryptToken(ctx, rec, key)
			acc.Quota = s.decryptQuota(ctx, rec, key)
		}
		result = append(result, acc)
	}
	return result, nil
}

// Match returns the first account (in recency order) whose email contains
// pattern case-insensitively. This is not a unique-match guarantee: callers
// should report which account was chosen. Returns common.ErrNotFound when
// nothing matches.
func (s *Store) Match(ctx context.Context, pattern string) (*Account, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(pattern)
	for i := range list {
		if strings.Contains(strings.ToLower(list[i].Email), needle) {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("account matching %q: %w", pattern, common.ErrNotFound)
}

// UpdateToken re-encrypts and persists only the token field of one account.
func (s *Store) UpdateToken(ctx context.Context, email string, tok *Token) error {
	cipher, err := s.sealJSON(ctx, tok)
	if err != nil {
		return err
	}
	return NewSQLiteRepository(s.db).UpdateTokenCipher(ctx, email, cipher)
}

// UpdateQuota re-encrypts and persists only the quota field of one account.
func (s *Store) UpdateQuota(ctx context.Context, email string, q *Quota) error {
	cipher, err := s.sealJSON(ctx, q)
	if err != nil {
		return err
	}
	return NewSQLiteRepository(s.db).UpdateQuotaCipher(ctx, email, cipher)
}

// MarkActive flags the account as the one currently injected into the host.
func (s *Store) MarkActive(ctx context.Context, email string, now time.Time) error {
	return NewSQLiteRepository(s.db).MarkActive(ctx, email, now.UnixMilli())
}

// Remove deletes the first account matching pattern and returns its email.
func (s *Store) Remove(ctx context.Context, pattern string) (string, error) {
	acc, err := s.Match(ctx, pattern)
	if err != nil {
		return "", err
	}
	if err := NewSQLiteRepository(s.db).Delete(ctx, acc.Email); err != nil {
		return "", err
	}
	return acc.Email, nil
}

// ImportAccount inserts an account that came from an export manifest,
// sealing the token and quota with this machine's master key. Existing
// accounts are left untouched and the imported one is never active.
// Returns whether a row was inserted.
func (s *Store) ImportAccount(ctx context.Context, rec Record, tok *Token, quota *Quota) (bool, error) {
	repo := NewSQLiteRepository(s.db)

	if _, err := repo.GetByEmail(ctx, rec.Email); err == nil {
		return false, nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return false, err
	}

	rec.IsActive = false
	if tok != nil {
		cipher, err := s.sealJSON(ctx, tok)
		if err != nil {
			return false, err
		}
		rec.TokenCipher = cipher
	}
	if quota != nil {
		cipher, err := s.sealJSON(ctx, quota)
		if err != nil {
			return false, err
		}
		rec.QuotaCipher = cipher
	}

	if err := repo.Insert(ctx, &rec); err != nil {
		return false, err
	}
	return true, nil
}

// BestAccount picks the account with the highest quota score at or above
// minQuota. The score is the minimum percentage across the account's models,
// optionally restricted to models whose name contains preferModel. Accounts
// without quota data are skipped. Returns common.ErrNotFound when no account
// qualifies.
func (s *Store) BestAccount(ctx context.Context, minQuota int, preferModel string) (*Account, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var best *Account
	bestScore := -1

	for i := range list {
		acc := &list[i]
		if acc.Quota == nil || len(acc.Quota.Models) == 0 {
			continue
		}

		score := -1
		for name, mq := range acc.Quota.Models {
			if preferModel != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(preferModel)) {
				continue
			}
			if score == -1 || mq.Percentage < score {
				score = mq.Percentage
			}
		}
		if score == -1 {
			continue
		}

		if score >= minQuota && score > bestScore {
			best = acc
			bestScore = score
		}
	}

	if best == nil {
		return nil, fmt.Errorf("no account with quota >= %d: %w", minQuota, common.ErrNotFound)
	}
	return best, nil
}

func (s *Store) sealJSON(ctx context.Context, v any) (string, error) {
	key, err := s.keys.Resolve(ctx)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal field: %w", err)
	}
	return envelope.Encrypt(string(payload), key)
}

func (s *Store) decryptToken(ctx context.Context, rec Record, key []byte) *Token {
	if rec.TokenCipher == "" {
		return nil
	}
	plain, ok := envelope.Decrypt(rec.TokenCipher, key)
	if !ok {
		s.log.Warn(ctx, "token field undecryptable", "email", rec.Email)
		return nil
	}
	var tok Token
	if err := json.Unmarshal([]byte(plain), &tok); err != nil {
		s.log.Warn(ctx, "token field is not valid JSON", "email", rec.Email, "error", err)
		return nil
	}
	return &tok
}

func (s *Store) decryptQuota(ctx context.Context, rec Record, key []byte) *Quota {
	if rec.QuotaCipher == "" {
		return nil
	}
	plain, ok := envelope.Decrypt(rec.QuotaCipher, key)
	if !ok {
		s.log.Warn(ctx, "quota field undecryptable", "email", rec.Email)
		return nil
	}
	var q Quota
	if err := json.Unmarshal([]byte(plain), &q); err != nil {
		s.log.Warn(ctx, "quota field is not valid JSON", "email", rec.Email, "error", err)
		return nil
	}
	return &q
}
