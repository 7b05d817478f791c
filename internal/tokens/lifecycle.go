// Package tokens drives access-token freshness for stored accounts:
// expiry checks, refresh exchanges and persisting the merged result.
package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/lalds/AntigravityManager/internal/accounts"
	"github.com/lalds/AntigravityManager/internal/common"
	"github.com/lalds/AntigravityManager/internal/googleapi"
	"github.com/lalds/AntigravityManager/internal/logging"
)

// defaultLifetime is assumed when the exchange omits expires_in.
const defaultLifetime = 3600 * time.Second

// Refresher performs the token-refresh exchange.
type Refresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*googleapi.RefreshResult, error)
}

// Lifecycle refreshes stale tokens and writes the results back to the store.
type Lifecycle struct {
	store *accounts.Store
	api   Refresher
	now   func() time.Time
	log   logging.Logger
}

func NewLifecycle(store *accounts.Store, api Refresher, log logging.Logger) *Lifecycle {
	return &Lifecycle{store: store, api: api, now: time.Now, log: log}
}

// EnsureFresh returns a non-expired token for the account, refreshing and
// persisting it when needed. The second result reports whether a refresh
// happened. The stored refresh token is kept unless the exchange rotates it.
func (l *Lifecycle) EnsureFresh(ctx context.Context, acc *accounts.Account) (*accounts.Token, bool, error) {
	if acc.Token == nil {
		return nil, false, fmt.Errorf("account %s: %w", acc.Email, common.ErrMissingCredential)
	}
	if !acc.Token.Expired(l.now()) {
		return acc.Token, false, nil
	}

	l.log.Info(ctx, "refreshing expired access token", "email", acc.Email)
	tok, err := l.Refresh(ctx, acc)
	if err != nil {
		return nil, false, err
	}
	return tok, true, nil
}

// Refresh exchanges the account's refresh token unconditionally and persists
// the result, regardless of the current token's expiry.
func (l *Lifecycle) Refresh(ctx context.Context, acc *accounts.Account) (*accounts.Token, error) {
	if acc.Token == nil || acc.Token.RefreshToken == "" {
		return nil, fmt.Errorf("account %s: %w", acc.Email, common.ErrMissingCredential)
	}

	result, err := l.api.RefreshToken(ctx, acc.Token.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", acc.Email, err)
	}

	lifetime := time.Duration(result.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = defaultLifetime
	}

	fresh := &accounts.Token{
		AccessToken:       result.AccessToken,
		RefreshToken:      acc.Token.RefreshToken,
		ExpiryTimestampMS: l.now().Add(lifetime).UnixMilli(),
	}
	if result.RefreshToken != "" {
		fresh.RefreshToken = result.RefreshToken
	}

	if err := l.store.UpdateToken(ctx, acc.Email, fresh); err != nil {
		return nil, fmt.Errorf("persist refreshed token for %s: %w", acc.Email, err)
	}
	acc.Token = fresh
	return fresh, nil
}

// ValidationResult is the per-account outcome of ValidateAll.
type ValidationResult struct {
	Email     string
	Valid     bool
	Refreshed bool
	Err       error
}

// ValidateAll checks every stored account, refreshing expired tokens. One
// account failing never stops the rest.
func (l *Lifecycle) ValidateAll(ctx context.Context) ([]ValidationResult, error) {
	list, err := l.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	results := make([]ValidationResult, 0, len(list))
	for i := range list {
		acc := &list[i]
		res := ValidationResult{Email: acc.Email}
		if _, refreshed, err := l.EnsureFresh(ctx, acc); err != nil {
			res.Err = err
			l.log.Warn(ctx, "account validation failed", "email", acc.Email, "error", err)
		} else {
			res.Valid = true
			res.Refreshed = refreshed
		}
		results = append(results, res)
	}
	return results, nil
}
