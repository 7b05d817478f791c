package cli

import (
	"context"
	"time"
)

// Refresh forces a token exchange for the account matching pattern.
func (a *App) Refresh(ctx context.Context, pattern string) error {
	acc, err := a.store.Match(ctx, a.aliases.Resolve(pattern))
	if err != nil {
		return err
	}

	tok, err := a.lifecycle.Refresh(ctx, acc)
	if err != nil {
		return err
	}
	a.printf("Refreshed %s, token valid until %s\n",
		acc.Email, time.UnixMilli(tok.ExpiryTimestampMS).Format(time.RFC1123))
	return nil
}

// Validate checks every stored account and reports each one's outcome.
func (a *App) Validate(ctx context.Context) error {
	results, err := a.lifecycle.ValidateAll(ctx)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		a.println("No accounts to validate.")
		return nil
	}

	for _, r := range results {
		switch {
		case r.Valid && r.Refreshed:
			a.printf("  %s: ok (refreshed)\n", r.Email)
		case r.Valid:
			a.printf("  %s: ok\n", r.Email)
		default:
			a.printf("  %s: FAILED: %v\n", r.Email, r.Err)
		}
	}
	return nil
}
