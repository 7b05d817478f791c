package cli

import (
	"context"
	"fmt"

	"github.com/lalds/AntigravityManager/internal/switcher"
)

// Switch activates the account matching pattern: it refreshes a stale token
// first, then runs the kill-inject-restart sequence.
func (a *App) Switch(ctx context.Context, pattern string) error {
	acc, err := a.store.Match(ctx, a.aliases.Resolve(pattern))
	if err != nil {
		return err
	}
	a.printf("Switching to %s\n", acc.Email)

	if _, refreshed, err := a.lifecycle.EnsureFresh(ctx, acc); err != nil {
		return fmt.Errorf("token not usable: %w", err)
	} else if refreshed {
		a.println("Access token was stale, refreshed it first.")
	}

	res, err := a.orch.Switch(ctx, acc.Email)
	if err != nil {
		return err
	}

	switch res.State {
	case switcher.StateDone:
		a.printf("Done. Stopped %d process(es), session injected, host restarted.\n", res.Killed)
	case switcher.StateLaunchFailed:
		a.printf("Session injected, but the host could not be restarted: %v\n", res.LaunchErr)
		a.println("Start it manually; the new account is already in place.")
	default:
		a.printf("Switch ended in state %s\n", res.State)
	}
	if res.BackupPath != "" {
		a.printf("State database backup: %s\n", res.BackupPath)
	}
	return nil
}
