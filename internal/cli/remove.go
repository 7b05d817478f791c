package cli

import (
	"context"
	"fmt"
)

// Remove deletes the account matching pattern after confirmation.
func (a *App) Remove(ctx context.Context, pattern string) error {
	acc, err := a.store.Match(ctx, a.aliases.Resolve(pattern))
	if err != nil {
		return err
	}

	if !Confirm(a.reader, fmt.Sprintf("Delete %s?", acc.Email), a.out) {
		a.println("Kept.")
		return nil
	}

	email, err := a.store.Remove(ctx, acc.Email)
	if err != nil {
		return err
	}
	a.printf("Removed %s\n", email)
	return nil
}
