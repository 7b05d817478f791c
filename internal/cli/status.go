package cli

import (
	"context"
	"errors"

	"github.com/lalds/AntigravityManager/internal/common"
	"github.com/lalds/AntigravityManager/internal/filex"
	"github.com/lalds/AntigravityManager/internal/statestore"
	"github.com/lalds/AntigravityManager/internal/tokenblob"
)

// Status reports which identity the host application currently holds,
// straight from its state database.
func (a *App) Status(ctx context.Context) error {
	path := filex.FirstExisting(a.config.StateDBCandidates)
	if path == "" {
		a.println("Host state database not found. Is the host application installed?")
		return nil
	}

	st, err := a.openState(path)
	if err != nil {
		return err
	}
	defer st.Close()

	status, err := st.ReadAuthStatus(ctx)
	if errors.Is(err, common.ErrNotFound) {
		a.println("The host application has no signed-in identity.")
		return nil
	}
	if err != nil {
		return err
	}

	a.printf("Signed in as %s", status.Email)
	if status.Name != "" {
		a.printf(" (%s)", status.Name)
	}
	a.println()

	if blob, err := st.Get(ctx, statestore.TokenKey); err == nil {
		if info, err := tokenblob.ParseUnifiedToken(blob); err == nil {
			a.printf("Session token present, expires at unix %d\n", info.ExpirySeconds)
		} else {
			a.println("Session token present but unreadable.")
		}
	} else {
		a.println("No session token in the state store.")
	}

	if list, err := a.store.List(ctx); err == nil {
		for _, acc := range list {
			if acc.IsActive {
				a.printf("Manager's active account: %s\n", acc.Email)
				break
			}
		}
	}
	return nil
}
