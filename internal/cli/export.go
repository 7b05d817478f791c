package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/lalds/AntigravityManager/internal/exportx"
)

// Export writes all accounts to path. With "seal" as a second argument the
// manifest is encrypted under a prompted passphrase.
func (a *App) Export(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: export PATH [seal]")
	}
	path := args[0]

	var passphrase []byte
	if len(args) > 1 && args[1] == "seal" {
		pw, err := GetPassphrase(a.out, "Passphrase for the export")
		if err != nil {
			return err
		}
		if len(pw) == 0 {
			return errors.New("empty passphrase")
		}
		passphrase = pw
	}

	n, err := exportx.Export(ctx, a.store, path, passphrase)
	if err != nil {
		return err
	}
	a.printf("Exported %d account(s) to %s\n", n, path)
	if passphrase == nil {
		a.println("Warning: the export contains decrypted credentials. Handle it like a password file.")
	}
	return nil
}

// Import merges accounts from an export file. Existing accounts are kept.
func (a *App) Import(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: import PATH")
	}
	path := args[0]

	n, err := exportx.Import(ctx, a.store, path, nil)
	if errors.Is(err, exportx.ErrPassphraseRequired) {
		pw, perr := GetPassphrase(a.out, "Passphrase for the export")
		if perr != nil {
			return perr
		}
		n, err = exportx.Import(ctx, a.store, path, pw)
	}
	if err != nil {
		return err
	}
	a.printf("Imported %d new account(s) from %s\n", n, path)
	return nil
}
