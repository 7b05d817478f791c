package cli

import (
	"context"
	"fmt"
)

// Alias manages the short-name table:
//
//	alias                 list aliases
//	alias set NAME EMAIL  bind NAME to EMAIL
//	alias rm NAME         remove NAME
func (a *App) Alias(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.listAliases()
	}

	switch args[0] {
	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: alias set NAME EMAIL")
		}
		// bind to a stored account, not a free-form string
		acc, err := a.store.Match(ctx, args[2])
		if err != nil {
			return err
		}
		if err := a.aliases.Set(args[1], acc.Email); err != nil {
			return err
		}
		a.printf("%s -> %s\n", args[1], acc.Email)
		return nil

	case "rm", "remove":
		if len(args) != 2 {
			return fmt.Errorf("usage: alias rm NAME")
		}
		if err := a.aliases.Remove(args[1]); err != nil {
			return err
		}
		a.printf("Removed alias %s\n", args[1])
		return nil

	default:
		return fmt.Errorf("unknown alias subcommand %q", args[0])
	}
}

func (a *App) listAliases() error {
	names, err := a.aliases.Names()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		a.println("No aliases defined.")
		return nil
	}
	m, err := a.aliases.All()
	if err != nil {
		return err
	}
	for _, name := range names {
		a.printf("  %s -> %s\n", name, m[name])
	}
	return nil
}
