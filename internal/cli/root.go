package cli

import (
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing REPL output. In tests, replace it
// with a stub.
var printlnFn = fmt.Println

func (a *App) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "l", "list":
		return a.List(ctx)

	case "switch", "use":
		if len(args) != 1 {
			return fmt.Errorf("usage: switch PATTERN")
		}
		return a.Switch(ctx, args[0])

	case "refresh":
		if len(args) != 1 {
			return fmt.Errorf("usage: refresh PATTERN")
		}
		return a.Refresh(ctx, args[0])

	case "validate":
		return a.Validate(ctx)

	case "status":
		return a.Status(ctx)

	case "quota":
		if len(args) != 1 {
			return fmt.Errorf("usage: quota PATTERN")
		}
		return a.Quota(ctx, args[0])

	case "best":
		return a.Best(ctx, args)

	case "alias":
		return a.Alias(ctx, args)

	case "export":
		return a.Export(ctx, args)

	case "import":
		return a.Import(ctx, args)

	case "remove", "rm":
		if len(args) != 1 {
			return fmt.Errorf("usage: remove PATTERN")
		}
		return a.Remove(ctx, args[0])

	case "doctor":
		return a.Doctor(ctx)

	case "help":
		a.printHelp()
		return nil

	default:
		return fmt.Errorf("unknown command %q, try 'help'", cmd)
	}
}

func (a *App) printHelp() {
	a.println(`Commands:
  list (l)           list stored accounts
  switch PATTERN     stop the host, inject the account, restart
  refresh PATTERN    force a token refresh
  validate           check every account's token
  status             show the host's current identity
  quota PATTERN      fetch live model quotas
  best [MIN] [MODEL] pick the account with the most remaining quota
  alias [...]        manage short names (alias set NAME EMAIL, alias rm NAME)
  export PATH [seal] export accounts, optionally passphrase-sealed
  import PATH        merge accounts from an export
  remove PATTERN     delete an account
  doctor             run environment self-checks
  exit | quit        leave`)
}

// Root starts the interactive loop. Command errors are printed, never fatal.
func (a *App) Root(ctx context.Context) {
	printlnFn("Antigravity Manager (type 'help' for commands)")

	for {
		fmt.Fprint(a.out, "agm> ")
		line, readErr := a.reader.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if readErr != nil {
				return
			}
			continue
		}

		cmd := parts[0]
		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}
		if err := a.dispatch(ctx, cmd, parts[1:]); err != nil {
			printlnFn("Error:", err.Error())
		}
		if readErr != nil {
			return
		}
	}
}
