package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/lalds/AntigravityManager/internal/diag"
)

// Doctor runs the environment self-checks and prints them.
func (a *App) Doctor(ctx context.Context) error {
	checks := a.doctor.Run(ctx)

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, c := range checks {
		fmt.Fprintf(w, "  [%s]\t%s\t%s\n", marker(c.Status), c.Name, c.Detail)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if !diag.Healthy(checks) {
		a.println("\nSome checks failed. Switching will not work until they pass.")
	}
	return nil
}

func marker(s diag.Status) string {
	switch s {
	case diag.StatusOK:
		return "ok"
	case diag.StatusWarn:
		return "warn"
	default:
		return "FAIL"
	}
}
