package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/lalds/AntigravityManager/internal/accounts"
)

// List prints all stored accounts with token and quota summaries.
func (a *App) List(ctx context.Context) error {
	list, err := a.store.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		a.println("No accounts stored yet. Sign in through the host application, then import its session.")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tNAME\tACTIVE\tTOKEN\tQUOTA\tLAST USED")
	for _, acc := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			acc.Email, acc.Name, activeMark(acc), tokenStatus(acc.Token), quotaSummary(acc.Quota), lastUsed(acc.LastUsed))
	}
	return w.Flush()
}

func activeMark(acc accounts.Account) string {
	if acc.IsActive {
		return "*"
	}
	return ""
}

func tokenStatus(tok *accounts.Token) string {
	switch {
	case tok == nil:
		return "missing"
	case tok.Expired(time.Now()):
		return "expired"
	default:
		return "valid"
	}
}

func quotaSummary(q *accounts.Quota) string {
	if q == nil || len(q.Models) == 0 {
		return "-"
	}
	min := -1
	for _, mq := range q.Models {
		if min == -1 || mq.Percentage < min {
			min = mq.Percentage
		}
	}
	return fmt.Sprintf("%d%%", min)
}

func lastUsed(ms int64) string {
	if ms == 0 {
		return "never"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}
