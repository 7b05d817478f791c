package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"text/tabwriter"
)

// Quota fetches live model quotas for the account matching pattern and
// persists them for later "best" queries.
func (a *App) Quota(ctx context.Context, pattern string) error {
	acc, err := a.store.Match(ctx, a.aliases.Resolve(pattern))
	if err != nil {
		return err
	}

	tok, _, err := a.lifecycle.EnsureFresh(ctx, acc)
	if err != nil {
		return err
	}

	quota, err := a.api.FetchLiveQuota(ctx, tok.AccessToken)
	if err != nil {
		return err
	}
	if err := a.store.UpdateQuota(ctx, acc.Email, quota); err != nil {
		return err
	}

	a.printf("Quota for %s:\n", acc.Email)
	if len(quota.Models) == 0 {
		a.println("  no models reported")
		return nil
	}

	names := make([]string, 0, len(quota.Models))
	for name := range quota.Models {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, name := range names {
		mq := quota.Models[name]
		fmt.Fprintf(w, "  %s\t%d%%\tresets %s\n", name, mq.Percentage, mq.ResetTime)
	}
	return w.Flush()
}

// Best prints the account with the most remaining quota. Optional args:
// a minimum percentage (default 50) and a model-name filter, in either order.
func (a *App) Best(ctx context.Context, args []string) error {
	minQuota := 50
	model := ""
	for _, arg := range args {
		if n, err := strconv.Atoi(arg); err == nil {
			minQuota = n
		} else {
			model = arg
		}
	}

	acc, err := a.store.BestAccount(ctx, minQuota, model)
	if err != nil {
		return err
	}
	a.printf("Best account: %s (%s quota floor)\n", acc.Email, quotaSummary(acc.Quota))
	return nil
}
