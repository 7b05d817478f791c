// Package diag runs environment self-checks: can the master key be
// recovered, where is the host installed, is the accounts database
// readable. Checks never mutate anything.
package diag

import (
	"context"
	"fmt"

	"github.com/lalds/AntigravityManager/internal/accounts"
	"github.com/lalds/AntigravityManager/internal/filex"
	"github.com/lalds/AntigravityManager/internal/masterkey"
)

// Status classifies a check outcome.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warning"
	StatusFail Status = "error"
)

// Check is one diagnostic result.
type Check struct {
	Name   string
	Status Status
	Detail string
}

// executableFinder locates the host binary.
type executableFinder interface {
	FindExecutable(ctx context.Context) (string, error)
}

// Runner holds everything the checks probe.
type Runner struct {
	AccountsDBPath    string
	StateDBCandidates []string
	Keys              accounts.KeyResolver
	Proc              executableFinder
	Store             *accounts.Store
}

// Run executes all checks and returns their results in a fixed order.
func (r *Runner) Run(ctx context.Context) []Check {
	return []Check{
		r.checkAccountsDB(ctx),
		r.checkMasterKey(ctx),
		r.checkStateDB(),
		r.checkExecutable(ctx),
	}
}

func (r *Runner) checkAccountsDB(ctx context.Context) Check {
	c := Check{Name: "accounts database"}
	if !filex.FileExists(r.AccountsDBPath) {
		c.Status = StatusWarn
		c.Detail = fmt.Sprintf("%s does not exist yet, it is created on first use", r.AccountsDBPath)
		return c
	}

	if r.Store != nil {
		list, err := r.Store.List(ctx)
		if err != nil {
			c.Status = StatusFail
			c.Detail = fmt.Sprintf("unreadable: %v", err)
			return c
		}
		withToken := 0
		for _, acc := range list {
			if acc.Token != nil {
				withToken++
			}
		}
		c.Status = StatusOK
		c.Detail = fmt.Sprintf("%d accounts, %d with a readable token", len(list), withToken)
		return c
	}

	c.Status = StatusOK
	c.Detail = r.AccountsDBPath
	return c
}

func (r *Runner) checkMasterKey(ctx context.Context) Check {
	c := Check{Name: "master key"}
	key, err := r.Keys.Resolve(ctx)
	if err != nil {
		c.Status = StatusFail
		c.Detail = err.Error()
		return c
	}
	if len(key) != masterkey.KeySize {
		c.Status = StatusFail
		c.Detail = fmt.Sprintf("recovered key is %d bytes, want %d", len(key), masterkey.KeySize)
		return c
	}
	c.Status = StatusOK
	c.Detail = fmt.Sprintf("%d-byte key recovered", len(key))
	return c
}

func (r *Runner) checkStateDB() Check {
	c := Check{Name: "host state database"}
	if path := filex.FirstExisting(r.StateDBCandidates); path != "" {
		c.Status = StatusOK
		c.Detail = path
		return c
	}
	c.Status = StatusFail
	c.Detail = "no state database found, is the host application installed?"
	return c
}

func (r *Runner) checkExecutable(ctx context.Context) Check {
	c := Check{Name: "host executable"}
	exe, err := r.Proc.FindExecutable(ctx)
	if err != nil {
		c.Status = StatusWarn
		c.Detail = "not found, switches will end without relaunching the host"
		return c
	}
	c.Status = StatusOK
	c.Detail = exe
	return c
}

// Healthy reports whether no check failed. Warnings do not count against it.
func Healthy(checks []Check) bool {
	for _, c := range checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}
