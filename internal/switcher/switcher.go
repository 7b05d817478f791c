// Package switcher orchestrates an account switch: stop the host
// application, inject the selected account's session into its state
// database, and start it again.
package switcher

import (
	"context"
	"fmt"
	"time"

	"github.com/lalds/AntigravityManager/internal/accounts"
	"github.com/lalds/AntigravityManager/internal/common"
	"github.com/lalds/AntigravityManager/internal/filex"
	"github.com/lalds/AntigravityManager/internal/hostproc"
	"github.com/lalds/AntigravityManager/internal/logging"
	"github.com/lalds/AntigravityManager/internal/statestore"
	"github.com/lalds/AntigravityManager/internal/tokenblob"
)

// State is a phase of the switch sequence. The sequence is strictly
// Idle -> Terminating -> Injecting -> Starting -> Done; any failure before
// Starting ends in Aborted, a launch failure after a committed injection
// ends in LaunchFailed.
type State string

const (
	StateIdle         State = "idle"
	StateTerminating  State = "terminating"
	StateInjecting    State = "injecting"
	StateStarting     State = "starting"
	StateDone         State = "done"
	StateAborted      State = "aborted"
	StateLaunchFailed State = "launch_failed"
)

// Result describes a finished switch attempt.
type Result struct {
	State State

	// Email of the account that was (or would have been) injected.
	Email string

	// Killed is how many host processes were terminated.
	Killed int

	// BackupPath is the state database backup, empty if the copy failed.
	BackupPath string

	// LaunchErr is set only in the LaunchFailed state. The injection has
	// already been committed when it is.
	LaunchErr error
}

// processController is the slice of hostproc.Controller the switch needs.
type processController interface {
	TerminateAll(ctx context.Context) int
	FindExecutable(ctx context.Context) (string, error)
	StartDetached(ctx context.Context, path string) error
}

// Orchestrator runs switch sequences against one host installation.
type Orchestrator struct {
	store     *accounts.Store
	proc      processController
	stateDBs  []string
	pause     time.Duration
	openState func(path string) (*statestore.Store, error)
	sleep     func(d time.Duration)
	now       func() time.Time
	log       logging.Logger
}

// New returns an Orchestrator. stateDBs are candidate paths of the host's
// state database, probed in order. pause is the settle delay between
// terminating the host and touching its database.
func New(store *accounts.Store, proc *hostproc.Controller, stateDBs []string, pause time.Duration, log logging.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		proc:      proc,
		stateDBs:  stateDBs,
		pause:     pause,
		openState: statestore.Open,
		sleep:     time.Sleep,
		now:       time.Now,
		log:       log,
	}
}

// Switch activates the account matching pattern. Everything that can be
// validated up front (account, credentials, blob construction, database
// location) is checked before any process is killed, so a doomed switch
// never leaves the host stopped.
func (o *Orchestrator) Switch(ctx context.Context, pattern string) (*Result, error) {
	res := &Result{State: StateIdle}

	acc, err := o.store.Match(ctx, pattern)
	if err != nil {
		res.State = StateAborted
		return res, fmt.Errorf("select account: %w", err)
	}
	res.Email = acc.Email

	if acc.Token == nil || acc.Token.AccessToken == "" || acc.Token.RefreshToken == "" {
		res.State = StateAborted
		return res, fmt.Errorf("account %s has no usable token: %w", acc.Email, common.ErrMissingCredential)
	}

	blob, err := tokenblob.BuildUnifiedToken(acc.Token.AccessToken, acc.Token.RefreshToken, acc.Token.ExpiryTimestampMS)
	if err != nil {
		res.State = StateAborted
		return res, fmt.Errorf("build session token: %w", err)
	}

	statePath := filex.FirstExisting(o.stateDBs)
	if statePath == "" {
		res.State = StateAborted
		return res, fmt.Errorf("host state database: %w", common.ErrNotFound)
	}

	res.State = StateTerminating
	res.Killed = o.proc.TerminateAll(ctx)
	o.log.Info(ctx, "host processes terminated", "count", res.Killed)
	o.sleep(o.pause)

	res.State = StateInjecting
	backup := statePath + ".backup"
	if err := filex.CopyFile(statePath, backup); err != nil {
		o.log.Warn(ctx, "state database backup failed", "error", err)
	} else {
		res.BackupPath = backup
	}

	if err := o.inject(ctx, statePath, blob, acc); err != nil {
		res.State = StateAborted
		return res, err
	}

	if err := o.store.MarkActive(ctx, acc.Email, o.now()); err != nil {
		o.log.Warn(ctx, "recording active account failed", "email", acc.Email, "error", err)
	}

	res.State = StateStarting
	exe, err := o.proc.FindExecutable(ctx)
	if err != nil {
		res.State = StateLaunchFailed
		res.LaunchErr = err
		o.log.Warn(ctx, "session injected but host executable not found", "error", err)
		return res, nil
	}
	if err := o.proc.StartDetached(ctx, exe); err != nil {
		res.State = StateLaunchFailed
		res.LaunchErr = err
		o.log.Warn(ctx, "session injected but host launch failed", "exe", exe, "error", err)
		return res, nil
	}

	res.State = StateDone
	o.log.Info(ctx, "account switch complete", "email", acc.Email)
	return res, nil
}

func (o *Orchestrator) inject(ctx context.Context, statePath, blob string, acc *accounts.Account) error {
	st, err := o.openState(statePath)
	if err != nil {
		return fmt.Errorf("open host state database: %w", err)
	}
	defer st.Close()

	status := statestore.AuthStatus{
		Name:   acc.Name,
		Email:  acc.Email,
		APIKey: acc.Token.AccessToken,
	}
	if err := st.InjectSession(ctx, blob, status); err != nil {
		return fmt.Errorf("inject session: %w", err)
	}
	return nil
}
