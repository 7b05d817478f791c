package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lalds/AntigravityManager/internal/accounts"
	"github.com/lalds/AntigravityManager/internal/aliases"
	"github.com/lalds/AntigravityManager/internal/config"
	"github.com/lalds/AntigravityManager/internal/diag"
	"github.com/lalds/AntigravityManager/internal/filex"
	"github.com/lalds/AntigravityManager/internal/googleapi"
	"github.com/lalds/AntigravityManager/internal/hostproc"
	"github.com/lalds/AntigravityManager/internal/logging"
	"github.com/lalds/AntigravityManager/internal/masterkey"
	"github.com/lalds/AntigravityManager/internal/statestore"
	"github.com/lalds/AntigravityManager/internal/switcher"
	"github.com/lalds/AntigravityManager/internal/tokens"
)

// switchRunner runs the stop-inject-restart sequence. Satisfied by
// switcher.Orchestrator; tests substitute a fake.
type switchRunner interface {
	Switch(ctx context.Context, pattern string) (*switcher.Result, error)
}

// App ties the stores, the API client and the switch orchestrator to the
// command surface. All user-facing output goes through a.out so tests can
// capture it.
type App struct {
	config    *config.Config
	db        *sql.DB
	store     *accounts.Store
	aliases   *aliases.Store
	api       *googleapi.Client
	lifecycle *tokens.Lifecycle
	proc      *hostproc.Controller
	orch      switchRunner
	doctor    *diag.Runner
	openState func(path string) (*statestore.Store, error)
	reader    *bufio.Reader
	out       io.Writer
	log       logging.Logger
}

// NewApp wires an App from configuration. The accounts database is created
// on first use; everything else is probed lazily by the commands.
func NewApp(cfg *config.Config, log logging.Logger) (*App, error) {
	ctx := context.Background()

	if _, err := filex.EnsureDir(filepath.Dir(cfg.AccountsDBPath)); err != nil {
		return nil, fmt.Errorf("prepare data directory: %w", err)
	}

	db, err := accounts.OpenDatabase(ctx, cfg.AccountsDBPath)
	if err != nil {
		return nil, fmt.Errorf("open accounts database: %w", err)
	}

	keys := masterkey.NewResolver(cfg.DataDirs, masterkey.NewOSUnwrapper(), log)
	store := accounts.NewStore(db, keys, log)
	api := googleapi.NewClient(cfg.HTTPTimeout, log)
	proc := hostproc.New(cfg.ProcessNames, cfg.ProcessExcludes, cfg.InstallCandidates, log)

	return &App{
		config:    cfg,
		db:        db,
		store:     store,
		aliases:   aliases.NewStore(cfg.AliasPath),
		api:       api,
		lifecycle: tokens.NewLifecycle(store, api, log),
		proc:      proc,
		orch:      switcher.New(store, proc, cfg.StateDBCandidates, cfg.KillPause, log),
		doctor: &diag.Runner{
			AccountsDBPath:    cfg.AccountsDBPath,
			StateDBCandidates: cfg.StateDBCandidates,
			Keys:              keys,
			Proc:              proc,
			Store:             store,
		},
		openState: statestore.Open,
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
		log:       log,
	}, nil
}

// Close releases the accounts database.
func (a *App) Close() error {
	return a.db.Close()
}

// Run dispatches a single command when args carries one, otherwise it
// starts the interactive loop.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return a.dispatch(ctx, args[0], args[1:])
	}
	a.Root(ctx)
	return nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}
