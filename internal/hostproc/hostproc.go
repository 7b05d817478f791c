// Package hostproc locates, terminates, and relaunches the host desktop
// application. Termination is best-effort: enumeration or permission
// failures on individual processes are logged and ignored, since some
// processes may legitimately not be owned by the caller. Launching is
// fire-and-forget with no health-check wait.
package hostproc

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/lalds/AntigravityManager/internal/common"
	"github.com/lalds/AntigravityManager/internal/filex"
	"github.com/lalds/AntigravityManager/internal/logging"
)

// Info describes one running process.
type Info struct {
	PID  int
	Name string
	Exe  string
}

// Test seams over the platform-specific primitives.
var (
	listProcessesFn = listProcesses
	killProcessFn   = killProcess
	startDetachedFn = startDetached
)

// Controller finds and controls host application processes.
type Controller struct {
	nameHints         []string
	excludeHints      []string
	installCandidates []string
	log               logging.Logger
}

// New returns a Controller matching processes whose name contains any of
// nameHints (case-insensitive) and none of excludeHints, with
// installCandidates as the fallback executable locations probed in order.
func New(nameHints, excludeHints, installCandidates []string, log logging.Logger) *Controller {
	return &Controller{
		nameHints:         nameHints,
		excludeHints:      excludeHints,
		installCandidates: installCandidates,
		log:               log,
	}
}

func (c *Controller) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, ex := range c.excludeHints {
		if strings.Contains(lower, strings.ToLower(ex)) {
			return false
		}
	}
	for _, hint := range c.nameHints {
		if strings.Contains(lower, strings.ToLower(hint)) {
			return true
		}
	}
	return false
}

// FindExecutable resolves the host executable path: a currently-running
// instance's own executable wins, otherwise the fixed install locations are
// probed in order. Returns common.ErrHostProcessNotFound when neither works.
func (c *Controller) FindExecutable(ctx context.Context) (string, error) {
	procs, err := listProcessesFn()
	if err != nil {
		c.log.Debug(ctx, "process enumeration failed", "error", err)
	}
	for _, p := range procs {
		if c.matches(p.Name) && p.Exe != "" && filex.FileExists(p.Exe) {
			return p.Exe, nil
		}
	}

	if path := filex.FirstExisting(c.installCandidates); path != "" {
		return path, nil
	}
	return "", common.ErrHostProcessNotFound
}

// TerminateAll forcibly terminates every matching process and returns how
// many were killed. Per-process failures are logged and skipped.
func (c *Controller) TerminateAll(ctx context.Context) int {
	procs, err := listProcessesFn()
	if err != nil {
		c.log.Warn(ctx, "process enumeration failed, nothing terminated", "error", err)
		return 0
	}

	killed := 0
	for _, p := range procs {
		if !c.matches(p.Name) {
			continue
		}
		if err := killProcessFn(p.PID); err != nil {
			c.log.Warn(ctx, "failed to terminate process", "pid", p.PID, "name", p.Name, "error", err)
			continue
		}
		c.log.Debug(ctx, "terminated process", "pid", p.PID, "name", p.Name)
		killed++
	}
	return killed
}

// StartDetached launches path detached from the caller's lifetime.
func (c *Controller) StartDetached(ctx context.Context, path string) error {
	if !filex.FileExists(path) {
		return fmt.Errorf("%q: %w", path, common.ErrHostProcessNotFound)
	}
	if err := startDetachedFn(path); err != nil {
		return fmt.Errorf("start %q: %w", path, err)
	}
	c.log.Info(ctx, "started host application", "path", path)
	return nil
}

func killProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}

func startDetached(path string) error {
	cmd := exec.Command(path)
	cmd.SysProcAttr = detachedSysProcAttr()
	if err := cmd.Start(); err != nil {
		return err
	}
	// Detach: the child must outlive this process.
	return cmd.Process.Release()
}
