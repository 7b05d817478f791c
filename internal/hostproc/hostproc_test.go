package hostproc

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lalds/AntigravityManager/internal/common"
	"github.com/lalds/AntigravityManager/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.DiscardHandler))
}

func stubProcesses(t *testing.T, procs []Info, err error) {
	t.Helper()
	orig := listProcessesFn
	listProcessesFn = func() ([]Info, error) { return procs, err }
	t.Cleanup(func() { listProcessesFn = orig })
}

func stubKill(t *testing.T, fn func(pid int) error) {
	t.Helper()
	orig := killProcessFn
	killProcessFn = fn
	t.Cleanup(func() { killProcessFn = orig })
}

func newTestController(installCandidates []string) *Controller {
	return New([]string{"antigravity"}, []string{"manager"}, installCandidates, testLogger())
}

func TestMatches(t *testing.T) {
	c := newTestController(nil)

	assert.True(t, c.matches("Antigravity.exe"))
	assert.True(t, c.matches("antigravity"))
	assert.False(t, c.matches("Antigravity Manager.exe"), "excluded hint wins")
	assert.False(t, c.matches("chrome"))
}

func TestFindExecutable_PrefersRunningProcess(t *testing.T) {
	dir := t.TempDir()
	running := filepath.Join(dir, "running-exe")
	installed := filepath.Join(dir, "installed-exe")
	require.NoError(t, os.WriteFile(running, []byte("x"), 0o700))
	require.NoError(t, os.WriteFile(installed, []byte("x"), 0o700))

	stubProcesses(t, []Info{
		{PID: 10, Name: "chrome", Exe: "/usr/bin/chrome"},
		{PID: 11, Name: "Antigravity", Exe: running},
	}, nil)

	c := newTestController([]string{installed})
	got, err := c.FindExecutable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, running, got)
}

func TestFindExecutable_FallsBackToInstallCandidates(t *testing.T) {
	dir := t.TempDir()
	installed := filepath.Join(dir, "installed-exe")
	require.NoError(t, os.WriteFile(installed, []byte("x"), 0o700))

	stubProcesses(t, nil, errors.New("denied"))

	c := newTestController([]string{filepath.Join(dir, "missing"), installed})
	got, err := c.FindExecutable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, installed, got)
}

func TestFindExecutable_NotFound(t *testing.T) {
	stubProcesses(t, nil, nil)

	c := newTestController([]string{filepath.Join(t.TempDir(), "missing")})
	_, err := c.FindExecutable(context.Background())
	require.ErrorIs(t, err, common.ErrHostProcessNotFound)
}

func TestTerminateAll_BestEffort(t *testing.T) {
	stubProcesses(t, []Info{
		{PID: 1, Name: "Antigravity"},
		{PID: 2, Name: "Antigravity Helper"},
		{PID: 3, Name: "Antigravity Manager"},
		{PID: 4, Name: "bash"},
	}, nil)

	var killed []int
	stubKill(t, func(pid int) error {
		if pid == 2 {
			return errors.New("operation not permitted")
		}
		killed = append(killed, pid)
		return nil
	})

	c := newTestController(nil)
	n := c.TerminateAll(context.Background())

	assert.Equal(t, 1, n, "permission failure skipped, manager and bash untouched")
	assert.Equal(t, []int{1}, killed)
}

func TestTerminateAll_EnumerationFailureIsNotFatal(t *testing.T) {
	stubProcesses(t, nil, errors.New("denied"))

	c := newTestController(nil)
	assert.Equal(t, 0, c.TerminateAll(context.Background()))
}

func TestStartDetached_MissingExecutable(t *testing.T) {
	c := newTestController(nil)
	err := c.StartDetached(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, common.ErrHostProcessNotFound)
}
