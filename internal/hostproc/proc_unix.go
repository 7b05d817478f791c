//go:build !windows

package hostproc

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// listProcesses scans /proc. Entries whose metadata cannot be read (typically
// other users' processes) still appear with whatever fields were readable.
func listProcesses() ([]Info, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}

	var procs []Info
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}

		name := ""
		if comm, err := os.ReadFile(filepath.Join("/proc", entry.Name(), "comm")); err == nil {
			name = strings.TrimSpace(string(comm))
		}
		exe, _ := os.Readlink(filepath.Join("/proc", entry.Name(), "exe"))

		if name == "" && exe == "" {
			continue
		}
		procs = append(procs, Info{PID: pid, Name: name, Exe: exe})
	}
	return procs, nil
}

// detachedSysProcAttr makes the launched host outlive the CLI.
func detachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
