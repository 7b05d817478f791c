// Package filex contains small filesystem helpers shared by components that
// locate and mirror the host applications' on-disk state.
package filex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// EnsureDir creates dir (and parents) if missing and returns its path.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// FirstExisting returns the first path in candidates that exists as a regular
// file, or "" if none do.
func FirstExisting(candidates []string) string {
	for _, p := range candidates {
		if p != "" && FileExists(p) {
			return p
		}
	}
	return ""
}

// CopyFile copies src to dst, truncating dst if it exists. File mode is
// preserved from the source.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	return out.Close()
}

// HomeDir returns the current user's home directory, or "" if unknown.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// Join is filepath.Join with empty segments dropped, so callers can pass
// possibly-unset environment roots without producing relative paths.
func Join(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			return ""
		}
		clean = append(clean, p)
	}
	return filepath.Join(clean...)
}
