// Package aliases maps short user-chosen names to account emails. The
// mapping lives in one small JSON file next to the accounts database.
package aliases

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lalds/AntigravityManager/internal/common"
)

// Store is a file-backed alias map. Reads and writes go straight to disk;
// the file is small enough that caching buys nothing.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// All returns the alias map. A missing file is an empty map, not an error.
func (s *Store) All() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read aliases: %w", err)
	}

	out := map[string]string{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse aliases: %w", err)
	}
	return out, nil
}

// Set binds alias to email, replacing any previous binding.
func (s *Store) Set(alias, email string) error {
	if alias == "" || email == "" {
		return errors.New("alias and email must be non-empty")
	}
	m, err := s.All()
	if err != nil {
		return err
	}
	m[alias] = email
	return s.write(m)
}

// Remove deletes an alias. Removing an unknown alias is common.ErrNotFound.
func (s *Store) Remove(alias string) error {
	m, err := s.All()
	if err != nil {
		return err
	}
	if _, ok := m[alias]; !ok {
		return fmt.Errorf("alias %q: %w", alias, common.ErrNotFound)
	}
	delete(m, alias)
	return s.write(m)
}

// Resolve maps pattern through the alias table. Unknown patterns pass
// through unchanged so callers can feed the result to substring matching.
func (s *Store) Resolve(pattern string) string {
	m, err := s.All()
	if err != nil {
		return pattern
	}
	if email, ok := m[pattern]; ok {
		return email
	}
	return pattern
}

// Names returns the aliases in sorted order, for display.
func (s *Store) Names() ([]string, error) {
	m, err := s.All()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) write(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create alias directory: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode aliases: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write aliases: %w", err)
	}
	return nil
}
