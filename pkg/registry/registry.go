// pkg/registry/registry.go

// Package registry maps canonical package names to their per-backend
// spellings. One TOML file per logical package lives under the registry
// directory; a missing entry simply means the raw name is used as-is.
package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Entry is a single <registry>/<name>/index.toml file.
type Entry struct {
	Name     string            `toml:"name"`
	Backends map[string]string `toml:"backends"`
}

// Registry provides lookup into the registry directory.
type Registry struct {
	dir string
}

// New creates a Registry pointed at the registry directory.
func New(dir string) *Registry {
	return &Registry{dir: dir}
}

// Resolve takes a canonical package name and a backend and returns the
// backend-specific package name, e.g. Resolve("sqlite3", "apt") ->
// "libsqlite3-dev". When no mapping exists the canonical name is
// returned unchanged.
func (r *Registry) Resolve(name string, backend string) string {
	entry, err := r.Load(name)
	if err != nil {
		return name
	}
	if mapped, ok := entry.Backends[backend]; ok {
		return mapped
	}
	return name
}

// Load reads and parses <registry>/<name>/index.toml.
func (r *Registry) Load(name string) (*Entry, error) {
	path := filepath.Join(r.dir, name, "index.toml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("registry: package %q not found", name)
		}
		return nil, fmt.Errorf("registry: reading %q: %w", name, err)
	}

	var entry Entry
	if _, err := toml.Decode(string(data), &entry); err != nil {
		return nil, fmt.Errorf("registry: parsing %q: %w", name, err)
	}

	return &entry, nil
}

// Save writes an entry back to the registry directory.
func (r *Registry) Save(entry *Entry) error {
	if entry.Name == "" {
		return fmt.Errorf("registry: entry has no name")
	}
	dir := filepath.Join(r.dir, entry.Name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("registry: creating %q: %w", dir, err)
	}

	f, err := os.Create(filepath.Join(dir, "index.toml"))
	if err != nil {
		return fmt.Errorf("registry: writing %q: %w", entry.Name, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(entry); err != nil {
		return fmt.Errorf("registry: encoding %q: %w", entry.Name, err)
	}
	return nil
}
