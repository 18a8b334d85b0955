package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	r := New(t.TempDir())

	entry := &Entry{
		Name: "sqlite3",
		Backends: map[string]string{
			"apt":  "libsqlite3-dev",
			"brew": "sqlite",
		},
	}
	if err := r.Save(entry); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := r.Load("sqlite3")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != "sqlite3" {
		t.Errorf("Name = %q", loaded.Name)
	}
	if loaded.Backends["apt"] != "libsqlite3-dev" {
		t.Errorf("Backends = %v", loaded.Backends)
	}
}

func TestSaveRejectsNameless(t *testing.T) {
	r := New(t.TempDir())
	if err := r.Save(&Entry{}); err == nil {
		t.Error("nameless entry should be rejected")
	}
}

func TestLoadMissing(t *testing.T) {
	r := New(t.TempDir())
	if _, err := r.Load("nope"); err == nil {
		t.Error("missing entry should error")
	}
}

func TestResolve(t *testing.T) {
	r := New(t.TempDir())
	_ = r.Save(&Entry{
		Name:     "sqlite3",
		Backends: map[string]string{"apt": "libsqlite3-dev"},
	})

	tests := []struct {
		name    string
		backend string
		want    string
	}{
		{"sqlite3", "apt", "libsqlite3-dev"},
		{"sqlite3", "brew", "sqlite3"}, // no mapping for brew
		{"unmapped", "apt", "unmapped"},
	}
	for _, tt := range tests {
		if got := r.Resolve(tt.name, tt.backend); got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.name, tt.backend, got, tt.want)
		}
	}
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	r := New(dir)

	if err := os.MkdirAll(filepath.Join(dir, "bad"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad", "index.toml"), []byte("=broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Load("bad"); err == nil {
		t.Error("malformed TOML should error")
	}
}
