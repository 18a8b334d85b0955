// pkg/platform/detect.go

// Package platform detects which package manager backends are usable on
// the current system.
package platform

import (
	"context"
	"fmt"
	"runtime"

	"github.com/omni-pm/omni/pkg/backend"
)

// Platform represents the detected system platform.
type Platform struct {
	OS        string   // linux, darwin, windows
	Arch      string   // amd64, arm64
	Available []string // Available backends, in probe order
	Preferred string   // Preferred backend
}

// Detect probes each registered adapter for availability and picks a
// preferred backend for the OS.
func Detect(ctx context.Context, set *backend.Set) (*Platform, error) {
	p := &Platform{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	for _, b := range set.All() {
		if b.Available(ctx) {
			p.Available = append(p.Available, b.Name())
		}
	}

	preference := map[string][]string{
		"linux":   {"apt", "pacman", "nix", "brew"},
		"darwin":  {"brew", "nix"},
		"windows": {"winget"},
	}
	for _, name := range preference[p.OS] {
		if contains(p.Available, name) {
			p.Preferred = name
			break
		}
	}
	if p.Preferred == "" && len(p.Available) > 0 {
		p.Preferred = p.Available[0]
	}

	return p, nil
}

// String returns a string representation of the platform.
func (p *Platform) String() string {
	return fmt.Sprintf("%s/%s (available: %v, preferred: %s)",
		p.OS, p.Arch, p.Available, p.Preferred)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
