// pkg/nixpkg/parser.go
package nixpkg

import (
	"bufio"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"zombiezen.com/go/nix/nixbase32"

	"github.com/omni-pm/omni/pkg/backend"
	"github.com/omni-pm/omni/pkg/core"
)

// searchHit mirrors one entry of `nix search --json` output.
type searchHit struct {
	Pname       string `json:"pname"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// parseSearch parses `nix search nixpkgs --json` output, a map from
// attribute path (e.g. "legacyPackages.x86_64-linux.ripgrep") to hit.
func parseSearch(output string) ([]core.PackageRecord, error) {
	var hits map[string]searchHit
	if err := json.Unmarshal([]byte(output), &hits); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", BackendName, backend.ErrParse, err)
	}

	now := time.Now()
	records := make([]core.PackageRecord, 0, len(hits))
	for attr, hit := range hits {
		name := hit.Pname
		if name == "" {
			// Fall back to the attribute leaf.
			parts := strings.Split(attr, ".")
			name = parts[len(parts)-1]
		}
		records = append(records, core.PackageRecord{
			Ref:         core.PackageRef{Name: name, Backend: BackendName},
			Version:     hit.Version,
			Description: hit.Description,
			FetchedAt:   now,
		})
	}

	// JSON map order is random; keep results reproducible.
	sort.Slice(records, func(i, j int) bool {
		return records[i].Ref.Name < records[j].Ref.Name
	})
	return records, nil
}

// parseProfileList parses `nix profile list` output. Each entry carries a
// "Store paths:" line; the package name and version come from the store
// path basename, whose digest must be valid nixbase32.
func parseProfileList(output string) ([]core.PackageRecord, error) {
	var records []core.PackageRecord
	now := time.Now()

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		var path string
		switch {
		case strings.HasPrefix(line, "Store paths:"):
			path = strings.TrimSpace(strings.TrimPrefix(line, "Store paths:"))
		case strings.HasPrefix(line, "/nix/store/"):
			path = line
		default:
			continue
		}

		// Multiple outputs may be listed on one line.
		for _, p := range strings.Fields(path) {
			name, version, err := parseStorePath(p)
			if err != nil {
				return nil, err
			}
			records = append(records, core.PackageRecord{
				Ref:       core.PackageRef{Name: name, Backend: BackendName},
				Version:   version,
				Installed: true,
				FetchedAt: now,
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning profile list: %w", err)
	}

	return records, nil
}

// parseStorePath splits "/nix/store/<digest>-<name>-<version>" into name
// and version, validating the digest.
func parseStorePath(path string) (name, version string, err error) {
	base := strings.TrimPrefix(path, "/nix/store/")
	if base == path {
		return "", "", backend.ParseError(BackendName, path)
	}

	digest, rest, found := strings.Cut(base, "-")
	if !found || len(digest) != 32 {
		return "", "", backend.ParseError(BackendName, path)
	}
	if _, err := nixbase32.DecodeString(digest); err != nil {
		return "", "", backend.ParseError(BackendName, path)
	}

	// The version is the suffix after the last dash that starts a
	// digit-led component ("ripgrep-14.1.0", "gcc-wrapper-13.2.0").
	parts := strings.Split(rest, "-")
	split := len(parts)
	for i := len(parts) - 1; i > 0; i-- {
		if len(parts[i]) > 0 && parts[i][0] >= '0' && parts[i][0] <= '9' {
			split = i
		} else {
			break
		}
	}

	name = strings.Join(parts[:split], "-")
	version = strings.Join(parts[split:], "-")
	if name == "" {
		return "", "", backend.ParseError(BackendName, path)
	}
	return name, version, nil
}
