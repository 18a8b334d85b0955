// pkg/brew/parser.go
package brew

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/omni-pm/omni/pkg/backend"
	"github.com/omni-pm/omni/pkg/core"
)

// infoPayload mirrors the parts of `brew info --json=v2` we consume.
type infoPayload struct {
	Formulae []struct {
		Name     string `json:"name"`
		Desc     string `json:"desc"`
		Versions struct {
			Stable string `json:"stable"`
		} `json:"versions"`
		Dependencies []string `json:"dependencies"`
		Installed    []struct {
			Version string `json:"version"`
		} `json:"installed"`
	} `json:"formulae"`
}

// parseInfo parses brew's JSON info output into a record.
func parseInfo(output string) (*core.PackageRecord, error) {
	var payload infoPayload
	if err := json.Unmarshal([]byte(output), &payload); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", BackendName, backend.ErrParse, err)
	}
	if len(payload.Formulae) == 0 {
		return nil, backend.ParseError(BackendName, "empty formulae list")
	}

	f := payload.Formulae[0]
	record := &core.PackageRecord{
		Ref:         core.PackageRef{Name: f.Name, Backend: BackendName},
		Version:     f.Versions.Stable,
		Description: f.Desc,
		FetchedAt:   time.Now(),
	}
	for _, dep := range f.Dependencies {
		record.Dependencies = append(record.Dependencies, core.PackageRef{
			Name:    dep,
			Backend: BackendName,
		})
	}
	if len(f.Installed) > 0 {
		record.Installed = true
		record.Version = f.Installed[len(f.Installed)-1].Version
	}
	return record, nil
}

// parseSearch parses `brew search --desc` output: "name: description"
// lines, with section headers like "==> Formulae" in between.
func parseSearch(output string) ([]core.PackageRecord, error) {
	var records []core.PackageRecord
	now := time.Now()

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "==>") {
			continue
		}

		name, description, found := strings.Cut(line, ":")
		if !found {
			return nil, backend.ParseError(BackendName, line)
		}

		records = append(records, core.PackageRecord{
			Ref:         core.PackageRef{Name: strings.TrimSpace(name), Backend: BackendName},
			Description: strings.TrimSpace(description),
			FetchedAt:   now,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning search output: %w", err)
	}

	return records, nil
}

// parseList parses `brew list --versions`: "name version [version...]".
// The last version listed is the active one.
func parseList(output string) ([]core.PackageRecord, error) {
	var records []core.PackageRecord
	now := time.Now()

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return nil, backend.ParseError(BackendName, scanner.Text())
		}

		records = append(records, core.PackageRecord{
			Ref:       core.PackageRef{Name: fields[0], Backend: BackendName},
			Version:   fields[len(fields)-1],
			Installed: true,
			FetchedAt: now,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning list output: %w", err)
	}

	return records, nil
}
