// pkg/pacman/parser.go
package pacman

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/omni-pm/omni/pkg/backend"
	"github.com/omni-pm/omni/pkg/core"
)

// parseSearch parses `pacman -Ss` output: alternating "repo/name version"
// header lines and indented description lines.
func parseSearch(output string) ([]core.PackageRecord, error) {
	var records []core.PackageRecord
	now := time.Now()

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		// Indented lines describe the preceding package.
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if len(records) > 0 && records[len(records)-1].Description == "" {
				records[len(records)-1].Description = strings.TrimSpace(line)
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, backend.ParseError(BackendName, line)
		}

		name := fields[0]
		if idx := strings.Index(name, "/"); idx != -1 {
			name = name[idx+1:]
		}

		records = append(records, core.PackageRecord{
			Ref:       core.PackageRef{Name: name, Backend: BackendName},
			Version:   fields[1],
			Installed: strings.Contains(line, "[installed"),
			FetchedAt: now,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning search output: %w", err)
	}

	return records, nil
}

// parseInfo parses `pacman -Si` output: "Field : Value" lines.
func parseInfo(output string) (*core.PackageRecord, error) {
	record := &core.PackageRecord{FetchedAt: time.Now()}

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		field, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		field = strings.TrimSpace(field)
		value = strings.TrimSpace(value)

		switch field {
		case "Name":
			record.Ref = core.PackageRef{Name: value, Backend: BackendName}
		case "Version":
			record.Version = value
		case "Description":
			record.Description = value
		case "Depends On":
			if value == "None" {
				continue
			}
			for _, dep := range strings.Fields(value) {
				// Strip version constraints like >=1.2
				if idx := strings.IndexAny(dep, "<>="); idx != -1 {
					dep = dep[:idx]
				}
				if dep != "" {
					record.Dependencies = append(record.Dependencies, core.PackageRef{
						Name:    dep,
						Backend: BackendName,
					})
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning info output: %w", err)
	}

	if record.Ref.IsZero() {
		return nil, backend.ParseError(BackendName, output)
	}
	return record, nil
}

// parseQuery parses `pacman -Q` output: "name version" per line.
func parseQuery(output string) ([]core.PackageRecord, error) {
	var records []core.PackageRecord
	now := time.Now()

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, backend.ParseError(BackendName, line)
		}
		records = append(records, core.PackageRecord{
			Ref:       core.PackageRef{Name: fields[0], Backend: BackendName},
			Version:   fields[1],
			Installed: true,
			FetchedAt: now,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning query output: %w", err)
	}

	return records, nil
}
