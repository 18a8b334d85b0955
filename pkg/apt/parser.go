// pkg/apt/parser.go
package apt

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/omni-pm/omni/pkg/backend"
	"github.com/omni-pm/omni/pkg/core"
)

// parseSearch parses "apt-cache search" output: one "name - description"
// line per package.
func parseSearch(output string) ([]core.PackageRecord, error) {
	var records []core.PackageRecord
	now := time.Now()

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		name, description, found := strings.Cut(line, " - ")
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

// parseShow parses the first stanza of "apt-cache show" output into a
// record. Stanzas use the Debian control format: "Field: value" lines
// with indented continuations.
func parseShow(output string) (*core.PackageRecord, error) {
	stanzas, err := ParseStanzas(strings.NewReader(output))
	if err != nil {
		return nil, err
	}
	if len(stanzas) == 0 {
		return nil, backend.ParseError(BackendName, output)
	}
	return stanzaToRecord(stanzas[0]), nil
}

// stanza is one block of Debian control fields.
type stanza map[string]string

// ParseStanzas parses Debian control format (Packages files, apt-cache
// show output) into field maps, one per blank-line-separated stanza.
func ParseStanzas(r io.Reader) ([]stanza, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // Handle large descriptions

	var stanzas []stanza
	var current stanza
	var lastField string

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line ends the stanza
		if line == "" {
			if current != nil {
				stanzas = append(stanzas, current)
				current = nil
			}
			continue
		}

		// Continuation line (starts with space or tab)
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if current != nil && lastField != "" {
				current[lastField] += "\n" + strings.TrimSpace(line)
			}
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}

		if current == nil {
			current = make(stanza)
		}
		lastField = strings.TrimSpace(field)
		current[lastField] = strings.TrimSpace(value)
	}

	if current != nil {
		stanzas = append(stanzas, current)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning stanzas: %w", err)
	}

	return stanzas, nil
}

// stanzaToRecord converts a control stanza into a package record.
func stanzaToRecord(s stanza) *core.PackageRecord {
	record := &core.PackageRecord{
		Ref:         core.PackageRef{Name: s["Package"], Backend: BackendName},
		Version:     s["Version"],
		Description: firstLine(s["Description"]),
		FetchedAt:   time.Now(),
	}
	for _, dep := range parseDependsList(s["Depends"]) {
		record.Dependencies = append(record.Dependencies, core.PackageRef{
			Name:    dep,
			Backend: BackendName,
		})
	}
	return record
}

// parseDependsList parses a comma-separated Depends field, dropping
// version constraints and alternatives.
func parseDependsList(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		// Remove version constraints like (>= 1.0)
		if idx := strings.Index(part, "("); idx != -1 {
			part = strings.TrimSpace(part[:idx])
		}
		// Keep only the first of alternative dependencies (a | b)
		if idx := strings.Index(part, "|"); idx != -1 {
			part = strings.TrimSpace(part[:idx])
		}
		// Strip architecture qualifiers like :any
		if idx := strings.Index(part, ":"); idx != -1 {
			part = part[:idx]
		}
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}

// parseInstalled parses tab-separated dpkg-query -W output.
func parseInstalled(output string) ([]core.PackageRecord, error) {
	var records []core.PackageRecord
	now := time.Now()

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.SplitN(line, "\t", 3)
		if len(fields) < 2 {
			return nil, backend.ParseError(BackendName, line)
		}

		record := core.PackageRecord{
			Ref:       core.PackageRef{Name: fields[0], Backend: BackendName},
			Version:   fields[1],
			Installed: true,
			FetchedAt: now,
		}
		if len(fields) == 3 {
			record.Description = fields[2]
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning installed output: %w", err)
	}

	return records, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
