// pkg/winget/parser.go
package winget

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/omni-pm/omni/pkg/backend"
	"github.com/omni-pm/omni/pkg/core"
)

// column is one fixed-width table column located from the header line.
type column struct {
	title string
	start int
	end   int // -1 means to end of line
}

// parseTable parses a winget fixed-width table. The header line names the
// columns ("Name", "Id", "Version", ...) and the following dashed line
// separates it from the rows. Column boundaries come from the header
// titles' byte offsets.
func parseTable(output string) ([]core.PackageRecord, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))

	var columns []column
	var records []core.PackageRecord
	now := time.Now()

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// Progress spinners and agreement prompts precede the table.
		if columns == nil {
			if strings.HasPrefix(trimmed, "Name") && strings.Contains(line, "Id") {
				columns = locateColumns(line)
			}
			continue
		}

		if strings.HasPrefix(trimmed, "---") {
			continue
		}

		record, err := rowToRecord(line, columns, now)
		if err != nil {
			return nil, err
		}
		if record != nil {
			records = append(records, *record)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning table output: %w", err)
	}

	if columns == nil && len(strings.TrimSpace(output)) > 0 {
		return nil, backend.ParseError(BackendName, firstLine(output))
	}
	return records, nil
}

// locateColumns finds each header title's start offset.
func locateColumns(header string) []column {
	var columns []column
	inTitle := false
	start := 0

	for i, r := range header {
		if r != ' ' && !inTitle {
			inTitle = true
			start = i
		}
		if r == ' ' && inTitle {
			inTitle = false
			columns = append(columns, column{
				title: header[start:i],
				start: start,
			})
		}
	}
	if inTitle {
		columns = append(columns, column{title: header[start:], start: start})
	}

	for i := range columns {
		if i+1 < len(columns) {
			columns[i].end = columns[i+1].start
		} else {
			columns[i].end = -1
		}
	}
	return columns
}

// cell extracts one column's value from a row.
func cell(row string, c column) string {
	if c.start >= len(row) {
		return ""
	}
	end := c.end
	if end == -1 || end > len(row) {
		end = len(row)
	}
	return strings.TrimSpace(row[c.start:end])
}

// rowToRecord converts one table row into a record. Rows without an Id
// (truncation markers, trailing notes) are skipped.
func rowToRecord(row string, columns []column, now time.Time) (*core.PackageRecord, error) {
	var name, id, version string
	for _, c := range columns {
		switch c.title {
		case "Name":
			name = cell(row, c)
		case "Id":
			id = cell(row, c)
		case "Version":
			version = cell(row, c)
		}
	}

	if id == "" {
		return nil, nil
	}
	if name == "" {
		return nil, backend.ParseError(BackendName, row)
	}

	// The Id is the stable identity; the display name goes in the
	// description.
	return &core.PackageRecord{
		Ref:         core.PackageRef{Name: id, Backend: BackendName},
		Version:     version,
		Description: name,
		FetchedAt:   now,
	}, nil
}

// parseShow parses `winget show` output: "Field: value" lines after a
// "Found name [id]" banner.
func parseShow(id, output string) (*core.PackageRecord, error) {
	record := &core.PackageRecord{
		Ref:       core.PackageRef{Name: id, Backend: BackendName},
		FetchedAt: time.Now(),
	}

	found := false
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "Found ") {
			found = true
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(field) {
		case "Version":
			record.Version = strings.TrimSpace(value)
		case "Description":
			record.Description = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning show output: %w", err)
	}

	if !found {
		return nil, backend.ParseError(BackendName, firstLine(output))
	}
	return record, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
