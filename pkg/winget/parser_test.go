package winget

import (
	"errors"
	"fmt"
	"testing"

	"github.com/omni-pm/omni/pkg/backend"
)

func table(rows ...[3]string) string {
	out := fmt.Sprintf("%-20s%-25s%s\n", "Name", "Id", "Version")
	out += "-----------------------------------------------------\n"
	for _, row := range rows {
		out += fmt.Sprintf("%-20s%-25s%s\n", row[0], row[1], row[2])
	}
	return out
}

func TestParseTable(t *testing.T) {
	output := table(
		[3]string{"Microsoft Edge", "Microsoft.Edge", "124.0.2478.80"},
		[3]string{"7-Zip", "7zip.7zip", "24.05"},
	)
	records, err := parseTable(output)
	if err != nil {
		t.Fatalf("parseTable: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	// The Id is the stable ref; the display name is descriptive only.
	if records[0].Ref.Name != "Microsoft.Edge" {
		t.Errorf("Ref.Name = %q, want the Id", records[0].Ref.Name)
	}
	if records[0].Description != "Microsoft Edge" {
		t.Errorf("Description = %q", records[0].Description)
	}
	if records[1].Version != "24.05" {
		t.Errorf("Version = %q", records[1].Version)
	}
}

func TestParseTableSkipsPreambleAndTruncation(t *testing.T) {
	output := "   - \r\n   \\ \r\n" + table(
		[3]string{"7-Zip", "7zip.7zip", "24.05"},
		[3]string{"27 more entries", "", ""},
	)
	records, err := parseTable(output)
	if err != nil {
		t.Fatalf("parseTable: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
}

func TestParseTableNoHeader(t *testing.T) {
	_, err := parseTable("No package found matching input criteria.\n")
	if !errors.Is(err, backend.ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestParseTableEmptyOutput(t *testing.T) {
	records, err := parseTable("")
	if err != nil {
		t.Fatalf("parseTable: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records from empty output", len(records))
	}
}

func TestLocateColumns(t *testing.T) {
	header := fmt.Sprintf("%-20s%-25s%s", "Name", "Id", "Version")
	columns := locateColumns(header)
	if len(columns) != 3 {
		t.Fatalf("got %d columns, want 3", len(columns))
	}
	if columns[0].title != "Name" || columns[1].title != "Id" || columns[2].title != "Version" {
		t.Errorf("titles = %v", columns)
	}
	if columns[1].start != 20 || columns[2].start != 45 {
		t.Errorf("starts = %d, %d, want 20, 45", columns[1].start, columns[2].start)
	}
	if columns[2].end != -1 {
		t.Errorf("last column end = %d, want open-ended", columns[2].end)
	}
}

func TestParseShow(t *testing.T) {
	output := `Found 7-Zip [7zip.7zip]
Version: 24.05
Publisher: Igor Pavlov
Description: Free and open source file archiver with a high compression ratio.
`
	record, err := parseShow("7zip.7zip", output)
	if err != nil {
		t.Fatalf("parseShow: %v", err)
	}
	if record.Ref.Name != "7zip.7zip" {
		t.Errorf("Ref.Name = %q", record.Ref.Name)
	}
	if record.Version != "24.05" {
		t.Errorf("Version = %q", record.Version)
	}
	if record.Description == "" {
		t.Error("Description lost")
	}
}

func TestParseShowNotFound(t *testing.T) {
	_, err := parseShow("nope", "No package found matching input criteria.\n")
	if !errors.Is(err, backend.ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}
