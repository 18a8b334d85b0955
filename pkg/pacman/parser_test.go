package pacman

import (
	"errors"
	"testing"

	"github.com/omni-pm/omni/pkg/backend"
)

func TestParseSearch(t *testing.T) {
	output := `extra/ripgrep 14.1.0-1 [installed]
    A search tool that combines the usability of ag with the raw speed of grep
extra/fd 9.0.0-1
    Simple, fast and user-friendly alternative to find
`
	records, err := parseSearch(output)
	if err != nil {
		t.Fatalf("parseSearch: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Ref.Name != "ripgrep" {
		t.Errorf("repo prefix not stripped: %q", records[0].Ref.Name)
	}
	if records[0].Version != "14.1.0-1" {
		t.Errorf("Version = %q", records[0].Version)
	}
	if !records[0].Installed {
		t.Error("[installed] marker should set Installed")
	}
	if records[1].Installed {
		t.Error("fd should not be marked installed")
	}
	if records[1].Description == "" {
		t.Error("indented description line lost")
	}
}

func TestParseInfo(t *testing.T) {
	output := `Name            : ripgrep
Version         : 14.1.0-1
Description     : A search tool that combines the usability of ag with the raw speed of grep
Depends On      : gcc-libs  pcre2>=10.42  zlib
Optional Deps   : None
`
	record, err := parseInfo(output)
	if err != nil {
		t.Fatalf("parseInfo: %v", err)
	}
	if record.Ref.Name != "ripgrep" || record.Version != "14.1.0-1" {
		t.Errorf("record = %+v", record)
	}

	var deps []string
	for _, d := range record.Dependencies {
		deps = append(deps, d.Name)
	}
	if len(deps) != 3 || deps[1] != "pcre2" {
		t.Errorf("Dependencies = %v, want constraint stripped from pcre2", deps)
	}
}

func TestParseInfoNoDepends(t *testing.T) {
	output := `Name            : tzdata
Version         : 2024a-1
Depends On      : None
`
	record, err := parseInfo(output)
	if err != nil {
		t.Fatalf("parseInfo: %v", err)
	}
	if len(record.Dependencies) != 0 {
		t.Errorf("Dependencies = %v, want none", record.Dependencies)
	}
}

func TestParseInfoRejectsNameless(t *testing.T) {
	if _, err := parseInfo("error: package 'nope' was not found\n"); !errors.Is(err, backend.ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestParseQuery(t *testing.T) {
	output := "bash 5.2.026-2\ncoreutils 9.5-1\n"
	records, err := parseQuery(output)
	if err != nil {
		t.Fatalf("parseQuery: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].Ref.Name != "bash" || records[0].Version != "5.2.026-2" {
		t.Errorf("records[0] = %+v", records[0])
	}
}

func TestParseQueryRejectsMalformedLine(t *testing.T) {
	if _, err := parseQuery("too many fields here\n"); !errors.Is(err, backend.ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}
