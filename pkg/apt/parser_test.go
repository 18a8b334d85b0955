package apt

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/omni-pm/omni/pkg/backend"
)

func TestParseSearch(t *testing.T) {
	output := `ripgrep - recursively searches directories for a regex pattern
fd-find - Simple, fast and user-friendly alternative to find

silversearcher-ag - very fast grep-like program, alternative to ack-grep
`
	records, err := parseSearch(output)
	if err != nil {
		t.Fatalf("parseSearch: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].Ref.Name != "ripgrep" || records[0].Ref.Backend != "apt" {
		t.Errorf("records[0].Ref = %v", records[0].Ref)
	}
	if records[1].Description != "Simple, fast and user-friendly alternative to find" {
		t.Errorf("records[1].Description = %q", records[1].Description)
	}
}

func TestParseSearchRejectsGarbage(t *testing.T) {
	_, err := parseSearch("E: some apt error without separator")
	if !errors.Is(err, backend.ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}

func TestParseShow(t *testing.T) {
	output := `Package: nginx
Version: 1.24.0-1ubuntu1
Priority: optional
Depends: nginx-core (>= 1.24.0) | nginx-full, libc6 (>= 2.34), adduser
Description: small, powerful, scalable web/proxy server
 Nginx ("engine X") is a high-performance web and reverse proxy server.
 .
 This is a dependency package.
`
	record, err := parseShow(output)
	if err != nil {
		t.Fatalf("parseShow: %v", err)
	}
	if record.Ref.Name != "nginx" {
		t.Errorf("Name = %q", record.Ref.Name)
	}
	if record.Version != "1.24.0-1ubuntu1" {
		t.Errorf("Version = %q", record.Version)
	}
	if record.Description != "small, powerful, scalable web/proxy server" {
		t.Errorf("Description = %q", record.Description)
	}

	var deps []string
	for _, d := range record.Dependencies {
		deps = append(deps, d.Name)
	}
	want := []string{"nginx-core", "libc6", "adduser"}
	if !reflect.DeepEqual(deps, want) {
		t.Errorf("Dependencies = %v, want %v", deps, want)
	}
}

func TestParseStanzas(t *testing.T) {
	input := `Package: a
Version: 1.0

Package: b
Version: 2.0
Description: first line
 continuation one
 continuation two
`
	stanzas, err := ParseStanzas(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseStanzas: %v", err)
	}
	if len(stanzas) != 2 {
		t.Fatalf("got %d stanzas, want 2", len(stanzas))
	}
	if stanzas[0]["Package"] != "a" || stanzas[1]["Package"] != "b" {
		t.Errorf("stanza names wrong: %v", stanzas)
	}
	if !strings.Contains(stanzas[1]["Description"], "continuation two") {
		t.Errorf("continuation lines lost: %q", stanzas[1]["Description"])
	}
}

func TestParseDependsList(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"libc6 (>= 2.34), zlib1g", []string{"libc6", "zlib1g"}},
		{"a | b, c", []string{"a", "c"}},
		{"python3:any", []string{"python3"}},
		{"", nil},
		{"single", []string{"single"}},
	}
	for _, tt := range tests {
		got := parseDependsList(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseDependsList(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseInstalled(t *testing.T) {
	output := "bash\t5.2.15-2\tGNU Bourne Again SHell\ncoreutils\t9.1-1\n"
	records, err := parseInstalled(output)
	if err != nil {
		t.Fatalf("parseInstalled: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if !records[0].Installed {
		t.Error("parsed record should be marked installed")
	}
	if records[0].Description != "GNU Bourne Again SHell" {
		t.Errorf("Description = %q", records[0].Description)
	}
	if records[1].Version != "9.1-1" {
		t.Errorf("Version = %q", records[1].Version)
	}
}

func TestParseInstalledRejectsMalformedLine(t *testing.T) {
	_, err := parseInstalled("no-tabs-here")
	if !errors.Is(err, backend.ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}
}
