// pkg/apt/index.go
package apt

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/omni-pm/omni/pkg/core"
)

// DefaultListDir is where apt keeps its downloaded package indexes.
const DefaultListDir = "/var/lib/apt/lists"

// searchIndexes scans the local Packages indexes for names or
// descriptions containing the query. This avoids a shell-out entirely
// when apt has already fetched its lists. Only uncompressed and
// xz-compressed indexes are read; other compressions are skipped.
func searchIndexes(listDir, query string) ([]core.PackageRecord, error) {
	entries, err := os.ReadDir(listDir)
	if err != nil {
		return nil, fmt.Errorf("reading apt lists: %w", err)
	}

	query = strings.ToLower(query)
	seen := make(map[string]bool)
	var records []core.PackageRecord

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, "_Packages") && !strings.HasSuffix(name, "_Packages.xz") {
			continue
		}

		matches, err := searchIndexFile(filepath.Join(listDir, name), query)
		if err != nil {
			// A single unreadable index should not sink the search.
			continue
		}
		for _, record := range matches {
			if seen[record.Ref.Name] {
				continue
			}
			seen[record.Ref.Name] = true
			records = append(records, record)
		}
	}

	return records, nil
}

// searchIndexFile scans one Packages file for matching stanzas.
func searchIndexFile(path, query string) ([]core.PackageRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".xz") {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening xz index %s: %w", filepath.Base(path), err)
		}
		r = xr
	}

	stanzas, err := ParseStanzas(r)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var records []core.PackageRecord
	for _, s := range stanzas {
		name := s["Package"]
		if name == "" {
			continue
		}
		if !strings.Contains(strings.ToLower(name), query) &&
			!strings.Contains(strings.ToLower(s["Description"]), query) {
			continue
		}
		record := stanzaToRecord(s)
		record.FetchedAt = now
		records = append(records, *record)
	}
	return records, nil
}
