// pkg/store/cache.go
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/omni-pm/omni/pkg/core"
)

// ErrCacheIO indicates a cache read or write failed. Callers treat it as
// a cache miss, never as fatal.
var ErrCacheIO = errors.New("cache i/o failure")

// Get returns the cached record for a ref, or nil when absent. Records
// older than the freshness window come back with Stale set; stale records
// must not drive planning decisions.
func (db *DB) Get(ref core.PackageRef, window time.Duration) (*core.PackageRecord, error) {
	row := db.conn.QueryRow(`
		SELECT version, description, dependencies, installed, fetched_at
		FROM package_cache WHERE name = ? AND backend = ?
	`, ref.Name, ref.Backend)

	var (
		record   core.PackageRecord
		depsJSON string
	)
	record.Ref = ref
	err := row.Scan(&record.Version, &record.Description, &depsJSON, &record.Installed, &record.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrCacheIO, ref, err)
	}

	if err := json.Unmarshal([]byte(depsJSON), &record.Dependencies); err != nil {
		return nil, fmt.Errorf("%w: decode deps for %s: %v", ErrCacheIO, ref, err)
	}
	record.Stale = !record.Fresh(window)
	return &record, nil
}

// Put upserts a record. Writes are idempotent refreshes of observed
// state, so last-writer-wins is fine.
func (db *DB) Put(record core.PackageRecord) error {
	depsJSON, err := json.Marshal(record.Dependencies)
	if err != nil {
		return fmt.Errorf("%w: encode deps for %s: %v", ErrCacheIO, record.Ref, err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO package_cache (name, backend, version, description, dependencies, installed, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, backend) DO UPDATE SET
			version      = excluded.version,
			description  = excluded.description,
			dependencies = excluded.dependencies,
			installed    = excluded.installed,
			fetched_at   = excluded.fetched_at
	`, record.Ref.Name, record.Ref.Backend, record.Version, record.Description,
		string(depsJSON), record.Installed, record.FetchedAt)
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrCacheIO, record.Ref, err)
	}
	return nil
}

// Invalidate removes a single record.
func (db *DB) Invalidate(ref core.PackageRef) error {
	_, err := db.conn.Exec(`DELETE FROM package_cache WHERE name = ? AND backend = ?`,
		ref.Name, ref.Backend)
	if err != nil {
		return fmt.Errorf("%w: invalidate %s: %v", ErrCacheIO, ref, err)
	}
	return nil
}

// InvalidateBackend removes every record for one backend. Used when the
// backend's on-disk state is observed to change underneath us.
func (db *DB) InvalidateBackend(backend string) error {
	_, err := db.conn.Exec(`DELETE FROM package_cache WHERE backend = ?`, backend)
	if err != nil {
		return fmt.Errorf("%w: invalidate backend %s: %v", ErrCacheIO, backend, err)
	}
	return nil
}

// SearchCached does best-effort substring matching over cached names and
// descriptions. Stale entries are returned marked stale.
func (db *DB) SearchCached(query string, window time.Duration) ([]core.PackageRecord, error) {
	pattern := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT name, backend, version, description, dependencies, installed, fetched_at
		FROM package_cache
		WHERE name LIKE ? OR description LIKE ?
		ORDER BY name, backend
	`, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %v", ErrCacheIO, err)
	}
	defer rows.Close()

	var records []core.PackageRecord
	for rows.Next() {
		var (
			record   core.PackageRecord
			depsJSON string
		)
		err := rows.Scan(&record.Ref.Name, &record.Ref.Backend, &record.Version,
			&record.Description, &depsJSON, &record.Installed, &record.FetchedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrCacheIO, err)
		}
		if err := json.Unmarshal([]byte(depsJSON), &record.Dependencies); err != nil {
			continue // skip corrupt row, refresh will replace it
		}
		record.Stale = !record.Fresh(window)
		records = append(records, record)
	}
	return records, rows.Err()
}

// PurgeExpired deletes rows older than the freshness window, returning
// the number removed.
func (db *DB) PurgeExpired(window time.Duration) (int64, error) {
	cutoff := time.Now().Add(-window)
	res, err := db.conn.Exec(`DELETE FROM package_cache WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%w: purge: %v", ErrCacheIO, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
