// pkg/store/audit.go
package store

import (
	"database/sql"
	"fmt"
	"time"
)

// AuditEntry is one row of the append-only transaction log.
type AuditEntry struct {
	TxnID       string
	Seq         int
	Timestamp   time.Time
	Description string
	Outcome     string
}

// AppendAudit appends one entry for a transaction. The sequence number is
// assigned from the current maximum inside a write transaction, so a
// crash can drop a tail entry but never reorder or overwrite history.
func (db *DB) AppendAudit(txnID, description, outcome string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin audit append: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var seq int
	if err := tx.QueryRow(`SELECT COALESCE(MAX(seq), 0) + 1 FROM audit_log WHERE txn_id = ?`, txnID).Scan(&seq); err != nil {
		return fmt.Errorf("store: next audit seq: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO audit_log (txn_id, seq, timestamp, step_description, outcome)
		VALUES (?, ?, ?, ?, ?)
	`, txnID, seq, time.Now(), description, outcome)
	if err != nil {
		return fmt.Errorf("store: append audit: %w", err)
	}

	return tx.Commit()
}

// AuditTrail returns every entry for one transaction in sequence order.
func (db *DB) AuditTrail(txnID string) ([]AuditEntry, error) {
	rows, err := db.conn.Query(`
		SELECT txn_id, seq, timestamp, step_description, outcome
		FROM audit_log WHERE txn_id = ? ORDER BY seq
	`, txnID)
	if err != nil {
		return nil, fmt.Errorf("store: audit trail: %w", err)
	}
	defer rows.Close()

	return scanAuditRows(rows)
}

// RecentTransactions returns the newest audit entries across all
// transactions, most recent first, capped at limit.
func (db *DB) RecentTransactions(limit int) ([]AuditEntry, error) {
	rows, err := db.conn.Query(`
		SELECT txn_id, seq, timestamp, step_description, outcome
		FROM audit_log ORDER BY timestamp DESC, seq DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent transactions: %w", err)
	}
	defer rows.Close()

	return scanAuditRows(rows)
}

func scanAuditRows(rows *sql.Rows) ([]AuditEntry, error) {
	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.TxnID, &e.Seq, &e.Timestamp, &e.Description, &e.Outcome); err != nil {
			return nil, fmt.Errorf("store: scan audit row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
