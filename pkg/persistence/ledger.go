package persistence

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go driver, no cgo
)

// RecordKind distinguishes node rows from edge rows in the ledger.
type RecordKind string

const (
	RecordKindNode RecordKind = "node"
	RecordKindEdge RecordKind = "edge"
)

// maxSyncAttempts caps the ledger's retry count per record; once reached,
// MarkAttemptFailed stops incrementing and the row is surfaced by
// Stuck for operator attention instead of retried forever.
const maxSyncAttempts = 3

// Ledger is a small sqlite database tracking, per record, which JSONL chunk
// file it lives in and whether it has been synced to any downstream
// consumer (a vector index rebuild, an external mirror). It holds metadata
// only, never graph data, mirroring the teacher's processed_documents
// tracker table but generalized to arbitrary record kinds and capped
// retries rather than unconditional upsert.
type Ledger struct {
	db *sql.DB
}

// OpenLedger opens (creating if necessary) the sqlite ledger at path.
func OpenLedger(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("persistence: open ledger db: %w", err)
	}
	l := &Ledger{db: db}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS sync_state (
		record_id   TEXT PRIMARY KEY,
		record_kind TEXT NOT NULL,
		chunk_file  TEXT NOT NULL,
		dirty       INTEGER NOT NULL DEFAULT 1,
		attempts    INTEGER NOT NULL DEFAULT 0,
		last_error  TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_sync_state_dirty ON sync_state(dirty);
	`
	_, err := l.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("persistence: init ledger schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// MarkDirty records that record_id (of kind) now lives in chunkFile and
// still needs sync, resetting its attempt counter. Upsert semantics, as the
// teacher's MarkDocumentProcessed uses.
func (l *Ledger) MarkDirty(recordID string, kind RecordKind, chunkFile string) error {
	_, err := l.db.Exec(
		`INSERT INTO sync_state (record_id, record_kind, chunk_file, dirty, attempts, last_error)
		 VALUES (?, ?, ?, 1, 0, NULL)
		 ON CONFLICT(record_id) DO UPDATE SET
		   record_kind = excluded.record_kind,
		   chunk_file  = excluded.chunk_file,
		   dirty       = 1,
		   attempts    = 0,
		   last_error  = NULL`,
		recordID, string(kind), chunkFile,
	)
	if err != nil {
		return fmt.Errorf("persistence: mark dirty %s: %w", recordID, err)
	}
	return nil
}

// MarkSynced clears the dirty flag for recordID.
func (l *Ledger) MarkSynced(recordID string) error {
	_, err := l.db.Exec(`UPDATE sync_state SET dirty = 0, last_error = NULL WHERE record_id = ?`, recordID)
	if err != nil {
		return fmt.Errorf("persistence: mark synced %s: %w", recordID, err)
	}
	return nil
}

// MarkAttemptFailed records a failed sync attempt, up to maxSyncAttempts.
// Beyond the cap the row stays dirty but attempts stops climbing, so Stuck
// can distinguish "still retrying" from "given up".
func (l *Ledger) MarkAttemptFailed(recordID string, cause error) error {
	_, err := l.db.Exec(
		`UPDATE sync_state
		 SET attempts = MIN(attempts + 1, ?), last_error = ?
		 WHERE record_id = ?`,
		maxSyncAttempts, cause.Error(), recordID,
	)
	if err != nil {
		return fmt.Errorf("persistence: mark attempt failed %s: %w", recordID, err)
	}
	return nil
}

// Remove deletes a record's ledger row entirely, used when the record
// itself is deleted from the JSONL stream.
func (l *Ledger) Remove(recordID string) error {
	_, err := l.db.Exec(`DELETE FROM sync_state WHERE record_id = ?`, recordID)
	if err != nil {
		return fmt.Errorf("persistence: remove ledger row %s: %w", recordID, err)
	}
	return nil
}

// DirtyRecord is one row returned by Dirty/Stuck.
type DirtyRecord struct {
	RecordID   string
	Kind       RecordKind
	ChunkFile  string
	Attempts   int
	LastError  string
}

// Dirty returns every record still awaiting sync with attempts below the
// retry cap, in no particular order.
func (l *Ledger) Dirty() ([]DirtyRecord, error) {
	return l.queryDirty(`SELECT record_id, record_kind, chunk_file, attempts, COALESCE(last_error, '')
		FROM sync_state WHERE dirty = 1 AND attempts < ?`, maxSyncAttempts)
}

// Stuck returns dirty records that have exhausted their retry budget and
// need operator attention.
func (l *Ledger) Stuck() ([]DirtyRecord, error) {
	return l.queryDirty(`SELECT record_id, record_kind, chunk_file, attempts, COALESCE(last_error, '')
		FROM sync_state WHERE dirty = 1 AND attempts >= ?`, maxSyncAttempts)
}

func (l *Ledger) queryDirty(query string, args ...interface{}) ([]DirtyRecord, error) {
	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("persistence: query ledger: %w", err)
	}
	defer rows.Close()

	var out []DirtyRecord
	for rows.Next() {
		var rec DirtyRecord
		var kind string
		if err := rows.Scan(&rec.RecordID, &kind, &rec.ChunkFile, &rec.Attempts, &rec.LastError); err != nil {
			return nil, fmt.Errorf("persistence: scan ledger row: %w", err)
		}
		rec.Kind = RecordKind(kind)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ErrRecordNotTracked names the case of an id the ledger has no row for; no
// Ledger method returns it.
var ErrRecordNotTracked = errors.New("persistence: record not tracked")
