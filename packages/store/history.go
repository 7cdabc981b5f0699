package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	// SQLite driver for the history log
	_ "github.com/mattn/go-sqlite3"
)

// HistoryEntry is one appended execution record. Entries carry no header
// or body payload, so no credential ever lands in the history log.
type HistoryEntry struct {
	ID        string
	Timestamp time.Time
	Method    string
	URL       string
	Status    int
	Duration  time.Duration
	Size      int
	Success   bool
}

// HistoryStats aggregates the history log.
type HistoryStats struct {
	Total        int
	Succeeded    int
	ClientErrors int
	ServerErrors int
	Failed       int
	MinDuration  time.Duration
	AvgDuration  time.Duration
	MaxDuration  time.Duration
}

const historySchema = `
CREATE TABLE IF NOT EXISTS history (
	id          TEXT PRIMARY KEY,
	ts          INTEGER NOT NULL,
	method      TEXT NOT NULL,
	url         TEXT NOT NULL,
	status      INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	size_bytes  INTEGER NOT NULL,
	success     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_ts ON history(ts);
`

// openHistory opens the append-only history database. WAL mode lets a
// reader observe a consistent log while another process appends; each
// insert is a single transaction, so a row is visible wholly or not at
// all.
func (s *Store) openHistory() (*sql.DB, error) {
	db, err := sql.Open("sqlite3", s.historyPath()+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, &Error{Kind: KindIOFailure, Name: s.historyPath(), Err: err}
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, &Error{Kind: KindIOFailure, Name: s.historyPath(), Err: err}
	}
	return db, nil
}

// AppendHistory records one execution. Entries are never mutated or
// reordered afterwards; the log is pruned to the configured limit by
// dropping the oldest rows.
func (s *Store) AppendHistory(entry HistoryEntry) error {
	db, err := s.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err = db.Exec(
		`INSERT INTO history (id, ts, method, url, status, duration_ms, size_bytes, success)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp.UnixNano(),
		entry.Method,
		entry.URL,
		entry.Status,
		entry.Duration.Milliseconds(),
		entry.Size,
		entry.Success,
	)
	if err != nil {
		return &Error{Kind: KindIOFailure, Name: s.historyPath(), Err: err}
	}

	if s.historyLimit > 0 {
		_, err = db.Exec(
			`DELETE FROM history WHERE id NOT IN
			   (SELECT id FROM history ORDER BY ts DESC, id LIMIT ?)`,
			s.historyLimit,
		)
		if err != nil {
			return &Error{Kind: KindIOFailure, Name: s.historyPath(), Err: err}
		}
	}
	return nil
}

// History returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (s *Store) History(limit int) ([]HistoryEntry, error) {
	db, err := s.openHistory()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := `SELECT id, ts, method, url, status, duration_ms, size_bytes, success
	          FROM history ORDER BY ts DESC, id`
	var rows *sql.Rows
	if limit > 0 {
		rows, err = db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = db.Query(query)
	}
	if err != nil {
		return nil, &Error{Kind: KindIOFailure, Name: s.historyPath(), Err: err}
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var ts int64
		var durationMs int64
		if err := rows.Scan(&entry.ID, &ts, &entry.Method, &entry.URL, &entry.Status, &durationMs, &entry.Size, &entry.Success); err != nil {
			return nil, &Error{Kind: KindCorruptFile, Name: s.historyPath(), Err: err}
		}
		entry.Timestamp = time.Unix(0, ts).UTC()
		entry.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Kind: KindIOFailure, Name: s.historyPath(), Err: err}
	}
	return entries, nil
}

// ClearHistory drops every entry.
func (s *Store) ClearHistory() error {
	db, err := s.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(`DELETE FROM history`); err != nil {
		return &Error{Kind: KindIOFailure, Name: s.historyPath(), Err: err}
	}
	return nil
}

// Stats aggregates counts and durations over the whole log.
func (s *Store) Stats() (*HistoryStats, error) {
	entries, err := s.History(0)
	if err != nil {
		return nil, err
	}

	stats := &HistoryStats{}
	var total time.Duration
	for _, entry := range entries {
		stats.Total++
		switch {
		case !entry.Success && entry.Status == 0:
			stats.Failed++
		case entry.Status >= 500:
			stats.ServerErrors++
		case entry.Status >= 400:
			stats.ClientErrors++
		case entry.Success:
			stats.Succeeded++
		}

		total += entry.Duration
		if stats.MinDuration == 0 || entry.Duration < stats.MinDuration {
			stats.MinDuration = entry.Duration
		}
		if entry.Duration > stats.MaxDuration {
			stats.MaxDuration = entry.Duration
		}
	}
	if stats.Total > 0 {
		stats.AvgDuration = total / time.Duration(stats.Total)
	}
	return stats, nil
}
