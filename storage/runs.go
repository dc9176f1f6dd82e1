package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// Outcome values recorded for a run
const (
	OutcomeFinished = "finished"
	OutcomeStopped  = "stopped"
	OutcomeError    = "error"
)

// Run represents one typing session from start to terminal outcome
type Run struct {
	ID           int64
	Timestamp    time.Time
	Outcome      string
	ErrorMessage string
	CharCount    int
	FinalPercent int
	DurationMs   int64
	BaseDelayMs  int64
	Jitter       bool
	JitterMinMs  int64
	JitterMaxMs  int64
	TargetTitle  string
}

// SaveRun saves a run to the database
func (db *DB) SaveRun(r *Run) error {
	query := `
		INSERT INTO runs (
			outcome, error_message, char_count, final_percent,
			duration_ms, base_delay_ms, jitter, jitter_min_ms, jitter_max_ms,
			target_title
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.conn.Exec(query,
		r.Outcome, r.ErrorMessage, r.CharCount, r.FinalPercent,
		r.DurationMs, r.BaseDelayMs, r.Jitter, r.JitterMinMs, r.JitterMaxMs,
		r.TargetTitle,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	r.ID = id
	return nil
}

// GetRuns retrieves runs with pagination, newest first
func (db *DB) GetRuns(limit, offset int) ([]Run, error) {
	query := `
		SELECT
			id, timestamp, outcome, error_message, char_count, final_percent,
			duration_ms, base_delay_ms, jitter, jitter_min_ms, jitter_max_ms,
			target_title
		FROM runs
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.conn.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var errorMessage sql.NullString

		err := rows.Scan(
			&r.ID, &r.Timestamp, &r.Outcome, &errorMessage, &r.CharCount, &r.FinalPercent,
			&r.DurationMs, &r.BaseDelayMs, &r.Jitter, &r.JitterMinMs, &r.JitterMaxMs,
			&r.TargetTitle,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		if errorMessage.Valid {
			r.ErrorMessage = errorMessage.String
		}

		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// DeleteRun deletes a run by ID
func (db *DB) DeleteRun(id int64) error {
	result, err := db.conn.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("run not found")
	}

	return nil
}

// GetRunCount returns the total number of recorded runs
func (db *DB) GetRunCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	return count, err
}
