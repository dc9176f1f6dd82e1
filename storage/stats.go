package storage

import (
	"fmt"
)

// DailyStats represents statistics for a single day
type DailyStats struct {
	Date          string
	TotalRuns     int
	TotalChars    int
	FinishedCount int
	StoppedCount  int
	ErrorCount    int
}

// OverallStats represents overall statistics
type OverallStats struct {
	TotalRuns      int
	TotalChars     int64
	FinishedCount  int
	StoppedCount   int
	ErrorCount     int
	AvgDurationMs  float64
	TotalTypingMs  int64
	AvgBaseDelayMs float64
	JitterRunCount int
}

// GetDailyStats retrieves statistics grouped by date for the last N days
func (db *DB) GetDailyStats(days int) ([]DailyStats, error) {
	query := `
		SELECT
			DATE(timestamp) as date,
			COUNT(*) as total_runs,
			COALESCE(SUM(char_count), 0) as total_chars,
			SUM(CASE WHEN outcome = 'finished' THEN 1 ELSE 0 END) as finished_count,
			SUM(CASE WHEN outcome = 'stopped' THEN 1 ELSE 0 END) as stopped_count,
			SUM(CASE WHEN outcome = 'error' THEN 1 ELSE 0 END) as error_count
		FROM runs
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
		GROUP BY DATE(timestamp)
		ORDER BY date DESC
	`

	rows, err := db.conn.Query(query, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStats
	for rows.Next() {
		var s DailyStats
		err := rows.Scan(&s.Date, &s.TotalRuns, &s.TotalChars, &s.FinishedCount, &s.StoppedCount, &s.ErrorCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetOverallStats retrieves overall statistics for the last N days
func (db *DB) GetOverallStats(days int) (*OverallStats, error) {
	query := `
		SELECT
			COUNT(*) as total_runs,
			COALESCE(SUM(char_count), 0) as total_chars,
			SUM(CASE WHEN outcome = 'finished' THEN 1 ELSE 0 END) as finished_count,
			SUM(CASE WHEN outcome = 'stopped' THEN 1 ELSE 0 END) as stopped_count,
			SUM(CASE WHEN outcome = 'error' THEN 1 ELSE 0 END) as error_count,
			COALESCE(AVG(duration_ms), 0) as avg_duration_ms,
			COALESCE(SUM(duration_ms), 0) as total_typing_ms,
			COALESCE(AVG(base_delay_ms), 0) as avg_base_delay_ms,
			SUM(CASE WHEN jitter = 1 THEN 1 ELSE 0 END) as jitter_run_count
		FROM runs
		WHERE timestamp >= datetime('now', '-' || ? || ' days')
	`

	var stats OverallStats
	err := db.conn.QueryRow(query, days).Scan(
		&stats.TotalRuns,
		&stats.TotalChars,
		&stats.FinishedCount,
		&stats.StoppedCount,
		&stats.ErrorCount,
		&stats.AvgDurationMs,
		&stats.TotalTypingMs,
		&stats.AvgBaseDelayMs,
		&stats.JitterRunCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query overall stats: %w", err)
	}

	return &stats, nil
}
