package state

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-turn
// LogTurn writes a turn provenance entry to the turn_log table.
func LogTurn(db *sql.DB, entry TurnLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO turn_log (version_id, turn_id, action, tier, combined_score, chaos_factor, outcome, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.VersionID,
		entry.TurnID,
		nullIfEmpty(entry.Action),
		nullIfEmpty(entry.Tier),
		entry.CombinedScore,
		entry.ChaosFactor,
		entry.Outcome,
		nullIfEmpty(entry.Detail),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log turn: %w", err)
	}
	return nil
}

// #endregion log-turn

// #region list-turns
// ListTurns returns the most recent turn log entries, newest first.
func ListTurns(db *sql.DB, limit int) ([]TurnLogEntry, error) {
	rows, err := db.Query(
		`SELECT version_id, turn_id, action, tier, combined_score, chaos_factor, outcome, detail, created_at
		 FROM turn_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var entries []TurnLogEntry
	for rows.Next() {
		var e TurnLogEntry
		var action, tierName, detail sql.NullString
		var createdStr string
		if err := rows.Scan(&e.VersionID, &e.TurnID, &action, &tierName, &e.CombinedScore, &e.ChaosFactor, &e.Outcome, &detail, &createdStr); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		e.Action = action.String
		e.Tier = tierName.String
		e.Detail = detail.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list-turns

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
