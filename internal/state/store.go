package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/catcatAI/story-engine/internal/story"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS story_versions (
	version_id     TEXT PRIMARY KEY,
	parent_id      TEXT,
	state_json     TEXT NOT NULL,
	cognitive_json TEXT,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (parent_id) REFERENCES story_versions(version_id)
);

CREATE TABLE IF NOT EXISTS turn_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	version_id     TEXT NOT NULL,
	turn_id        TEXT NOT NULL,
	action         TEXT,
	tier           TEXT,
	combined_score REAL,
	chaos_factor   REAL,
	outcome        TEXT NOT NULL,
	detail         TEXT,
	created_at     TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES story_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_state (
	id             INTEGER PRIMARY KEY CHECK (id = 1),
	version_id     TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES story_versions(version_id)
);
`

// #endregion schema

// #region store-struct
// Store manages versioned story state in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing connection. The schema must already be
// in place; used by tests and tooling.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region create-initial
// CreateInitialState persists an opening state as the first version.
func (s *Store) CreateInitialState(st story.State) (VersionRecord, error) {
	rec := VersionRecord{
		VersionID: uuid.New().String(),
		State:     st,
		CreatedAt: time.Now().UTC(),
	}

	stateJSON, err := json.Marshal(rec.State)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("marshal state: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return VersionRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO story_versions (version_id, parent_id, state_json, created_at)
		 VALUES (?, ?, ?, ?)`,
		rec.VersionID, nil, string(stateJSON), rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_state (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		rec.VersionID,
	)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return VersionRecord{}, fmt.Errorf("commit: %w", err)
	}

	return rec, nil
}

// #endregion create-initial

// #region get-current
// GetCurrent reads the active state version.
func (s *Store) GetCurrent() (VersionRecord, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_state WHERE id = 1`).Scan(&versionID)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}

// #endregion get-current

// #region get-version
// GetVersion retrieves a specific state version by ID.
func (s *Store) GetVersion(id string) (VersionRecord, error) {
	var rec VersionRecord
	var parentID sql.NullString
	var stateJSON string
	var cognitiveJSON sql.NullString
	var createdStr string

	err := s.db.QueryRow(
		`SELECT version_id, parent_id, state_json, cognitive_json, created_at
		 FROM story_versions WHERE version_id = ?`, id,
	).Scan(&rec.VersionID, &parentID, &stateJSON, &cognitiveJSON, &createdStr)
	if err != nil {
		return VersionRecord{}, fmt.Errorf("get version %s: %w", id, err)
	}

	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	if err := json.Unmarshal([]byte(stateJSON), &rec.State); err != nil {
		return VersionRecord{}, fmt.Errorf("unmarshal state: %w", err)
	}
	if cognitiveJSON.Valid && cognitiveJSON.String != "" {
		if err := json.Unmarshal([]byte(cognitiveJSON.String), &rec.Cognitive); err != nil {
			return VersionRecord{}, fmt.Errorf("unmarshal cognitive snapshot: %w", err)
		}
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)

	return rec, nil
}

// #endregion get-version

// #region commit-version
// CommitVersion inserts a new version and updates the active pointer
// atomically.
func (s *Store) CommitVersion(rec VersionRecord) error {
	stateJSON, err := json.Marshal(rec.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	var cognitivePtr interface{}
	if rec.Cognitive != (story.CognitiveSnapshot{}) {
		cognitiveJSON, err := json.Marshal(rec.Cognitive)
		if err != nil {
			return fmt.Errorf("marshal cognitive snapshot: %w", err)
		}
		cognitivePtr = string(cognitiveJSON)
	}

	var parentPtr interface{}
	if rec.ParentID != "" {
		parentPtr = rec.ParentID
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO story_versions (version_id, parent_id, state_json, cognitive_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.VersionID, parentPtr, string(stateJSON), cognitivePtr,
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE active_state SET version_id = ? WHERE id = 1`, rec.VersionID,
	)
	if err != nil {
		return fmt.Errorf("update active: %w", err)
	}

	return tx.Commit()
}

// #endregion commit-version

// #region commit-turn
// CommitTurn folds a resolved turn into the active state as a new version
// and records it in the turn log.
func (s *Store) CommitTurn(turnID, action string, res story.TurnResult, snap story.CognitiveSnapshot) (VersionRecord, error) {
	current, err := s.GetCurrent()
	if err != nil {
		return VersionRecord{}, err
	}

	rec := VersionRecord{
		VersionID: uuid.New().String(),
		ParentID:  current.VersionID,
		State:     Apply(current.State, action, res),
		Cognitive: snap,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CommitVersion(rec); err != nil {
		return VersionRecord{}, err
	}

	err = LogTurn(s.db, TurnLogEntry{
		VersionID:     rec.VersionID,
		TurnID:        turnID,
		Action:        action,
		Tier:          snap.Tier,
		CombinedScore: snap.CombinedScore,
		ChaosFactor:   snap.ChaosFactor,
		Outcome:       "resolved",
	})
	if err != nil {
		return VersionRecord{}, err
	}

	return rec, nil
}

// #endregion commit-turn

// #region rollback
// Rollback sets the active pointer to a previous version.
func (s *Store) Rollback(targetVersionID string) error {
	// Verify the target version exists
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM story_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s not found", targetVersionID)
	}

	_, err = s.db.Exec(`UPDATE active_state SET version_id = ? WHERE id = 1`, targetVersionID)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback

// #region list-versions
// ListVersions returns the most recent state versions, newest first.
func (s *Store) ListVersions(limit int) ([]VersionRecord, error) {
	rows, err := s.db.Query(
		`SELECT version_id, parent_id, state_json, cognitive_json, created_at
		 FROM story_versions ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []VersionRecord
	for rows.Next() {
		var rec VersionRecord
		var parentID sql.NullString
		var stateJSON string
		var cognitiveJSON sql.NullString
		var createdStr string

		if err := rows.Scan(&rec.VersionID, &parentID, &stateJSON, &cognitiveJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if parentID.Valid {
			rec.ParentID = parentID.String
		}
		if err := json.Unmarshal([]byte(stateJSON), &rec.State); err != nil {
			return nil, fmt.Errorf("unmarshal state: %w", err)
		}
		if cognitiveJSON.Valid && cognitiveJSON.String != "" {
			if err := json.Unmarshal([]byte(cognitiveJSON.String), &rec.Cognitive); err != nil {
				return nil, fmt.Errorf("unmarshal cognitive snapshot: %w", err)
			}
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-versions
