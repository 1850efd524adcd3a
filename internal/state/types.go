package state

import (
	"time"

	"github.com/catcatAI/story-engine/internal/story"
)

// #region version-record
// VersionRecord is one versioned snapshot of the story state.
type VersionRecord struct {
	VersionID string
	ParentID  string
	State     story.State
	Cognitive story.CognitiveSnapshot
	CreatedAt time.Time
}

// #endregion version-record

// #region turn-log-entry
// TurnLogEntry links a state version to the turn that produced it.
type TurnLogEntry struct {
	VersionID     string
	TurnID        string
	Action        string
	Tier          string
	CombinedScore float64
	ChaosFactor   float64
	Outcome       string // "resolved" | "failed" | "rolled_back"
	Detail        string
	CreatedAt     time.Time
}

// #endregion turn-log-entry
