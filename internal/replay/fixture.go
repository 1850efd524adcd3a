package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/catcatAI/story-engine/internal/story"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture. It records a
// starting story state, the player actions of a session, the scripted model
// responses each action consumed, and the expected per-turn outcome.
type Fixture struct {
	Description string               `json:"description"`
	StartState  story.State          `json:"start_state"`
	Turns       []FixtureTurn        `json:"turns"`
	Expected    []FixtureExpectation `json:"expected"`
}

// FixtureTurn is one recorded player turn: the action text plus the model
// responses the pipeline consumed, in call order.
type FixtureTurn struct {
	TurnID    string            `json:"turn_id"`
	Action    string            `json:"action"`
	Responses []FixtureResponse `json:"responses"`
}

// FixtureResponse is one scripted model response. Exactly one of Queries,
// Document, Text, or Error is meaningful depending on the recorded shape.
type FixtureResponse struct {
	Shape    string          `json:"shape"`
	Queries  []string        `json:"queries,omitempty"`
	Document json.RawMessage `json:"document,omitempty"`
	Text     string          `json:"text,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// FixtureExpectation captures the expected outcome and tier per turn.
type FixtureExpectation struct {
	TurnID  string `json:"turn_id"`
	Outcome string `json:"outcome"` // "resolved" | "failed"
	Tier    string `json:"tier"`
}

// #endregion fixture-types

// #region fixture-io

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// SaveFixture writes a fixture as indented JSON.
func SaveFixture(path string, f *Fixture) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-io
