package replay

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/catcatAI/story-engine/internal/pipeline"
	"github.com/catcatAI/story-engine/internal/story"
)

// #region fixture-tests

func sessionFixture() *Fixture {
	return &Fixture{
		Description: "two calm turns in the market",
		StartState: story.State{
			Log: []story.Message{
				{Author: story.AuthorNarrator, Content: "The market square bustles around you."},
			},
			Summary: "You arrived in the city at dawn.",
		},
		Turns: []FixtureTurn{
			{
				TurnID: "turn-1",
				Action: "look around",
				Responses: []FixtureResponse{
					{Shape: "queries", Queries: []string{"market"}},
					{Shape: "turn_result", Document: json.RawMessage(`{"narrative": "A spice merchant waves you over.", "suggestedActions": ["Approach the merchant"]}`)},
				},
			},
			{
				TurnID: "turn-2",
				Action: "talk to the merchant",
				Responses: []FixtureResponse{
					{Shape: "queries", Queries: []string{"merchant"}},
					{Shape: "turn_result", Document: json.RawMessage(`{"narrative": "She offers you saffron at a discount.", "suggestedActions": ["Buy it", "Decline"]}`)},
				},
			},
		},
		Expected: []FixtureExpectation{
			{TurnID: "turn-1", Outcome: "resolved", Tier: "logic"},
			{TurnID: "turn-2", Outcome: "resolved", Tier: "logic"},
		},
	}
}

// TestFixture_RoundTrip saves a fixture and loads it back unchanged.
func TestFixture_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	want := sessionFixture()

	if err := SaveFixture(path, want); err != nil {
		t.Fatalf("SaveFixture: %v", err)
	}
	got, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fixture round trip mismatch (-want +got):\n%s", diff)
	}
}

// TestFixture_ReplayMatchesExpectations runs a saved fixture end to end and
// compares each turn's outcome and tier against the recorded expectations.
// This is the regression baseline: if tier weights or pipeline phase handling
// change, this catches drift.
func TestFixture_ReplayMatchesExpectations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := SaveFixture(path, sessionFixture()); err != nil {
		t.Fatalf("SaveFixture: %v", err)
	}
	f, err := LoadFixture(path)
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	results, _ := Replay(context.Background(), f, pipeline.DefaultConfig())

	if len(results) != len(f.Expected) {
		t.Fatalf("expected %d results, got %d", len(f.Expected), len(results))
	}
	for i, want := range f.Expected {
		got := results[i]
		if got.TurnID != want.TurnID {
			t.Errorf("turn %d: expected turn_id=%s, got %s", i, want.TurnID, got.TurnID)
		}
		if got.Outcome != want.Outcome {
			t.Errorf("turn %d (%s): expected outcome=%s, got %s (reason: %s)",
				i, want.TurnID, want.Outcome, got.Outcome, got.Reason)
		}
		if got.Tier != want.Tier {
			t.Errorf("turn %d (%s): expected tier=%s, got %s", i, want.TurnID, want.Tier, got.Tier)
		}
	}
}

// TestLoadFixture_NotFound verifies error on missing file.
func TestLoadFixture_NotFound(t *testing.T) {
	_, err := LoadFixture(filepath.Join(t.TempDir(), "nonexistent.json"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

// TestLoadFixture_Malformed verifies error on invalid JSON.
func TestLoadFixture_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not valid json}"), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	_, err := LoadFixture(path)
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

// #endregion fixture-tests
