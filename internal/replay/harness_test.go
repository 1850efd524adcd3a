package replay

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/catcatAI/story-engine/internal/pipeline"
	"github.com/catcatAI/story-engine/internal/story"
)

// helper: calm opening state that scores into the efficiency tier for
// routine or mundane actions.
func marketState() story.State {
	return story.State{
		Log: []story.Message{
			{Author: story.AuthorNarrator, Content: "The market square bustles around you."},
		},
		Summary: "You arrived in the city at dawn.",
	}
}

// helper: scripted turn-result document response.
func docResponse(doc string) FixtureResponse {
	return FixtureResponse{Shape: "turn_result", Document: json.RawMessage(doc), Text: doc}
}

// helper: scripted query-selection response.
func queryResponse(queries ...string) FixtureResponse {
	return FixtureResponse{Shape: "queries", Queries: queries}
}

func TestReplay_ResolvedTurnAdvancesState(t *testing.T) {
	f := &Fixture{
		StartState: marketState(),
		Turns: []FixtureTurn{
			{
				TurnID: "turn-1",
				Action: "hum a tune",
				Responses: []FixtureResponse{
					queryResponse("market"),
					docResponse(`{"narrative": "You slip between the stalls.", "suggestedActions": ["Haggle", "Keep walking"]}`),
				},
			},
		},
	}

	results, final := Replay(context.Background(), f, pipeline.DefaultConfig())

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Outcome != "resolved" {
		t.Fatalf("expected outcome=resolved, got %s (reason: %s)", r.Outcome, r.Reason)
	}
	if r.Tier != "efficiency" {
		t.Errorf("expected tier=efficiency, got %s", r.Tier)
	}
	if r.Narrative != "You slip between the stalls." {
		t.Errorf("unexpected narrative %q", r.Narrative)
	}
	if len(final.Log) != len(f.StartState.Log)+2 {
		t.Errorf("expected log to grow by player and narrator entries, got %d entries", len(final.Log))
	}
	if diff := cmp.Diff([]string{"Haggle", "Keep walking"}, final.SuggestedActions); diff != "" {
		t.Errorf("suggested actions mismatch (-want +got):\n%s", diff)
	}
}

func TestReplay_FailedTurnLeavesStateUntouched(t *testing.T) {
	f := &Fixture{
		StartState: marketState(),
		Turns: []FixtureTurn{
			{
				TurnID: "turn-1",
				Action: "hum a tune",
				Responses: []FixtureResponse{
					queryResponse(),
					{Shape: "turn_result", Error: "shape", Text: "I cannot answer in that format."},
				},
			},
		},
	}

	results, final := Replay(context.Background(), f, pipeline.DefaultConfig())

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Outcome != "failed" {
		t.Fatalf("expected outcome=failed, got %s", results[0].Outcome)
	}
	if results[0].Reason == "" {
		t.Error("expected failure reason to be recorded")
	}
	if diff := cmp.Diff(f.StartState, final); diff != "" {
		t.Errorf("expected state untouched after failed turn (-want +got):\n%s", diff)
	}
}

func TestReplay_FallbackCounted(t *testing.T) {
	f := &Fixture{
		StartState: marketState(),
		Turns: []FixtureTurn{
			{
				TurnID: "turn-1",
				Action: "hum a tune",
				Responses: []FixtureResponse{
					queryResponse(),
					{Shape: "turn_result", Error: "transport: connection refused"},
					docResponse(`{"narrative": "The tune carries over the stalls.", "suggestedActions": ["Bow"]}`),
				},
			},
		},
	}

	results, final := Replay(context.Background(), f, pipeline.DefaultConfig())

	if results[0].Outcome != "resolved" {
		t.Fatalf("expected resolved after fallback retry, got %s (reason: %s)", results[0].Outcome, results[0].Reason)
	}
	if !results[0].FellBack {
		t.Error("expected FellBack=true")
	}

	summary := Summarize(results, final)
	if summary.Fallbacks != 1 {
		t.Errorf("expected Fallbacks=1, got %d", summary.Fallbacks)
	}
}

func TestReplay_SecurityTurnConsumesFlavor(t *testing.T) {
	f := &Fixture{
		StartState: story.State{CombatMode: true},
		Turns: []FixtureTurn{
			{
				TurnID: "turn-1",
				Action: "attack the guard",
				Responses: []FixtureResponse{
					queryResponse("guard"),
					docResponse(`{"narrative": "Steel rings against steel.", "suggestedActions": ["Press the attack", "Fall back"]}`),
					{Shape: "free_text", Text: "Sparks skitter across the cobblestones."},
				},
			},
		},
	}

	results, _ := Replay(context.Background(), f, pipeline.DefaultConfig())

	r := results[0]
	if r.Outcome != "resolved" {
		t.Fatalf("expected resolved, got %s (reason: %s)", r.Outcome, r.Reason)
	}
	if r.Tier != "security" {
		t.Errorf("expected tier=security, got %s", r.Tier)
	}
	if r.ChaosFactor == 0 {
		t.Error("expected nonzero chaos factor when the flavor pass succeeds")
	}
}

func TestReplay_MultiTurnProgression(t *testing.T) {
	f := &Fixture{
		StartState: marketState(),
		Turns: []FixtureTurn{
			{
				TurnID: "turn-1",
				Action: "look around",
				Responses: []FixtureResponse{
					queryResponse("market"),
					docResponse(`{"narrative": "A spice merchant waves you over.", "suggestedActions": ["Approach the merchant"]}`),
				},
			},
			{
				TurnID: "turn-2",
				Action: "talk to the merchant",
				Responses: []FixtureResponse{
					queryResponse("merchant"),
					docResponse(`{"narrative": "She offers you saffron at a suspicious discount.", "suggestedActions": ["Buy it", "Decline"]}`),
				},
			},
		},
	}

	results, final := Replay(context.Background(), f, pipeline.DefaultConfig())

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Outcome != "resolved" {
			t.Errorf("turn %d: expected resolved, got %s (reason: %s)", i, r.Outcome, r.Reason)
		}
	}
	// Two log entries per resolved turn on top of the opening entry.
	if len(final.Log) != 5 {
		t.Errorf("expected 5 log entries after two turns, got %d", len(final.Log))
	}

	summary := Summarize(results, final)
	if summary.Resolved != 2 || summary.Failed != 0 {
		t.Errorf("expected 2 resolved / 0 failed, got %d / %d", summary.Resolved, summary.Failed)
	}
}

func TestReplay_Deterministic(t *testing.T) {
	f := &Fixture{
		StartState: marketState(),
		Turns: []FixtureTurn{
			{
				TurnID: "turn-1",
				Action: "examine the stalls",
				Responses: []FixtureResponse{
					queryResponse("stalls"),
					docResponse(`{"narrative": "Rows of copper pots catch the light."}`),
				},
			},
		},
	}

	results1, final1 := Replay(context.Background(), f, pipeline.DefaultConfig())
	results2, final2 := Replay(context.Background(), f, pipeline.DefaultConfig())

	if diff := cmp.Diff(results1, results2); diff != "" {
		t.Errorf("results differ between runs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(final1, final2); diff != "" {
		t.Errorf("final states differ between runs (-first +second):\n%s", diff)
	}
}
