package replay

import (
	"context"

	"github.com/catcatAI/story-engine/internal/pipeline"
	"github.com/catcatAI/story-engine/internal/state"
	"github.com/catcatAI/story-engine/internal/story"
)

// #region types

// ReplayResult captures the outcome of replaying one turn through the full
// pipeline against its recorded response script.
type ReplayResult struct {
	TurnID string
	Action string

	// Outcome is "resolved" or "failed".
	Outcome string
	Reason  string

	Tier          string
	CombinedScore float64
	ChaosFactor   float64

	// FellBack reports whether the turn consumed the internal fallback retry.
	FellBack bool

	// Narrative is empty for failed turns.
	Narrative string
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalTurns int
	Resolved   int
	Failed     int
	Fallbacks  int
	FinalState story.State
}

// #endregion types

// #region replay

// Replay iterates through the fixture's turns, running each action through
// the full pipeline with that turn's scripted responses. Resolved turns
// advance the state exactly as a live session would; failed turns leave it
// untouched. Operates entirely in-memory.
func Replay(ctx context.Context, f *Fixture, cfg pipeline.Config) ([]ReplayResult, story.State) {
	current := f.StartState
	results := make([]ReplayResult, 0, len(f.Turns))

	for _, turn := range f.Turns {
		script := NewScriptClient(turn.Responses)
		pipe := pipeline.New(script, cfg)

		fellBack := false
		out, err := pipe.RunTurn(ctx, current, turn.Action, "", func() { fellBack = true })

		r := ReplayResult{
			TurnID:   turn.TurnID,
			Action:   turn.Action,
			FellBack: fellBack,
		}
		if err != nil {
			r.Outcome = "failed"
			r.Reason = err.Error()
			results = append(results, r)
			continue
		}

		r.Outcome = "resolved"
		r.Tier = string(out.Tier)
		r.CombinedScore = out.CombinedScore
		r.ChaosFactor = out.ChaosFactor
		r.Narrative = out.TurnResult.Narrative

		current = state.Apply(current, turn.Action, out.TurnResult)
		results = append(results, r)
	}

	return results, current
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, finalState story.State) ReplaySummary {
	s := ReplaySummary{
		TotalTurns: len(results),
		FinalState: finalState,
	}
	for _, r := range results {
		switch r.Outcome {
		case "resolved":
			s.Resolved++
		case "failed":
			s.Failed++
		}
		if r.FellBack {
			s.Fallbacks++
		}
	}
	return s
}

// #endregion replay
