package pipeline

// #region imports
import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/catcatAI/story-engine/internal/memory"
	"github.com/catcatAI/story-engine/internal/provider"
	"github.com/catcatAI/story-engine/internal/story"
	"github.com/catcatAI/story-engine/internal/tier"
)

// #endregion

// #region errors

// ErrParse marks a terminal phase-2 failure: the provider's structured
// document could not be decoded into a turn result.
var ErrParse = errors.New("pipeline: turn result parse failure")

// #endregion errors

// #region config

// Config tunes the turn pipeline.
type Config struct {
	// Temperature for phase-2 narration.
	Temperature float32
	// FlavorTemperature for the optional phase-3 call.
	FlavorTemperature float32
	// QueryTemperature for the phase-1 query-selection call.
	QueryTemperature float32
	Search           memory.SearchConfig
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Temperature:       0.8,
		FlavorTemperature: 1.2,
		QueryTemperature:  0.2,
		Search:            memory.DefaultSearchConfig(),
	}
}

// #endregion config

// #region outcome

// Outcome is delivered to a turn task's success callback.
type Outcome struct {
	TurnResult    story.TurnResult
	CombinedScore float64
	Tier          tier.Tier
	ChaosFactor   float64
}

// Snapshot converts the outcome's cognitive fields to their persisted form.
func (o Outcome) Snapshot() story.CognitiveSnapshot {
	return story.CognitiveSnapshot{
		CombinedScore: o.CombinedScore,
		Tier:          string(o.Tier),
		ChaosFactor:   o.ChaosFactor,
	}
}

// defaultSuggestions backfill a result whose provider returned none.
var defaultSuggestions = []string{
	"Look around",
	"Continue onward",
	"Take stock of your belongings",
}

// #endregion outcome

// #region pipeline

// Pipeline runs the retrieve-then-generate turn state machine.
type Pipeline struct {
	provider provider.Client
	cfg      Config
}

// New creates a pipeline over the given provider.
func New(p provider.Client, cfg Config) *Pipeline {
	if cfg.Temperature == 0 {
		cfg = DefaultConfig()
	}
	return &Pipeline{provider: p, cfg: cfg}
}

// #endregion pipeline

// #region run-turn

// RunTurn processes one player action: score, retrieve, narrate, and for the
// Security tier add optional flavor. onFallback fires at most once when a
// transport failure routes the turn to the secondary target.
func (p *Pipeline) RunTurn(ctx context.Context, st story.State, action, reference string, onFallback func()) (Outcome, error) {
	// Scoring. Pure, recomputed every turn.
	assessment := tier.Assess(st, action)
	log.Printf("[PIPE] tier=%s combined=%.2f (intent=%.2f flow=%.2f novelty=%.2f)",
		assessment.Tier, assessment.Combined, assessment.Intent, assessment.Flow, assessment.Novelty)

	r := &run{p: p, target: targetFor(assessment.Tier), onFallback: onFallback}

	// Phase 1: ask the provider which memories it needs.
	queries, err := r.requestQueries(ctx, st, action)
	if err != nil {
		return Outcome{}, err
	}

	// Query search over the story log. Zero queries is the cheap path.
	memories := memory.Search(st.Log, queries, p.cfg.Search)

	// Phase 2: the structured narration request.
	result, err := r.requestTurnResult(ctx, assessment.Tier, st, action, memories, reference)
	if err != nil {
		return Outcome{}, err
	}

	// Suggested actions are never empty by the time a caller sees them.
	if len(result.SuggestedActions) == 0 {
		result.SuggestedActions = append([]string(nil), defaultSuggestions...)
	}

	out := Outcome{
		TurnResult:    result,
		CombinedScore: assessment.Combined,
		Tier:          assessment.Tier,
	}

	// Phase 3, Security tier only. Failure is absorbed: the turn still
	// resolves, with no flavor and a zero chaos factor.
	if assessment.Tier == tier.TierSecurity {
		flavor, err := r.requestFlavor(ctx, st, result.Narrative)
		if err != nil {
			log.Printf("[PIPE] flavor request failed, continuing without: %v", err)
		} else if flavor != "" {
			out.TurnResult.Flavor = flavor
			out.ChaosFactor = assessment.Novelty
		}
	}

	return out, nil
}

// #endregion run-turn

// #region run-state

// run tracks the provider target across the phases of one task. After one
// fallback switch the remaining phases stay on the secondary target.
type run struct {
	p          *Pipeline
	target     provider.Target
	fellBack   bool
	onFallback func()
}

// generate issues a call with the single internal fallback retry. Shape
// errors are returned as-is; each phase decides how to treat them.
func (r *run) generate(ctx context.Context, req provider.Request) (provider.Response, error) {
	req.Target = r.target
	resp, err := r.p.provider.Generate(ctx, req)
	if err == nil || errors.Is(err, provider.ErrShape) || ctx.Err() != nil {
		return resp, err
	}
	if r.fellBack {
		return resp, err
	}

	log.Printf("[PIPE] %s target failed, retrying on fallback: %v", r.target, err)
	r.fellBack = true
	r.target = provider.TargetFallback
	if r.onFallback != nil {
		r.onFallback()
	}
	req.Target = r.target
	return r.p.provider.Generate(ctx, req)
}

// #endregion run-state

// #region phases

// requestQueries runs phase 1. A non-compliant response is a recoverable
// degradation: the turn proceeds with no retrieved memory.
func (r *run) requestQueries(ctx context.Context, st story.State, action string) ([]string, error) {
	resp, err := r.generate(ctx, provider.Request{
		Instruction: queryInstruction,
		Context:     phase1Context(st, action),
		Shape:       provider.ShapeQueries,
		Temperature: r.p.cfg.QueryTemperature,
	})
	if err != nil {
		if errors.Is(err, provider.ErrShape) {
			log.Printf("[PIPE] provider skipped the query choice, proceeding without memory: %v", err)
			return nil, nil
		}
		return nil, fmt.Errorf("phase 1: %w", err)
	}
	return resp.Queries, nil
}

// requestTurnResult runs phase 2. A malformed document is terminal.
func (r *run) requestTurnResult(ctx context.Context, t tier.Tier, st story.State, action, memories, reference string) (story.TurnResult, error) {
	resp, err := r.generate(ctx, provider.Request{
		Instruction: instructionFor(t),
		Context:     phase2Context(st, action, memories, reference),
		Shape:       provider.ShapeTurnResult,
		Temperature: r.p.cfg.Temperature,
	})
	if err != nil {
		if errors.Is(err, provider.ErrShape) {
			return story.TurnResult{}, fmt.Errorf("%w: %v", ErrParse, err)
		}
		return story.TurnResult{}, fmt.Errorf("phase 2: %w", err)
	}

	var result story.TurnResult
	if err := json.Unmarshal(resp.Document, &result); err != nil {
		return story.TurnResult{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if strings.TrimSpace(result.Narrative) == "" {
		return story.TurnResult{}, fmt.Errorf("%w: empty narrative", ErrParse)
	}
	return result, nil
}

// requestFlavor runs the optional phase 3.
func (r *run) requestFlavor(ctx context.Context, st story.State, narrative string) (string, error) {
	resp, err := r.generate(ctx, provider.Request{
		Instruction: flavorInstruction,
		Context:     flavorContext(st, narrative),
		Shape:       provider.ShapeFreeText,
		Temperature: r.p.cfg.FlavorTemperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// #endregion phases

// #region auxiliary-runs

// Summarize condenses the log into a recap paragraph.
func (p *Pipeline) Summarize(ctx context.Context, st story.State) (string, error) {
	r := &run{p: p, target: provider.TargetPrimary}
	resp, err := r.generate(ctx, provider.Request{
		Instruction: summaryInstruction,
		Context:     summaryContext(st),
		Shape:       provider.ShapeFreeText,
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("summary: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// RefreshSuggestions asks for fresh suggested actions. Best effort: any
// failure yields the deterministic defaults instead of an error.
func (p *Pipeline) RefreshSuggestions(ctx context.Context, st story.State) []string {
	r := &run{p: p, target: provider.TargetPrimary}
	resp, err := r.generate(ctx, provider.Request{
		Instruction: suggestionsInstruction,
		Context:     suggestionsContext(st),
		Shape:       provider.ShapeQueries,
		Temperature: 1.0,
	})
	if err != nil || len(resp.Queries) == 0 {
		if err != nil {
			log.Printf("[PIPE] suggestion refresh failed, using defaults: %v", err)
		}
		return append([]string(nil), defaultSuggestions...)
	}
	return resp.Queries
}

// PortraitBrief produces an image-generation brief for a subject.
func (p *Pipeline) PortraitBrief(ctx context.Context, st story.State, subject string) (string, error) {
	r := &run{p: p, target: provider.TargetPrimary}
	resp, err := r.generate(ctx, provider.Request{
		Instruction: portraitInstruction,
		Context:     briefContext(st, subject),
		Shape:       provider.ShapeFreeText,
		Temperature: 0.9,
	})
	if err != nil {
		return "", fmt.Errorf("portrait brief: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// AudioBrief produces an ambience brief for the current scene.
func (p *Pipeline) AudioBrief(ctx context.Context, st story.State, scene string) (string, error) {
	r := &run{p: p, target: provider.TargetPrimary}
	resp, err := r.generate(ctx, provider.Request{
		Instruction: audioInstruction,
		Context:     briefContext(st, scene),
		Shape:       provider.ShapeFreeText,
		Temperature: 0.9,
	})
	if err != nil {
		return "", fmt.Errorf("audio brief: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// #endregion auxiliary-runs
