package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/catcatAI/story-engine/internal/provider"
	"github.com/catcatAI/story-engine/internal/scheduler"
	"github.com/catcatAI/story-engine/internal/story"
	"github.com/catcatAI/story-engine/internal/tier"
)

// scriptStep is one canned provider response.
type scriptStep struct {
	resp provider.Response
	err  error
}

// scriptedProvider replays canned responses in order and records requests.
type scriptedProvider struct {
	mu       sync.Mutex
	steps    []scriptStep
	requests []provider.Request
}

func (s *scriptedProvider) Generate(ctx context.Context, req provider.Request) (provider.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.steps) == 0 {
		return provider.Response{}, errors.New("script exhausted")
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.resp, step.err
}

func queriesResp(queries ...string) scriptStep {
	return scriptStep{resp: provider.Response{Queries: queries}}
}

func documentResp(doc string) scriptStep {
	return scriptStep{resp: provider.Response{Document: []byte(doc), Text: doc}}
}

func textResp(text string) scriptStep {
	return scriptStep{resp: provider.Response{Text: text}}
}

func errStep(err error) scriptStep {
	return scriptStep{err: err}
}

func calmState() story.State {
	return story.State{
		Log: []story.Message{
			{Author: story.AuthorNarrator, Content: "The market square bustles around you."},
		},
		Summary: "You arrived in the city at dawn.",
	}
}

func combatState() story.State {
	return story.State{CombatMode: true}
}

func TestRunTurnHappyPath(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		queriesResp("market"),
		documentResp(`{"narrative": "You slip between the stalls.", "suggestedActions": ["Haggle", "Keep walking"]}`),
	}}
	pipe := New(p, DefaultConfig())

	out, err := pipe.RunTurn(context.Background(), calmState(), "hum a tune", "", nil)
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if out.TurnResult.Narrative != "You slip between the stalls." {
		t.Errorf("unexpected narrative %q", out.TurnResult.Narrative)
	}
	if len(out.TurnResult.SuggestedActions) != 2 {
		t.Errorf("expected provider suggestions preserved, got %v", out.TurnResult.SuggestedActions)
	}
	if out.Tier != tier.TierEfficiency {
		t.Errorf("expected efficiency tier, got %s", out.Tier)
	}
	if out.ChaosFactor != 0 {
		t.Errorf("expected zero chaos factor outside the security tier, got %f", out.ChaosFactor)
	}

	// Phase 2 request embeds the retrieved memory block.
	if len(p.requests) != 2 {
		t.Fatalf("expected 2 provider calls, got %d", len(p.requests))
	}
	if !strings.Contains(p.requests[1].Context, "Retrieved memories") {
		t.Errorf("phase 2 context missing memory block:\n%s", p.requests[1].Context)
	}
	if !strings.Contains(p.requests[1].Context, "market square") {
		t.Errorf("phase 2 context missing matched entry:\n%s", p.requests[1].Context)
	}
}

func TestRunTurnInjectsDefaultSuggestions(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		queriesResp(),
		documentResp(`{"narrative": "Nothing stirs."}`),
	}}
	pipe := New(p, DefaultConfig())

	out, err := pipe.RunTurn(context.Background(), calmState(), "hum a tune", "", nil)
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if len(out.TurnResult.SuggestedActions) == 0 {
		t.Fatal("expected default suggestions, got none")
	}
}

func TestRunTurnPhase1NonComplianceIsSoft(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		errStep(provider.ErrShape),
		documentResp(`{"narrative": "The day drags on."}`),
	}}
	pipe := New(p, DefaultConfig())

	out, err := pipe.RunTurn(context.Background(), calmState(), "hum a tune", "", nil)
	if err != nil {
		t.Fatalf("expected soft degradation, got %v", err)
	}
	if out.TurnResult.Narrative == "" {
		t.Error("expected a narrative despite phase-1 non-compliance")
	}
	// No memory block when no queries were returned.
	if strings.Contains(p.requests[1].Context, "Retrieved memories") {
		t.Errorf("unexpected memory block:\n%s", p.requests[1].Context)
	}
}

func TestRunTurnParseFailureIsTerminal(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		queriesResp(),
		errStep(provider.ErrShape),
	}}
	pipe := New(p, DefaultConfig())

	_, err := pipe.RunTurn(context.Background(), calmState(), "hum a tune", "", nil)
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestRunTurnFallbackFiresOnce(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		errStep(errors.New("connection refused")), // phase 1 on primary
		queriesResp(),                             // phase 1 on fallback
		documentResp(`{"narrative": "Recovered."}`),
	}}
	pipe := New(p, DefaultConfig())

	fallbacks := 0
	out, err := pipe.RunTurn(context.Background(), calmState(), "hum a tune", "", func() { fallbacks++ })
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if fallbacks != 1 {
		t.Errorf("expected exactly one fallback notification, got %d", fallbacks)
	}
	if out.TurnResult.Narrative != "Recovered." {
		t.Errorf("unexpected narrative %q", out.TurnResult.Narrative)
	}
	// Remaining phases stay on the fallback target.
	last := p.requests[len(p.requests)-1]
	if last.Target != provider.TargetFallback {
		t.Errorf("expected phase 2 on fallback target, got %s", last.Target)
	}
}

func TestRunTurnSecurityFlavor(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		queriesResp(),
		documentResp(`{"narrative": "Steel rings against steel.", "suggestedActions": ["Press the attack"]}`),
		textResp("Sparks scatter across the wet cobblestones."),
	}}
	pipe := New(p, DefaultConfig())

	out, err := pipe.RunTurn(context.Background(), combatState(), "attack the guard", "", nil)
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if out.Tier != tier.TierSecurity {
		t.Fatalf("expected security tier, got %s", out.Tier)
	}
	if out.TurnResult.Flavor == "" {
		t.Error("expected flavor sentence")
	}
	if out.ChaosFactor == 0 {
		t.Error("expected non-zero chaos factor with flavor present")
	}
	// Security tier prefers the advanced target.
	if p.requests[0].Target != provider.TargetAdvanced {
		t.Errorf("expected advanced target, got %s", p.requests[0].Target)
	}
}

func TestRunTurnChaosNonFatality(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		queriesResp(),
		documentResp(`{"narrative": "The blow lands.", "suggestedActions": ["Retreat"]}`),
		errStep(errors.New("flavor backend down")), // phase 3 on advanced
		errStep(errors.New("flavor backend down")), // phase 3 retry on fallback
	}}
	pipe := New(p, DefaultConfig())

	out, err := pipe.RunTurn(context.Background(), combatState(), "attack the guard", "", nil)
	if err != nil {
		t.Fatalf("expected flavor failure absorbed, got %v", err)
	}
	if out.TurnResult.Flavor != "" {
		t.Errorf("expected no flavor field, got %q", out.TurnResult.Flavor)
	}
	if out.ChaosFactor != 0 {
		t.Errorf("expected zero chaos factor, got %f", out.ChaosFactor)
	}
	if out.TurnResult.Narrative != "The blow lands." {
		t.Errorf("main result lost: %q", out.TurnResult.Narrative)
	}
}

func TestSubmitTurnRollbackScenario(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		queriesResp(),
		errStep(errors.New("backend down")), // phase 2 on primary
		errStep(errors.New("backend down")), // phase 2 on fallback
	}}
	engine := NewEngine(p, DefaultConfig(), scheduler.DefaultConfig())
	defer engine.Close()

	original := story.State{
		Log: []story.Message{
			{Author: story.AuthorNarrator, Content: "A guard blocks the gate."},
		},
		Stats:     map[string]int{"health": 10},
		Inventory: map[string]int{"dagger": 1},
	}

	// Optimistic-update pattern: snapshot, mutate, restore on error.
	snapshot := original.Clone()
	working := original.Clone()
	working.Log = append(working.Log, story.Message{Author: story.AuthorPlayer, Content: "attack the guard"})

	errCh := make(chan error, 1)
	engine.SubmitTurn("attack the guard", working, "", TurnCallbacks{
		OnSuccess: func(Outcome) { t.Error("unexpected success") },
		OnError:   func(err error) { errCh <- err },
	})

	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for OnError")
	}

	restored := snapshot.Clone()
	if diff := cmp.Diff(original, restored); diff != "" {
		t.Errorf("restored state differs from pre-submission state (-want +got):\n%s", diff)
	}
}

func TestSubmitTurnDeliversOutcome(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		queriesResp(),
		documentResp(`{"narrative": "You pass unnoticed.", "suggestedActions": ["Keep moving"]}`),
	}}
	engine := NewEngine(p, DefaultConfig(), scheduler.DefaultConfig())
	defer engine.Close()

	outCh := make(chan Outcome, 1)
	engine.SubmitTurn("hum a tune", calmState(), "", TurnCallbacks{
		OnSuccess: func(o Outcome) { outCh <- o },
		OnError:   func(err error) { t.Errorf("unexpected error: %v", err) },
	})

	select {
	case out := <-outCh:
		if out.TurnResult.Narrative != "You pass unnoticed." {
			t.Errorf("unexpected narrative %q", out.TurnResult.Narrative)
		}
		if len(out.TurnResult.SuggestedActions) == 0 {
			t.Error("suggested actions must never be empty")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for outcome")
	}
}

func TestRefreshSuggestionsFallsBackToDefaults(t *testing.T) {
	p := &scriptedProvider{steps: []scriptStep{
		errStep(errors.New("backend down")),
		errStep(errors.New("backend down")),
	}}
	pipe := New(p, DefaultConfig())

	got := pipe.RefreshSuggestions(context.Background(), calmState())
	if len(got) == 0 {
		t.Fatal("expected default suggestions")
	}
	if diff := cmp.Diff(defaultSuggestions, got); diff != "" {
		t.Errorf("expected deterministic defaults (-want +got):\n%s", diff)
	}
}

func TestPhase2ContextBlocks(t *testing.T) {
	st := calmState()
	st.Inventory = map[string]int{"rope": 1}
	ctx := phase2Context(st, "climb the wall", "### Records matching \"wall\"\n(no records found)\n", "city map")

	for _, want := range []string{"Story so far", "World state", "Recent scenes", "Retrieved memories", "Reference material", "Player action"} {
		if !strings.Contains(ctx, want) {
			t.Errorf("phase 2 context missing %q block:\n%s", want, ctx)
		}
	}
}
