package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/catcatAI/story-engine/internal/config"
	"github.com/catcatAI/story-engine/internal/memory"
	"github.com/catcatAI/story-engine/internal/pipeline"
	"github.com/catcatAI/story-engine/internal/provider"
	"github.com/catcatAI/story-engine/internal/scheduler"
	"github.com/catcatAI/story-engine/internal/state"
	"github.com/catcatAI/story-engine/internal/story"
)

// #region main
func main() {
	configPath := flag.String("config", "story.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize state store
	store, err := state.NewStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	// Ensure initial state exists
	current, err := store.GetCurrent()
	if err != nil {
		log.Println("No active state found, creating initial state...")
		current, err = store.CreateInitialState(openingState())
		if err != nil {
			log.Fatalf("failed to create initial state: %v", err)
		}
	}

	router, closeProviders, err := buildProviders(cfg.Provider)
	if err != nil {
		log.Fatalf("failed to set up providers: %v", err)
	}
	defer closeProviders()

	engine := pipeline.NewEngine(router, pipelineConfig(cfg.Pipeline),
		scheduler.Config{DefaultTimeout: cfg.Scheduler.TaskTimeout()})
	defer engine.Close()

	unsubscribe := engine.Scheduler().Subscribe(func(busy bool, tasks []scheduler.TaskSummary) {
		if busy && len(tasks) > 1 {
			log.Printf("[MAIN] %d task(s) pending", len(tasks))
		}
	})
	defer unsubscribe()

	fmt.Println("Story engine ready.")
	fmt.Printf("  DB: %s | version: %s\n", cfg.DBPath, current.VersionID)
	fmt.Println("Type an action, or: summary, suggest, log, rollback, portrait <subject>, audio <scene>, quit")

	repl(store, engine)
}

// #endregion main

// #region repl

func repl(store *state.Store, engine *pipeline.Engine) {
	scanner := bufio.NewScanner(os.Stdin)
	turnNum := 0

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "quit" || line == "exit":
			return
		case line == "summary":
			runSummary(store, engine)
			continue
		case line == "suggest":
			runSuggest(store, engine)
			continue
		case line == "log":
			printTurnLog(store)
			continue
		case line == "rollback":
			runRollback(store, engine)
			continue
		case strings.HasPrefix(line, "portrait "):
			runBrief(store, engine, "portrait", strings.TrimPrefix(line, "portrait "))
			continue
		case strings.HasPrefix(line, "audio "):
			runBrief(store, engine, "audio", strings.TrimPrefix(line, "audio "))
			continue
		}

		turnNum++
		runTurn(store, engine, fmt.Sprintf("turn-%d", turnNum), line)
	}
}

func runTurn(store *state.Store, engine *pipeline.Engine, turnID, action string) {
	current, err := store.GetCurrent()
	if err != nil {
		log.Printf("error getting current state: %v", err)
		return
	}

	done := make(chan struct{})
	var outcome pipeline.Outcome
	var turnErr error

	engine.SubmitTurn(action, current.State, "", pipeline.TurnCallbacks{
		OnSuccess: func(o pipeline.Outcome) {
			outcome = o
			close(done)
		},
		OnError: func(err error) {
			turnErr = err
			close(done)
		},
		OnFallback: func() {
			log.Println("[MAIN] primary backend failed, retrying on fallback")
		},
	})
	<-done

	if turnErr != nil {
		// Nothing was committed; the story stays at the pre-turn version.
		log.Printf("turn failed: %v", turnErr)
		return
	}

	res := outcome.TurnResult
	fmt.Printf("\n%s\n", res.Narrative)
	if res.SpokenLine != "" {
		fmt.Printf("  %q\n", res.SpokenLine)
	}
	if res.Dice != nil {
		verdict := "failure"
		if res.Dice.Success {
			verdict = "success"
		}
		fmt.Printf("  [%s check: rolled %d vs %d, %s]\n",
			res.Dice.Skill, res.Dice.Roll, res.Dice.Target, verdict)
	}
	if res.Flavor != "" {
		fmt.Printf("  %s\n", res.Flavor)
	}
	if len(res.SuggestedActions) > 0 {
		fmt.Println("\nYou could:")
		for _, a := range res.SuggestedActions {
			fmt.Printf("  - %s\n", a)
		}
	}
	fmt.Println()

	rec, err := store.CommitTurn(turnID, action, res, outcome.Snapshot())
	if err != nil {
		log.Printf("commit error: %v", err)
		return
	}

	fmt.Printf("[%s] tier=%s combined=%.2f chaos=%.2f version=%s\n",
		turnID, outcome.Tier, outcome.CombinedScore, outcome.ChaosFactor, rec.VersionID)
}

// #endregion repl

// #region commands

func runSummary(store *state.Store, engine *pipeline.Engine) {
	current, err := store.GetCurrent()
	if err != nil {
		log.Printf("error getting current state: %v", err)
		return
	}

	done := make(chan struct{})
	engine.SubmitSummary(current.State,
		func(summary string) {
			fmt.Printf("\n%s\n\n", summary)
			close(done)
		},
		func(err error) {
			log.Printf("summary failed: %v", err)
			close(done)
		})
	<-done
}

func runSuggest(store *state.Store, engine *pipeline.Engine) {
	current, err := store.GetCurrent()
	if err != nil {
		log.Printf("error getting current state: %v", err)
		return
	}

	done := make(chan struct{})
	engine.SubmitSuggestions(current.State, func(suggestions []string) {
		fmt.Println("\nYou could:")
		for _, a := range suggestions {
			fmt.Printf("  - %s\n", a)
		}
		fmt.Println()
		close(done)
	})
	<-done
}

// runBrief submits a portrait or audio brief task and prints the result.
func runBrief(store *state.Store, engine *pipeline.Engine, kind, subject string) {
	current, err := store.GetCurrent()
	if err != nil {
		log.Printf("error getting current state: %v", err)
		return
	}

	done := make(chan struct{})
	onSuccess := func(brief string) {
		fmt.Printf("\n%s\n\n", brief)
		close(done)
	}
	onError := func(err error) {
		log.Printf("%s brief failed: %v", kind, err)
		close(done)
	}
	if kind == "portrait" {
		engine.SubmitPortrait(current.State, subject, onSuccess, onError)
	} else {
		engine.SubmitAudio(current.State, subject, onSuccess, onError)
	}
	<-done
}

func printTurnLog(store *state.Store) {
	turns, err := state.ListTurns(store.DB(), 10)
	if err != nil {
		log.Printf("error listing turns: %v", err)
		return
	}
	if len(turns) == 0 {
		fmt.Println("No turns recorded yet.")
		return
	}
	for _, t := range turns {
		fmt.Printf("[%s] %s  tier=%s outcome=%s combined=%.2f\n",
			t.TurnID, t.Action, t.Tier, t.Outcome, t.CombinedScore)
	}
}

// runRollback moves the active pointer back to the current version's parent.
// Any queued background tasks built on the abandoned version are dropped.
func runRollback(store *state.Store, engine *pipeline.Engine) {
	current, err := store.GetCurrent()
	if err != nil {
		log.Printf("error getting current state: %v", err)
		return
	}
	if current.ParentID == "" {
		fmt.Println("Already at the initial state.")
		return
	}

	engine.Scheduler().Clear()

	if err := store.Rollback(current.ParentID); err != nil {
		log.Printf("rollback error: %v", err)
		return
	}
	err = state.LogTurn(store.DB(), state.TurnLogEntry{
		VersionID: current.ParentID,
		TurnID:    fmt.Sprintf("rollback-%d", time.Now().Unix()),
		Action:    "rollback",
		Outcome:   "rolled_back",
		Detail:    "abandoned " + current.VersionID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("logging error: %v", err)
	}
	fmt.Printf("Rolled back to version %s\n", current.ParentID)
}

// #endregion commands

// #region setup

// buildProviders assembles the generation backends. With a Gemini key the
// primary and advanced targets share one Gemini client and Ollama serves the
// fallback retry; without a key Ollama serves everything.
func buildProviders(cfg config.ProviderConfig) (provider.Client, func(), error) {
	ollamaClient, ollamaErr := provider.NewOllamaClient(provider.OllamaConfig{Model: cfg.OllamaModel})

	if cfg.GeminiAPIKey == "" {
		if ollamaErr != nil {
			return nil, nil, fmt.Errorf("no Gemini API key and no Ollama: %w", ollamaErr)
		}
		log.Println("[MAIN] no Gemini API key set, using Ollama for all targets")
		return provider.NewRouter(ollamaClient, nil, nil), func() {}, nil
	}

	geminiCfg := provider.DefaultGeminiConfig(cfg.GeminiAPIKey)
	if cfg.PrimaryModel != "" {
		geminiCfg.PrimaryModel = cfg.PrimaryModel
	}
	if cfg.AdvancedModel != "" {
		geminiCfg.AdvancedModel = cfg.AdvancedModel
	}
	gemini, err := provider.NewGeminiClient(context.Background(), geminiCfg)
	if err != nil {
		return nil, nil, err
	}

	var fallback provider.Client
	if ollamaErr == nil {
		fallback = ollamaClient
	} else {
		log.Printf("[MAIN] Ollama unavailable, fallback retries stay on Gemini: %v", ollamaErr)
	}
	closeFn := func() {
		if err := gemini.Close(); err != nil {
			log.Printf("error closing Gemini client: %v", err)
		}
	}
	return provider.NewRouter(gemini, gemini, fallback), closeFn, nil
}

func pipelineConfig(cfg config.PipelineConfig) pipeline.Config {
	pc := pipeline.DefaultConfig()
	if cfg.Temperature != 0 {
		pc.Temperature = cfg.Temperature
	}
	if cfg.FlavorTemperature != 0 {
		pc.FlavorTemperature = cfg.FlavorTemperature
	}
	if cfg.MaxMemoryMatches != 0 {
		pc.Search = memory.SearchConfig{MaxMatches: cfg.MaxMemoryMatches}
	}
	return pc
}

// openingState seeds a fresh database with a playable scene.
func openingState() story.State {
	return story.State{
		Log: []story.Message{
			{
				Author:  story.AuthorNarrator,
				Content: "You wake in a roadside inn at the edge of the borderlands. Rain taps the shutters, and somewhere below a fire crackles. What do you do?",
			},
		},
		SuggestedActions: []string{
			"Head downstairs to the common room",
			"Look out the window",
			"Check your belongings",
		},
		Stats: map[string]int{"health": 10, "coin": 15},
		Inventory: map[string]int{
			"traveling cloak": 1,
			"rations":         3,
		},
		KnownLocations: []string{"roadside inn"},
	}
}

// #endregion setup
