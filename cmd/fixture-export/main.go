package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/catcatAI/story-engine/internal/replay"
	"github.com/catcatAI/story-engine/internal/state"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to story_state.db")
	last := flag.Int("last", 8, "number of most recent turns to export")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --out path/to/fixture.json [--last N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *last, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

// run exports a fixture skeleton from a session database: the oldest
// ancestor of the exported window as the start state, one turn per turn_log
// row, and the logged outcome and tier as expectations. Response scripts are
// left empty; record them with a recording client or fill them in by hand.
func run(dbPath string, last int, outPath string) error {
	store, err := state.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	all, err := state.ListTurns(store.DB(), last)
	if err != nil {
		return fmt.Errorf("list turns: %w", err)
	}
	// Rollbacks are pointer moves, not replayable player actions.
	var turns []state.TurnLogEntry
	for _, t := range all {
		if t.Outcome != "rolled_back" {
			turns = append(turns, t)
		}
	}
	if len(turns) == 0 {
		return fmt.Errorf("no turns logged in %s", dbPath)
	}

	// ListTurns returns newest first; the fixture wants session order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	// The start state is the parent of the window's first committed version.
	first, err := store.GetVersion(turns[0].VersionID)
	if err != nil {
		return fmt.Errorf("get version %s: %w", turns[0].VersionID, err)
	}
	start := first.State
	if first.ParentID != "" {
		parent, err := store.GetVersion(first.ParentID)
		if err != nil {
			return fmt.Errorf("get parent version %s: %w", first.ParentID, err)
		}
		start = parent.State
	}

	f := &replay.Fixture{
		Description: fmt.Sprintf("exported from %s (last %d turn(s))", dbPath, len(turns)),
		StartState:  start,
	}
	for _, t := range turns {
		f.Turns = append(f.Turns, replay.FixtureTurn{
			TurnID: t.TurnID,
			Action: t.Action,
		})
		f.Expected = append(f.Expected, replay.FixtureExpectation{
			TurnID:  t.TurnID,
			Outcome: t.Outcome,
			Tier:    t.Tier,
		})
	}

	if err := replay.SaveFixture(outPath, f); err != nil {
		return err
	}
	fmt.Printf("Exported %d turn(s) to %s\n", len(f.Turns), outPath)
	fmt.Println("Note: response scripts are empty; fill them in before replaying.")
	return nil
}

// #endregion export
