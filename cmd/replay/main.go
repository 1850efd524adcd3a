package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/catcatAI/story-engine/internal/pipeline"
	"github.com/catcatAI/story-engine/internal/replay"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON")
	verbose := flag.Bool("verbose", false, "print narrative and failure reasons per turn")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--verbose]")
		os.Exit(2)
	}

	os.Exit(run(*fixturePath, *verbose))
}

func run(path string, verbose bool) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	results, final := replay.Replay(context.Background(), f, pipeline.DefaultConfig())

	if verbose {
		for _, r := range results {
			fmt.Printf("[%s] %s\n", r.TurnID, r.Action)
			if r.Outcome == "resolved" {
				fmt.Printf("  %s\n", r.Narrative)
			} else {
				fmt.Printf("  failed: %s\n", r.Reason)
			}
		}
		fmt.Println()
	}

	code := printComparison(results, f.Expected)

	summary := replay.Summarize(results, final)
	fmt.Printf("\nSummary: %d turn(s), %d resolved, %d failed, %d fallback(s), %d log entries\n",
		summary.TotalTurns, summary.Resolved, summary.Failed, summary.Fallbacks, len(summary.FinalState.Log))

	return code
}

// #endregion main

// #region output

// printComparison outputs a per-turn comparison table against the fixture's
// expectations and returns the process exit code.
func printComparison(results []replay.ReplayResult, expected []replay.FixtureExpectation) int {
	if len(expected) == 0 {
		fmt.Println("No expectations recorded in fixture; nothing to compare.")
		return 0
	}

	fmt.Printf("%-12s| %-10s| %-10s| %-12s| %-12s| %s\n",
		"Turn", "Expected", "Replayed", "Exp. tier", "Tier", "Match")
	fmt.Printf("%-12s+%-11s+%-11s+%-13s+%-13s+%s\n",
		"------------", "-----------", "-----------", "-------------", "-------------", "------")

	matches := 0
	total := len(results)
	if len(expected) < total {
		total = len(expected)
	}

	for i := 0; i < total; i++ {
		want := expected[i]
		got := results[i]

		match := "DIFF"
		if got.Outcome == want.Outcome && (want.Tier == "" || got.Tier == want.Tier) {
			match = "OK"
			matches++
		}

		fmt.Printf("%-12s| %-10s| %-10s| %-12s| %-12s| %s\n",
			got.TurnID, want.Outcome, got.Outcome, want.Tier, got.Tier, match)
	}

	if diverge := total - matches; diverge > 0 {
		fmt.Printf("\n%d turn(s) diverge from the recorded expectations\n", diverge)
		return 1
	}
	return 0
}

// #endregion output
