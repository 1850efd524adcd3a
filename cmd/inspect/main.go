package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/catcatAI/story-engine/internal/state"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to story_state.db")
	last := flag.Int("last", 20, "show N most recent versions")
	version := flag.String("version", "", "show single version detail")
	turns := flag.Bool("turns", false, "show the turn log instead of versions")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/story_state.db [--last N] [--version id] [--turns] [--json]")
		os.Exit(2)
	}

	store, err := state.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *version != "":
		err = runDetailMode(store, *version, *jsonOut)
	case *turns:
		err = runTurnMode(store, *last, *jsonOut)
	default:
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	VersionID     string  `json:"version_id"`
	ParentID      string  `json:"parent_id,omitempty"`
	Active        bool    `json:"active"`
	LogEntries    int     `json:"log_entries"`
	Tier          string  `json:"tier,omitempty"`
	CombinedScore float64 `json:"combined_score"`
	ChaosFactor   float64 `json:"chaos_factor"`
	CreatedAt     string  `json:"created_at"`
}

func runListMode(store *state.Store, last int, jsonOut bool) error {
	versions, err := store.ListVersions(last)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		fmt.Fprintln(os.Stderr, "no versions found")
		return nil
	}

	activeID := ""
	if current, err := store.GetCurrent(); err == nil {
		activeID = current.VersionID
	}

	// Store returns DESC, reverse for chronological order.
	rows := make([]listRow, len(versions))
	for i, v := range versions {
		rows[len(versions)-1-i] = listRow{
			VersionID:     v.VersionID,
			ParentID:      v.ParentID,
			Active:        v.VersionID == activeID,
			LogEntries:    len(v.State.Log),
			Tier:          v.Cognitive.Tier,
			CombinedScore: v.Cognitive.CombinedScore,
			ChaosFactor:   v.Cognitive.ChaosFactor,
			CreatedAt:     v.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %-10s  %3s  %-10s  %8s  %6s  %s\n",
		"Version", "Parent", "Log", "Tier", "Combined", "Chaos", "Time")
	fmt.Printf("%-10s  %-10s  %3s  %-10s  %8s  %6s  %s\n",
		"----------", "----------", "---", "----------", "--------", "------", "--------------------")
	for _, r := range rows {
		marker := " "
		if r.Active {
			marker = "*"
		}
		tier := r.Tier
		if tier == "" {
			tier = "-"
		}
		fmt.Printf("%-9s%s  %-10s  %3d  %-10s  %8.2f  %6.2f  %s\n",
			shortID(r.VersionID), marker, shortID(r.ParentID), r.LogEntries,
			tier, r.CombinedScore, r.ChaosFactor, r.CreatedAt)
	}
	fmt.Println("\n(* marks the active version)")
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(store *state.Store, versionID string, jsonOut bool) error {
	v, err := store.GetVersion(versionID)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(v)
	}

	fmt.Printf("Version:  %s\n", v.VersionID)
	fmt.Printf("Parent:   %s\n", v.ParentID)
	fmt.Printf("Created:  %s\n", v.CreatedAt.Format("2006-01-02T15:04:05Z"))
	if v.Cognitive.Tier != "" {
		fmt.Printf("Tier:     %s (combined=%.2f chaos=%.2f)\n",
			v.Cognitive.Tier, v.Cognitive.CombinedScore, v.Cognitive.ChaosFactor)
	}

	st := v.State
	fmt.Printf("\nLog entries:  %d\n", len(st.Log))
	fmt.Printf("Combat mode:  %v\n", st.CombatMode)
	if st.Summary != "" {
		fmt.Printf("\nSummary:\n  %s\n", st.Summary)
	}
	if len(st.Stats) > 0 {
		fmt.Println("\nStats:")
		for k, n := range st.Stats {
			fmt.Printf("  %-16s %d\n", k, n)
		}
	}
	if len(st.Inventory) > 0 {
		fmt.Println("\nInventory:")
		for k, n := range st.Inventory {
			fmt.Printf("  %-16s x%d\n", k, n)
		}
	}
	if len(st.KnownLocations) > 0 {
		fmt.Println("\nKnown locations:")
		for _, l := range st.KnownLocations {
			fmt.Printf("  %s\n", l)
		}
	}
	if len(st.SuggestedActions) > 0 {
		fmt.Println("\nSuggested actions:")
		for _, a := range st.SuggestedActions {
			fmt.Printf("  - %s\n", a)
		}
	}
	if last := st.LastMessage(); last != nil {
		fmt.Printf("\nLast entry (%s):\n  %s\n", last.Author, last.Content)
	}
	return nil
}

// #endregion detail-mode

// #region turn-mode

func runTurnMode(store *state.Store, last int, jsonOut bool) error {
	turns, err := state.ListTurns(store.DB(), last)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		fmt.Fprintln(os.Stderr, "no turns found")
		return nil
	}

	if jsonOut {
		return printJSON(turns)
	}

	fmt.Printf("%-12s  %-10s  %-10s  %-12s  %8s  %s\n",
		"Turn", "Version", "Tier", "Outcome", "Combined", "Action")
	fmt.Printf("%-12s  %-10s  %-10s  %-12s  %8s  %s\n",
		"------------", "----------", "----------", "------------", "--------", "--------------------")
	for _, t := range turns {
		tier := t.Tier
		if tier == "" {
			tier = "-"
		}
		fmt.Printf("%-12s  %-10s  %-10s  %-12s  %8.2f  %s\n",
			t.TurnID, shortID(t.VersionID), tier, t.Outcome, t.CombinedScore, t.Action)
	}
	return nil
}

// #endregion turn-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
