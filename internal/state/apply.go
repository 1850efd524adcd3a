package state

// #region imports
import (
	"github.com/catcatAI/story-engine/internal/story"
)

// #endregion

// #region apply
// Apply is a pure function that folds a resolved turn into the story state.
// The input state is never mutated; the player action and the narration
// are appended to the log and every change list is applied in order.
func Apply(st story.State, action string, res story.TurnResult) story.State {
	next := st.Clone()

	next.Log = append(next.Log, story.Message{
		Author:  story.AuthorPlayer,
		Content: action,
	})
	next.Log = append(next.Log, story.Message{
		Author:     story.AuthorNarrator,
		Content:    res.Narrative,
		SpokenLine: res.SpokenLine,
		Dice:       res.Dice,
	})

	for _, c := range res.StatChanges {
		if next.Stats == nil {
			next.Stats = make(map[string]int)
		}
		next.Stats[c.Name] += c.Delta
	}

	for _, c := range res.InventoryChanges {
		if next.Inventory == nil {
			next.Inventory = make(map[string]int)
		}
		if c.Acquired {
			next.Inventory[c.Item] += c.Count
		} else {
			next.Inventory[c.Item] -= c.Count
			if next.Inventory[c.Item] <= 0 {
				delete(next.Inventory, c.Item)
			}
		}
	}

	for _, c := range res.CharacterChanges {
		if next.Characters == nil {
			next.Characters = make(map[string]string)
		}
		next.Characters[c.Name] = c.Note
	}

	for _, c := range res.VehicleChanges {
		if next.Vehicles == nil {
			next.Vehicles = make(map[string]string)
		}
		next.Vehicles[c.Name] = c.Status
	}

	for _, c := range res.PropertyChanges {
		if next.Properties == nil {
			next.Properties = make(map[string]string)
		}
		next.Properties[c.Name] = c.Status
	}

	for _, loc := range res.NewLocations {
		if !containsString(next.KnownLocations, loc) {
			next.KnownLocations = append(next.KnownLocations, loc)
		}
	}

	next.SuggestedActions = append([]string(nil), res.SuggestedActions...)

	// An open challenge keeps combat mode on for the next assessment.
	next.CombatMode = res.Challenge != ""

	return next
}

// #endregion apply

// #region helpers

func containsString(in []string, s string) bool {
	for _, v := range in {
		if v == s {
			return true
		}
	}
	return false
}

// #endregion helpers
