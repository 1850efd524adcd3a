package story

// #region message

// Author identifies who produced a log entry.
type Author string

const (
	AuthorPlayer   Author = "player"
	AuthorNarrator Author = "narrator"
)

// Message is one entry of the append-only story log.
type Message struct {
	Author     Author       `json:"author"`
	Content    string       `json:"content"`
	SpokenLine string       `json:"spoken_line,omitempty"`
	Dice       *DiceOutcome `json:"dice,omitempty"`
}

// #endregion message

// #region dice

// DiceOutcome records a resolved skill check attached to a message or turn.
type DiceOutcome struct {
	Roll    int    `json:"roll"`
	Target  int    `json:"target"`
	Skill   string `json:"skill,omitempty"`
	Success bool   `json:"success"`
}

// #endregion dice

// #region changes

// StatChange adjusts a named numeric stat by a delta.
type StatChange struct {
	Name  string `json:"name"`
	Delta int    `json:"delta"`
}

// InventoryChange adds or removes items from the player's inventory.
type InventoryChange struct {
	Item     string `json:"item"`
	Count    int    `json:"count"`
	Acquired bool   `json:"acquired"`
}

// CharacterChange updates what is known about a character.
type CharacterChange struct {
	Name string `json:"name"`
	Note string `json:"note,omitempty"`
}

// VehicleChange updates the status of a vehicle the player knows about.
type VehicleChange struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// PropertyChange updates the status of a property the player knows about.
type PropertyChange struct {
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// #endregion changes

// #region turn-result

// TurnResult is the structured document produced for one player turn.
// All change lists are optional; SuggestedActions is guaranteed non-empty
// by the time a result is delivered to a caller.
type TurnResult struct {
	Narrative        string            `json:"narrative"`
	SpokenLine       string            `json:"spokenLine,omitempty"`
	Dice             *DiceOutcome      `json:"dice,omitempty"`
	StatChanges      []StatChange      `json:"statChanges,omitempty"`
	InventoryChanges []InventoryChange `json:"inventoryChanges,omitempty"`
	CharacterChanges []CharacterChange `json:"characterChanges,omitempty"`
	VehicleChanges   []VehicleChange   `json:"vehicleChanges,omitempty"`
	PropertyChanges  []PropertyChange  `json:"propertyChanges,omitempty"`
	NewLocations     []string          `json:"newLocations,omitempty"`
	SuggestedActions []string          `json:"suggestedActions,omitempty"`
	Challenge        string            `json:"challenge,omitempty"`
	Flavor           string            `json:"flavor,omitempty"`
}

// #endregion turn-result

// #region cognitive-snapshot

// CognitiveSnapshot is persisted alongside each state version for
// observability. Per-axis scores are deliberately not part of it.
type CognitiveSnapshot struct {
	CombinedScore float64 `json:"combined_score"`
	Tier          string  `json:"tier"`
	ChaosFactor   float64 `json:"chaos_factor"`
}

// #endregion cognitive-snapshot

// #region state

// State is the full story state a turn is computed against. The core reads
// it; only the state store appends to the log or applies changes.
type State struct {
	Log              []Message         `json:"log"`
	Summary          string            `json:"summary,omitempty"`
	SuggestedActions []string          `json:"suggested_actions,omitempty"`
	CombatMode       bool              `json:"combat_mode"`
	Stats            map[string]int    `json:"stats,omitempty"`
	Inventory        map[string]int    `json:"inventory,omitempty"`
	Characters       map[string]string `json:"characters,omitempty"`
	Vehicles         map[string]string `json:"vehicles,omitempty"`
	Properties       map[string]string `json:"properties,omitempty"`
	KnownLocations   []string          `json:"known_locations,omitempty"`
}

// Clone returns a deep copy. Callers snapshot state before submitting a turn
// and restore the snapshot if the turn fails.
func (s State) Clone() State {
	out := s
	out.Log = make([]Message, len(s.Log))
	copy(out.Log, s.Log)
	for i, m := range s.Log {
		if m.Dice != nil {
			d := *m.Dice
			out.Log[i].Dice = &d
		}
	}
	out.SuggestedActions = copyStrings(s.SuggestedActions)
	out.KnownLocations = copyStrings(s.KnownLocations)
	out.Stats = copyIntMap(s.Stats)
	out.Inventory = copyIntMap(s.Inventory)
	out.Characters = copyStringMap(s.Characters)
	out.Vehicles = copyStringMap(s.Vehicles)
	out.Properties = copyStringMap(s.Properties)
	return out
}

// LastMessage returns the newest log entry, or nil for an empty log.
func (s State) LastMessage() *Message {
	if len(s.Log) == 0 {
		return nil
	}
	return &s.Log[len(s.Log)-1]
}

// #endregion state

// #region copy-helpers

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyIntMap(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// #endregion copy-helpers
