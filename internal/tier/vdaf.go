package tier

// #region imports
import (
	"strings"

	"github.com/catcatAI/story-engine/internal/story"
)

// #endregion

// #region weights

const (
	weightIntent  = 0.50
	weightFlow    = 0.30
	weightNovelty = 0.20

	// Combined-score thresholds separating the three tiers.
	efficiencyCeiling = 0.35
	logicCeiling      = 0.65
)

// #endregion weights

// #region keywords

// riskWords mark actions with conflict or high-stakes intent.
var riskWords = []string{
	"attack", "steal", "hack", "confront", "fight", "kill",
	"threaten", "break into", "sneak", "ambush", "rob",
	"destroy", "shoot", "stab", "escape", "flee",
}

// routineWords mark ordinary world interaction.
var routineWords = []string{
	"ask", "use", "go", "examine", "craft", "talk",
	"look", "open", "take", "give", "buy", "sell",
	"read", "search", "walk", "follow",
}

// #endregion keywords

// #region assess

// Assess scores a proposed action against the current story state and
// selects a tier. Pure function, no side effects. Degenerate input yields
// valid low scores and the Efficiency tier rather than an error.
func Assess(st story.State, action string) Assessment {
	lower := strings.ToLower(strings.TrimSpace(action))

	a := Assessment{
		Intent:  intentScore(lower, st.CombatMode),
		Flow:    flowScore(lower, st),
		Novelty: noveltyScore(lower, st.Log),
	}
	a.Combined = clamp01(weightIntent*a.Intent + weightFlow*a.Flow + weightNovelty*a.Novelty)
	a.Tier = tierFor(a.Combined)
	return a
}

func tierFor(combined float64) Tier {
	switch {
	case combined <= efficiencyCeiling:
		return TierEfficiency
	case combined <= logicCeiling:
		return TierLogic
	default:
		return TierSecurity
	}
}

// #endregion assess

// #region intent

// intentScore classifies the action text via keyword heuristics. An active
// combat mode pins intent high regardless of vocabulary.
func intentScore(lower string, combatMode bool) float64 {
	if combatMode {
		return 1.0
	}
	for _, kw := range riskWords {
		if strings.Contains(lower, kw) {
			return 1.0
		}
	}
	words := strings.Fields(lower)
	for _, kw := range routineWords {
		for _, w := range words {
			if w == kw {
				return 0.4
			}
		}
	}
	return 0.1
}

// #endregion intent

// #region flow

// flowScore estimates how directly the action continues the current scene.
func flowScore(lower string, st story.State) float64 {
	// Verbatim match against a previously suggested action.
	for _, sug := range st.SuggestedActions {
		if strings.EqualFold(strings.TrimSpace(sug), lower) {
			return 0.9
		}
	}

	last := st.LastMessage()
	if last == nil {
		return 0.2
	}

	lastTokens := tokenize(last.Content + " " + last.SpokenLine)
	actionTokens := tokenize(lower)
	shared := sharedKeywords(lastTokens, actionTokens)

	// Answering an open question in the newest entry.
	if strings.Contains(last.Content, "?") || strings.Contains(last.SpokenLine, "?") {
		if shared > 0 {
			return 0.9
		}
	}
	if shared > 0 {
		return 0.5
	}
	return 0.2
}

// #endregion flow

// #region novelty

const (
	longActionWords  = 8
	leadingRuneLimit = 24
)

// noveltyScore is elevated for long actions and for actions whose opening
// text has not appeared anywhere in the log yet.
func noveltyScore(lower string, log []story.Message) float64 {
	words := strings.Fields(lower)
	if len(words) == 0 {
		return 0.3
	}
	if len(words) > longActionWords {
		return 0.8
	}

	lead := leadingSubstring(lower)
	for _, m := range log {
		if strings.Contains(strings.ToLower(m.Content), lead) ||
			strings.Contains(strings.ToLower(m.SpokenLine), lead) {
			return 0.3
		}
	}
	return 0.8
}

func leadingSubstring(lower string) string {
	runes := []rune(lower)
	if len(runes) > leadingRuneLimit {
		return string(runes[:leadingRuneLimit])
	}
	return lower
}

// #endregion novelty

// #region helpers

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
