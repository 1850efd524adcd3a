package pipeline

// #region imports
import (
	"fmt"
	"strings"

	"github.com/catcatAI/story-engine/internal/provider"
	"github.com/catcatAI/story-engine/internal/story"
	"github.com/catcatAI/story-engine/internal/tier"
)

// #endregion

// #region instructions

const queryInstruction = `You are the archivist for an ongoing interactive story.
Given the current scene and the player's proposed action, decide which past
events you need to look up before narrating the outcome.

Rules:
- Reply with a JSON object of the form {"queries": ["...", "..."]}.
- Each query is a short phrase to match against the story log.
- Return {"queries": []} when the scene context is already sufficient.
- Never reply with anything other than that JSON object.`

const narratorRules = `Rules:
- Write in second person, present tense.
- Never speak for the player or decide their next action.
- Stay consistent with every established fact in the context.
- Reply with a single JSON object matching the requested fields.
- Always include at least two suggestedActions for the player.`

const efficiencyInstruction = `You are the narrator of an interactive story.
Resolve the player's action briskly: two or three sentences, no digressions,
keep the scene moving.

` + narratorRules

const logicInstruction = `You are the narrator of an interactive story.
Resolve the player's action deliberately: weigh the consequences, respect
established causality, and let earlier events constrain what can happen now.
Use a dice outcome when the action could plausibly fail.

` + narratorRules

const securityInstruction = `You are the narrator of an interactive story at
a high-stakes moment. The player's action carries real risk. Resolve it with
full weight: consider who gets hurt, what is lost, and what changes
permanently. Prefer a dice outcome and include a challenge describing the
danger now in play.

` + narratorRules

const flavorInstruction = `You are the narrator of an interactive story.
Reply with exactly one short atmospheric sentence that adds texture to the
scene. No JSON, no quotation marks, no commentary.`

const summaryInstruction = `You are the chronicler of an interactive story.
Condense the story so far into one tight recap paragraph covering the facts
a narrator must not contradict. Plain prose, no lists.`

const suggestionsInstruction = `You are the narrator of an interactive story.
Propose fresh actions the player could take next in the current scene.
Reply with a JSON object of the form {"queries": ["...", "..."]} where each
entry is one suggested action.`

const portraitInstruction = `You are an art director for an interactive
story. Write one concise image-generation brief (a single paragraph)
depicting the requested subject as established in the story context.`

const audioInstruction = `You are a sound designer for an interactive story.
Write one concise ambience brief (a single paragraph) describing the
soundscape of the current scene.`

// #endregion instructions

// #region instruction-selection

// instructionFor maps a tier to its narrator instruction.
func instructionFor(t tier.Tier) string {
	switch t {
	case tier.TierSecurity:
		return securityInstruction
	case tier.TierLogic:
		return logicInstruction
	default:
		return efficiencyInstruction
	}
}

// targetFor maps a tier to its preferred provider target.
func targetFor(t tier.Tier) provider.Target {
	if t == tier.TierSecurity {
		return provider.TargetAdvanced
	}
	return provider.TargetPrimary
}

// #endregion instruction-selection

// #region context-builders

const recentSceneEntries = 12

// phase1Context carries just enough scene for the provider to name queries.
func phase1Context(st story.State, action string) string {
	var b strings.Builder
	writeSummary(&b, st)
	writeRecentScenes(&b, st, 4)
	fmt.Fprintf(&b, "## Player action\n%s\n", action)
	return b.String()
}

// phase2Context is the full narration request body.
func phase2Context(st story.State, action, memories, reference string) string {
	var b strings.Builder
	writeSummary(&b, st)
	writeWorldState(&b, st)
	writeRecentScenes(&b, st, recentSceneEntries)
	if memories != "" {
		b.WriteString("## Retrieved memories\n")
		b.WriteString(memories)
		b.WriteString("\n")
	}
	if reference != "" {
		b.WriteString("## Reference material\n")
		b.WriteString(reference)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "## Player action\n%s\n", action)
	return b.String()
}

// flavorContext gives the phase-3 call the resolved narration to color.
func flavorContext(st story.State, narrative string) string {
	var b strings.Builder
	writeSummary(&b, st)
	fmt.Fprintf(&b, "## What just happened\n%s\n", narrative)
	return b.String()
}

func summaryContext(st story.State) string {
	var b strings.Builder
	writeSummary(&b, st)
	writeRecentScenes(&b, st, len(st.Log))
	return b.String()
}

func suggestionsContext(st story.State) string {
	var b strings.Builder
	writeSummary(&b, st)
	writeRecentScenes(&b, st, 6)
	return b.String()
}

func briefContext(st story.State, subject string) string {
	var b strings.Builder
	writeSummary(&b, st)
	writeRecentScenes(&b, st, 6)
	fmt.Fprintf(&b, "## Subject\n%s\n", subject)
	return b.String()
}

func writeSummary(b *strings.Builder, st story.State) {
	if st.Summary == "" {
		return
	}
	b.WriteString("## Story so far\n")
	b.WriteString(st.Summary)
	b.WriteString("\n\n")
}

func writeWorldState(b *strings.Builder, st story.State) {
	if len(st.Stats) == 0 && len(st.Inventory) == 0 && len(st.KnownLocations) == 0 && !st.CombatMode {
		return
	}
	b.WriteString("## World state\n")
	if st.CombatMode {
		b.WriteString("Combat is underway.\n")
	}
	for name, v := range st.Stats {
		fmt.Fprintf(b, "Stat %s: %d\n", name, v)
	}
	for item, count := range st.Inventory {
		fmt.Fprintf(b, "Carrying: %s x%d\n", item, count)
	}
	if len(st.KnownLocations) > 0 {
		fmt.Fprintf(b, "Known locations: %s\n", strings.Join(st.KnownLocations, ", "))
	}
	b.WriteString("\n")
}

func writeRecentScenes(b *strings.Builder, st story.State, n int) {
	if len(st.Log) == 0 {
		return
	}
	start := len(st.Log) - n
	if start < 0 {
		start = 0
	}
	b.WriteString("## Recent scenes\n")
	for _, m := range st.Log[start:] {
		fmt.Fprintf(b, "%s: %s", m.Author, m.Content)
		if m.SpokenLine != "" {
			fmt.Fprintf(b, " %q", m.SpokenLine)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// #endregion context-builders
