package memory

// #region imports
import (
	"fmt"
	"strings"

	"github.com/catcatAI/story-engine/internal/story"
)

// #endregion

// #region config

// SearchConfig bounds the size of retrieved excerpts.
type SearchConfig struct {
	// MaxMatches caps how many log entries one query may contribute.
	MaxMatches int
}

// DefaultSearchConfig returns sensible defaults.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{MaxMatches: 10}
}

// #endregion config

// #region search

// Search runs every query against the story log and formats the matches as
// one excerpt block per query, newest entries first. Matching is
// case-insensitive substring over narrative content and spoken lines. The
// log is never mutated; zero queries return an empty string.
func Search(log []story.Message, queries []string, cfg SearchConfig) string {
	if len(queries) == 0 {
		return ""
	}
	if cfg.MaxMatches <= 0 {
		cfg.MaxMatches = DefaultSearchConfig().MaxMatches
	}

	var b strings.Builder
	for _, query := range queries {
		q := strings.TrimSpace(query)
		if q == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "### Records matching %q\n", q)

		matches := matchQuery(log, strings.ToLower(q), cfg.MaxMatches)
		if len(matches) == 0 {
			b.WriteString("(no records found)\n")
			continue
		}
		for _, m := range matches {
			fmt.Fprintf(&b, "- %s: %s", m.Author, m.Content)
			if m.SpokenLine != "" {
				fmt.Fprintf(&b, " %q", m.SpokenLine)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// matchQuery walks the log newest-first and collects up to max entries
// whose content or spoken line contains the lowercased query.
func matchQuery(log []story.Message, lowerQuery string, max int) []story.Message {
	var matches []story.Message
	for i := len(log) - 1; i >= 0 && len(matches) < max; i-- {
		m := log[i]
		if strings.Contains(strings.ToLower(m.Content), lowerQuery) ||
			strings.Contains(strings.ToLower(m.SpokenLine), lowerQuery) {
			matches = append(matches, m)
		}
	}
	return matches
}

// #endregion search
