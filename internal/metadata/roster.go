package metadata

import (
	"strings"

	"github.com/xrash/smetrics"
)

// AuthorNotFound is stored when no rule candidate matches the consultant
// roster closely enough. It is a sentinel value, not an error: author absence
// is an expected state for many documents.
const AuthorNotFound = "not found"

// rosterMatchFloor is the minimum Jaro-Winkler similarity for a candidate to
// be accepted as a roster member. Below it, we prefer "not found" over a
// wrong attribution.
const rosterMatchFloor = 0.90

// Roster is the list of known consultants. Author extraction only ever
// attributes documents to roster members; fuzzy matching absorbs typos and
// OCR damage in the source text.
type Roster struct {
	names []string
}

func NewRoster(names []string) *Roster {
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return &Roster{names: cleaned}
}

// Match returns the roster name most similar to candidate and its similarity
// score. The canonical roster spelling is returned, not the candidate's.
func (r *Roster) Match(candidate string) (string, float64) {
	best := ""
	bestScore := 0.0
	normalized := normalizeName(candidate)
	if normalized == "" {
		return "", 0
	}
	for _, name := range r.names {
		score := smetrics.JaroWinkler(normalized, normalizeName(name), 0.7, 4)
		if score > bestScore {
			best = name
			bestScore = score
		}
	}
	return best, bestScore
}

// Contains reports whether candidate fuzzily matches any roster member.
func (r *Roster) Contains(candidate string) bool {
	_, score := r.Match(candidate)
	return score >= rosterMatchFloor
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
