package indexer

import (
	"regexp"
	"strings"
)

// Canonical proposal section names. A chunk that falls inside a recognized
// section carries its name so retrieval can favor, say, approach text when a
// query asks about methodology.
const (
	SectionUnderstanding = "understanding"
	SectionApproach      = "approach"
	SectionTimeline      = "timeline"
	SectionProblem       = "problem"
)

var sectionPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{SectionUnderstanding, regexp.MustCompile(`(?i)^(?:\d+[.)]\s*)?(?:our\s+)?understanding\b`)},
	{SectionApproach, regexp.MustCompile(`(?i)^(?:\d+[.)]\s*)?(?:our\s+|proposed\s+)?(?:approach|methodology|scope\s+of\s+work|work\s*plan)\b`)},
	{SectionTimeline, regexp.MustCompile(`(?i)^(?:\d+[.)]\s*)?(?:project\s+|proposed\s+)?(?:timeline|timing|schedule|milestones)\b`)},
	{SectionProblem, regexp.MustCompile(`(?i)^(?:\d+[.)]\s*)?(?:the\s+)?(?:problem|situation|background|challenge|current\s+state)\b`)},
}

// ExtractSections scans normalized text for proposal section headers and
// returns the body text of each recognized section, keyed by canonical name.
// A section runs from its header line to the next header-looking line. Only
// the first occurrence of each section is kept.
func ExtractSections(text string) map[string]string {
	sections := make(map[string]string)
	lines := strings.Split(text, "\n")

	current := ""
	var body []string

	flush := func() {
		if current == "" {
			return
		}
		if _, seen := sections[current]; !seen {
			sections[current] = strings.TrimSpace(strings.Join(body, "\n"))
		}
		current = ""
		body = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if name, ok := matchSectionHeader(trimmed); ok {
			flush()
			current = name
			continue
		}
		if current != "" {
			if isHeaderLine(trimmed) {
				flush()
				continue
			}
			body = append(body, line)
		}
	}
	flush()

	return sections
}

// matchSectionHeader reports whether a line is one of the recognized proposal
// section headers. Only short lines qualify, so body sentences that happen to
// start with a section word don't open a section.
func matchSectionHeader(line string) (string, bool) {
	if line == "" || len(line) > 60 {
		return "", false
	}
	if strings.HasSuffix(line, ".") && !strings.HasSuffix(line, "..") {
		return "", false
	}
	for _, p := range sectionPatterns {
		if p.re.MatchString(line) {
			return p.name, true
		}
	}
	return "", false
}

// isHeaderLine is a loose heuristic for "some other section starts here":
// a short line ending with a colon, or a short all-caps line.
func isHeaderLine(line string) bool {
	if line == "" || len(line) > 60 {
		return false
	}
	if strings.HasSuffix(line, ":") {
		return true
	}
	hasLetter := false
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			hasLetter = true
		}
	}
	return hasLetter
}

// sectionForChunk labels a chunk with the section whose body contains it.
// Both sides are whitespace-normalized the same way the chunker normalizes,
// so containment is a plain substring check. Overlap seeding means a chunk
// can start with the previous section's tail; the section owning the larger
// share of the chunk wins, which here reduces to checking the chunk's second
// half first.
func sectionForChunk(chunk string, sections map[string]string) string {
	probe := chunk
	if words := strings.Fields(chunk); len(words) > 4 {
		probe = strings.Join(words[len(words)/2:], " ")
	}
	for _, name := range []string{SectionUnderstanding, SectionApproach, SectionTimeline, SectionProblem} {
		bodyText, ok := sections[name]
		if !ok || bodyText == "" {
			continue
		}
		normalized := strings.Join(strings.Fields(bodyText), " ")
		if strings.Contains(normalized, probe) {
			return name
		}
	}
	return ""
}
