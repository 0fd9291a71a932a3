package metadata

import (
	"regexp"
	"strings"
)

// Confidence levels attached to rule matches. When several rules fire, higher
// confidence candidates are preferred before document order breaks ties.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Rule is one named pattern in an extraction cascade. The first capture group
// is the candidate value.
type Rule struct {
	Name       string
	Confidence string
	re         *regexp.Regexp
}

// Candidate is a value matched by a rule, tagged with its provenance.
type Candidate struct {
	Value      string
	Rule       string
	Confidence string
}

var authorRules = []Rule{
	{
		Name:       "prepared-by",
		Confidence: ConfidenceHigh,
		re:         regexp.MustCompile(`(?im)^\s*prepared\s+by[:\s]+([A-Z][A-Za-z.'-]+(?:\s+[A-Z][A-Za-z.'-]+){1,3})`),
	},
	{
		Name:       "signature-block",
		Confidence: ConfidenceHigh,
		re:         regexp.MustCompile(`(?im)^\s*(?:sincerely|best\s+regards|regards|respectfully)[,.]?\s*\n+\s*([A-Z][A-Za-z.'-]+(?:\s+[A-Z][A-Za-z.'-]+){1,3})`),
	},
	{
		Name:       "role-line",
		Confidence: ConfidenceMedium,
		re:         regexp.MustCompile(`(?m)([A-Z][a-z]+(?:\s+[A-Z][a-z]+){1,2})\s*[,|–—-]\s*(?:Partner|Principal|Managing\s+Director|Director|Engagement\s+Manager|Senior\s+Consultant|Consultant)`),
	},
	{
		Name:       "contact-line",
		Confidence: ConfidenceMedium,
		re:         regexp.MustCompile(`(?im)^\s*contact[:\s]+([A-Z][A-Za-z.'-]+(?:\s+[A-Z][A-Za-z.'-]+){1,3})`),
	},
}

var clientRules = []Rule{
	{
		Name:       "client-label",
		Confidence: ConfidenceHigh,
		re:         regexp.MustCompile(`(?im)^\s*(?:client|company)\s*[:\-]\s*(.+?)\s*$`),
	},
	{
		Name:       "prepared-for",
		Confidence: ConfidenceHigh,
		re:         regexp.MustCompile(`(?i)prepared\s+for[:\s]+([A-Z][A-Za-z0-9&.,'’ -]+?)(?:\n|$)`),
	},
	{
		Name:       "proposal-title",
		Confidence: ConfidenceMedium,
		re:         regexp.MustCompile(`(?im)^\s*(?:a\s+)?proposal\s+(?:for|to)\s+(.+?)\s*$`),
	},
	{
		Name:       "company-suffix",
		Confidence: ConfidenceLow,
		re:         regexp.MustCompile(`\b([A-Z][A-Za-z0-9&'. ]+?\s+(?:Inc|LLC|Ltd|Corp|Corporation|Co|Group|Partners|Holdings)\.?)(?:[\s,.]|$)`),
	},
}

// applyRules runs a cascade over text and returns candidates in cascade order,
// then document order within each rule. Values are trimmed of surrounding
// whitespace and trailing punctuation.
func applyRules(rules []Rule, text string) []Candidate {
	var candidates []Candidate
	for _, rule := range rules {
		for _, match := range rule.re.FindAllStringSubmatch(text, -1) {
			value := strings.TrimSpace(match[1])
			value = strings.TrimRight(value, ".,;:")
			if value == "" {
				continue
			}
			candidates = append(candidates, Candidate{
				Value:      value,
				Rule:       rule.Name,
				Confidence: rule.Confidence,
			})
		}
	}
	return candidates
}
