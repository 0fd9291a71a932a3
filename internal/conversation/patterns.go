package conversation

import (
	"regexp"
	"strings"
)

// pronounRe matches referring expressions that need an antecedent.
var pronounRe = regexp.MustCompile(`(?i)\b(it|its|they|them|their|theirs|this one|that one|that project|the same|the client|the company)\b`)

// ellipticalRe matches queries that lean on prior context without a pronoun
// ("what about the timeline", "and pricing?").
var ellipticalRe = regexp.MustCompile(`(?i)^\s*(what about|how about|and|also|what else|anything else|more on|tell me more)\b`)

// bareQuestionRe matches attribute questions that bring no subject of their
// own ("what was the timeline?", "who was involved?") and so read against
// whatever the conversation is about.
var bareQuestionRe = regexp.MustCompile(`(?i)^\s*(what|who|when|where|which|how)\s+(was|were|is|are|did|do|does|will|would)\b`)

// entityTokenRe matches runs of capitalized words, the surface form of
// company names in queries.
var entityTokenRe = regexp.MustCompile(`\b[A-Z][A-Za-z0-9&'’.-]*(?:\s+(?:[A-Z][A-Za-z0-9&'’.-]*|of|and|&))*`)

// queryStopwords are capitalized-at-sentence-start words that the entity
// heuristic must not mistake for names.
var queryStopwords = map[string]bool{
	"what": true, "who": true, "when": true, "where": true, "why": true,
	"how": true, "did": true, "do": true, "does": true, "show": true,
	"tell": true, "find": true, "give": true, "list": true, "which": true,
	"was": true, "were": true, "is": true, "are": true, "can": true,
	"the": true, "a": true, "an": true, "our": true, "any": true,
	"i": true, "we": true, "me": true, "please": true, "and": true,
	"also": true, "ok": true, "okay": true,
}

// detectEntities finds candidate entity names in a query: known entities by
// substring match first, then capitalized-run heuristics for names we haven't
// seen before. Results keep query order, duplicates removed.
func detectEntities(query string, known []string) []string {
	var entities []string
	seen := make(map[string]bool)
	add := func(entity string) {
		key := strings.ToLower(entity)
		if entity == "" || seen[key] {
			return
		}
		seen[key] = true
		entities = append(entities, entity)
	}

	lowered := strings.ToLower(query)
	for _, entity := range known {
		if entity != "" && strings.Contains(lowered, strings.ToLower(entity)) {
			add(entity)
		}
	}

	for _, match := range entityTokenRe.FindAllString(query, -1) {
		candidate := trimEntityCandidate(match)
		if candidate == "" {
			continue
		}
		add(candidate)
	}

	return entities
}

// trimEntityCandidate strips leading stopwords (sentence-initial "What",
// "Did", ...) from a capitalized run and rejects runs that were nothing but
// stopwords or a single short word.
func trimEntityCandidate(run string) string {
	words := strings.Fields(run)
	for len(words) > 0 && queryStopwords[strings.ToLower(words[0])] {
		words = words[1:]
	}
	for len(words) > 0 {
		last := strings.ToLower(words[len(words)-1])
		if queryStopwords[last] || last == "of" || last == "&" {
			words = words[:len(words)-1]
			continue
		}
		break
	}
	if len(words) == 0 {
		return ""
	}
	candidate := strings.Join(words, " ")
	// A lone short capitalized word is more likely a sentence start than a
	// company, unless it's written as an all-caps acronym ("MGT").
	if len(words) == 1 && len(candidate) < 4 {
		if len(candidate) < 2 || candidate != strings.ToUpper(candidate) {
			return ""
		}
	}
	return candidate
}

// salientTerms extracts the content words of a query for topic continuation,
// longest first, capped at max.
func salientTerms(query string, max int) []string {
	var terms []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if len(word) <= 3 || queryStopwords[word] || pronounRe.MatchString(word) {
			continue
		}
		terms = append(terms, word)
		if len(terms) == max {
			break
		}
	}
	return terms
}
