package rag

import (
	"context"
	"strings"

	"proposal-ai/internal/contextutil"
	"proposal-ai/internal/llm"
)

// maxQueryVariants caps the fan-out per retrieval, LLM reformulations and
// synonym substitutions combined.
const maxQueryVariants = 5

// synonymPairs maps consulting shorthand both ways so a query phrased one way
// still recalls documents phrased the other.
var synonymPairs = [][2]string{
	{"due diligence", "dd"},
	{"private equity", "pe"},
	{"timeline", "schedule"},
	{"approach", "methodology"},
	{"pricing", "cost"},
	{"m&a", "merger"},
	{"carve-out", "divestiture"},
}

// Expander widens one query into several variants for multi-path recall.
type Expander struct {
	llm   CompletionClient
	model string
}

func NewExpander(llmClient CompletionClient, model string) *Expander {
	return &Expander{llm: llmClient, model: model}
}

const expandSystemPrompt = `You rewrite search queries over a corpus of consulting proposals.
Given a query, produce up to 3 alternative phrasings that could match relevant passages the original might miss.
Respond with a JSON array of strings and nothing else.`

// Expand returns the original query followed by LLM reformulations and
// synonym substitutions, deduplicated and capped. Expansion is best-effort:
// any failure returns just the original query.
func (e *Expander) Expand(ctx context.Context, query string) []string {
	logger := contextutil.LoggerFromContext(ctx)

	variants := []string{query}
	seen := map[string]bool{normalizeQuery(query): true}
	add := func(variant string) {
		variant = strings.TrimSpace(variant)
		key := normalizeQuery(variant)
		if variant == "" || seen[key] || len(variants) >= maxQueryVariants {
			return
		}
		seen[key] = true
		variants = append(variants, variant)
	}

	raw, err := e.llm.Complete(ctx, expandSystemPrompt, query, llm.ChatParams{
		Model:       e.model,
		MaxTokens:   200,
		Temperature: 0.3,
	})
	if err != nil {
		logger.WarnContext(ctx, "query expansion failed", "error", err)
	} else {
		var reformulations []string
		if err := llm.DecodeJSON(raw, &reformulations); err != nil {
			logger.WarnContext(ctx, "discarding malformed expansion output", "error", err)
		} else {
			for _, r := range reformulations {
				add(r)
			}
		}
	}

	for _, variant := range synonymVariants(query) {
		add(variant)
	}

	return variants
}

// synonymVariants substitutes known consulting shorthand in both directions.
func synonymVariants(query string) []string {
	lowered := strings.ToLower(query)
	var variants []string
	for _, pair := range synonymPairs {
		if strings.Contains(lowered, pair[0]) {
			variants = append(variants, strings.ReplaceAll(lowered, pair[0], pair[1]))
		} else if strings.Contains(lowered, pair[1]) {
			variants = append(variants, strings.ReplaceAll(lowered, pair[1], pair[0]))
		}
	}
	return variants
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
