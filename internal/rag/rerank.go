package rag

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"proposal-ai/internal/contextutil"
	"proposal-ai/internal/llm"
)

// rerankExcerptChars bounds how much of each passage is shown to the scoring
// model.
const rerankExcerptChars = 600

// Reranker scores candidate passages against the query with a single LLM
// call acting as a cross-encoder, which reads query and passage together
// instead of comparing embeddings computed apart.
type Reranker struct {
	llm   CompletionClient
	model string
}

func NewReranker(llmClient CompletionClient, model string) *Reranker {
	return &Reranker{llm: llmClient, model: model}
}

const rerankSystemPrompt = `You score search passages for relevance to a query over consulting proposals.
Score each passage from 0 (irrelevant) to 100 (directly answers the query).
Respond with a JSON array of integers, one score per passage in the order given, and nothing else.`

// Rerank scores passages and returns them ordered by score, highest first.
// The second return value is false when the call failed or produced output
// that doesn't line up with the passages; the input order is returned
// unchanged in that case. Ties keep similarity order.
func (r *Reranker) Rerank(ctx context.Context, query string, passages []RankedPassage) ([]RankedPassage, bool) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(passages) < 2 {
		return passages, len(passages) > 0
	}

	raw, err := r.llm.Complete(ctx, rerankSystemPrompt, buildRerankPrompt(query, passages), llm.ChatParams{
		Model:       r.model,
		MaxTokens:   10 * len(passages),
		Temperature: 0,
	})
	if err != nil {
		logger.WarnContext(ctx, "rerank call failed, keeping similarity order", "error", err)
		return passages, false
	}

	var scores []int
	if err := llm.DecodeJSON(raw, &scores); err != nil {
		logger.WarnContext(ctx, "discarding malformed rerank output", "error", err)
		return passages, false
	}
	if len(scores) != len(passages) {
		logger.WarnContext(ctx, "rerank score count mismatch", "expected", len(passages), "got", len(scores))
		return passages, false
	}

	reranked := make([]RankedPassage, len(passages))
	copy(reranked, passages)
	for i := range reranked {
		score := scores[i]
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		reranked[i].RerankScore = score
	}

	// Stable insertion keeps similarity order between equal scores.
	for i := 1; i < len(reranked); i++ {
		for j := i; j > 0 && reranked[j].RerankScore > reranked[j-1].RerankScore; j-- {
			reranked[j], reranked[j-1] = reranked[j-1], reranked[j]
		}
	}
	return reranked, true
}

func buildRerankPrompt(query string, passages []RankedPassage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %s\n\n", query)
	for i, passage := range passages {
		fmt.Fprintf(&b, "Passage %d:\n%s\n\n", i+1, truncateExcerpt(passage.Text, rerankExcerptChars))
	}
	return b.String()
}

// truncateExcerpt cuts text to at most max bytes without splitting a rune.
func truncateExcerpt(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
