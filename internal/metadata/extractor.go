package metadata

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_completion_client.go -package=mocks proposal-ai/internal/metadata CompletionClient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"proposal-ai/internal/contextutil"
	"proposal-ai/internal/llm"
)

// CompletionClient is the LLM surface the extractor needs.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, params llm.ChatParams) (string, error)
}

// Sectors is the closed sector vocabulary. Anything the classifier returns
// outside this list is coerced to "other".
var Sectors = []string{"healthcare", "private-equity", "industrials", "consumer", "other"}

// SectorOther is the fallback sector for unclassifiable documents.
const SectorOther = "other"

const maxTags = 8

// classifyWindow bounds how much document text is sent to the LLM for sector
// and tag classification.
const classifyWindow = 4000

// genericHeaders are boilerplate strings that client extraction must never
// mistake for a company name.
var genericHeaders = []string{
	"executive summary",
	"table of contents",
	"our understanding",
	"statement of work",
	"scope of work",
	"proposal",
	"confidential",
	"about us",
	"next steps",
	"appendix",
}

// Result holds everything extracted from one document.
type Result struct {
	Sector       string
	Tags         []string
	Author       string
	Client       string
	ProposalDate *time.Time
}

// Extractor derives document metadata from a mix of deterministic rules
// (author, client, date) and one LLM call (sector, tags).
type Extractor struct {
	llm        CompletionClient
	model      string
	roster     *Roster
	exclusions []string
}

// NewExtractor creates an extractor. exclusions lists names (the consulting
// firm itself, its practice names) that client extraction must skip.
func NewExtractor(llmClient CompletionClient, model string, roster *Roster, exclusions []string) *Extractor {
	return &Extractor{
		llm:        llmClient,
		model:      model,
		roster:     roster,
		exclusions: exclusions,
	}
}

// Extract runs all extraction paths over normalized document text. A failed
// LLM call is the only error: rule-based paths degrade to their sentinel
// values ("not found" author, empty client, nil date) rather than failing.
func (e *Extractor) Extract(ctx context.Context, text string) (Result, error) {
	result := Result{
		Author:       e.extractAuthor(text),
		Client:       e.extractClient(text),
		ProposalDate: ExtractDate(text),
	}

	sector, tags, err := e.classify(ctx, text)
	if err != nil {
		return Result{}, fmt.Errorf("failed to classify document: %w", err)
	}
	result.Sector = sector
	result.Tags = tags

	return result, nil
}

// extractAuthor collects every rule candidate, scores each against the
// consultant roster, and returns the canonical roster name of the single best
// match. Candidates that don't clear the similarity floor are never used: a
// wrong attribution filters worse than no attribution.
func (e *Extractor) extractAuthor(text string) string {
	candidates := applyRules(authorRules, text)
	bestName := ""
	bestScore := 0.0
	for _, candidate := range candidates {
		name, score := e.roster.Match(candidate.Value)
		if score > bestScore {
			bestName = name
			bestScore = score
		}
	}
	if bestScore < rosterMatchFloor {
		return AuthorNotFound
	}
	return bestName
}

// extractClient returns the first cascade candidate that survives the
// filters. Cascade order is the priority order, so a "prepared for" line
// beats a company-suffix guess from deep in the body.
func (e *Extractor) extractClient(text string) string {
	for _, candidate := range applyRules(clientRules, text) {
		value := strings.TrimSpace(candidate.Value)
		if len(value) < 2 || len(value) > 60 {
			continue
		}
		if e.excluded(value) {
			continue
		}
		// A person's name in a "prepared for" line is a recipient, not the
		// client company.
		if e.roster.Contains(value) {
			continue
		}
		return value
	}
	return ""
}

func (e *Extractor) excluded(value string) bool {
	lowered := strings.ToLower(value)
	for _, header := range genericHeaders {
		if lowered == header {
			return true
		}
	}
	for _, exclusion := range e.exclusions {
		if strings.EqualFold(value, exclusion) {
			return true
		}
	}
	return false
}

const classifySystemPrompt = `You classify consulting proposal documents.
Respond with a single JSON object and nothing else:
{"sector": "<one of: healthcare, private-equity, industrials, consumer, other>", "tags": ["<up to 8 short topical tags>"]}
Tags should name the engagement's topics (e.g. "due-diligence", "pricing-strategy", "supply-chain"). Use lowercase kebab-case.`

type classifyResponse struct {
	Sector string   `json:"sector"`
	Tags   []string `json:"tags"`
}

// classify asks the LLM for a sector and topical tags. A transport failure is
// returned to the caller; malformed output degrades to ("other", nil) so a
// chatty model cannot block ingestion.
func (e *Extractor) classify(ctx context.Context, text string) (string, []string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	window := text
	if len(window) > classifyWindow {
		window = window[:classifyWindow]
	}

	raw, err := e.llm.Complete(ctx, classifySystemPrompt, window, llm.ChatParams{
		Model:       e.model,
		MaxTokens:   300,
		Temperature: 0,
	})
	if err != nil {
		return "", nil, err
	}

	var parsed classifyResponse
	if err := llm.DecodeJSON(raw, &parsed); err != nil {
		logger.WarnContext(ctx, "discarding malformed classification output", "error", err)
		return SectorOther, nil, nil
	}

	sector := strings.ToLower(strings.TrimSpace(parsed.Sector))
	if !validSector(sector) {
		logger.WarnContext(ctx, "classifier returned unknown sector", "sector", parsed.Sector)
		sector = SectorOther
	}

	return sector, normalizeTags(parsed.Tags), nil
}

func validSector(sector string) bool {
	for _, s := range Sectors {
		if sector == s {
			return true
		}
	}
	return false
}

// normalizeTags lowercases tags, converts spaces to hyphens, strips anything
// that isn't alphanumeric or a hyphen, and caps the list.
func normalizeTags(tags []string) []string {
	var normalized []string
	seen := make(map[string]bool)
	for _, tag := range tags {
		cleaned := normalizeTag(tag)
		if cleaned == "" || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		normalized = append(normalized, cleaned)
		if len(normalized) == maxTags {
			break
		}
	}
	return normalized
}

func normalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	tag = strings.ReplaceAll(tag, " ", "-")
	var b strings.Builder
	for _, r := range tag {
		if r == '-' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}
