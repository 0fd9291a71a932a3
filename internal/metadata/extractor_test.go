package metadata

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proposal-ai/internal/llm"
)

type stubLLM struct {
	response string
	err      error
}

func (s *stubLLM) Complete(ctx context.Context, systemPrompt, userPrompt string, params llm.ChatParams) (string, error) {
	return s.response, s.err
}

var testRoster = NewRoster([]string{"Jane Morrison", "David Chen", "Sarah Okafor"})

func TestExtractor_Extract(t *testing.T) {
	extractor := NewExtractor(
		&stubLLM{response: `{"sector": "healthcare", "tags": ["Due Diligence", "market entry"]}`},
		"test-model",
		testRoster,
		[]string{"Meridian Consulting"},
	)

	text := `Proposal for Northwind Group

Prepared by Jane Morrison
March 12, 2024

Our Understanding

The client asked for a market review.`

	result, err := extractor.Extract(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, "healthcare", result.Sector)
	assert.Equal(t, []string{"due-diligence", "market-entry"}, result.Tags)
	assert.Equal(t, "Jane Morrison", result.Author)
	assert.Equal(t, "Northwind Group", result.Client)
	require.NotNil(t, result.ProposalDate)
	assert.Equal(t, "2024-03-12", result.ProposalDate.Format("2006-01-02"))
}

func TestExtractor_Extract_TransportErrorPropagates(t *testing.T) {
	extractor := NewExtractor(&stubLLM{err: fmt.Errorf("connection refused")}, "test-model", testRoster, nil)

	_, err := extractor.Extract(context.Background(), "some document text")
	require.Error(t, err)
}

func TestExtractor_Extract_MalformedClassificationDegrades(t *testing.T) {
	extractor := NewExtractor(&stubLLM{response: "I cannot classify this document, sorry!"}, "test-model", testRoster, nil)

	result, err := extractor.Extract(context.Background(), "some document text")
	require.NoError(t, err)
	assert.Equal(t, SectorOther, result.Sector)
	assert.Empty(t, result.Tags)
}

func TestExtractor_Extract_UnknownSectorCoerced(t *testing.T) {
	extractor := NewExtractor(&stubLLM{response: `{"sector": "aerospace", "tags": []}`}, "test-model", testRoster, nil)

	result, err := extractor.Extract(context.Background(), "some document text")
	require.NoError(t, err)
	assert.Equal(t, SectorOther, result.Sector)
}

func TestExtractor_ExtractAuthor(t *testing.T) {
	extractor := NewExtractor(&stubLLM{response: `{"sector": "other", "tags": []}`}, "test-model", testRoster, nil)

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "prepared by line",
			text: "Prepared by Jane Morrison\n\nBody text.",
			want: "Jane Morrison",
		},
		{
			name: "typo still matches roster",
			text: "Prepared by Jane Morisson\n\nBody text.",
			want: "Jane Morrison",
		},
		{
			name: "signature block",
			text: "Body text ends here.\n\nSincerely,\nDavid Chen",
			want: "David Chen",
		},
		{
			name: "role line",
			text: "Questions go to Sarah Okafor, Managing Director at our firm.",
			want: "Sarah Okafor",
		},
		{
			name: "non roster name rejected",
			text: "Prepared by Robert Unknown\n\nBody text.",
			want: AuthorNotFound,
		},
		{
			name: "no candidates",
			text: "A document with no author markers at all.",
			want: AuthorNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractor.extractAuthor(tt.text))
		})
	}
}

func TestExtractor_ExtractClient(t *testing.T) {
	extractor := NewExtractor(
		&stubLLM{response: `{"sector": "other", "tags": []}`},
		"test-model",
		testRoster,
		[]string{"Meridian Consulting"},
	)

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "client label",
			text: "Client: Northwind Group\n\nBody.",
			want: "Northwind Group",
		},
		{
			name: "prepared for",
			text: "Prepared for Apex Industrial Holdings\n\nBody.",
			want: "Apex Industrial Holdings",
		},
		{
			name: "proposal title",
			text: "A Proposal for Lakeshore Partners\n\nBody.",
			want: "Lakeshore Partners",
		},
		{
			name: "own firm excluded",
			text: "Client: Meridian Consulting\n\nPrepared for Northwind Group\n\nBody.",
			want: "Northwind Group",
		},
		{
			name: "roster person not a client",
			text: "Prepared for Jane Morrison\n\nClient: Northwind Group\n\nBody.",
			want: "Northwind Group",
		},
		{
			name: "generic header not a client",
			text: "Client: Executive Summary\n\nBody.",
			want: "",
		},
		{
			name: "label beats suffix heuristic",
			text: "We once served Acme Corp in a prior phase.\n\nClient: Northwind Group",
			want: "Northwind Group",
		},
		{
			name: "nothing found",
			text: "A document that names no company at all.",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractor.extractClient(tt.text))
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	got := normalizeTags([]string{"Due Diligence", "due-diligence", "Pricing!", "", "a", "b", "c", "d", "e", "f", "g"})
	assert.Equal(t, 8, len(got))
	assert.Equal(t, "due-diligence", got[0])
	assert.Equal(t, "pricing", got[1])
	assert.NotContains(t, got, "")
}
