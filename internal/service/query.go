package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_query_service.go -package=mocks -mock_names=QueryService=MockQueryService proposal-ai/internal/service QueryService

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"proposal-ai/internal/classify"
	"proposal-ai/internal/contextutil"
	"proposal-ai/internal/conversation"
	"proposal-ai/internal/llm"
	"proposal-ai/internal/rag"
	"proposal-ai/internal/vectorstore"
)

// Retriever is the retrieval surface the query service needs.
type Retriever interface {
	Retrieve(ctx context.Context, req rag.Request) (*rag.Result, error)
}

// CompletionClient is the LLM surface used for answer synthesis.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, params llm.ChatParams) (string, error)
}

// QueryRequest represents a query request in the domain layer.
type QueryRequest struct {
	Query string `validate:"required"`
	// SessionID ties the query to a conversation; empty starts a new session.
	SessionID string
	Limit     int
	Filters   vectorstore.Filters
}

// QueryResponse represents a query response in the domain layer.
type QueryResponse struct {
	SessionID string
	// Answer is the synthesized prose answer; empty when synthesis failed
	// (the passages still stand on their own).
	Answer        string
	Passages      []rag.RankedPassage
	ResolvedQuery string
	// ContextSource says how the query related to the conversation
	// (explicit, followup, topic-continuation, none).
	ContextSource  string
	QueryType      classify.QueryType
	AppliedFilters vectorstore.Filters
	Meta           rag.Meta
}

// QueryService answers questions over the proposal corpus.
type QueryService interface {
	// ProcessQuery resolves, classifies, retrieves, and answers one query.
	ProcessQuery(ctx context.Context, req QueryRequest) (QueryResponse, error)
}

// queryService implements QueryService.
type queryService struct {
	retriever Retriever
	resolver  *conversation.Resolver
	sessions  *conversation.Manager
	llm       CompletionClient
	model     string
}

// NewQueryService creates a new QueryService.
func NewQueryService(
	retriever Retriever,
	resolver *conversation.Resolver,
	sessions *conversation.Manager,
	llmClient CompletionClient,
	model string,
) QueryService {
	return &queryService{
		retriever: retriever,
		resolver:  resolver,
		sessions:  sessions,
		llm:       llmClient,
		model:     model,
	}
}

// ProcessQuery runs the query pipeline: resolve the query against its
// conversation, classify it, retrieve passages, synthesize an answer, and
// record the turn. Synthesis is best-effort; retrieval failure is the only
// error path.
func (s *queryService) ProcessQuery(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(req.Query) == "" {
		logger.WarnContext(ctx, "empty query in request")
		return QueryResponse{}, &ValidationError{
			Field:   "query",
			Message: "cannot be empty",
		}
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	convo := s.sessions.Get(ctx, sessionID)
	resolution := s.resolver.Resolve(ctx, convo, req.Query)
	queryType := classify.Classify(resolution.Query)

	filters := req.Filters
	if resolution.Entity != "" && resolution.Source != conversation.SourceNone && filters.Client == "" {
		filters.Client = resolution.Entity
	}

	result, err := s.retriever.Retrieve(ctx, rag.Request{
		Query:   resolution.Query,
		Limit:   req.Limit,
		Filters: filters,
	})
	if err != nil {
		logger.ErrorContext(ctx, "retrieval failed", "error", err)
		return QueryResponse{}, WrapError(err, "failed to retrieve passages")
	}

	answer := s.synthesize(ctx, resolution.Query, queryType, result.Passages)

	turn := conversation.Turn{
		Query:         req.Query,
		ResolvedQuery: resolution.Query,
		AskedAt:       nowUTC(),
	}
	if resolution.Entity != "" {
		turn.Entities = []string{resolution.Entity}
	}
	seenClients := make(map[string]bool)
	for _, passage := range result.Passages {
		turn.Sources = append(turn.Sources, passage.Filename)
		if passage.Client != "" && !seenClients[passage.Client] {
			seenClients[passage.Client] = true
			turn.Clients = append(turn.Clients, passage.Client)
		}
	}
	s.sessions.RecordTurn(ctx, sessionID, turn)

	logger.InfoContext(ctx, "query processed",
		"session_id", sessionID,
		"query_type", queryType,
		"context_source", resolution.Source,
		"passages", len(result.Passages),
		"fallback", result.Meta.Fallback,
	)

	return QueryResponse{
		SessionID:      sessionID,
		Answer:         answer,
		Passages:       result.Passages,
		ResolvedQuery:  resolution.Query,
		ContextSource:  resolution.Source,
		QueryType:      queryType,
		AppliedFilters: filters,
		Meta:           result.Meta,
	}, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// synthesize produces the prose answer from retrieved passages using the
// query type's template. A failed call degrades to no answer rather than
// failing the query.
func (s *queryService) synthesize(ctx context.Context, query string, queryType classify.QueryType, passages []rag.RankedPassage) string {
	logger := contextutil.LoggerFromContext(ctx)

	if len(passages) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", query)
	for i, passage := range passages {
		fmt.Fprintf(&b, "Passage %d (from %s):\n%s\n\n", i+1, passage.Filename, passage.Text)
	}

	template := classify.TemplateFor(queryType)
	answer, err := s.llm.Complete(ctx, template.SystemPrompt, b.String(), llm.ChatParams{
		Model:       s.model,
		MaxTokens:   800,
		Temperature: 0.2,
	})
	if err != nil {
		logger.WarnContext(ctx, "answer synthesis failed, returning passages only", "error", err)
		return ""
	}
	return strings.TrimSpace(answer)
}
