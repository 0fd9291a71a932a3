package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"proposal-ai/internal/classify"
	"proposal-ai/internal/conversation"
	"proposal-ai/internal/llm"
	"proposal-ai/internal/rag"
	"proposal-ai/internal/storage"
	"proposal-ai/internal/vectorstore"
)

func init() {
	// Suppress service-layer logs for cleaner test output.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeRetriever struct {
	result  *rag.Result
	err     error
	lastReq rag.Request
}

func (r *fakeRetriever) Retrieve(ctx context.Context, req rag.Request) (*rag.Result, error) {
	r.lastReq = req
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

type fakeCompleter struct {
	response string
	err      error
	calls    int
}

func (c *fakeCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, params llm.ChatParams) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*storage.SessionRecord
}

func (s *fakeSessionStore) Upsert(ctx context.Context, session *storage.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions == nil {
		s.sessions = make(map[string]*storage.SessionRecord)
	}
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *fakeSessionStore) GetByID(ctx context.Context, id string) (*storage.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[id]; ok {
		copied := *session
		return &copied, nil
	}
	return nil, storage.ErrNotFound
}

type fakeClientLister struct {
	clients []string
}

func (l *fakeClientLister) DistinctClients(ctx context.Context) ([]string, error) {
	return l.clients, nil
}

func passagesResult(passages ...rag.RankedPassage) *rag.Result {
	return &rag.Result{
		Passages: passages,
		Meta:     rag.Meta{QueriesUsed: []string{"q"}, CandidateCount: len(passages), Reranked: true},
	}
}

func newQueryService(retriever *fakeRetriever, completer *fakeCompleter) QueryService {
	lister := &fakeClientLister{clients: []string{"MGT Industries", "PowerParts Group"}}
	return NewQueryService(
		retriever,
		conversation.NewResolver(lister),
		conversation.NewManager(&fakeSessionStore{}, 10),
		completer,
		"test-model",
	)
}

func TestProcessQuery(t *testing.T) {
	retriever := &fakeRetriever{result: passagesResult(rag.RankedPassage{
		ChunkID:  "c1",
		Filename: "mgt-proposal.md",
		Text:     "we proposed a three phase diagnostic",
	})}
	completer := &fakeCompleter{response: "A three phase diagnostic (mgt-proposal.md)."}
	svc := newQueryService(retriever, completer)

	resp, err := svc.ProcessQuery(context.Background(), QueryRequest{
		Query: "how much did we charge MGT Industries",
	})
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}

	if resp.SessionID == "" {
		t.Error("expected a generated session ID")
	}
	if resp.Answer != "A three phase diagnostic (mgt-proposal.md)." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.QueryType != classify.TypePricing {
		t.Errorf("query type = %q, want pricing", resp.QueryType)
	}
	if resp.ContextSource != conversation.SourceExplicit {
		t.Errorf("context source = %q, want explicit", resp.ContextSource)
	}
	if resp.AppliedFilters.Client != "MGT Industries" {
		t.Errorf("client filter = %q, want resolved entity", resp.AppliedFilters.Client)
	}
	if retriever.lastReq.Filters.Client != "MGT Industries" {
		t.Errorf("retriever filter = %q", retriever.lastReq.Filters.Client)
	}
}

func TestProcessQuery_EmptyQuery(t *testing.T) {
	svc := newQueryService(&fakeRetriever{result: passagesResult()}, &fakeCompleter{})

	_, err := svc.ProcessQuery(context.Background(), QueryRequest{Query: "   "})
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if validationErr.Field != "query" {
		t.Errorf("field = %q", validationErr.Field)
	}
}

func TestProcessQuery_PronounFollowup(t *testing.T) {
	retriever := &fakeRetriever{result: passagesResult(rag.RankedPassage{
		ChunkID: "c1", Filename: "mgt-proposal.md", Text: "text",
	})}
	svc := newQueryService(retriever, &fakeCompleter{response: "answer"})
	ctx := context.Background()

	first, err := svc.ProcessQuery(ctx, QueryRequest{Query: "What did we propose for MGT Industries?"})
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}

	second, err := svc.ProcessQuery(ctx, QueryRequest{
		Query:     "Who worked on it?",
		SessionID: first.SessionID,
	})
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}

	if second.ContextSource != conversation.SourceFollowup {
		t.Errorf("context source = %q, want followup", second.ContextSource)
	}
	if second.ResolvedQuery != "Who worked on it for MGT Industries" {
		t.Errorf("resolved query = %q", second.ResolvedQuery)
	}
	if second.SessionID != first.SessionID {
		t.Errorf("session ID changed across turns")
	}
}

func TestProcessQuery_AcronymMentionStartsEntityTracking(t *testing.T) {
	retriever := &fakeRetriever{result: passagesResult(rag.RankedPassage{
		ChunkID: "c1", Filename: "mgt-proposal.md", Text: "text", Client: "MGT",
	})}
	svc := newQueryService(retriever, &fakeCompleter{response: "answer"})
	ctx := context.Background()

	first, err := svc.ProcessQuery(ctx, QueryRequest{Query: "MGT work"})
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}
	if first.ContextSource != conversation.SourceNone {
		t.Errorf("context source = %q, want none for an uncorroborated name", first.ContextSource)
	}
	if retriever.lastReq.Filters.Client != "" {
		t.Errorf("uncorroborated name must not become a client filter, got %q", retriever.lastReq.Filters.Client)
	}

	second, err := svc.ProcessQuery(ctx, QueryRequest{
		Query:     "what was the timeline?",
		SessionID: first.SessionID,
	})
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}
	if second.ContextSource != conversation.SourceFollowup {
		t.Errorf("context source = %q, want followup against the pinned entity", second.ContextSource)
	}
	if second.ResolvedQuery != "what was the timeline for MGT" {
		t.Errorf("resolved query = %q", second.ResolvedQuery)
	}
}

func TestProcessQuery_PassageClientsGroundNextTurn(t *testing.T) {
	retriever := &fakeRetriever{result: passagesResult(
		rag.RankedPassage{ChunkID: "c1", Filename: "mobettahs.md", Text: "text", Client: "Mo'Bettahs"},
		rag.RankedPassage{ChunkID: "c2", Filename: "crux.md", Text: "text", Client: "Crux"},
	)}
	// The lister knows neither client, so only the previous turn's passages
	// can ground the mention.
	svc := NewQueryService(
		retriever,
		conversation.NewResolver(&fakeClientLister{}),
		conversation.NewManager(&fakeSessionStore{}, 10),
		&fakeCompleter{response: "answer"},
		"test-model",
	)
	ctx := context.Background()

	first, err := svc.ProcessQuery(ctx, QueryRequest{Query: "restaurant space work"})
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}
	if first.ContextSource != conversation.SourceNone {
		t.Errorf("context source = %q, want none", first.ContextSource)
	}

	second, err := svc.ProcessQuery(ctx, QueryRequest{
		Query:     "tell me more about Mo'Bettahs",
		SessionID: first.SessionID,
	})
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}
	if second.ContextSource != conversation.SourceExplicit {
		t.Errorf("context source = %q, want explicit for a surfaced client", second.ContextSource)
	}
	if second.AppliedFilters.Client != "Mo'Bettahs" {
		t.Errorf("client filter = %q, want the surfaced client", second.AppliedFilters.Client)
	}
}

func TestProcessQuery_ExplicitFilterNotOverridden(t *testing.T) {
	retriever := &fakeRetriever{result: passagesResult()}
	svc := newQueryService(retriever, &fakeCompleter{response: "answer"})

	_, err := svc.ProcessQuery(context.Background(), QueryRequest{
		Query:   "What did we propose for MGT Industries?",
		Filters: vectorstore.Filters{Client: "PowerParts Group"},
	})
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}
	if retriever.lastReq.Filters.Client != "PowerParts Group" {
		t.Errorf("caller-supplied filter must win, got %q", retriever.lastReq.Filters.Client)
	}
}

func TestProcessQuery_RetrievalFailure(t *testing.T) {
	retriever := &fakeRetriever{err: fmt.Errorf("vector store down")}
	svc := newQueryService(retriever, &fakeCompleter{response: "answer"})

	if _, err := svc.ProcessQuery(context.Background(), QueryRequest{Query: "anything"}); err == nil {
		t.Fatal("expected error when retrieval fails")
	}
}

func TestProcessQuery_SynthesisFailureDegrades(t *testing.T) {
	retriever := &fakeRetriever{result: passagesResult(rag.RankedPassage{
		ChunkID: "c1", Filename: "a.md", Text: "text",
	})}
	svc := newQueryService(retriever, &fakeCompleter{err: fmt.Errorf("llm down")})

	resp, err := svc.ProcessQuery(context.Background(), QueryRequest{Query: "anything at all"})
	if err != nil {
		t.Fatalf("synthesis failure must not fail the query, got %v", err)
	}
	if resp.Answer != "" {
		t.Errorf("answer = %q, want empty", resp.Answer)
	}
	if len(resp.Passages) != 1 {
		t.Errorf("passages must survive synthesis failure, got %d", len(resp.Passages))
	}
}

func TestProcessQuery_NoPassagesSkipsSynthesis(t *testing.T) {
	completer := &fakeCompleter{response: "should not be called"}
	svc := newQueryService(&fakeRetriever{result: passagesResult()}, completer)

	resp, err := svc.ProcessQuery(context.Background(), QueryRequest{Query: "anything"})
	if err != nil {
		t.Fatalf("ProcessQuery() error = %v", err)
	}
	if resp.Answer != "" {
		t.Errorf("answer = %q, want empty with no passages", resp.Answer)
	}
	if completer.calls != 0 {
		t.Errorf("synthesis called %d times with no passages", completer.calls)
	}
}
