package rag

import "proposal-ai/internal/vectorstore"

// Request is one retrieval request.
type Request struct {
	Query string
	// Limit is the number of passages to return; 0 means the engine default.
	Limit int
	// Filters narrow the search to matching metadata.
	Filters vectorstore.Filters
}

// RankedPassage is one retrieved chunk with its provenance and scores.
type RankedPassage struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Section    string  `json:"section,omitempty"`
	Sector     string  `json:"sector,omitempty"`
	Author     string  `json:"author,omitempty"`
	Client     string  `json:"client,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Similarity float32 `json:"similarity"`
	// RerankScore is the cross-encoder relevance score in [0,100]; -1 when
	// reranking was skipped or failed.
	RerankScore int `json:"rerank_score"`
}

// Meta describes how a retrieval was executed.
type Meta struct {
	// QueriesUsed lists the query variants actually searched.
	QueriesUsed []string `json:"queries_used"`
	// CandidateCount is the deduplicated candidate pool size before
	// reranking and diversity filtering.
	CandidateCount int `json:"candidate_count"`
	// Reranked is false when the reranker failed and similarity order was
	// kept.
	Reranked bool `json:"reranked"`
	// Fallback is true when the full pipeline failed and results came from a
	// plain single-query search.
	Fallback bool `json:"fallback"`
}

// Result is the outcome of one retrieval.
type Result struct {
	Passages []RankedPassage `json:"passages"`
	Meta     Meta            `json:"meta"`
}
