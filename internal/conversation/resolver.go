package conversation

import (
	"context"
	"fmt"
	"strings"

	"proposal-ai/internal/contextutil"
)

// ClientLister supplies the known client names used to recognize entities in
// queries.
type ClientLister interface {
	DistinctClients(ctx context.Context) ([]string, error)
}

// Resolution is the outcome of resolving a query against its conversation.
type Resolution struct {
	// Query is the retrieval-ready query, with any referent spelled out.
	Query string `json:"query"`
	// Entity is the entity the query is about, if any.
	Entity string `json:"entity,omitempty"`
	// Source says how the resolution was derived (explicit, followup,
	// topic-continuation, none).
	Source string `json:"source"`
}

// Resolver rewrites context-dependent queries into self-contained ones using
// the session's conversational state.
type Resolver struct {
	clients ClientLister
}

func NewResolver(clients ClientLister) *Resolver {
	return &Resolver{clients: clients}
}

// Resolve decides what a query refers to. An explicit entity mention stands
// on its own and supersedes the active entity. A pronoun, elliptical query,
// or bare attribute question resolves against the active entity, provided it
// hasn't been evicted from the turn window. A query with neither, following a turn, inherits the
// previous topic's salient terms. Resolve never fails the query path: if the
// client list can't be loaded, recognition just runs without it.
func (r *Resolver) Resolve(ctx context.Context, convo *Context, query string) Resolution {
	logger := contextutil.LoggerFromContext(ctx)

	known := convo.KnownEntities()
	if r.clients != nil {
		clients, err := r.clients.DistinctClients(ctx)
		if err != nil {
			logger.WarnContext(ctx, "failed to load client names for entity recognition", "error", err)
		} else {
			known = append(known, clients...)
		}
	}

	if entities := detectEntities(query, known); len(entities) > 0 {
		entity := entities[0]
		if isKnownEntity(entity, known) || convo.CurrentEntity != "" {
			return Resolution{Query: query, Entity: entity, Source: SourceExplicit}
		}
		// First sighting of a name we can't corroborate: the query stands on
		// its own, but the name still becomes the active entity so later
		// pronouns can bind to it.
		return Resolution{Query: query, Entity: entity, Source: SourceNone}
	}

	if pronounRe.MatchString(query) || ellipticalRe.MatchString(query) || bareQuestionRe.MatchString(query) {
		if convo.CurrentEntity != "" {
			return Resolution{
				Query:  fmt.Sprintf("%s for %s", strings.TrimRight(strings.TrimSpace(query), "?!. "), convo.CurrentEntity),
				Entity: convo.CurrentEntity,
				Source: SourceFollowup,
			}
		}
		if last := convo.LastTurn(); last != nil {
			if terms := salientTerms(last.ResolvedQuery, 3); len(terms) > 0 {
				return Resolution{
					Query:  fmt.Sprintf("%s (%s)", strings.TrimSpace(query), strings.Join(terms, " ")),
					Source: SourceTopicContinuation,
				}
			}
		}
	}

	return Resolution{Query: query, Source: SourceNone}
}

func isKnownEntity(entity string, known []string) bool {
	for _, k := range known {
		if strings.EqualFold(entity, k) {
			return true
		}
	}
	return false
}
