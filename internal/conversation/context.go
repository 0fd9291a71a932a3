package conversation

import (
	"encoding/json"
	"time"
)

// Context sources describe how a query was related to the conversation.
const (
	// SourceExplicit: the query names an entity itself.
	SourceExplicit = "explicit"
	// SourceFollowup: a pronoun or elliptical query resolved against the
	// active entity.
	SourceFollowup = "followup"
	// SourceTopicContinuation: no referent, but the query continues the
	// previous turn's topic.
	SourceTopicContinuation = "topic-continuation"
	// SourceNone: the query is self-contained.
	SourceNone = "none"
)

// Turn is one question/answer exchange.
type Turn struct {
	Query         string    `json:"query"`
	ResolvedQuery string    `json:"resolved_query"`
	// Entities names the entities this turn was about.
	Entities []string `json:"entities,omitempty"`
	// Clients lists the client names attached to the passages retrieval
	// returned for this turn, grounding later mentions of those names even
	// when the query itself named no entity.
	Clients []string `json:"clients,omitempty"`
	// Sources lists the document filenames retrieval returned for this turn.
	Sources []string  `json:"sources,omitempty"`
	AskedAt time.Time `json:"asked_at"`
}

// Context is the bounded conversational state for one session. Turns are kept
// FIFO up to Capacity; when a turn falls off, the entities only it mentioned
// fall off with it and become ineligible for pronoun resolution.
type Context struct {
	Capacity      int    `json:"capacity"`
	Turns         []Turn `json:"turns"`
	CurrentEntity string `json:"current_entity,omitempty"`
}

func NewContext(capacity int) *Context {
	return &Context{Capacity: capacity}
}

// RecordTurn appends a turn, evicting the oldest beyond capacity. If the turn
// names entities, the last one becomes the active entity, superseding any
// previous one. If eviction removes every mention of the active entity, the
// context drops back to having no active entity.
func (c *Context) RecordTurn(turn Turn) {
	c.Turns = append(c.Turns, turn)
	if c.Capacity > 0 && len(c.Turns) > c.Capacity {
		c.Turns = c.Turns[len(c.Turns)-c.Capacity:]
	}

	if len(turn.Entities) > 0 {
		c.CurrentEntity = turn.Entities[len(turn.Entities)-1]
	}
	if c.CurrentEntity != "" && !c.mentions(c.CurrentEntity) {
		c.CurrentEntity = ""
	}
}

// KnownEntities returns the entities surviving turns mentioned or surfaced
// through retrieved passages, newest turn first.
func (c *Context) KnownEntities() []string {
	var entities []string
	seen := make(map[string]bool)
	add := func(entity string) {
		if entity != "" && !seen[entity] {
			seen[entity] = true
			entities = append(entities, entity)
		}
	}
	for i := len(c.Turns) - 1; i >= 0; i-- {
		for _, entity := range c.Turns[i].Entities {
			add(entity)
		}
		for _, client := range c.Turns[i].Clients {
			add(client)
		}
	}
	return entities
}

// LastTurn returns the most recent turn, or nil for a fresh context.
func (c *Context) LastTurn() *Turn {
	if len(c.Turns) == 0 {
		return nil
	}
	return &c.Turns[len(c.Turns)-1]
}

func (c *Context) mentions(entity string) bool {
	for _, turn := range c.Turns {
		for _, e := range turn.Entities {
			if e == entity {
				return true
			}
		}
	}
	return false
}

// Encode serializes the context for session persistence.
func (c *Context) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// DecodeContext restores a persisted context. The capacity in effect now wins
// over the persisted one, trimming older turns if it shrank.
func DecodeContext(raw []byte, capacity int) (*Context, error) {
	var c Context
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	c.Capacity = capacity
	if capacity > 0 && len(c.Turns) > capacity {
		c.Turns = c.Turns[len(c.Turns)-capacity:]
		if c.CurrentEntity != "" && !c.mentions(c.CurrentEntity) {
			c.CurrentEntity = ""
		}
	}
	return &c, nil
}
