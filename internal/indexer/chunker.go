package indexer

import "strings"

// Chunker splits normalized document text into overlapping, size-bounded
// passages. Splitting happens on sentence boundaries so no chunk ends
// mid-sentence; each chunk after the first is seeded with the trailing words
// of its predecessor so a fact straddling a boundary stays retrievable from
// at least one side.
type Chunker struct {
	targetWords     int
	overlapFraction float64
	minChars        int
}

// NewChunker creates a chunker. targetWords bounds the word count per chunk,
// overlapFraction (in [0,1)) controls how many trailing words seed the next
// chunk, and minChars is the floor below which a chunk is dropped as noise.
func NewChunker(targetWords int, overlapFraction float64, minChars int) *Chunker {
	return &Chunker{
		targetWords:     targetWords,
		overlapFraction: overlapFraction,
		minChars:        minChars,
	}
}

// Chunk splits text into passages. Sentences are accumulated greedily until
// adding the next one would exceed the target word count; the chunk is then
// closed and the next chunk starts with the closed chunk's trailing overlap
// words. Whitespace inside sentences is normalized to single spaces so the
// overlap region of chunk i is always a literal prefix of chunk i+1.
func (c *Chunker) Chunk(text string) []string {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	overlapWords := int(c.overlapFraction * float64(c.targetWords))

	var chunks []string
	var current []string

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))
		if overlapWords > 0 && len(current) > overlapWords {
			current = append([]string(nil), current[len(current)-overlapWords:]...)
		} else {
			current = nil
		}
	}

	for _, sentence := range sentences {
		words := strings.Fields(sentence)
		if len(words) == 0 {
			continue
		}
		if len(current) > 0 && len(current)+len(words) > c.targetWords {
			flush()
		}
		current = append(current, words...)
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	// Drop fragments below the character floor.
	result := chunks[:0]
	for _, chunk := range chunks {
		if len(chunk) >= c.minChars {
			result = append(result, chunk)
		}
	}
	return result
}

// SplitSentences splits text on sentence-ending punctuation (period, question
// mark, exclamation mark) and on blank lines. Whitespace inside each sentence
// is collapsed to single spaces; empty sentences are dropped.
func SplitSentences(text string) []string {
	var sentences []string
	var builder strings.Builder

	flush := func() {
		sentence := strings.Join(strings.Fields(builder.String()), " ")
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		builder.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		builder.WriteRune(r)

		switch r {
		case '.', '!', '?':
			// Boundary only when followed by whitespace or end of text, so
			// "3.5" and "U.S." style tokens stay intact.
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' || runes[i+1] == '\r' {
				flush()
			}
		case '\n':
			// A blank line ends the sentence even without punctuation
			// (headers, list items).
			if i+1 < len(runes) && runes[i+1] == '\n' {
				flush()
			}
		}
	}
	flush()

	return sentences
}
