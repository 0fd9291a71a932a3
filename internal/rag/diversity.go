package rag

// diversityFilter walks passages in rank order and drops any beyond
// maxPerDocument from the same document, then cuts to limit. With the cap at
// or below zero the per-document limit is disabled.
func diversityFilter(passages []RankedPassage, maxPerDocument, limit int) []RankedPassage {
	perDocument := make(map[string]int)
	result := make([]RankedPassage, 0, limit)
	for _, passage := range passages {
		if maxPerDocument > 0 && perDocument[passage.DocumentID] >= maxPerDocument {
			continue
		}
		perDocument[passage.DocumentID]++
		result = append(result, passage)
		if len(result) == limit {
			break
		}
	}
	return result
}
