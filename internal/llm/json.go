package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON extracts the first JSON value from an LLM completion and decodes
// it into v. Models wrap structured output in prose or code fences often
// enough that a strict json.Unmarshal on the raw completion is useless;
// callers that cannot tolerate a decode failure must treat the returned error
// as that call's soft-failure signal, not as a fatal condition.
func DecodeJSON(raw string, v any) error {
	candidate := extractJSON(raw)
	if candidate == "" {
		return fmt.Errorf("no JSON value found in completion")
	}

	if err := json.Unmarshal([]byte(candidate), v); err == nil {
		return nil
	}

	// Retry once with common LLM formatting damage repaired.
	if err := json.Unmarshal([]byte(repairJSON(candidate)), v); err != nil {
		return fmt.Errorf("failed to decode completion JSON: %w", err)
	}
	return nil
}

// extractJSON trims the completion down to its outermost JSON object or array.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Drop markdown code fences.
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	objStart := strings.IndexByte(s, '{')
	arrStart := strings.IndexByte(s, '[')

	start := objStart
	closer := byte('}')
	if start == -1 || (arrStart != -1 && arrStart < start) {
		start = arrStart
		closer = ']'
	}
	if start == -1 {
		return ""
	}

	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}

// repairJSON attempts to fix common JSON formatting issues from LLM responses:
// keys missing their opening quote and trailing commas before a closer.
func repairJSON(s string) string {
	runes := []rune(s)
	fixed := make([]rune, 0, len(runes)+16)

	i := 0
	for i < len(runes) {
		ch := runes[i]

		// After { or , look for unquoted keys like `type":`.
		if ch == '{' || ch == ',' {
			fixed = append(fixed, ch)
			i++

			for i < len(runes) && (runes[i] == ' ' || runes[i] == '\n' || runes[i] == '\t') {
				fixed = append(fixed, runes[i])
				i++
			}

			if i < len(runes) && runes[i] != '"' && isKeyRune(runes[i]) {
				keyStart := i
				for i < len(runes) && (isKeyRune(runes[i]) || runes[i] == ' ') {
					i++
				}
				if i+1 < len(runes) && runes[i] == '"' && runes[i+1] == ':' {
					fixed = append(fixed, '"')
					fixed = append(fixed, runes[keyStart:i]...)
					continue
				}
				fixed = append(fixed, runes[keyStart:i]...)
			}
			continue
		}

		fixed = append(fixed, ch)
		i++
	}

	// Strip trailing commas: `, }` and `, ]`.
	out := make([]rune, 0, len(fixed))
	for i := 0; i < len(fixed); i++ {
		if fixed[i] == ',' {
			j := i + 1
			for j < len(fixed) && (fixed[j] == ' ' || fixed[j] == '\n' || fixed[j] == '\t') {
				j++
			}
			if j < len(fixed) && (fixed[j] == '}' || fixed[j] == ']') {
				continue
			}
		}
		out = append(out, fixed[i])
	}

	return string(out)
}

func isKeyRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
