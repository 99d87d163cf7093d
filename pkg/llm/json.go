package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// thinkTagPattern matches <think>...</think> tags that reasoning models may
// emit before their actual answer.
var thinkTagPattern = regexp.MustCompile(`(?s)\s*<think>.*?</think>\s*`)

// StripThinking removes <think>...</think> blocks from a model response.
func StripThinking(response string) string {
	return thinkTagPattern.ReplaceAllString(response, "")
}

// ExtractJSONObject returns the first balanced {...} span in a model response
// that parses as valid JSON. The response may contain thinking tags, markdown
// fences, or prose around the object.
func ExtractJSONObject(response string) (string, error) {
	return extractSpan(StripThinking(response), '{', '}')
}

// ExtractJSONArray returns the first balanced [...] span in a model response
// that parses as valid JSON.
func ExtractJSONArray(response string) (string, error) {
	return extractSpan(StripThinking(response), '[', ']')
}

// ExtractJSON returns the first valid JSON value in a model response,
// preferring whichever of {...} or [...] appears first.
func ExtractJSON(response string) (string, error) {
	cleaned := StripThinking(response)

	objStart := strings.IndexByte(cleaned, '{')
	arrStart := strings.IndexByte(cleaned, '[')

	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		if s, err := extractSpan(cleaned, '{', '}'); err == nil {
			return s, nil
		}
	}
	if arrStart >= 0 {
		if s, err := extractSpan(cleaned, '[', ']'); err == nil {
			return s, nil
		}
	}

	// Last resort: the entire cleaned response may be valid JSON.
	trimmed := strings.TrimSpace(cleaned)
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	return "", fmt.Errorf("no valid JSON found in response")
}

func extractSpan(s string, openChar, closeChar byte) (string, error) {
	span, ok := scanBalanced(s, openChar, closeChar)
	if !ok {
		return "", fmt.Errorf("no balanced %c...%c span found", openChar, closeChar)
	}
	if !json.Valid([]byte(span)) {
		return "", fmt.Errorf("%c...%c span is not valid JSON", openChar, closeChar)
	}
	return span, nil
}

// scanBalanced finds the first balanced bracket structure starting with
// openChar, counting depth and skipping bracket characters inside strings.
func scanBalanced(s string, openChar, closeChar byte) (string, bool) {
	start := strings.IndexByte(s, openChar)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case openChar:
			depth++
		case closeChar:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}
