package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// codeFencePattern matches ```json ... ``` fences models like to wrap JSON in.
var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON extracts the first valid JSON object or array from a model
// response that may contain surrounding prose or markdown code fences.
func ExtractJSON(response string) (string, error) {
	candidates := []string{response}
	if m := codeFencePattern.FindStringSubmatch(response); len(m) == 2 {
		candidates = []string{m[1], response}
	}

	for _, candidate := range candidates {
		for _, pair := range [][2]byte{{'{', '}'}, {'[', ']'}} {
			if jsonStr, ok := extractBalanced(candidate, pair[0], pair[1]); ok {
				if json.Valid([]byte(jsonStr)) {
					return jsonStr, nil
				}
			}
		}
		trimmed := strings.TrimSpace(candidate)
		if json.Valid([]byte(trimmed)) {
			return trimmed, nil
		}
	}

	return "", fmt.Errorf("no valid JSON found in response")
}

// extractBalanced finds the first balanced structure delimited by open/close,
// counting depth and skipping over string literals.
func extractBalanced(s string, open, close byte) (string, bool) {
	start := strings.IndexByte(s, open)
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}

// ParseJSONResponse extracts JSON from a response and unmarshals it into T.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}

	return result, nil
}
