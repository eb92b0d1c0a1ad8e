package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON extracts and unmarshals a JSON document from raw model
// output. The model is treated as an untrusted text source: a single
// code-fence wrapper is stripped, and if direct decoding still fails the
// outermost {...} or [...] window is tried before giving up.
func DecodeJSON(raw string, v any) error {
	text := StripCodeFence(raw)

	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	window := braceWindow(text)
	if window == "" {
		return fmt.Errorf("no JSON document found in model response")
	}

	if err := json.Unmarshal([]byte(window), v); err != nil {
		return fmt.Errorf("failed to decode model response: %w", err)
	}

	return nil
}

// StripCodeFence removes one leading ``` or ```json marker and one
// trailing ``` marker, if present.
func StripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	if strings.HasSuffix(text, "```") {
		text = text[:len(text)-len("```")]
	}

	return strings.TrimSpace(text)
}

func braceWindow(text string) string {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return ""
	}

	var closer string
	if text[start] == '{' {
		closer = "}"
	} else {
		closer = "]"
	}

	end := strings.LastIndex(text, closer)
	if end <= start {
		return ""
	}

	return text[start : end+1]
}
