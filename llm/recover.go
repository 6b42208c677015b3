package llm

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// span returns the text from the first '{' to the last '}', inclusive.
func span(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// Recover extracts a JSON object embedded in free-form model output, such
// as one wrapped in a markdown fence or surrounded by prose. The span from
// the first '{' to the last '}' must parse as an object; anything else
// reports ok=false.
func Recover(text string) (map[string]any, bool) {
	s, ok := span(text)
	if !ok {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// RecoverLenient behaves like Recover, then retries the same span after
// repairing common defects (trailing commas, single quotes, unquoted keys).
func RecoverLenient(text string) (map[string]any, bool) {
	if obj, ok := Recover(text); ok {
		return obj, true
	}
	s, ok := span(text)
	if !ok {
		return nil, false
	}
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
