package incident

import (
	"encoding/json"
	"regexp"
	"strings"
)

var thinkingBlocks = regexp.MustCompile(`(?s)<thinking>.*?</thinking>`)

// extractJSON pulls the first JSON object out of a model response.
//
// Models wrap JSON in predictable ways even when told not to: reasoning
// preambles, <thinking> tags, markdown code fences, trailing commentary.
// The extractor strips those and parses the span between the first "{" and
// the last "}". Returns nil when no parseable object remains.
func extractJSON(response string) map[string]interface{} {
	cleaned := thinkingBlocks.ReplaceAllString(response, "")
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end <= start {
		return nil
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &parsed); err != nil {
		return nil
	}
	return parsed
}

// jsonString reads a string field, empty when absent or mistyped.
func jsonString(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// jsonFloat reads a numeric field, zero when absent or mistyped.
func jsonFloat(m map[string]interface{}, key string) float64 {
	f, _ := m[key].(float64)
	return f
}

// jsonBool reads a boolean field, false when absent or mistyped.
func jsonBool(m map[string]interface{}, key string) bool {
	b, _ := m[key].(bool)
	return b
}

// jsonStringSlice reads an array field, keeping only its string elements.
func jsonStringSlice(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// jsonObjectSlice reads an array-of-objects field.
func jsonObjectSlice(m map[string]interface{}, key string) []map[string]interface{} {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}
