package ai

import (
	"encoding/json"
	"strings"
)

// CleanJSON strips markdown code fences the model sometimes wraps JSON in.
func CleanJSON(input string) string {
	input = strings.ReplaceAll(input, "```json", "")
	input = strings.ReplaceAll(input, "```", "")
	return strings.TrimSpace(input)
}

// DecodeJSON cleans text, validates it against schema when one is given,
// and unmarshals it into T. Every failure is a MalformedResponseError.
func DecodeJSON[T any](op, text string, schema *Schema) (T, error) {
	var out T
	clean := CleanJSON(text)
	if schema != nil {
		if err := ValidateJSON(schema, []byte(clean)); err != nil {
			return out, &MalformedResponseError{Op: op, Raw: clean, Err: err}
		}
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return out, &MalformedResponseError{Op: op, Raw: clean, Err: err}
	}
	return out, nil
}
