package runner

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSONField pulls a value out of a JSON response body using a
// small dot-notation subset of JSONPath: $.field, $.field.nested, and
// $.array[0].field. It is the supplemental per-request variable
// extraction step (SPEC_FULL.md): run after a response is received and
// its post-response scripts have executed, writing into that request's
// Local scope. Each request gets a fresh Store, so an extracted value is
// not visible to later requests in the run. Returns "" on
// any parse or path miss rather than an error — a missing extraction
// should not fail an otherwise-passing iteration.
func extractJSONField(body, expr string) string {
	expr = strings.TrimSpace(expr)
	expr = strings.TrimPrefix(expr, "$.")

	var current interface{}
	if err := json.Unmarshal([]byte(body), &current); err != nil {
		return ""
	}

	for _, part := range strings.Split(expr, ".") {
		if idx := strings.Index(part, "["); idx > 0 {
			field := part[:idx]
			indexStr := strings.TrimSuffix(part[idx+1:], "]")
			var arrayIdx int
			if _, err := fmt.Sscanf(indexStr, "%d", &arrayIdx); err != nil {
				return ""
			}
			obj, ok := current.(map[string]interface{})
			if !ok {
				return ""
			}
			arr, ok := obj[field].([]interface{})
			if !ok || arrayIdx < 0 || arrayIdx >= len(arr) {
				return ""
			}
			current = arr[arrayIdx]
			continue
		}
		obj, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current, ok = obj[part]
		if !ok {
			return ""
		}
	}

	switch v := current.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%v", v)
	case nil:
		return ""
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
