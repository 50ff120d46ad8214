package runner

import (
	"encoding/json"
	"net/http"

	"github.com/sadopc/courier/internal/core/collection"
	"github.com/sadopc/courier/internal/scripting"
)

func headersToMap(pairs []collection.KVPair) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p.Key] = p.Value
	}
	return m
}

func mapToHeaders(m map[string]string) []collection.KVPair {
	out := make([]collection.KVPair, 0, len(m))
	for k, v := range m {
		out = append(out, collection.KVPair{Key: k, Value: v, Enabled: true})
	}
	return out
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

func marshalHeaders(h http.Header) string {
	b, _ := json.Marshal(h)
	return string(b)
}

func marshalTestResults(results []scripting.TestResult) string {
	if len(results) == 0 {
		return "[]"
	}
	b, err := json.Marshal(results)
	if err != nil {
		return "[]"
	}
	return string(b)
}
