package runner

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
)

// ParseDataRows decodes a collection run's data file into one map per
// row, keyed by column/field name. filename's extension picks the
// format: .csv is parsed with the first row as headers, .json expects
// an array of flat objects. An empty filename (no data file attached
// to the run) returns a nil slice, not an error.
func ParseDataRows(filename string, content []byte) ([]map[string]string, error) {
	if filename == "" || len(content) == 0 {
		return nil, nil
	}
	switch ext := strings.ToLower(extOf(filename)); ext {
	case ".csv":
		return parseCSVRows(content)
	case ".json":
		return parseJSONRows(content)
	default:
		return nil, fmt.Errorf("unsupported data file extension %q (want .csv or .json)", ext)
	}
}

func extOf(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 {
		return ""
	}
	return filename[idx:]
}

func parseCSVRows(content []byte) ([]map[string]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv data file: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseJSONRows(content []byte) ([]map[string]string, error) {
	var raw []map[string]interface{}
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("parsing json data file: %w", err)
	}
	rows := make([]map[string]string, 0, len(raw))
	for _, obj := range raw {
		row := make(map[string]string, len(obj))
		for k, v := range obj {
			row[k] = stringifyJSONValue(v)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func stringifyJSONValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%v", val)
	default:
		b, _ := json.Marshal(val)
		return string(b)
	}
}

// RowAt returns rows[i mod len(rows)] per spec.md §4.I's data-file
// wrapping rule. It returns nil when rows is empty (no data file).
func RowAt(rows []map[string]string, i int) map[string]string {
	if len(rows) == 0 {
		return nil
	}
	return rows[i%len(rows)]
}
