// JSON column helpers. Tags and external refs are stored as JSON arrays in
// TEXT columns so SQLite's json_each can filter on them.
package sqlite

import (
	"encoding/json"
	"fmt"
)

// marshalStrings encodes a string slice for a JSON TEXT column. A nil slice
// encodes as the empty array so the column never holds SQL NULL.
func marshalStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("marshaling string list: %w", err)
	}
	return string(data), nil
}

// unmarshalStrings decodes a JSON TEXT column into a string slice. The result
// is never nil so entities serialize with [] instead of null.
func unmarshalStrings(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("parsing string list column: %w", err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}
