package repository

import "encoding/json"

// JSON-encoded list/map columns are a serialization boundary owned by this
// layer; services only ever see native collections.

func jsonDump(value any) string {
	raw, err := json.Marshal(value)
	if err != nil {
		return "null"
	}
	return string(raw)
}

func jsonLoadSlice[T any](raw string) []T {
	var out []T
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func jsonLoadMap[V any](raw string) map[string]V {
	out := map[string]V{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]V{}
	}
	return out
}
