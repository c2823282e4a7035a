package codebeamer

import "encoding/json"

// Item is one raw codebeamer payload. It stays schemaless because trackers
// define their own custom fields and the reference configuration may name
// any of them.
type Item map[string]any

func (it Item) ID() int {
	id, _ := asInt(it["id"])
	return id
}

func (it Item) Version() int {
	v, _ := asInt(it["version"])
	return v
}

func (it Item) TrackerID() int {
	tracker, ok := it["tracker"].(map[string]any)
	if !ok {
		return 0
	}
	id, _ := asInt(tracker["id"])
	return id
}

func (it Item) Name() (string, bool) {
	name, ok := it["name"].(string)
	return name, ok
}

// Status is the name of the item's status sub-object, if any.
func (it Item) Status() (string, bool) {
	status, ok := it["status"].(map[string]any)
	if !ok {
		return "", false
	}
	name, ok := status["name"].(string)
	return name, ok
}

// Category is the name of the item's first category, if any.
func (it Item) Category() (string, bool) {
	categories, ok := it["categories"].([]any)
	if !ok || len(categories) == 0 {
		return "", false
	}
	first, ok := categories[0].(map[string]any)
	if !ok {
		return "", false
	}
	name, ok := first["name"].(string)
	return name, ok
}

// Values collects the values stored under a display-field name. A top-level
// field wins, with a scalar treated as a one-element list; otherwise every
// custom field with that name contributes its values.
func (it Item) Values(field string) []any {
	if v, ok := it[field]; ok && notEmpty(v) {
		if list, ok := v.([]any); ok {
			return list
		}
		return []any{v}
	}
	customFields, ok := it["customFields"].([]any)
	if !ok {
		return nil
	}
	var out []any
	for _, entry := range customFields {
		cf, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if name, _ := cf["name"].(string); name != field {
			continue
		}
		values, ok := cf["values"].([]any)
		if !ok || len(values) == 0 {
			continue
		}
		out = append(out, values...)
	}
	return out
}

// asInt reads a numeric payload value. JSON decoding yields float64; tests
// and callers may hand in native ints or json.Number.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

func notEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}
