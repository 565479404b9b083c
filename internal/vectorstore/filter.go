package vectorstore

import (
	"slices"
	"strconv"
)

// Condition is a single payload-field constraint: either an exact value
// match or an "any of these values" match.
type Condition struct {
	Key   string
	Value string
	Any   []string
}

// Match builds an exact-value condition.
func Match(key, value string) Condition {
	return Condition{Key: key, Value: value}
}

// MatchAny builds an any-of condition.
func MatchAny(key string, values []string) Condition {
	return Condition{Key: key, Any: values}
}

// Filter is a conjunction of conditions; a point matches only if every
// condition matches.
type Filter struct {
	Must []Condition
}

// And returns a copy of the filter with conds appended.
func (f Filter) And(conds ...Condition) Filter {
	must := make([]Condition, 0, len(f.Must)+len(conds))
	must = append(must, f.Must...)
	must = append(must, conds...)
	return Filter{Must: must}
}

// Empty reports whether the filter carries no conditions.
func (f Filter) Empty() bool {
	return len(f.Must) == 0
}

// Matches evaluates the filter against a payload. List-valued payload
// fields match when they contain the condition value (or intersect the
// any-of set).
func (f Filter) Matches(payload map[string]any) bool {
	for _, c := range f.Must {
		if !c.Matches(payload) {
			return false
		}
	}
	return true
}

// Matches evaluates a single condition against a payload.
func (c Condition) Matches(payload map[string]any) bool {
	raw, ok := payload[c.Key]
	if !ok {
		return false
	}
	values := valueStrings(raw)

	if len(c.Any) > 0 {
		for _, want := range c.Any {
			if slices.Contains(values, want) {
				return true
			}
		}
		return false
	}
	return slices.Contains(values, c.Value)
}

// valueStrings flattens a payload value into comparable strings.
func valueStrings(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, valueStrings(item)...)
		}
		return out
	case int:
		return []string{strconv.Itoa(val)}
	case int64:
		return []string{strconv.FormatInt(val, 10)}
	case float64:
		return []string{strconv.FormatFloat(val, 'f', -1, 64)}
	case bool:
		return []string{strconv.FormatBool(val)}
	default:
		return nil
	}
}
