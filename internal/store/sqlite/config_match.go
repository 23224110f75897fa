package sqlite

import (
	"encoding/json"
	"strings"

	"github.com/tract-dev/tract/internal/store"
	"github.com/tract-dev/tract/internal/types"
)

// matchesAllConditions evaluates get_by_config's AND-of-conditions filter
// (spec.md §4.2) against a commit's generation_config_json, falling back to
// metadata_json for paths not found there. Each JSONPath is a dot-separated
// walk from the document root.
func matchesAllConditions(cm *types.Commit, conditions []store.ConfigCondition) bool {
	for _, cond := range conditions {
		if !matchesCondition(cm, cond) {
			return false
		}
	}
	return true
}

func matchesCondition(cm *types.Commit, cond store.ConfigCondition) bool {
	val, ok := lookupPath(cm.GenerationConfig, cond.JSONPath)
	if !ok {
		val, ok = lookupPath(cm.MetadataJSON, cond.JSONPath)
	}
	if !ok {
		return cond.Operator == "!=" || cond.Operator == "not in"
	}
	return compareValues(val, cond.Operator, cond.Value)
}

func lookupPath(raw []byte, path string) (any, bool) {
	if len(raw) == 0 || path == "" {
		return nil, false
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false
	}
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := m[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func compareValues(actual any, op string, expected any) bool {
	switch op {
	case "=":
		return equalValues(actual, expected)
	case "!=":
		return !equalValues(actual, expected)
	case "<", "<=", ">", ">=":
		af, aok := toFloatAny(actual)
		ef, eok := toFloatAny(expected)
		if !aok || !eok {
			return false
		}
		switch op {
		case "<":
			return af < ef
		case "<=":
			return af <= ef
		case ">":
			return af > ef
		case ">=":
			return af >= ef
		}
	case "in", "not in":
		list, ok := expected.([]any)
		if !ok {
			return false
		}
		found := false
		for _, item := range list {
			if equalValues(actual, item) {
				found = true
				break
			}
		}
		if op == "in" {
			return found
		}
		return !found
	case "between", "not between":
		bounds, ok := expected.([]any)
		if !ok || len(bounds) != 2 {
			return false
		}
		af, aok := toFloatAny(actual)
		lo, lok := toFloatAny(bounds[0])
		hi, hok := toFloatAny(bounds[1])
		if !aok || !lok || !hok {
			return false
		}
		within := af >= lo && af <= hi
		if op == "between" {
			return within
		}
		return !within
	}
	return false
}

func equalValues(a, b any) bool {
	af, aok := toFloatAny(a)
	bf, bok := toFloatAny(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func toFloatAny(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
