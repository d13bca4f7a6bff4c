// synthctl/pkg/matcher/ruleset.go

package matcher

import (
	"fmt"
	"sort"

	"mkowalik/synthctl/pkg/logging"
)

// RuleSet is a parsed top-level rule list (the "devices"/"agents"
// section of a test definition). The list is an implicit AND across all
// predicate entries; a one_of_each entry and a limit directive are
// structural and applied as post-filter steps.
type RuleSet struct {
	Predicates []*Rule
	OneOfEach  []Binding // nil when no one_of_each entry is present
	Limit      int       // 0 means unlimited
}

// ParseRuleSet parses a rule list decoded from YAML/JSON. Each entry is
// a mapping; every key/value pair contributes one rule or directive.
// At most one one_of_each entry and one limit directive are allowed.
func ParseRuleSet(cfg interface{}) (*RuleSet, error) {
	rs := &RuleSet{}
	if cfg == nil {
		return rs, nil
	}
	list, ok := cfg.([]interface{})
	if !ok {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			"rule section must be a list of rules", nil,
			map[string]interface{}{"value": cfg})
	}
	for _, entry := range list {
		m, ok := entry.(map[string]interface{})
		if !ok {
			return nil, logging.NewError(logging.ErrorTypeConfig,
				"rule entries must be mappings", nil,
				map[string]interface{}{"entry": entry})
		}
		for _, key := range sortedKeys(m) {
			val := m[key]
			switch key {
			case "limit", "=limit":
				limit, err := parseLimit(val)
				if err != nil {
					return nil, err
				}
				if rs.Limit > 0 {
					return nil, logging.NewError(logging.ErrorTypeConfig,
						"duplicate limit directive in rule list", nil, nil)
				}
				rs.Limit = limit
			default:
				rule, err := parseEntry(key, val)
				if err != nil {
					return nil, err
				}
				if rule.Kind == KindOneOfEach {
					if rs.OneOfEach != nil {
						return nil, logging.NewError(logging.ErrorTypeConfig,
							"duplicate one_of_each entry in rule list", nil, nil)
					}
					rs.OneOfEach = rule.Bindings
				} else {
					rs.Predicates = append(rs.Predicates, rule)
				}
			}
		}
	}
	logging.Logger.Debug().
		Int("predicates", len(rs.Predicates)).
		Bool("one_of_each", rs.OneOfEach != nil).
		Int("limit", rs.Limit).
		Msg("Parsed rule set")
	return rs, nil
}

func parseLimit(val interface{}) (int, error) {
	var limit int
	switch v := val.(type) {
	case int:
		limit = v
	case int64:
		limit = int(v)
	case float64:
		limit = int(v)
		if float64(limit) != v {
			return 0, logging.NewError(logging.ErrorTypeConfig,
				"limit must be an integer", nil, map[string]interface{}{"value": val})
		}
	default:
		return 0, logging.NewError(logging.ErrorTypeConfig,
			"limit must be an integer", nil, map[string]interface{}{"value": val})
	}
	if limit <= 0 {
		return 0, logging.NewError(logging.ErrorTypeConfig,
			"limit must be positive", nil, map[string]interface{}{"value": val})
	}
	return limit, nil
}

// MatchObject reports whether every predicate in the set matches obj.
// An empty predicate set matches everything.
func (rs *RuleSet) MatchObject(obj Object) (bool, error) {
	for _, rule := range rs.Predicates {
		ok, err := rule.Match(obj)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Select applies the rule set to a candidate collection: predicate
// filtering in candidate order, then one_of_each selection, then limit
// truncation. Predicate filtering preserves the order candidates were
// supplied in; one_of_each output is in combination order instead.
func Select[T Object](rs *RuleSet, candidates []T) ([]T, error) {
	matched := make([]T, 0, len(candidates))
	for _, obj := range candidates {
		ok, err := rs.MatchObject(obj)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, obj)
		}
	}
	logging.Logger.Debug().Int("candidates", len(candidates)).Int("matched", len(matched)).Msg("Applied predicate rules")

	if rs.OneOfEach != nil {
		var err error
		matched, err = SelectOneOfEach(rs.OneOfEach, matched)
		if err != nil {
			return nil, err
		}
	}

	if rs.Limit > 0 && len(matched) > rs.Limit {
		logging.Logger.Debug().Int("limit", rs.Limit).Int("matched", len(matched)).Msg("Truncating matched set")
		matched = matched[:rs.Limit]
	}
	return matched, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the rule set for debug logs.
func (rs *RuleSet) String() string {
	return fmt.Sprintf("RuleSet(predicates=%d, one_of_each=%v, limit=%d)",
		len(rs.Predicates), rs.OneOfEach != nil, rs.Limit)
}
