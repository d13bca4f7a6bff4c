// synthctl/pkg/matcher/rule.go

package matcher

import (
	"fmt"
	"regexp"

	"mkowalik/synthctl/pkg/logging"
)

// Kind discriminates the closed set of rule variants. Adding a kind
// means extending the switches in Match and parseEntry, which the
// compiler will point at.
type Kind int

const (
	KindDirect Kind = iota
	KindRegex
	KindAll
	KindAny
	KindOneOfEach
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindRegex:
		return "regex"
	case KindAll:
		return "match_all"
	case KindAny:
		return "match_any"
	case KindOneOfEach:
		return "one_of_each"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Rule is a single matching predicate (direct, regex, match_all,
// match_any) or the one_of_each collection selector. Rules are built
// once from parsed configuration and are immutable afterwards.
type Rule struct {
	Kind     Kind
	Attr     Path           // KindDirect, KindRegex
	Value    string         // KindDirect, canonical form
	Pattern  *regexp.Regexp // KindRegex
	Rules    []*Rule        // KindAll, KindAny
	Bindings []Binding      // KindOneOfEach
}

// regexValue recognizes the regex(...) value syntax of property rules.
var regexValue = regexp.MustCompile(`^regex\((.*)\)$`)

// Match evaluates a predicate rule against one object. A one_of_each
// rule is a collection selector, not a predicate; asking it to match a
// single object is a configuration error.
func (r *Rule) Match(obj Object) (bool, error) {
	switch r.Kind {
	case KindDirect:
		return r.matchDirect(obj)
	case KindRegex:
		return r.matchRegex(obj)
	case KindAll:
		// Vacuous AND is true.
		for _, sub := range r.Rules {
			ok, err := sub.Match(obj)
			if err != nil {
				return false, err
			}
			if !ok {
				logging.Logger.Debug().Str("kind", r.Kind.String()).Msg("Sub-rule did not match, short-circuiting")
				return false, nil
			}
		}
		return true, nil
	case KindAny:
		// Vacuous OR is false.
		for _, sub := range r.Rules {
			ok, err := sub.Match(obj)
			if err != nil {
				return false, err
			}
			if ok {
				logging.Logger.Debug().Str("kind", r.Kind.String()).Msg("Sub-rule matched, short-circuiting")
				return true, nil
			}
		}
		return false, nil
	case KindOneOfEach:
		return false, logging.NewError(logging.ErrorTypeConfig,
			"one_of_each is a collection selector and cannot match a single object", nil, nil)
	default:
		return false, logging.NewError(logging.ErrorTypeConfig,
			fmt.Sprintf("unknown rule kind '%s'", r.Kind), nil, nil)
	}
}

func (r *Rule) matchDirect(obj Object) (bool, error) {
	// Labels are a set, not a scalar attribute.
	if len(r.Attr) == 1 && r.Attr[0] == "label" {
		if labeled, ok := obj.(Labeler); ok {
			ret := labeled.HasLabel(r.Value)
			logging.Logger.Debug().Str("label", r.Value).Bool("matched", ret).Msg("Matched label")
			return ret, nil
		}
	}
	val, ok := Resolve(obj, r.Attr)
	if !ok {
		return false, nil
	}
	str, err := canonicalString(val)
	if err != nil {
		return false, logging.NewError(logging.ErrorTypeConfig,
			fmt.Sprintf("equality rule on multi-valued attribute '%s'", r.Attr), err,
			map[string]interface{}{"attribute": r.Attr.String()})
	}
	ret := str == r.Value
	logging.Logger.Debug().Str("attribute", r.Attr.String()).Str("value", r.Value).Bool("matched", ret).Msg("Matched direct rule")
	return ret, nil
}

func (r *Rule) matchRegex(obj Object) (bool, error) {
	val, ok := Resolve(obj, r.Attr)
	if !ok {
		return false, nil
	}
	str, err := canonicalString(val)
	if err != nil {
		return false, logging.NewError(logging.ErrorTypeConfig,
			fmt.Sprintf("regex rule on multi-valued attribute '%s'", r.Attr), err,
			map[string]interface{}{"attribute": r.Attr.String()})
	}
	// Unanchored search: the pattern may match anywhere in the value.
	ret := r.Pattern.MatchString(str)
	logging.Logger.Debug().Str("attribute", r.Attr.String()).Str("pattern", r.Pattern.String()).Bool("matched", ret).Msg("Matched regex rule")
	return ret, nil
}

// parseEntry builds a rule from one key/value pair of a rule-list entry.
func parseEntry(key string, val interface{}) (*Rule, error) {
	switch key {
	case "match_all", "match_any":
		rules, err := parseSubRules(key, val)
		if err != nil {
			return nil, err
		}
		kind := KindAll
		if key == "match_any" {
			kind = KindAny
		}
		return &Rule{Kind: kind, Rules: rules}, nil
	case "one_of_each":
		bindings, err := parseBindings(val)
		if err != nil {
			return nil, err
		}
		return &Rule{Kind: KindOneOfEach, Bindings: bindings}, nil
	default:
		return parseProperty(key, val)
	}
}

func parseProperty(key string, val interface{}) (*Rule, error) {
	if s, ok := val.(string); ok {
		if m := regexValue.FindStringSubmatch(s); m != nil {
			pattern, err := regexp.Compile(m[1])
			if err != nil {
				return nil, logging.NewError(logging.ErrorTypeConfig,
					fmt.Sprintf("invalid regex pattern for attribute '%s'", key), err,
					map[string]interface{}{"pattern": m[1]})
			}
			return &Rule{Kind: KindRegex, Attr: ParsePath(key), Pattern: pattern}, nil
		}
	}
	canonical, err := canonicalString(val)
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			fmt.Sprintf("rule value for attribute '%s' must be a scalar", key), err,
			map[string]interface{}{"value": val})
	}
	return &Rule{Kind: KindDirect, Attr: ParsePath(key), Value: canonical}, nil
}

// parseSubRules parses the body of match_all/match_any: a sequence of
// single-key (or multi-key) mappings, every pair contributing one rule.
func parseSubRules(section string, cfg interface{}) ([]*Rule, error) {
	list, ok := cfg.([]interface{})
	if !ok {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			fmt.Sprintf("'%s' requires a list of rules", section), nil,
			map[string]interface{}{"value": cfg})
	}
	var rules []*Rule
	for _, entry := range list {
		m, ok := entry.(map[string]interface{})
		if !ok {
			return nil, logging.NewError(logging.ErrorTypeConfig,
				fmt.Sprintf("rule entries in '%s' must be mappings", section), nil,
				map[string]interface{}{"entry": entry})
		}
		for _, key := range sortedKeys(m) {
			rule, err := parseEntry(key, m[key])
			if err != nil {
				return nil, err
			}
			if rule.Kind == KindOneOfEach {
				return nil, logging.NewError(logging.ErrorTypeConfig,
					fmt.Sprintf("one_of_each is not allowed inside '%s'", section), nil, nil)
			}
			rules = append(rules, rule)
		}
	}
	logging.Logger.Debug().Str("section", section).Int("rules", len(rules)).Msg("Parsed sub-rules")
	return rules, nil
}
