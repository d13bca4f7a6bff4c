// synthctl/pkg/matcher/oneofeach.go

package matcher

import (
	"fmt"

	"mkowalik/synthctl/pkg/logging"
)

// Binding pairs an attribute path with the ordered values it may take
// in a one_of_each selection.
type Binding struct {
	Attr   Path
	Values []string // canonical forms
}

// parseBindings parses the one_of_each body: a mapping from attribute
// path to a non-empty list of scalars. Decoded mappings carry no key
// order, so bindings are ordered by attribute name to keep combination
// order deterministic for a given configuration.
func parseBindings(cfg interface{}) ([]Binding, error) {
	m, ok := cfg.(map[string]interface{})
	if !ok {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			"one_of_each requires a mapping of attribute to value list", nil,
			map[string]interface{}{"value": cfg})
	}
	if len(m) == 0 {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			"one_of_each requires at least one attribute binding", nil, nil)
	}
	bindings := make([]Binding, 0, len(m))
	for _, key := range sortedKeys(m) {
		list, ok := m[key].([]interface{})
		if !ok {
			return nil, logging.NewError(logging.ErrorTypeConfig,
				fmt.Sprintf("one_of_each binding '%s' must be a list of scalars", key), nil,
				map[string]interface{}{"value": m[key]})
		}
		if len(list) == 0 {
			return nil, logging.NewError(logging.ErrorTypeConfig,
				fmt.Sprintf("one_of_each binding '%s' has an empty value list", key), nil, nil)
		}
		values := make([]string, 0, len(list))
		for _, v := range list {
			s, err := canonicalString(v)
			if err != nil {
				return nil, logging.NewError(logging.ErrorTypeConfig,
					fmt.Sprintf("one_of_each binding '%s' contains a non-scalar value", key), err,
					map[string]interface{}{"value": v})
			}
			values = append(values, s)
		}
		bindings = append(bindings, Binding{Attr: ParsePath(key), Values: values})
	}
	logging.Logger.Debug().Int("bindings", len(bindings)).Msg("Parsed one_of_each bindings")
	return bindings, nil
}

// SelectOneOfEach walks the Cartesian product of the binding value
// lists in binding order and assigns to every combination the first
// candidate whose attributes equal all values of the combination. A
// candidate stays eligible for later combinations after being picked;
// a combination with no matching candidate contributes nothing. Output
// is in combination order, which makes the result depend on candidate
// order when several candidates tie for a combination; upstream APIs do
// not guarantee stable inventory order, so run-to-run variability here
// is accepted behavior.
func SelectOneOfEach[T Object](bindings []Binding, candidates []T) ([]T, error) {
	if len(bindings) == 0 {
		return nil, nil
	}
	var picked []T
	indexes := make([]int, len(bindings))
	for {
		obj, found, err := pickForCombination(bindings, indexes, candidates)
		if err != nil {
			return nil, err
		}
		if found {
			picked = append(picked, obj)
		}
		if !advance(bindings, indexes) {
			break
		}
	}
	logging.Logger.Debug().Int("picked", len(picked)).Int("candidates", len(candidates)).Msg("Applied one_of_each selection")
	return picked, nil
}

// pickForCombination scans candidates in order and returns the first
// one matching the combination selected by indexes.
func pickForCombination[T Object](bindings []Binding, indexes []int, candidates []T) (T, bool, error) {
	var zero T
	for _, obj := range candidates {
		matched := true
		for i, b := range bindings {
			val, ok := Resolve(obj, b.Attr)
			if !ok {
				matched = false
				break
			}
			str, err := canonicalString(val)
			if err != nil {
				return zero, false, logging.NewError(logging.ErrorTypeConfig,
					fmt.Sprintf("one_of_each on multi-valued attribute '%s'", b.Attr), err,
					map[string]interface{}{"attribute": b.Attr.String()})
			}
			if str != b.Values[indexes[i]] {
				matched = false
				break
			}
		}
		if matched {
			return obj, true, nil
		}
	}
	return zero, false, nil
}

// advance steps the combination odometer, last binding fastest.
// Returns false after the last combination.
func advance(bindings []Binding, indexes []int) bool {
	for i := len(indexes) - 1; i >= 0; i-- {
		indexes[i]++
		if indexes[i] < len(bindings[i].Values) {
			return true
		}
		indexes[i] = 0
	}
	return false
}
