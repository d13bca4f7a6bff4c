// synthctl/pkg/matcher/attribute.go

package matcher

import (
	"errors"
	"strconv"
	"strings"

	"mkowalik/synthctl/pkg/logging"
)

// Object is the contract inventory records satisfy to be matchable.
// Attribute returns the value of a top-level attribute; nested values
// are reached through dotted paths resolved by Resolve.
type Object interface {
	Attribute(key string) (interface{}, bool)
}

// Labeler is satisfied by objects carrying a label set. A rule on the
// "label" attribute matches when the value equals any of the labels.
type Labeler interface {
	HasLabel(label string) bool
}

// Path is a parsed dotted attribute path, e.g. "site.site_name".
type Path []string

func ParsePath(s string) Path {
	return Path(strings.Split(s, "."))
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// Resolve walks obj along path. The first segment is looked up through
// the Object contract, the remaining segments descend into nested
// mappings. A missing key or a non-mapping intermediate value resolves
// to absent (ok=false), never an error.
func Resolve(obj Object, path Path) (interface{}, bool) {
	if len(path) == 0 {
		return nil, false
	}
	val, ok := obj.Attribute(path[0])
	if !ok {
		logging.Logger.Debug().Str("attribute", path.String()).Msg("Attribute absent on object")
		return nil, false
	}
	for _, key := range path[1:] {
		m, isMap := val.(map[string]interface{})
		if !isMap {
			logging.Logger.Debug().Str("attribute", path.String()).Str("key", key).Msg("Intermediate value is not a mapping")
			return nil, false
		}
		val, ok = m[key]
		if !ok {
			logging.Logger.Debug().Str("attribute", path.String()).Str("key", key).Msg("Nested key absent")
			return nil, false
		}
	}
	return val, true
}

var errNotScalar = errors.New("value is not a scalar")

// canonicalString coerces a scalar attribute or rule value to its
// canonical string form, so that equality and regex matching behave
// uniformly regardless of how YAML/JSON typed the value. Sequences and
// mappings are not coercible.
func canonicalString(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int8:
		return strconv.FormatInt(int64(val), 10), nil
	case int16:
		return strconv.FormatInt(int64(val), 10), nil
	case int32:
		return strconv.FormatInt(int64(val), 10), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case uint:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(val), 10), nil
	case uint64:
		return strconv.FormatUint(val, 10), nil
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 64), nil
	case float64:
		// JSON decodes all numbers to float64; "42" and "42.0" must
		// coerce to the same string.
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return "", errNotScalar
	}
}
