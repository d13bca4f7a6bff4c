// synthctl/pkg/matcher/oneofeach_test.go

package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mkowalik/synthctl/pkg/logging"
)

func mustBindings(t *testing.T, cfg interface{}) []Binding {
	t.Helper()
	bindings, err := parseBindings(cfg)
	require.NoError(t, err)
	return bindings
}

func TestOneOfEachPicksFirstCandidatePerCombination(t *testing.T) {
	bindings := mustBindings(t, map[string]interface{}{
		"asn":     []interface{}{1, 2},
		"country": []interface{}{"US"},
	})

	candidates := []object{
		{"name": "A", "asn": 1, "country": "US"},
		{"name": "B", "asn": 2, "country": "US"},
		{"name": "C", "asn": 1, "country": "US"},
	}
	picked, err := SelectOneOfEach(bindings, candidates)
	require.NoError(t, err)
	require.Len(t, picked, 2)
	// (1, US) takes A over C; (2, US) takes B
	assert.Equal(t, "A", picked[0]["name"])
	assert.Equal(t, "B", picked[1]["name"])
}

func TestOneOfEachOutputInCombinationOrder(t *testing.T) {
	// bindings sort by attribute name: country before region, so
	// combinations step region fastest
	bindings := mustBindings(t, map[string]interface{}{
		"region":  []interface{}{"west", "east"},
		"country": []interface{}{"US", "DE"},
	})

	candidates := []object{
		{"name": "de-east", "country": "DE", "region": "east"},
		{"name": "us-east", "country": "US", "region": "east"},
		{"name": "us-west", "country": "US", "region": "west"},
		{"name": "de-west", "country": "DE", "region": "west"},
	}
	picked, err := SelectOneOfEach(bindings, candidates)
	require.NoError(t, err)
	require.Len(t, picked, 4)
	assert.Equal(t, "us-west", picked[0]["name"])
	assert.Equal(t, "us-east", picked[1]["name"])
	assert.Equal(t, "de-west", picked[2]["name"])
	assert.Equal(t, "de-east", picked[3]["name"])
}

func TestOneOfEachEmptyCombinationsSkipped(t *testing.T) {
	bindings := mustBindings(t, map[string]interface{}{
		"asn": []interface{}{1, 2, 3},
	})

	candidates := []object{
		{"name": "A", "asn": 1},
		{"name": "C", "asn": 3},
	}
	picked, err := SelectOneOfEach(bindings, candidates)
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "A", picked[0]["name"])
	assert.Equal(t, "C", picked[1]["name"])
}

func TestOneOfEachCandidateReusableAcrossCombinations(t *testing.T) {
	bindings := mustBindings(t, map[string]interface{}{
		"asn":     []interface{}{1},
		"country": []interface{}{"US", "DE"},
	})

	// the same candidate satisfies (1, US); nothing satisfies (1, DE)
	candidates := []object{
		{"name": "A", "asn": 1, "country": "US"},
	}
	picked, err := SelectOneOfEach(bindings, candidates)
	require.NoError(t, err)
	require.Len(t, picked, 1)
	assert.Equal(t, "A", picked[0]["name"])
}

func TestOneOfEachSamePickAllowedTwice(t *testing.T) {
	// overlapping value lists can select the same candidate for two
	// combinations; no cross-combination exclusivity
	bindings := mustBindings(t, map[string]interface{}{
		"asn": []interface{}{1, "1"},
	})

	candidates := []object{
		{"name": "A", "asn": 1},
	}
	picked, err := SelectOneOfEach(bindings, candidates)
	require.NoError(t, err)
	require.Len(t, picked, 2)
	assert.Equal(t, "A", picked[0]["name"])
	assert.Equal(t, "A", picked[1]["name"])
}

func TestOneOfEachMissingAttributeNeverMatches(t *testing.T) {
	bindings := mustBindings(t, map[string]interface{}{
		"country": []interface{}{"US"},
	})

	picked, err := SelectOneOfEach(bindings, []object{{"name": "A"}})
	require.NoError(t, err)
	assert.Empty(t, picked)
}

func TestOneOfEachNumericCoercion(t *testing.T) {
	bindings := mustBindings(t, map[string]interface{}{
		"asn": []interface{}{64512},
	})

	// float-decoded attribute value still compares equal
	picked, err := SelectOneOfEach(bindings, []object{
		{"name": "A", "asn": 64512.0},
	})
	require.NoError(t, err)
	require.Len(t, picked, 1)
}

func TestOneOfEachMultiValuedAttributeIsError(t *testing.T) {
	bindings := mustBindings(t, map[string]interface{}{
		"sending_ips": []interface{}{"10.0.0.1"},
	})

	_, err := SelectOneOfEach(bindings, []object{
		{"sending_ips": []interface{}{"10.0.0.1"}},
	})
	assert.Error(t, err)
	assert.True(t, logging.IsType(err, logging.ErrorTypeConfig))
}

func TestParseBindingsRejectsEmptyMapping(t *testing.T) {
	_, err := parseBindings(map[string]interface{}{})
	assert.Error(t, err)
}

func TestParseBindingsRejectsEmptyValueList(t *testing.T) {
	_, err := parseBindings(map[string]interface{}{
		"asn": []interface{}{},
	})
	assert.Error(t, err)
}

func TestParseBindingsRejectsNonListValue(t *testing.T) {
	_, err := parseBindings(map[string]interface{}{
		"asn": 42,
	})
	assert.Error(t, err)
}

func TestParseBindingsRejectsNonScalarValues(t *testing.T) {
	_, err := parseBindings(map[string]interface{}{
		"asn": []interface{}{[]interface{}{1}},
	})
	assert.Error(t, err)
}

func TestSelectWithOneOfEachAndLimit(t *testing.T) {
	rs, err := ParseRuleSet([]interface{}{
		map[string]interface{}{"type": "global"},
		map[string]interface{}{"one_of_each": map[string]interface{}{
			"country": []interface{}{"US", "DE", "JP"},
		}},
		map[string]interface{}{"limit": 2},
	})
	require.NoError(t, err)

	candidates := []object{
		{"name": "jp1", "type": "global", "country": "JP"},
		{"name": "us1", "type": "global", "country": "US"},
		{"name": "de1", "type": "global", "country": "DE"},
		{"name": "us2", "type": "private", "country": "US"},
	}
	picked, err := Select(rs, candidates)
	require.NoError(t, err)
	// one per country in combination order (US, DE, JP), then limit 2
	require.Len(t, picked, 2)
	assert.Equal(t, "us1", picked[0]["name"])
	assert.Equal(t, "de1", picked[1]["name"])
}
