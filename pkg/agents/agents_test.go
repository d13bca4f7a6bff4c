// synthctl/pkg/agents/agents_test.go

package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mkowalik/synthctl/pkg/inventory"
	"mkowalik/synthctl/pkg/logging"
	"mkowalik/synthctl/pkg/matcher"
)

func testAgents() []*inventory.Agent {
	return []*inventory.Agent{
		{ID: "601", Name: "us-west", Type: "global", Impl: inventory.AgentImplRust, Country: "US", ASN: 1},
		{ID: "602", Name: "us-east", Type: "global", Impl: inventory.AgentImplNode, Country: "US", ASN: 2},
		{ID: "603", Name: "de-fra", Type: "global", Impl: inventory.AgentImplRust, Country: "DE", ASN: 3},
		{ID: "604", Name: "jp-tyo", Type: "private", Impl: inventory.AgentImplRust, Country: "JP", ASN: 4, Labels: []string{"lab"}},
	}
}

func mustRuleSet(t *testing.T, cfg interface{}) *matcher.RuleSet {
	t.Helper()
	rs, err := matcher.ParseRuleSet(cfg)
	require.NoError(t, err)
	return rs
}

func TestSelectByCountry(t *testing.T) {
	s := NewSelector(mustRuleSet(t, []interface{}{
		map[string]interface{}{"country": "US"},
	}), "", 1, 0)

	ids, err := s.SelectFrom(testAgents())
	require.NoError(t, err)
	assert.Equal(t, []string{"601", "602"}, ids)
}

func TestSelectImplFilterAppliedBeforeRules(t *testing.T) {
	s := NewSelector(mustRuleSet(t, []interface{}{
		map[string]interface{}{"country": "US"},
	}), inventory.AgentImplRust, 1, 0)

	ids, err := s.SelectFrom(testAgents())
	require.NoError(t, err)
	// 602 is the node agent, excluded before rules run
	assert.Equal(t, []string{"601"}, ids)
}

func TestSelectByLabel(t *testing.T) {
	s := NewSelector(mustRuleSet(t, []interface{}{
		map[string]interface{}{"label": "lab"},
	}), "", 1, 0)

	ids, err := s.SelectFrom(testAgents())
	require.NoError(t, err)
	assert.Equal(t, []string{"604"}, ids)
}

func TestSelectMaxCapsResult(t *testing.T) {
	s := NewSelector(mustRuleSet(t, nil), "", 1, 2)

	ids, err := s.SelectFrom(testAgents())
	require.NoError(t, err)
	assert.Equal(t, []string{"601", "602"}, ids)
}

func TestSelectMinEnforced(t *testing.T) {
	s := NewSelector(mustRuleSet(t, []interface{}{
		map[string]interface{}{"country": "US"},
	}), "", 3, 0)

	_, err := s.SelectFrom(testAgents())
	assert.Error(t, err)
	assert.True(t, logging.IsType(err, logging.ErrorTypeMatch))
}

func TestSelectMinDefaultsToOne(t *testing.T) {
	s := NewSelector(mustRuleSet(t, []interface{}{
		map[string]interface{}{"country": "BR"},
	}), "", 0, 0)
	assert.Equal(t, 1, s.Min)

	_, err := s.SelectFrom(testAgents())
	assert.Error(t, err)
}

func TestSelectDeduplicatesIDs(t *testing.T) {
	all := append(testAgents(), &inventory.Agent{
		ID: "601", Name: "us-west-dup", Type: "global", Impl: inventory.AgentImplRust, Country: "US",
	})
	s := NewSelector(mustRuleSet(t, []interface{}{
		map[string]interface{}{"country": "US"},
	}), "", 1, 0)

	ids, err := s.SelectFrom(all)
	require.NoError(t, err)
	assert.Equal(t, []string{"601", "602"}, ids)
}

func TestSelectOneOfEachPerCountry(t *testing.T) {
	s := NewSelector(mustRuleSet(t, []interface{}{
		map[string]interface{}{"one_of_each": map[string]interface{}{
			"country": []interface{}{"US", "DE"},
		}},
	}), "", 1, 0)

	ids, err := s.SelectFrom(testAgents())
	require.NoError(t, err)
	assert.Equal(t, []string{"601", "603"}, ids)
}

func TestSelectFetchesInventory(t *testing.T) {
	src := &inventory.FileSource{Agents: testAgents()}
	s := NewSelector(mustRuleSet(t, []interface{}{
		map[string]interface{}{"type": "private"},
	}), "", 1, 0)

	ids, err := s.Select(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, []string{"604"}, ids)
}
