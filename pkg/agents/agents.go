// synthctl/pkg/agents/agents.go

package agents

import (
	"context"
	"fmt"

	"mkowalik/synthctl/pkg/inventory"
	"mkowalik/synthctl/pkg/logging"
	"mkowalik/synthctl/pkg/matcher"
)

// Selector applies a rule set to the agent inventory and yields the
// final agent id list for a test. There is no derivation step for
// agents; matched agents map directly to their ids.
type Selector struct {
	Rules *matcher.RuleSet
	Impl  string // optional implementation-type filter, e.g. IMPLEMENT_TYPE_RUST
	Min   int
	Max   int // 0 means unlimited
}

func NewSelector(rules *matcher.RuleSet, impl string, min, max int) *Selector {
	if min <= 0 {
		min = 1
	}
	return &Selector{Rules: rules, Impl: impl, Min: min, Max: max}
}

// Select fetches the agent inventory from src and selects from it.
func (s *Selector) Select(ctx context.Context, src inventory.Source) ([]string, error) {
	all, err := src.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	return s.SelectFrom(all)
}

// SelectFrom selects agent ids from an already-fetched inventory.
func (s *Selector) SelectFrom(all []*inventory.Agent) ([]string, error) {
	candidates := all
	if s.Impl != "" {
		candidates = make([]*inventory.Agent, 0, len(all))
		for _, a := range all {
			if a.Impl == s.Impl {
				candidates = append(candidates, a)
			}
		}
		logging.Logger.Debug().Str("impl", s.Impl).Int("agents", len(all)).Int("eligible", len(candidates)).Msg("Filtered agents by implementation type")
	}

	matched, err := matcher.Select(s.Rules, candidates)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(matched))
	ids := make([]string, 0, len(matched))
	for _, a := range matched {
		if _, dup := seen[a.ID]; dup {
			continue
		}
		seen[a.ID] = struct{}{}
		ids = append(ids, a.ID)
		if s.Max > 0 && len(ids) == s.Max {
			break
		}
	}

	if len(ids) < s.Min {
		return nil, logging.NewError(logging.ErrorTypeMatch,
			fmt.Sprintf("matched %d agents, %d required", len(ids), s.Min), nil, nil)
	}
	logging.Logger.Debug().Int("agents", len(ids)).Msg("Selected agents")
	return ids, nil
}
