// synthctl/pkg/factory/factory.go

package factory

import (
	"context"
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"mkowalik/synthctl/pkg/agents"
	"mkowalik/synthctl/pkg/api"
	"mkowalik/synthctl/pkg/inventory"
	"mkowalik/synthctl/pkg/logging"
	"mkowalik/synthctl/pkg/matcher"
	"mkowalik/synthctl/pkg/targets"
)

// LoadFile reads a test definition file into the parsed configuration
// tree the factory consumes.
func LoadFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			"failed to read test definition", err,
			map[string]interface{}{"path": path})
	}
	var cfg map[string]interface{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			"failed to parse test definition", err,
			map[string]interface{}{"path": path})
	}
	return cfg, nil
}

type targetLoader func(ctx context.Context, src inventory.Source, cfg map[string]interface{}) ([]string, error)

type entry struct {
	targetLoader    targetLoader
	agentImpl       string
	requiresTargets bool
	singleTarget    bool
	needsServers    bool
}

var testTypes = map[string]entry{
	api.TestTypeIP:          {targetLoader: addressTargets, agentImpl: inventory.AgentImplRust, requiresTargets: true},
	api.TestTypeNetworkGrid: {targetLoader: addressTargets, agentImpl: inventory.AgentImplRust, requiresTargets: true},
	api.TestTypeHostname:    {targetLoader: domainTargets, agentImpl: inventory.AgentImplRust, requiresTargets: true, singleTarget: true},
	api.TestTypeDNS:         {targetLoader: domainTargets, agentImpl: inventory.AgentImplRust, requiresTargets: true, singleTarget: true, needsServers: true},
	api.TestTypeDNSGrid:     {targetLoader: domainTargets, agentImpl: inventory.AgentImplRust, requiresTargets: true, needsServers: true},
	api.TestTypeURL:         {targetLoader: urlTargets, agentImpl: inventory.AgentImplRust, requiresTargets: true, singleTarget: true},
	api.TestTypePageLoad:    {targetLoader: urlTargets, agentImpl: inventory.AgentImplNode, requiresTargets: true, singleTarget: true},
	api.TestTypeAgent:       {targetLoader: agentTargets, agentImpl: inventory.AgentImplRust, requiresTargets: true, singleTarget: true},
	api.TestTypeMesh:        {agentImpl: inventory.AgentImplRust},
}

// Create assembles a synthetic test from a parsed definition. Targets
// and agents come either from literal 'use' lists or from the matching
// engine; an empty result from either refuses test creation.
func Create(ctx context.Context, src inventory.Source, defaultName string, cfg map[string]interface{}) (*api.Test, error) {
	testCfg, ok := cfg["test"].(map[string]interface{})
	if !ok {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			"mandatory 'test' section missing in configuration", nil, nil)
	}
	agentsCfg, ok := cfg["agents"].(map[string]interface{})
	if !ok {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			"mandatory 'agents' section missing in configuration", nil, nil)
	}

	testType, _ := testCfg["type"].(string)
	if testType == "" {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			"no 'test.type' in configuration", nil, nil)
	}
	e, known := testTypes[testType]
	if !known {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			fmt.Sprintf("unsupported test type '%s'", testType), nil, nil)
	}

	var targetList []string
	if e.requiresTargets {
		targetsCfg, ok := cfg["targets"].(map[string]interface{})
		if !ok {
			return nil, logging.NewError(logging.ErrorTypeConfig,
				"required 'targets' section is missing in configuration", nil, nil)
		}
		var err error
		targetList, err = e.targetLoader(ctx, src, targetsCfg)
		if err != nil {
			return nil, err
		}
		if len(targetList) == 0 {
			return nil, logging.NewError(logging.ErrorTypeMatch,
				"no targets matched test configuration", nil, nil)
		}
		if e.singleTarget && len(targetList) > 1 {
			return nil, logging.NewError(logging.ErrorTypeConfig,
				fmt.Sprintf("'%s' test accepts only 1 target, %d provided", testType, len(targetList)), nil,
				map[string]interface{}{"targets": targetList})
		}
	} else if _, present := cfg["targets"]; present {
		logging.Logger.Warn().Str("type", testType).Msg("'targets' section is ignored for this test type")
	}

	agentIDs, err := LoadAgents(ctx, src, agentsCfg, e.agentImpl)
	if err != nil {
		return nil, err
	}
	if len(agentIDs) == 0 {
		return nil, logging.NewError(logging.ErrorTypeMatch,
			"no agents matched configuration", nil, nil)
	}

	name, _ := testCfg["name"].(string)
	if name == "" {
		name = defaultName
	}

	test := &api.Test{
		Name: name,
		Type: testType,
		Settings: api.TestSettings{
			AgentIDs: agentIDs,
			Targets:  targetList,
		},
	}
	if err := applyCommonParams(test, testCfg); err != nil {
		return nil, err
	}
	if e.needsServers && len(test.Settings.Servers) == 0 {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			fmt.Sprintf("'%s' requires 'servers' parameter", testType), nil, nil)
	}

	logging.Logger.Debug().
		Str("test", test.Name).
		Str("type", test.Type).
		Int("targets", len(targetList)).
		Int("agents", len(agentIDs)).
		Msg("Assembled test configuration")
	return test, nil
}

func applyCommonParams(test *api.Test, cfg map[string]interface{}) error {
	if raw, present := cfg["period"]; present {
		period, err := intParam("period", raw)
		if err != nil {
			return err
		}
		test.Settings.Period = period
	}
	if raw, present := cfg["family"]; present {
		s, _ := raw.(string)
		family, err := targets.ParseFamily(s)
		if err != nil {
			return err
		}
		test.Settings.Family = string(family)
	}
	if raw, present := cfg["protocol"]; present {
		s, ok := raw.(string)
		if !ok {
			return logging.NewError(logging.ErrorTypeConfig,
				"'protocol' must be a string", nil, map[string]interface{}{"value": raw})
		}
		test.Settings.Protocol = s
	}
	if raw, present := cfg["port"]; present {
		port, err := intParam("port", raw)
		if err != nil {
			return err
		}
		test.Settings.Port = port
	}
	if raw, present := cfg["servers"]; present {
		servers, err := stringList("servers", raw)
		if err != nil {
			return err
		}
		test.Settings.Servers = servers
	}
	if raw, present := cfg["record_type"]; present {
		s, ok := raw.(string)
		if !ok {
			return logging.NewError(logging.ErrorTypeConfig,
				"'record_type' must be a string", nil, map[string]interface{}{"value": raw})
		}
		test.Settings.RecordType = s
	}
	return nil
}

// matchOrUse enforces that exactly one of the 'use' and 'match'
// sections is present.
func matchOrUse(cfg map[string]interface{}, section string) error {
	_, hasUse := cfg["use"]
	_, hasMatch := cfg["match"]
	if hasUse == hasMatch {
		return logging.NewError(logging.ErrorTypeConfig,
			fmt.Sprintf("exactly one of 'use' or 'match' sections must be specified in '%s'", section), nil, nil)
	}
	return nil
}

func useList(cfg map[string]interface{}, section string) ([]string, error) {
	raw, present := cfg["use"]
	if !present {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			fmt.Sprintf("'use' directive missing in '%s'", section), nil, nil)
	}
	return stringList(section+".use", raw)
}

func stringList(name string, raw interface{}) ([]string, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			fmt.Sprintf("'%s' must be a simple list", name), nil,
			map[string]interface{}{"value": raw})
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, logging.NewError(logging.ErrorTypeConfig,
				fmt.Sprintf("'%s' must contain only strings", name), nil,
				map[string]interface{}{"value": v})
		}
		out = append(out, s)
	}
	return out, nil
}

func intParam(name string, raw interface{}) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if float64(int(v)) == v {
			return int(v), nil
		}
	}
	return 0, logging.NewError(logging.ErrorTypeConfig,
		fmt.Sprintf("'%s' must be an integer", name), nil,
		map[string]interface{}{"value": raw})
}

// addressTargets loads address targets from a literal list or by
// matching devices and deriving their addresses.
func addressTargets(ctx context.Context, src inventory.Source, cfg map[string]interface{}) ([]string, error) {
	if err := matchOrUse(cfg, "targets"); err != nil {
		return nil, err
	}
	if _, hasUse := cfg["use"]; hasUse {
		addresses, err := useList(cfg, "targets")
		if err != nil {
			return nil, err
		}
		for _, a := range addresses {
			if _, err := netip.ParseAddr(a); err != nil {
				return nil, logging.NewError(logging.ErrorTypeConfig,
					fmt.Sprintf("invalid address in targets: '%s'", a), err, nil)
			}
		}
		return addresses, nil
	}

	matchCfg, ok := cfg["match"].(map[string]interface{})
	if !ok {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			"'targets.match' must be a mapping", nil, nil)
	}
	deriver, err := targets.ParseDeriver(matchCfg)
	if err != nil {
		return nil, err
	}
	return deriver.Derive(ctx, src)
}

var domainPattern = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)

func validDomain(name string) bool {
	return domainPattern.MatchString(name)
}

// domainTargets accepts only literal lists; matching rules cannot
// produce DNS names.
func domainTargets(_ context.Context, _ inventory.Source, cfg map[string]interface{}) ([]string, error) {
	if _, hasMatch := cfg["match"]; hasMatch {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			"test type does not support matching targets with rules", nil, nil)
	}
	names, err := useList(cfg, "targets")
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		if !validDomain(n) {
			return nil, logging.NewError(logging.ErrorTypeConfig,
				fmt.Sprintf("list contains invalid name: '%s'", n), nil, nil)
		}
	}
	return names, nil
}

// urlTargets accepts only literal lists of http/https URLs.
func urlTargets(_ context.Context, _ inventory.Source, cfg map[string]interface{}) ([]string, error) {
	if _, hasMatch := cfg["match"]; hasMatch {
		return nil, logging.NewError(logging.ErrorTypeConfig,
			"test type does not support matching targets with rules", nil, nil)
	}
	urls, err := useList(cfg, "targets")
	if err != nil {
		return nil, err
	}
	for _, u := range urls {
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return nil, logging.NewError(logging.ErrorTypeConfig,
				fmt.Sprintf("list contains invalid URL: '%s'", u), nil, nil)
		}
	}
	return urls, nil
}

// agentTargets resolves the targets section of agent-to-agent tests:
// the targets are themselves agent ids.
func agentTargets(ctx context.Context, src inventory.Source, cfg map[string]interface{}) ([]string, error) {
	return LoadAgents(ctx, src, cfg, "")
}

// LoadAgents resolves an agents-style section ('use' list or 'match'
// rules with optional min/max) into agent ids.
func LoadAgents(ctx context.Context, src inventory.Source, cfg map[string]interface{}, impl string) ([]string, error) {
	if err := matchOrUse(cfg, "agents"); err != nil {
		return nil, err
	}
	if _, hasUse := cfg["use"]; hasUse {
		return useList(cfg, "agents")
	}

	min := 1
	max := 0
	var err error
	if raw, present := cfg["min"]; present {
		if min, err = intParam("min", raw); err != nil {
			return nil, err
		}
	}
	if raw, present := cfg["max"]; present {
		if max, err = intParam("max", raw); err != nil {
			return nil, err
		}
	}

	rules, err := matcher.ParseRuleSet(cfg["match"])
	if err != nil {
		return nil, err
	}
	selector := agents.NewSelector(rules, impl, min, max)
	return selector.Select(ctx, src)
}
