// synthctl/cmd/synthctl/agent.go

package main

import (
	"github.com/spf13/cobra"

	"mkowalik/synthctl/pkg/factory"
	"mkowalik/synthctl/pkg/logging"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Inspect the agent inventory",
}

var agentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all agents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := newSource()
		if err != nil {
			return err
		}
		agents, err := src.ListAgents(cmd.Context())
		if err != nil {
			return err
		}
		return printYAML(agents)
	},
}

var agentMatchCmd = &cobra.Command{
	Use:   "match <definition-file>",
	Short: "Show the agents an agents section would select",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := factory.LoadFile(args[0])
		if err != nil {
			return err
		}
		agentsCfg, ok := cfg["agents"].(map[string]interface{})
		if !ok {
			return logging.NewError(logging.ErrorTypeConfig,
				"'agents' section missing in configuration", nil, nil)
		}
		src, err := newSource()
		if err != nil {
			return err
		}
		ids, err := factory.LoadAgents(cmd.Context(), src, agentsCfg, "")
		if err != nil {
			return err
		}
		return printYAML(map[string]interface{}{"agents": ids})
	},
}

func init() {
	agentCmd.AddCommand(agentListCmd)
	agentCmd.AddCommand(agentMatchCmd)
}
