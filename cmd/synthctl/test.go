// synthctl/cmd/synthctl/test.go

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mkowalik/synthctl/pkg/api"
	"mkowalik/synthctl/pkg/factory"
	"mkowalik/synthctl/pkg/runner"
	"mkowalik/synthctl/pkg/store"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Manage synthetic tests",
}

var testCreateCmd = &cobra.Command{
	Use:   "create <definition-file>",
	Short: "Create a test from a definition file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		test, err := buildTest(cmd, args[0])
		if err != nil {
			return err
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if dryRun {
			return printYAML(test)
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		created, err := client.CreateTest(cmd.Context(), test)
		if err != nil {
			return err
		}
		return printYAML(created)
	},
}

var testOneShotCmd = &cobra.Command{
	Use:   "one-shot <definition-file>",
	Short: "Create a test, wait for results, then clean it up",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		test, err := buildTest(cmd, args[0])
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var results store.Store
		if addr, _ := cmd.Flags().GetString("result-store"); addr != "" {
			redisStore, err := store.NewRedisStore(addr, "", 0)
			if err != nil {
				return err
			}
			defer redisStore.Close()
			results = redisStore
		}

		r := runner.NewRunner(client, results)
		r.WaitFactor, _ = cmd.Flags().GetFloat64("wait-factor")
		r.Retries, _ = cmd.Flags().GetInt("retries")
		keep, _ := cmd.Flags().GetBool("keep")
		r.Delete = !keep

		if port, _ := cmd.Flags().GetInt("dashboard-port"); port > 0 {
			dashboard := runner.NewDashboard(r, port, time.Second)
			go func() {
				if err := dashboard.Start(); err != nil {
					fmt.Fprintln(os.Stderr, "dashboard:", err)
				}
			}()
		}

		health, err := r.OneShot(cmd.Context(), test)
		if err != nil {
			return err
		}
		if health == nil {
			return fmt.Errorf("no valid health data for test '%s'", test.Name)
		}
		return printYAML(health)
	},
}

var testMatchCmd = &cobra.Command{
	Use:   "match <definition-file>",
	Short: "Show the targets and agents a definition would select",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		test, err := buildTest(cmd, args[0])
		if err != nil {
			return err
		}
		return printYAML(map[string]interface{}{
			"targets": test.Settings.Targets,
			"agents":  test.Settings.AgentIDs,
		})
	},
}

var testListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		tests, err := client.ListTests(cmd.Context())
		if err != nil {
			return err
		}
		return printYAML(tests)
	},
}

var testGetCmd = &cobra.Command{
	Use:   "get <test-id>",
	Short: "Show one test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		test, err := client.GetTest(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printYAML(test)
	},
}

var testDeleteCmd = &cobra.Command{
	Use:   "delete <test-id>",
	Short: "Delete a test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return client.DeleteTest(cmd.Context(), args[0])
	},
}

var testPauseCmd = &cobra.Command{
	Use:   "pause <test-id>",
	Short: "Pause a test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return client.SetTestStatus(cmd.Context(), args[0], api.TestStatusPaused)
	},
}

var testResumeCmd = &cobra.Command{
	Use:   "resume <test-id>",
	Short: "Resume a paused test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		return client.SetTestStatus(cmd.Context(), args[0], api.TestStatusActive)
	},
}

func init() {
	testCreateCmd.Flags().Bool("dry-run", false, "build the test but do not create it")

	testOneShotCmd.Flags().Float64("wait-factor", 1.0, "health wait window as a multiple of the test period")
	testOneShotCmd.Flags().Int("retries", 3, "health polling retries")
	testOneShotCmd.Flags().Bool("keep", false, "pause the test after the run instead of deleting it")
	testOneShotCmd.Flags().String("result-store", "", "Redis address for persisting run results")
	testOneShotCmd.Flags().Int("dashboard-port", 0, "serve a websocket run-status dashboard on this port")

	testCmd.AddCommand(testCreateCmd)
	testCmd.AddCommand(testOneShotCmd)
	testCmd.AddCommand(testMatchCmd)
	testCmd.AddCommand(testListCmd)
	testCmd.AddCommand(testGetCmd)
	testCmd.AddCommand(testDeleteCmd)
	testCmd.AddCommand(testPauseCmd)
	testCmd.AddCommand(testResumeCmd)
}

// buildTest loads a definition file and assembles the test against the
// configured inventory source.
func buildTest(cmd *cobra.Command, path string) (*api.Test, error) {
	cfg, err := factory.LoadFile(path)
	if err != nil {
		return nil, err
	}
	src, err := newSource()
	if err != nil {
		return nil, err
	}
	return factory.Create(cmd.Context(), src, defaultTestName(path), cfg)
}

// defaultTestName derives the auto-generated test name from the
// definition file name and the current minute.
func defaultTestName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	now := time.Now().UTC().Truncate(time.Minute).Format(time.RFC3339)
	return fmt.Sprintf("__auto__%s_%s", stem, now)
}

func printYAML(v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
