// synthctl/cmd/synthctl/main.go

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mkowalik/synthctl/pkg/api"
	"mkowalik/synthctl/pkg/inventory"
	"mkowalik/synthctl/pkg/logging"
)

const defaultAPIURL = "https://synthetics.api.kentik.com"

var rootCmd = &cobra.Command{
	Use:   "synthctl",
	Short: "Manage synthetic network tests",
	Long: `synthctl creates, runs and manages synthetic network tests.
Test targets and agents are selected declaratively by matching rules
against the device and agent inventories.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.ConfigureLogger(viper.GetString("log_level"), viper.GetString("log_output"))
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("profile", "default", "auth profile name")
	flags.String("api-url", defaultAPIURL, "API base URL")
	flags.String("log-level", "info", "log level (trace|debug|info|warn|error)")
	flags.String("log-output", "console", "log output format (console|json)")
	flags.String("inventory", "", "inventory file to use instead of the API")

	_ = viper.BindPFlag("profile", flags.Lookup("profile"))
	_ = viper.BindPFlag("api_url", flags.Lookup("api-url"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log_output", flags.Lookup("log-output"))
	_ = viper.BindPFlag("inventory", flags.Lookup("inventory"))
	viper.SetEnvPrefix("synthctl")
	viper.AutomaticEnv()

	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(agentCmd)
}

// newAPIClient builds the authenticated API client.
func newAPIClient() (*api.Client, error) {
	profile, err := api.LoadProfile(viper.GetString("profile"))
	if err != nil {
		return nil, err
	}
	return api.NewClient(viper.GetString("api_url"), profile), nil
}

// newSource returns the inventory source: a local file when --inventory
// is given, the API otherwise.
func newSource() (inventory.Source, error) {
	if path := viper.GetString("inventory"); path != "" {
		return inventory.LoadFile(path)
	}
	return newAPIClient()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logging.LogError(logging.Logger, err)
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
