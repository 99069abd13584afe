package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goroute/internal/cli"
	"github.com/TimurManjosov/goroute/internal/client"
)

var (
	// Global flags
	baseURL string
	apiKey  string
	env     string
	format  string
	quiet   bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "routectl",
	Short: "CLI tool for managing redirect rulesets",
	Long: `Routectl is a command-line tool for managing rulesets in the goroute service.

It provides commands for creating, reading, updating, and deleting rulesets
and their rules, and for reading click counters.

Examples:
  routectl list
  routectl create summer-campaign --fallback https://example.com/default
  routectl get summer-campaign
  routectl rule add 3 --key country --op eq --value US --redirect https://example.com/us
  routectl clicks 3 --day 2026_08_28`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the goroute API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "Environment (dev, staging, prod)")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
}

// newClientFromFlags resolves the environment configuration and builds an
// authenticated API client for it.
func newClientFromFlags() (*client.Client, error) {
	envCfg, _, err := cli.GetEnvConfig(env, baseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return client.NewClient(envCfg.BaseURL, envCfg.APIKey), nil
}
