package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goroute/internal/cli"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all rulesets",
	Long: `List all rulesets on the server.

Examples:
  routectl list
  routectl list --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClientFromFlags()
		if err != nil {
			return err
		}

		sets, err := c.ListRuleSets(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list rulesets: %w", err)
		}

		if !quiet {
			if len(sets) == 0 {
				fmt.Println("No rulesets found")
				return nil
			}
			return cli.PrintRuleSets(sets, cli.OutputFormat(format))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
