package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goroute/internal/cli"
)

var getCmd = &cobra.Command{
	Use:   "get <identifier>",
	Short: "Show a ruleset and its rules",
	Long: `Show a single ruleset. The identifier can be the public stub or the
numeric id.

Examples:
  routectl get a1b2c3
  routectl get 42 --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClientFromFlags()
		if err != nil {
			return err
		}

		rs, err := c.GetRuleSet(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get ruleset: %w", err)
		}

		if !quiet {
			return cli.PrintRuleSet(rs, cli.OutputFormat(format))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
