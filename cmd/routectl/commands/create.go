package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goroute/internal/cli"
	"github.com/TimurManjosov/goroute/internal/store"
)

var (
	createStub       string
	createFallback   string
	createPassSubIDs bool
)

var createCmd = &cobra.Command{
	Use:   "create <nickname>",
	Short: "Create a new ruleset",
	Long: `Create a new ruleset with the specified nickname. A stub is generated
unless --stub is given.

Examples:
  routectl create summer-campaign --fallback https://example.com/default
  routectl create promo --stub promo1 --fallback https://example.com/promo --pass-subids`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClientFromFlags()
		if err != nil {
			return err
		}

		params := store.RuleSetParams{
			Nickname:    args[0],
			Stub:        createStub,
			FallbackURL: createFallback,
			PassSubIDs:  createPassSubIDs,
		}

		rs, err := c.CreateRuleSet(context.Background(), params)
		if err != nil {
			return fmt.Errorf("failed to create ruleset: %w", err)
		}

		if !quiet {
			fmt.Printf("Created ruleset '%s' (id %d, stub %s)\n", rs.Nickname, rs.ID, rs.Stub)
			return cli.PrintRuleSet(rs, cli.OutputFormat(format))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringVar(&createStub, "stub", "", "Public identifier (generated if empty)")
	createCmd.Flags().StringVar(&createFallback, "fallback", "", "Fallback URL when no rule matches")
	createCmd.Flags().BoolVar(&createPassSubIDs, "pass-subids", false, "Append the visitor's query string to the fallback URL")
	_ = createCmd.MarkFlagRequired("fallback")
}
