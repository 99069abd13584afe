package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goroute/internal/cli"
	"github.com/TimurManjosov/goroute/internal/store"
)

var (
	updateNickname   string
	updateStub       string
	updateFallback   string
	updatePassSubIDs bool
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a ruleset's attributes",
	Long: `Update a ruleset's nickname, stub, fallback URL, or sub-id flag. Rules
are managed with the 'rule' subcommands.

Examples:
  routectl update 3 --nickname summer-v2 --fallback https://example.com/v2
  routectl update 3 --nickname summer-v2 --fallback https://example.com/v2 --pass-subids`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("id must be a number: %w", err)
		}

		c, err := newClientFromFlags()
		if err != nil {
			return err
		}

		params := store.RuleSetParams{
			Nickname:    updateNickname,
			Stub:        updateStub,
			FallbackURL: updateFallback,
			PassSubIDs:  updatePassSubIDs,
		}

		rs, err := c.UpdateRuleSet(context.Background(), id, params)
		if err != nil {
			return fmt.Errorf("failed to update ruleset: %w", err)
		}

		if !quiet {
			return cli.PrintRuleSet(rs, cli.OutputFormat(format))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)

	updateCmd.Flags().StringVar(&updateNickname, "nickname", "", "New nickname")
	updateCmd.Flags().StringVar(&updateStub, "stub", "", "New stub (unchanged if empty)")
	updateCmd.Flags().StringVar(&updateFallback, "fallback", "", "New fallback URL")
	updateCmd.Flags().BoolVar(&updatePassSubIDs, "pass-subids", false, "Append the visitor's query string to the fallback URL")
	_ = updateCmd.MarkFlagRequired("nickname")
	_ = updateCmd.MarkFlagRequired("fallback")
}
