package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/goroute/internal/rules"
	"github.com/TimurManjosov/goroute/internal/store"
)

var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Manage rules within a ruleset",
}

var (
	ruleAddKey        string
	ruleAddOp         string
	ruleAddValue      string
	ruleAddRedirect   string
	ruleAddPassSubIDs bool
)

var ruleAddCmd = &cobra.Command{
	Use:   "add <ruleset-id>",
	Short: "Append a rule to a ruleset",
	Long: `Append a rule at the end of a ruleset's evaluation order.

Examples:
  routectl rule add 3 --key country --op eq --value US --redirect https://example.com/us
  routectl rule add 3 --key random --op lt --value 50 --redirect https://example.com/b
  routectl rule add 3 --key referer --op regex --value 'https://news\.' --redirect https://example.com/news`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("ruleset id must be a number: %w", err)
		}

		c, err := newClientFromFlags()
		if err != nil {
			return err
		}

		params := store.RuleParams{
			Key:        rules.Key(ruleAddKey),
			Op:         rules.Operator(ruleAddOp),
			Value:      ruleAddValue,
			RedirectTo: ruleAddRedirect,
			PassSubIDs: ruleAddPassSubIDs,
		}

		rule, err := c.AddRule(context.Background(), id, params)
		if err != nil {
			return fmt.Errorf("failed to add rule: %w", err)
		}

		if !quiet {
			fmt.Printf("Added rule %d at position %d\n", rule.ID, rule.Position)
		}

		return nil
	},
}

var ruleDeleteCmd = &cobra.Command{
	Use:   "delete <ruleset-id> <rule-id>",
	Short: "Remove a rule from a ruleset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("ruleset id must be a number: %w", err)
		}
		ruleID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("rule id must be a number: %w", err)
		}

		c, err := newClientFromFlags()
		if err != nil {
			return err
		}

		if err := c.DeleteRule(context.Background(), id, ruleID); err != nil {
			return fmt.Errorf("failed to delete rule: %w", err)
		}

		if !quiet {
			fmt.Printf("Deleted rule %d from ruleset %d\n", ruleID, id)
		}

		return nil
	},
}

var ruleOrderCmd = &cobra.Command{
	Use:   "order <ruleset-id> <rule-ids>",
	Short: "Reorder a ruleset's rules",
	Long: `Reassign rule positions to match the given comma-separated id order.
The list must contain every rule id of the ruleset exactly once.

Example:
  routectl rule order 3 7,5,6`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("ruleset id must be a number: %w", err)
		}

		var ruleIDs []int64
		for _, part := range strings.Split(args[1], ",") {
			n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return fmt.Errorf("rule id %q must be a number: %w", part, err)
			}
			ruleIDs = append(ruleIDs, n)
		}

		c, err := newClientFromFlags()
		if err != nil {
			return err
		}

		if err := c.ReorderRules(context.Background(), id, ruleIDs); err != nil {
			return fmt.Errorf("failed to reorder rules: %w", err)
		}

		if !quiet {
			fmt.Printf("Reordered %d rules in ruleset %d\n", len(ruleIDs), id)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(ruleCmd)
	ruleCmd.AddCommand(ruleAddCmd)
	ruleCmd.AddCommand(ruleDeleteCmd)
	ruleCmd.AddCommand(ruleOrderCmd)

	ruleAddCmd.Flags().StringVar(&ruleAddKey, "key", "", "Condition key (ip, referer, country, param, hour, random)")
	ruleAddCmd.Flags().StringVar(&ruleAddOp, "op", "", "Operator (eq, neq, regex, nregex, gt, lt, in, nin)")
	ruleAddCmd.Flags().StringVar(&ruleAddValue, "value", "", "Operand value")
	ruleAddCmd.Flags().StringVar(&ruleAddRedirect, "redirect", "", "Destination URL (empty means use the fallback)")
	ruleAddCmd.Flags().BoolVar(&ruleAddPassSubIDs, "pass-subids", false, "Append the visitor's query string to the destination")
	_ = ruleAddCmd.MarkFlagRequired("key")
	_ = ruleAddCmd.MarkFlagRequired("op")
	_ = ruleAddCmd.MarkFlagRequired("value")
}
