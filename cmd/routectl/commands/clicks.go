package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	clicksDay     string
	clicksSegment int64
	clicksRule    int64
)

var clicksCmd = &cobra.Command{
	Use:   "clicks <ruleset-id>",
	Short: "Read click counters for a ruleset",
	Long: `Read a day's click counter. The day defaults to today (EST) and uses
the YYYY_MM_DD format. Counters older than the retention window read as 0.

Examples:
  routectl clicks 3
  routectl clicks 3 --day 2026_08_27
  routectl clicks 3 --rule 7`,
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

		stats, err := c.Clicks(context.Background(), id, clicksDay, clicksSegment, clicksRule)
		if err != nil {
			return fmt.Errorf("failed to read clicks: %w", err)
		}

		if !quiet {
			day := stats.Day
			if day == "" {
				day = "today"
			}
			if stats.RuleID > 0 {
				fmt.Printf("ruleset %d rule %d %s: %d clicks\n", stats.RuleSetID, stats.RuleID, day, stats.Clicks)
			} else {
				fmt.Printf("ruleset %d %s: %d clicks\n", stats.RuleSetID, day, stats.Clicks)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(clicksCmd)

	clicksCmd.Flags().StringVar(&clicksDay, "day", "", "Day in YYYY_MM_DD format (default today)")
	clicksCmd.Flags().Int64Var(&clicksSegment, "segment", 0, "Segment id (0 for the unsegmented counter)")
	clicksCmd.Flags().Int64Var(&clicksRule, "rule", 0, "Rule id (0 for the ruleset-level counter)")
}
