// Package clicks maintains best-effort click tallies per ruleset and per
// matched rule, keyed by calendar day in the reference timezone. Counters are
// an analytics side channel: they live in the key-value store with a bounded
// retention window, and losing one never affects routing.
package clicks

import (
	"context"
	"fmt"
	"time"

	"github.com/TimurManjosov/goroute/internal/clock"
	"github.com/TimurManjosov/goroute/internal/kv"
)

// DefaultRetention is how long a day's counter survives after its first click.
const DefaultRetention = 7 * 24 * time.Hour

// Counter increments and reads click tallies.
type Counter struct {
	kv        kv.Store
	clock     clock.Clock
	retention time.Duration
}

// New creates a click counter. A non-positive retention falls back to
// DefaultRetention.
func New(kvStore kv.Store, clk clock.Clock, retention time.Duration) *Counter {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Counter{kv: kvStore, clock: clk, retention: retention}
}

// RulesetKey builds the ruleset-level counter key for a day. Segment 0 is the
// unsegmented default and is omitted from the key.
func RulesetKey(rulesetID int64, day string, segmentID int64) string {
	if segmentID > 0 {
		return fmt.Sprintf("ruleset_%d_%d_clicks_%s", rulesetID, segmentID, day)
	}
	return fmt.Sprintf("ruleset_%d_clicks_%s", rulesetID, day)
}

// RuleKey builds the rule-level counter key for a day.
func RuleKey(rulesetID, ruleID int64, day string) string {
	return fmt.Sprintf("ruleset_%d_rule_%d_clicks_%s", rulesetID, ruleID, day)
}

func (c *Counter) today() string {
	return clock.DayKey(c.clock.Now())
}

// IncrementRuleset adds one click to today's ruleset-level tally.
func (c *Counter) IncrementRuleset(ctx context.Context, rulesetID, segmentID int64) error {
	_, err := c.kv.Incr(ctx, RulesetKey(rulesetID, c.today(), segmentID), c.retention)
	return err
}

// IncrementRule adds one click to today's tally for a matched rule.
func (c *Counter) IncrementRule(ctx context.Context, rulesetID, ruleID int64) error {
	_, err := c.kv.Incr(ctx, RuleKey(rulesetID, ruleID, c.today()), c.retention)
	return err
}

// RulesetClicks reads a day's ruleset-level tally. Days outside the retention
// window (and days with no clicks) read as 0.
func (c *Counter) RulesetClicks(ctx context.Context, rulesetID int64, day string, segmentID int64) (int64, error) {
	if day == "" {
		day = c.today()
	}
	return c.kv.GetInt64(ctx, RulesetKey(rulesetID, day, segmentID))
}

// RuleClicks reads a day's rule-level tally.
func (c *Counter) RuleClicks(ctx context.Context, rulesetID, ruleID int64, day string) (int64, error) {
	if day == "" {
		day = c.today()
	}
	return c.kv.GetInt64(ctx, RuleKey(rulesetID, ruleID, day))
}
