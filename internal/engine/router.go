package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/TimurManjosov/goroute/internal/cache"
	"github.com/TimurManjosov/goroute/internal/clicks"
	"github.com/TimurManjosov/goroute/internal/rules"
	"github.com/TimurManjosov/goroute/internal/telemetry"
)

// clickTimeout bounds the background click write so a stuck store cannot
// leak goroutines indefinitely.
const clickTimeout = 2 * time.Second

// Router is the single entry point callers use: resolve an identifier to a
// ruleset snapshot, evaluate its rules for the visitor, record the click, and
// hand back the destination URL.
type Router struct {
	Cache  *cache.Cache
	Eval   *Evaluator
	Clicks *clicks.Counter
	Log    zerolog.Logger
}

// Route resolves identifier for the visitor and returns the destination URL.
// Unknown identifiers return store.ErrNotFound (wrapped); every successful
// resolution records exactly one ruleset-level click, plus a rule-level click
// when a rule matched. Click recording is fire-and-forget: failures are
// logged and counted, never surfaced, and never delay the redirect.
func (rt *Router) Route(ctx context.Context, identifier string, v *rules.Visitor) (string, error) {
	rs, err := rt.Cache.Lookup(ctx, identifier)
	if err != nil {
		telemetry.RouteDecisions.WithLabelValues("not_found").Inc()
		return "", err
	}

	dec := rt.Eval.Resolve(rs, v)
	if dec.Matched != nil {
		telemetry.RouteDecisions.WithLabelValues("matched").Inc()
	} else {
		telemetry.RouteDecisions.WithLabelValues("fallback").Inc()
	}

	go rt.recordClicks(rs, dec.Matched)

	return dec.URL, nil
}

func (rt *Router) recordClicks(rs *rules.RuleSet, matched *rules.Rule) {
	ctx, cancel := context.WithTimeout(context.Background(), clickTimeout)
	defer cancel()

	if err := rt.Clicks.IncrementRuleset(ctx, rs.ID, 0); err != nil {
		telemetry.ClickWriteFailures.Inc()
		rt.Log.Warn().Err(err).Int64("ruleset", rs.ID).Msg("failed to record ruleset click")
	}
	if matched == nil {
		return
	}
	if err := rt.Clicks.IncrementRule(ctx, rs.ID, matched.ID); err != nil {
		telemetry.ClickWriteFailures.Inc()
		rt.Log.Warn().Err(err).Int64("ruleset", rs.ID).Int64("rule", matched.ID).Msg("failed to record rule click")
	}
}
