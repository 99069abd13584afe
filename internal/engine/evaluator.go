package engine

import (
	"strings"

	"github.com/TimurManjosov/goroute/internal/bucket"
	"github.com/TimurManjosov/goroute/internal/clock"
	"github.com/TimurManjosov/goroute/internal/geo"
	"github.com/TimurManjosov/goroute/internal/rules"
)

// blankPage is the last-resort destination when even the fallback is unusable.
const blankPage = "about:blank"

// Evaluator decides whether rules pass for a visitor and resolves a ruleset
// to a destination. It holds the collaborators a single rule evaluation
// needs: geo lookup, the reference clock, and the bucketing salt.
type Evaluator struct {
	Geo   geo.Resolver
	Clock clock.Clock
	Salt  string

	// Strict flips the fail-open default: unrecognized condition keys and
	// operators stop matching everything and start matching nothing.
	Strict bool
}

// Decision is the outcome of resolving one ruleset for one visitor.
type Decision struct {
	URL     string
	Matched *rules.Rule // nil when the fallback was used
}

// Passes reports whether one rule's condition holds for the visitor.
// Unrecognized condition keys pass (fail open) unless Strict is set.
func (e *Evaluator) Passes(r *rules.Rule, v *rules.Visitor) bool {
	switch r.Key {
	case rules.KeyCountry:
		cc, err := e.Geo.CountryCode(v.IP)
		if err != nil {
			cc = ""
		}
		return e.matches(strings.ToUpper(cc), r.Op, strings.ToUpper(r.Value))
	case rules.KeyIP:
		return e.matches(v.IP, r.Op, r.Value)
	case rules.KeyReferer:
		return e.matches(v.Referer, r.Op, r.Value)
	case rules.KeyParam:
		return e.matches(v.Params, r.Op, r.Value)
	case rules.KeyHour:
		return e.matches(clock.Hour(e.Clock.Now()), r.Op, r.Value)
	case rules.KeyRandom:
		return e.matches(bucket.AssignString(v.IP, e.Salt), r.Op, r.Value)
	default:
		return !e.Strict
	}
}

func (e *Evaluator) matches(needle string, op rules.Operator, operand string) bool {
	if e.Strict {
		if _, ok := operatorHandlers[op]; !ok {
			return false
		}
	}
	return Matches(needle, op, operand)
}

// Resolve walks the ruleset's rules in position order and returns the first
// match, short-circuiting the rest. No match means the ruleset's fallback and
// a nil Matched; a matched rule with an empty destination also falls back.
// Sub-identifier propagation follows the matched rule's flag, or the
// ruleset's when nothing matched.
func (e *Evaluator) Resolve(rs *rules.RuleSet, v *rules.Visitor) Decision {
	fallback := rs.FallbackURL
	if fallback == "" {
		fallback = blankPage
	}

	for i := range rs.Rules {
		r := &rs.Rules[i]
		if !e.Passes(r, v) {
			continue
		}
		target := r.RedirectTo
		if target == "" {
			target = fallback
		}
		if r.PassSubIDs {
			target = passSubIDs(target, v)
		}
		return Decision{URL: target, Matched: r}
	}

	if rs.PassSubIDs {
		fallback = passSubIDs(fallback, v)
	}
	return Decision{URL: fallback}
}

// passSubIDs appends the visitor's raw query string to the destination so
// campaign sub-identifiers (c1=..., s2=...) survive the redirect.
func passSubIDs(url string, v *rules.Visitor) string {
	if v.Params == "" {
		return url
	}
	if strings.Contains(url, "?") {
		return url + "&" + v.Params
	}
	return url + "?" + v.Params
}
