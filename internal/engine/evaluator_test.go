package engine

import (
	"testing"
	"time"

	"github.com/TimurManjosov/goroute/internal/bucket"
	"github.com/TimurManjosov/goroute/internal/clock"
	"github.com/TimurManjosov/goroute/internal/geo"
	"github.com/TimurManjosov/goroute/internal/rules"
)

// 17:00 UTC = 12:00 EST.
var testClock = clock.Fixed{T: time.Date(2025, 6, 1, 17, 0, 0, 0, time.UTC)}

func newTestEvaluator() *Evaluator {
	return &Evaluator{
		Geo:   geo.Static{"203.0.113.7": "US", "198.51.100.9": "fr"},
		Clock: testClock,
	}
}

func TestPasses_KeyDispatch(t *testing.T) {
	e := newTestEvaluator()
	v := &rules.Visitor{
		IP:      "203.0.113.7",
		Referer: "https://news.example.org/article",
		Params:  "c1=5&c2=abc",
	}

	tests := []struct {
		name string
		rule rules.Rule
		want bool
	}{
		{name: "country match", rule: rules.Rule{Key: rules.KeyCountry, Op: rules.OpEq, Value: "US"}, want: true},
		{name: "country operand case-insensitive", rule: rules.Rule{Key: rules.KeyCountry, Op: rules.OpEq, Value: "us"}, want: true},
		{name: "country mismatch", rule: rules.Rule{Key: rules.KeyCountry, Op: rules.OpEq, Value: "FR"}, want: false},
		{name: "ip exact", rule: rules.Rule{Key: rules.KeyIP, Op: rules.OpEq, Value: "203.0.113.7"}, want: true},
		{name: "ip in list", rule: rules.Rule{Key: rules.KeyIP, Op: rules.OpIn, Value: "10.0.0.1, 203.0.113.7"}, want: true},
		{name: "referer regex", rule: rules.Rule{Key: rules.KeyReferer, Op: rules.OpRegex, Value: `https://news\.`}, want: true},
		{name: "param regex whole string", rule: rules.Rule{Key: rules.KeyParam, Op: rules.OpRegex, Value: "c1=5"}, want: true},
		{name: "hour eq noon", rule: rules.Rule{Key: rules.KeyHour, Op: rules.OpEq, Value: "12"}, want: true},
		{name: "hour lt", rule: rules.Rule{Key: rules.KeyHour, Op: rules.OpLt, Value: "18"}, want: true},
		{name: "unknown key fails open", rule: rules.Rule{Key: rules.Key("device"), Op: rules.OpEq, Value: "x"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Passes(&tt.rule, v); got != tt.want {
				t.Fatalf("Passes(%+v) = %v, want %v", tt.rule, got, tt.want)
			}
		})
	}
}

func TestPasses_CountryUppercasesLookupResult(t *testing.T) {
	e := newTestEvaluator()
	v := &rules.Visitor{IP: "198.51.100.9"} // static resolver returns "fr"

	r := rules.Rule{Key: rules.KeyCountry, Op: rules.OpEq, Value: "FR"}
	if !e.Passes(&r, v) {
		t.Fatal("lowercase geo result should still match an uppercase operand")
	}
}

func TestPasses_CountryUnknownFailsToMatch(t *testing.T) {
	e := newTestEvaluator()
	v := &rules.Visitor{IP: "192.0.2.1"} // not in the static map

	r := rules.Rule{Key: rules.KeyCountry, Op: rules.OpEq, Value: "US"}
	if e.Passes(&r, v) {
		t.Fatal("unknown country should not match eq")
	}
	neq := rules.Rule{Key: rules.KeyCountry, Op: rules.OpNeq, Value: "US"}
	if !e.Passes(&neq, v) {
		t.Fatal("unknown country should match neq")
	}
}

func TestPasses_RandomBucketIsStable(t *testing.T) {
	e := newTestEvaluator()
	v := &rules.Visitor{IP: "203.0.113.7"}
	b := bucket.Assign(v.IP, "")

	// A rule that carves out exactly the visitor's bucket.
	hit := rules.Rule{Key: rules.KeyRandom, Op: rules.OpEq, Value: bucket.AssignString(v.IP, "")}
	miss := rules.Rule{Key: rules.KeyRandom, Op: rules.OpGt, Value: "100"}
	for i := 0; i < 50; i++ {
		if !e.Passes(&hit, v) {
			t.Fatalf("bucket %d should match itself on every call", b)
		}
		if e.Passes(&miss, v) {
			t.Fatal("no bucket exceeds 100")
		}
	}
}

func TestPasses_StrictMode(t *testing.T) {
	e := newTestEvaluator()
	e.Strict = true
	v := &rules.Visitor{IP: "203.0.113.7"}

	unknownKey := rules.Rule{Key: rules.Key("device"), Op: rules.OpEq, Value: "x"}
	if e.Passes(&unknownKey, v) {
		t.Fatal("strict mode: unknown key must fail closed")
	}
	unknownOp := rules.Rule{Key: rules.KeyIP, Op: rules.Operator("like"), Value: "x"}
	if e.Passes(&unknownOp, v) {
		t.Fatal("strict mode: unknown operator must fail closed")
	}
	known := rules.Rule{Key: rules.KeyIP, Op: rules.OpEq, Value: "203.0.113.7"}
	if !e.Passes(&known, v) {
		t.Fatal("strict mode must not affect recognized rules")
	}
}

// countingGeo counts lookups so tests can observe which rules were evaluated.
type countingGeo struct {
	cc    string
	calls int
}

func (g *countingGeo) CountryCode(string) (string, error) {
	g.calls++
	return g.cc, nil
}

func TestResolve_FirstMatchWinsAndShortCircuits(t *testing.T) {
	g := &countingGeo{cc: "US"}
	e := &Evaluator{Geo: g, Clock: testClock}
	v := &rules.Visitor{IP: "203.0.113.7"}

	rs := &rules.RuleSet{
		ID:          1,
		FallbackURL: "https://example.com/default",
		Rules: []rules.Rule{
			{ID: 1, Key: rules.KeyCountry, Op: rules.OpEq, Value: "FR", RedirectTo: "https://example.com/fr", Position: 0},
			{ID: 2, Key: rules.KeyCountry, Op: rules.OpEq, Value: "US", RedirectTo: "https://example.com/us", Position: 1},
			{ID: 3, Key: rules.KeyCountry, Op: rules.OpEq, Value: "US", RedirectTo: "https://example.com/us2", Position: 2},
		},
	}

	dec := e.Resolve(rs, v)
	if dec.URL != "https://example.com/us" {
		t.Fatalf("Resolve URL = %q, want first matching rule's destination", dec.URL)
	}
	if dec.Matched == nil || dec.Matched.ID != 2 {
		t.Fatalf("Matched = %+v, want rule 2", dec.Matched)
	}
}

func TestResolve_ShortCircuitStopsEvaluation(t *testing.T) {
	g := &countingGeo{cc: "US"}
	e := &Evaluator{Geo: g, Clock: testClock}
	v := &rules.Visitor{IP: "203.0.113.7"}

	rs := &rules.RuleSet{
		FallbackURL: "https://example.com/default",
		Rules: []rules.Rule{
			{ID: 1, Key: rules.KeyCountry, Op: rules.OpEq, Value: "FR", Position: 0},
			{ID: 2, Key: rules.KeyCountry, Op: rules.OpEq, Value: "US", RedirectTo: "https://example.com/us", Position: 1},
			{ID: 3, Key: rules.KeyCountry, Op: rules.OpEq, Value: "US", RedirectTo: "https://example.com/late", Position: 2},
		},
	}

	e.Resolve(rs, v)
	if g.calls != 2 {
		t.Fatalf("geo lookups = %d, want 2 (rule after the match must not be evaluated)", g.calls)
	}
}

func TestResolve_NoMatchUsesFallback(t *testing.T) {
	e := newTestEvaluator()
	v := &rules.Visitor{IP: "192.0.2.1"}

	rs := &rules.RuleSet{
		FallbackURL: "https://example.com/default",
		Rules: []rules.Rule{
			{Key: rules.KeyCountry, Op: rules.OpEq, Value: "US", RedirectTo: "https://example.com/us", Position: 0},
		},
	}
	dec := e.Resolve(rs, v)
	if dec.URL != "https://example.com/default" || dec.Matched != nil {
		t.Fatalf("Resolve = %+v, want fallback with no matched rule", dec)
	}
}

func TestResolve_EmptyRuleDestinationFallsBack(t *testing.T) {
	e := newTestEvaluator()
	v := &rules.Visitor{IP: "203.0.113.7"}

	rs := &rules.RuleSet{
		FallbackURL: "https://example.com/default",
		Rules: []rules.Rule{
			{ID: 1, Key: rules.KeyCountry, Op: rules.OpEq, Value: "US", RedirectTo: "", Position: 0},
		},
	}
	dec := e.Resolve(rs, v)
	if dec.URL != "https://example.com/default" {
		t.Fatalf("URL = %q, want fallback for empty rule destination", dec.URL)
	}
	if dec.Matched == nil || dec.Matched.ID != 1 {
		t.Fatal("the rule still counts as matched")
	}
}

func TestResolve_BlankPageWhenNoFallback(t *testing.T) {
	e := newTestEvaluator()
	dec := e.Resolve(&rules.RuleSet{}, &rules.Visitor{IP: "192.0.2.1"})
	if dec.URL != "about:blank" {
		t.Fatalf("URL = %q, want about:blank last resort", dec.URL)
	}
}

func TestResolve_SubIDPropagation(t *testing.T) {
	e := newTestEvaluator()
	v := &rules.Visitor{IP: "203.0.113.7", Params: "c1=5&s2=camp"}

	t.Run("matched rule flag", func(t *testing.T) {
		rs := &rules.RuleSet{
			FallbackURL: "https://example.com/default",
			Rules: []rules.Rule{
				{Key: rules.KeyCountry, Op: rules.OpEq, Value: "US", RedirectTo: "https://example.com/us", PassSubIDs: true, Position: 0},
			},
		}
		dec := e.Resolve(rs, v)
		if dec.URL != "https://example.com/us?c1=5&s2=camp" {
			t.Fatalf("URL = %q, want sub-ids appended", dec.URL)
		}
	})

	t.Run("rule flag off leaves URL alone", func(t *testing.T) {
		rs := &rules.RuleSet{
			FallbackURL: "https://example.com/default",
			PassSubIDs:  true, // ruleset flag must not apply when a rule matched
			Rules: []rules.Rule{
				{Key: rules.KeyCountry, Op: rules.OpEq, Value: "US", RedirectTo: "https://example.com/us", PassSubIDs: false, Position: 0},
			},
		}
		dec := e.Resolve(rs, v)
		if dec.URL != "https://example.com/us" {
			t.Fatalf("URL = %q, want untouched destination", dec.URL)
		}
	})

	t.Run("ruleset flag on fallback", func(t *testing.T) {
		rs := &rules.RuleSet{
			FallbackURL: "https://example.com/default?x=1",
			PassSubIDs:  true,
		}
		dec := e.Resolve(rs, v)
		if dec.URL != "https://example.com/default?x=1&c1=5&s2=camp" {
			t.Fatalf("URL = %q, want sub-ids joined with &", dec.URL)
		}
	})
}
