package rules

import "time"

// Key identifies which visitor attribute a rule inspects.
type Key string

// Supported condition keys (string values for clean JSON serialization).
const (
	KeyIP      Key = "ip"      // visitor source IP, raw string
	KeyReferer Key = "referer" // Referer header, raw string
	KeyCountry Key = "country" // ISO country code resolved from the IP
	KeyParam   Key = "param"   // raw query string, matched as a whole
	KeyHour    Key = "hour"    // current hour, reference timezone, "00".."23"
	KeyRandom  Key = "random"  // deterministic 1-100 traffic bucket from the IP
)

// Operator represents a comparison operator used in rule conditions.
type Operator string

// Supported comparison operators.
const (
	OpEq     Operator = "eq"     // exact string equality
	OpNeq    Operator = "neq"    // exact string inequality
	OpRegex  Operator = "regex"  // operand is a regex anchored at the start of the needle
	OpNregex Operator = "nregex" // negated regex
	OpGt     Operator = "gt"     // integer greater-than
	OpLt     Operator = "lt"     // integer less-than
	OpIn     Operator = "in"     // membership in a comma-separated list
	OpNin    Operator = "nin"    // negated membership
)

// Rule is one ordered condition-to-destination mapping within a RuleSet.
// Position is its rank in the owning RuleSet's evaluation order; positions
// are unique and contiguous starting at 0.
type Rule struct {
	ID         int64    `json:"id"`
	Key        Key      `json:"key"`
	Op         Operator `json:"op"`
	Value      string   `json:"value"`
	RedirectTo string   `json:"redirect_to"`
	PassSubIDs bool     `json:"pass_subids"`
	Position   int      `json:"position"`
	RuleSetID  int64    `json:"ruleset_id"`
}

// RuleSet is a named routing configuration: an ordered sequence of Rules plus
// a fallback destination used when no rule matches. It resolves by either its
// numeric ID or its short public stub.
type RuleSet struct {
	ID          int64     `json:"id"`
	Nickname    string    `json:"nickname"`
	Stub        string    `json:"stub"`
	FallbackURL string    `json:"fallback_url"`
	PassSubIDs  bool      `json:"pass_subids"`
	Rules       []Rule    `json:"rules"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Visitor carries the per-request facts available to rule matching.
// It is ephemeral and never persisted.
type Visitor struct {
	IP      string `json:"ip"`
	Referer string `json:"referer"`
	Params  string `json:"params"` // raw query string, e.g. "c1=5&c2=abc"
}
