package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/TimurManjosov/goroute/internal/rules"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrNotFound means the identifier resolved to no ruleset (or rule).
	ErrNotFound = errors.New("ruleset not found")
	// ErrConflict means a unique constraint (nickname or stub) was violated.
	ErrConflict = errors.New("nickname or stub already in use")
)

// RuleSetParams contains the caller-supplied fields for creating or updating
// a ruleset. An empty Stub on create is replaced with a generated one.
type RuleSetParams struct {
	Nickname    string `json:"nickname"`
	Stub        string `json:"stub,omitempty"`
	FallbackURL string `json:"fallback_url"`
	PassSubIDs  bool   `json:"pass_subids"`
}

// RuleParams contains the caller-supplied fields for a new rule. Position is
// assigned by the store: new rules always append at the end of the order.
type RuleParams struct {
	Key        rules.Key      `json:"key"`
	Op         rules.Operator `json:"op"`
	Value      string         `json:"value"`
	RedirectTo string         `json:"redirect_to"`
	PassSubIDs bool           `json:"pass_subids"`
}

// Store defines the interface for ruleset persistence.
// Implementations must be thread-safe and must keep each ruleset's rule
// positions unique and contiguous (0..n-1) across every mutation.
type Store interface {
	// GetRuleSet resolves an identifier to a ruleset with its rules in
	// position order. The identifier is tried as a stub first, then as a
	// numeric id. Returns ErrNotFound if neither matches.
	GetRuleSet(ctx context.Context, identifier string) (*rules.RuleSet, error)

	// ListRuleSets returns all rulesets with their rules.
	ListRuleSets(ctx context.Context) ([]rules.RuleSet, error)

	// CreateRuleSet creates a ruleset. Returns ErrConflict if the nickname
	// or stub is already taken.
	CreateRuleSet(ctx context.Context, params RuleSetParams) (*rules.RuleSet, error)

	// UpdateRuleSet replaces the ruleset-level attributes (not the rules).
	UpdateRuleSet(ctx context.Context, id int64, params RuleSetParams) (*rules.RuleSet, error)

	// DeleteRuleSet removes a ruleset and its rules.
	DeleteRuleSet(ctx context.Context, id int64) error

	// AddRule appends a rule at the end of the ruleset's order.
	AddRule(ctx context.Context, rulesetID int64, params RuleParams) (*rules.Rule, error)

	// DeleteRule removes a rule and renumbers the remaining positions so
	// they stay contiguous.
	DeleteRule(ctx context.Context, rulesetID, ruleID int64) error

	// ReorderRules atomically reassigns positions to match the given id
	// order. The id list must be a permutation of the ruleset's rule ids.
	ReorderRules(ctx context.Context, rulesetID int64, ruleIDs []int64) error

	// Close releases any resources held by the store.
	Close() error
}

// NewStub generates a short public identifier for a ruleset, in the spirit of
// the classic link-shortener six-character token.
func NewStub() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}
