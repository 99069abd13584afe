package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// Sentinel errors returned by validation.
var (
	ErrInvalidKey      = errors.New("invalid condition key")
	ErrInvalidOperator = errors.New("invalid operator")
	ErrInvalidValue    = errors.New("invalid operand value")
	ErrInvalidRuleSet  = errors.New("invalid ruleset")
)

// validKeys is the set of all recognised condition keys.
var validKeys = map[Key]struct{}{
	KeyIP:      {},
	KeyReferer: {},
	KeyCountry: {},
	KeyParam:   {},
	KeyHour:    {},
	KeyRandom:  {},
}

// validOperators is the set of all recognised comparison operators.
var validOperators = map[Operator]struct{}{
	OpEq:     {},
	OpNeq:    {},
	OpRegex:  {},
	OpNregex: {},
	OpGt:     {},
	OpLt:     {},
	OpIn:     {},
	OpNin:    {},
}

// ValidateRule performs strict validation of a Rule at authoring time.
// Evaluation itself is lenient (malformed operands fail closed); this check
// exists so the admin surface can reject rules that could never match.
// It is a pure function: it never mutates r and has no side effects.
func ValidateRule(r Rule) error {
	if _, ok := validKeys[r.Key]; !ok {
		return fmt.Errorf("%w: %q is not supported", ErrInvalidKey, r.Key)
	}
	if _, ok := validOperators[r.Op]; !ok {
		return fmt.Errorf("%w: %q is not supported", ErrInvalidOperator, r.Op)
	}
	return validateOperand(r.Op, r.Value)
}

func validateOperand(op Operator, value string) error {
	switch op {
	case OpRegex, OpNregex:
		if _, err := regexp.Compile(value); err != nil {
			return fmt.Errorf("%w: operator %q requires a valid regex: %v", ErrInvalidValue, op, err)
		}
	case OpGt, OpLt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("%w: operator %q requires an integer operand, got %q", ErrInvalidValue, op, value)
		}
	}
	return nil
}

// ValidateRuleSet checks the authoring-time invariants of a RuleSet:
// non-empty nickname, a usable fallback, and contiguous rule positions.
func ValidateRuleSet(rs RuleSet) error {
	if rs.Nickname == "" {
		return fmt.Errorf("%w: nickname must not be empty", ErrInvalidRuleSet)
	}
	if rs.FallbackURL == "" {
		return fmt.Errorf("%w: fallback URL must not be empty", ErrInvalidRuleSet)
	}
	for i, r := range rs.Rules {
		if r.Position != i {
			return fmt.Errorf("%w: rule positions must be contiguous (rule %d has position %d)", ErrInvalidRuleSet, i, r.Position)
		}
		if err := ValidateRule(r); err != nil {
			return err
		}
	}
	return nil
}
