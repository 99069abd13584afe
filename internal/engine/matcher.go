package engine

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/TimurManjosov/goroute/internal/rules"
)

// operatorHandler evaluates one comparison operator.
type operatorHandler interface {
	check(needle, operand string) bool
}

var operatorHandlers = map[rules.Operator]operatorHandler{
	rules.OpEq:     eqHandler{},
	rules.OpNeq:    neqHandler{},
	rules.OpRegex:  regexHandler{negate: false},
	rules.OpNregex: regexHandler{negate: true},
	rules.OpGt:     intCompareHandler{cmp: func(a, b int) bool { return a > b }},
	rules.OpLt:     intCompareHandler{cmp: func(a, b int) bool { return a < b }},
	rules.OpIn:     listHandler{negate: false},
	rules.OpNin:    listHandler{negate: true},
}

// regexCache keeps compiled patterns for the hot evaluation path.
// Expected value type is *regexp.Regexp.
var regexCache sync.Map

// Matches evaluates one typed comparison against one extracted visitor value.
// It is pure and total: every (needle, operator, operand) triple yields true
// or false, never an error. Malformed operands (bad regex, non-integer gt/lt
// sides) fail closed. An unknown operator fails OPEN, acting as an implicit
// wildcard; strict deployments reject unknown operators at authoring time via
// rules.ValidateRule and at evaluation time via Evaluator.Strict.
func Matches(needle string, op rules.Operator, operand string) bool {
	h, ok := operatorHandlers[op]
	if !ok {
		return true
	}
	return h.check(needle, operand)
}

type eqHandler struct{}

func (eqHandler) check(needle, operand string) bool { return needle == operand }

type neqHandler struct{}

func (neqHandler) check(needle, operand string) bool { return needle != operand }

// regexHandler matches the operand pattern anchored at the start of the
// needle (prefix semantics, not full-string).
type regexHandler struct {
	negate bool
}

func (h regexHandler) check(needle, operand string) bool {
	rx, ok := getCompiledRegex(operand)
	if !ok {
		return false
	}
	matched := rx.MatchString(needle)
	if h.negate {
		return !matched
	}
	return matched
}

type intCompareHandler struct {
	cmp func(a, b int) bool
}

func (h intCompareHandler) check(needle, operand string) bool {
	n, err := strconv.Atoi(needle)
	if err != nil {
		return false
	}
	o, err := strconv.Atoi(operand)
	if err != nil {
		return false
	}
	return h.cmp(n, o)
}

// listHandler treats the operand as a comma-separated list; elements are
// trimmed of surrounding whitespace before comparison.
type listHandler struct {
	negate bool
}

func (h listHandler) check(needle, operand string) bool {
	found := false
	for _, item := range strings.Split(operand, ",") {
		if strings.TrimSpace(item) == needle {
			found = true
			break
		}
	}
	if h.negate {
		return !found
	}
	return found
}

func getCompiledRegex(pattern string) (*regexp.Regexp, bool) {
	if cached, ok := regexCache.Load(pattern); ok {
		rx, ok := cached.(*regexp.Regexp)
		return rx, ok && rx != nil
	}

	rx, err := regexp.Compile(`\A(?:` + pattern + `)`)
	if err != nil {
		// Cache the failure too so a hot bad pattern compiles once.
		regexCache.Store(pattern, (*regexp.Regexp)(nil))
		return nil, false
	}
	regexCache.Store(pattern, rx)
	return rx, true
}
