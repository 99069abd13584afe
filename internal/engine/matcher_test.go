package engine

import (
	"testing"

	"github.com/TimurManjosov/goroute/internal/rules"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		needle  string
		op      rules.Operator
		operand string
		want    bool
	}{
		{name: "eq true", needle: "US", op: rules.OpEq, operand: "US", want: true},
		{name: "eq false", needle: "US", op: rules.OpEq, operand: "CA", want: false},
		{name: "neq true", needle: "US", op: rules.OpNeq, operand: "CA", want: true},
		{name: "neq false", needle: "US", op: rules.OpNeq, operand: "US", want: false},

		{name: "regex prefix match", needle: "https://t.example.com/page", op: rules.OpRegex, operand: `https://t\.`, want: true},
		{name: "regex anchored at start", needle: "xfoo", op: rules.OpRegex, operand: "foo", want: false},
		{name: "regex prefix not full string", needle: "foobar", op: rules.OpRegex, operand: "foo", want: true},
		{name: "regex malformed fails closed", needle: "abc", op: rules.OpRegex, operand: "(", want: false},
		{name: "nregex true", needle: "plain", op: rules.OpNregex, operand: "https?://", want: true},
		{name: "nregex false", needle: "http://x", op: rules.OpNregex, operand: "https?://", want: false},
		{name: "nregex malformed fails closed", needle: "abc", op: rules.OpNregex, operand: "(", want: false},

		{name: "gt true", needle: "14", op: rules.OpGt, operand: "9", want: true},
		{name: "gt false", needle: "5", op: rules.OpGt, operand: "9", want: false},
		{name: "gt non-numeric needle", needle: "abc", op: rules.OpGt, operand: "5", want: false},
		{name: "gt non-numeric operand", needle: "5", op: rules.OpGt, operand: "abc", want: false},
		{name: "lt true", needle: "03", op: rules.OpLt, operand: "9", want: true},
		{name: "lt false", needle: "12", op: rules.OpLt, operand: "9", want: false},

		{name: "in member", needle: "b", op: rules.OpIn, operand: "a, b ,c", want: true},
		{name: "in non-member", needle: "d", op: rules.OpIn, operand: "a,b,c", want: false},
		{name: "nin non-member", needle: "d", op: rules.OpNin, operand: "a,b,c", want: true},
		{name: "nin member trims whitespace", needle: "c", op: rules.OpNin, operand: "a, b , c ", want: false},

		{name: "unknown operator fails open", needle: "anything", op: rules.Operator("like"), operand: "x", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.needle, tt.op, tt.operand); got != tt.want {
				t.Fatalf("Matches(%q, %q, %q) = %v, want %v", tt.needle, tt.op, tt.operand, got, tt.want)
			}
		})
	}
}

func TestMatchesBadRegexIsCached(t *testing.T) {
	// Repeated evaluation of the same malformed pattern must stay false and
	// must not panic on the cached entry.
	for i := 0; i < 3; i++ {
		if Matches("abc", rules.OpRegex, "[unclosed") {
			t.Fatal("malformed regex should fail closed")
		}
	}
}
