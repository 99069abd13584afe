package store

import (
	"context"
	"errors"
	"testing"

	"github.com/TimurManjosov/goroute/internal/rules"
)

func newTestRuleSet(t *testing.T, m *MemoryStore) *rules.RuleSet {
	t.Helper()
	rs, err := m.CreateRuleSet(context.Background(), RuleSetParams{
		Nickname:    "campaign",
		FallbackURL: "https://example.com/default",
	})
	if err != nil {
		t.Fatalf("CreateRuleSet: %v", err)
	}
	return rs
}

func TestMemoryStore_GetRuleSetByStubAndID(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	rs := newTestRuleSet(t, m)

	if rs.Stub == "" {
		t.Fatal("CreateRuleSet should generate a stub")
	}

	byStub, err := m.GetRuleSet(ctx, rs.Stub)
	if err != nil || byStub.ID != rs.ID {
		t.Fatalf("GetRuleSet(stub) = %+v, %v", byStub, err)
	}

	byID, err := m.GetRuleSet(ctx, "1")
	if err != nil || byID.ID != rs.ID {
		t.Fatalf("GetRuleSet(id) = %+v, %v", byID, err)
	}

	if _, err := m.GetRuleSet(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetRuleSet(unknown) = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_StubWinsOverID(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	first := newTestRuleSet(t, m)

	// A second ruleset whose stub is the first one's numeric id.
	second, err := m.CreateRuleSet(ctx, RuleSetParams{
		Nickname:    "collider",
		Stub:        "1",
		FallbackURL: "https://example.com/other",
	})
	if err != nil {
		t.Fatalf("CreateRuleSet: %v", err)
	}

	got, err := m.GetRuleSet(ctx, "1")
	if err != nil {
		t.Fatalf("GetRuleSet: %v", err)
	}
	if got.ID != second.ID {
		t.Fatalf("identifier %q resolved to ruleset %d, want stub match %d", "1", got.ID, second.ID)
	}
	_ = first
}

func TestMemoryStore_UniqueNicknameAndStub(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	rs := newTestRuleSet(t, m)

	if _, err := m.CreateRuleSet(ctx, RuleSetParams{
		Nickname: "campaign", FallbackURL: "https://example.com/x",
	}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate nickname = %v, want ErrConflict", err)
	}
	if _, err := m.CreateRuleSet(ctx, RuleSetParams{
		Nickname: "other", Stub: rs.Stub, FallbackURL: "https://example.com/x",
	}); !errors.Is(err, ErrConflict) {
		t.Fatalf("duplicate stub = %v, want ErrConflict", err)
	}
}

func TestMemoryStore_AddDeleteReorderKeepsPositionsContiguous(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	rs := newTestRuleSet(t, m)

	var ids []int64
	for _, cc := range []string{"US", "CA", "FR"} {
		r, err := m.AddRule(ctx, rs.ID, RuleParams{
			Key: rules.KeyCountry, Op: rules.OpEq, Value: cc,
			RedirectTo: "https://example.com/" + cc,
		})
		if err != nil {
			t.Fatalf("AddRule(%s): %v", cc, err)
		}
		ids = append(ids, r.ID)
	}

	got, _ := m.GetRuleSet(ctx, rs.Stub)
	for i, r := range got.Rules {
		if r.Position != i {
			t.Fatalf("rule %d has position %d after add", i, r.Position)
		}
	}

	// Delete the middle rule; positions renumber.
	if err := m.DeleteRule(ctx, rs.ID, ids[1]); err != nil {
		t.Fatalf("DeleteRule: %v", err)
	}
	got, _ = m.GetRuleSet(ctx, rs.Stub)
	if len(got.Rules) != 2 || got.Rules[0].Position != 0 || got.Rules[1].Position != 1 {
		t.Fatalf("positions not contiguous after delete: %+v", got.Rules)
	}
	if got.Rules[0].Value != "US" || got.Rules[1].Value != "FR" {
		t.Fatalf("wrong rules survived delete: %+v", got.Rules)
	}

	// Reorder: FR first.
	if err := m.ReorderRules(ctx, rs.ID, []int64{ids[2], ids[0]}); err != nil {
		t.Fatalf("ReorderRules: %v", err)
	}
	got, _ = m.GetRuleSet(ctx, rs.Stub)
	if got.Rules[0].Value != "FR" || got.Rules[0].Position != 0 ||
		got.Rules[1].Value != "US" || got.Rules[1].Position != 1 {
		t.Fatalf("reorder result wrong: %+v", got.Rules)
	}

	// Partial or foreign id lists are rejected.
	if err := m.ReorderRules(ctx, rs.ID, []int64{ids[2]}); err == nil {
		t.Fatal("ReorderRules should reject a partial id list")
	}
	if err := m.ReorderRules(ctx, rs.ID, []int64{ids[2], 999}); err == nil {
		t.Fatal("ReorderRules should reject foreign rule ids")
	}
}

func TestMemoryStore_SnapshotIsolation(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	rs := newTestRuleSet(t, m)
	if _, err := m.AddRule(ctx, rs.ID, RuleParams{Key: rules.KeyIP, Op: rules.OpEq, Value: "1.2.3.4"}); err != nil {
		t.Fatalf("AddRule: %v", err)
	}

	got, _ := m.GetRuleSet(ctx, rs.Stub)
	got.Rules[0].Value = "mutated"

	again, _ := m.GetRuleSet(ctx, rs.Stub)
	if again.Rules[0].Value != "1.2.3.4" {
		t.Fatal("returned ruleset shares state with the store")
	}
}
