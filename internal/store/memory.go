package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/TimurManjosov/goroute/internal/rules"
)

// MemoryStore is an in-memory implementation of the Store interface.
// It uses maps guarded by an RWMutex and is suitable for development,
// testing, or single-instance deployments.
type MemoryStore struct {
	mu         sync.RWMutex
	rulesets   map[int64]*rules.RuleSet // id -> ruleset (rules kept position-sorted)
	nextSetID  int64
	nextRuleID int64
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rulesets:   make(map[int64]*rules.RuleSet),
		nextSetID:  1,
		nextRuleID: 1,
	}
}

// GetRuleSet resolves the identifier as a stub first, then as a numeric id.
func (m *MemoryStore) GetRuleSet(ctx context.Context, identifier string) (*rules.RuleSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rs := range m.rulesets {
		if rs.Stub == identifier {
			return copyRuleSet(rs), nil
		}
	}
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		if rs, ok := m.rulesets[id]; ok {
			return copyRuleSet(rs), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListRuleSets(ctx context.Context) ([]rules.RuleSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]rules.RuleSet, 0, len(m.rulesets))
	for _, rs := range m.rulesets {
		result = append(result, *copyRuleSet(rs))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MemoryStore) CreateRuleSet(ctx context.Context, params RuleSetParams) (*rules.RuleSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stub := params.Stub
	if stub == "" {
		stub = NewStub()
	}
	for _, rs := range m.rulesets {
		if rs.Nickname == params.Nickname || rs.Stub == stub {
			return nil, ErrConflict
		}
	}

	rs := &rules.RuleSet{
		ID:          m.nextSetID,
		Nickname:    params.Nickname,
		Stub:        stub,
		FallbackURL: params.FallbackURL,
		PassSubIDs:  params.PassSubIDs,
		Rules:       []rules.Rule{},
		UpdatedAt:   time.Now().UTC(),
	}
	m.nextSetID++
	m.rulesets[rs.ID] = rs
	return copyRuleSet(rs), nil
}

func (m *MemoryStore) UpdateRuleSet(ctx context.Context, id int64, params RuleSetParams) (*rules.RuleSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rs, ok := m.rulesets[id]
	if !ok {
		return nil, ErrNotFound
	}
	for _, other := range m.rulesets {
		if other.ID == id {
			continue
		}
		if other.Nickname == params.Nickname || (params.Stub != "" && other.Stub == params.Stub) {
			return nil, ErrConflict
		}
	}

	rs.Nickname = params.Nickname
	if params.Stub != "" {
		rs.Stub = params.Stub
	}
	rs.FallbackURL = params.FallbackURL
	rs.PassSubIDs = params.PassSubIDs
	rs.UpdatedAt = time.Now().UTC()
	return copyRuleSet(rs), nil
}

func (m *MemoryStore) DeleteRuleSet(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Idempotent: no error if the ruleset doesn't exist.
	delete(m.rulesets, id)
	return nil
}

func (m *MemoryStore) AddRule(ctx context.Context, rulesetID int64, params RuleParams) (*rules.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rs, ok := m.rulesets[rulesetID]
	if !ok {
		return nil, ErrNotFound
	}

	r := rules.Rule{
		ID:         m.nextRuleID,
		Key:        params.Key,
		Op:         params.Op,
		Value:      params.Value,
		RedirectTo: params.RedirectTo,
		PassSubIDs: params.PassSubIDs,
		Position:   len(rs.Rules),
		RuleSetID:  rulesetID,
	}
	m.nextRuleID++
	rs.Rules = append(rs.Rules, r)
	rs.UpdatedAt = time.Now().UTC()
	return &r, nil
}

func (m *MemoryStore) DeleteRule(ctx context.Context, rulesetID, ruleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rs, ok := m.rulesets[rulesetID]
	if !ok {
		return ErrNotFound
	}

	kept := rs.Rules[:0]
	for _, r := range rs.Rules {
		if r.ID != ruleID {
			kept = append(kept, r)
		}
	}
	rs.Rules = kept
	renumber(rs.Rules)
	rs.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) ReorderRules(ctx context.Context, rulesetID int64, ruleIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rs, ok := m.rulesets[rulesetID]
	if !ok {
		return ErrNotFound
	}
	if len(ruleIDs) != len(rs.Rules) {
		return fmt.Errorf("reorder needs all %d rule ids, got %d", len(rs.Rules), len(ruleIDs))
	}

	byID := make(map[int64]rules.Rule, len(rs.Rules))
	for _, r := range rs.Rules {
		byID[r.ID] = r
	}
	reordered := make([]rules.Rule, 0, len(ruleIDs))
	for _, id := range ruleIDs {
		r, ok := byID[id]
		if !ok {
			return fmt.Errorf("rule %d does not belong to ruleset %d", id, rulesetID)
		}
		delete(byID, id)
		reordered = append(reordered, r)
	}

	rs.Rules = reordered
	renumber(rs.Rules)
	rs.UpdatedAt = time.Now().UTC()
	return nil
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error { return nil }

// renumber reassigns contiguous positions in slice order.
func renumber(rs []rules.Rule) {
	for i := range rs {
		rs[i].Position = i
	}
}

// copyRuleSet returns a deep copy so callers never share the stored slices.
func copyRuleSet(rs *rules.RuleSet) *rules.RuleSet {
	out := *rs
	out.Rules = make([]rules.Rule, len(rs.Rules))
	copy(out.Rules, rs.Rules)
	return &out
}
