package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TimurManjosov/goroute/internal/rules"
)

// PostgresStore is a PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const rulesetColumns = `id, nickname, stub, fallback_url, pass_subids, updated_at`
const ruleColumns = `id, ruleset_id, key, op, value, redirect_to, pass_subids, position`

// GetRuleSet resolves the identifier as a stub first, then as a numeric id.
func (p *PostgresStore) GetRuleSet(ctx context.Context, identifier string) (*rules.RuleSet, error) {
	rs, err := p.queryRuleSet(ctx, `SELECT `+rulesetColumns+` FROM rulesets WHERE stub = $1`, identifier)
	if err == nil {
		return rs, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	id, convErr := strconv.ParseInt(identifier, 10, 64)
	if convErr != nil {
		return nil, ErrNotFound
	}
	return p.queryRuleSet(ctx, `SELECT `+rulesetColumns+` FROM rulesets WHERE id = $1`, id)
}

func (p *PostgresStore) queryRuleSet(ctx context.Context, sql string, arg any) (*rules.RuleSet, error) {
	var rs rules.RuleSet
	err := p.pool.QueryRow(ctx, sql, arg).Scan(
		&rs.ID, &rs.Nickname, &rs.Stub, &rs.FallbackURL, &rs.PassSubIDs, &rs.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rs.Rules, err = p.queryRules(ctx, rs.ID)
	if err != nil {
		return nil, err
	}
	return &rs, nil
}

func (p *PostgresStore) queryRules(ctx context.Context, rulesetID int64) ([]rules.Rule, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+ruleColumns+` FROM rules WHERE ruleset_id = $1 ORDER BY position`, rulesetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []rules.Rule{}
	for rows.Next() {
		var r rules.Rule
		if err := rows.Scan(&r.ID, &r.RuleSetID, &r.Key, &r.Op, &r.Value,
			&r.RedirectTo, &r.PassSubIDs, &r.Position); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (p *PostgresStore) ListRuleSets(ctx context.Context) ([]rules.RuleSet, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+rulesetColumns+` FROM rulesets ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []rules.RuleSet{}
	for rows.Next() {
		var rs rules.RuleSet
		if err := rows.Scan(&rs.ID, &rs.Nickname, &rs.Stub, &rs.FallbackURL,
			&rs.PassSubIDs, &rs.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		result[i].Rules, err = p.queryRules(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (p *PostgresStore) CreateRuleSet(ctx context.Context, params RuleSetParams) (*rules.RuleSet, error) {
	stub := params.Stub
	if stub == "" {
		stub = NewStub()
	}

	var rs rules.RuleSet
	err := p.pool.QueryRow(ctx,
		`INSERT INTO rulesets (nickname, stub, fallback_url, pass_subids)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+rulesetColumns,
		params.Nickname, stub, params.FallbackURL, params.PassSubIDs,
	).Scan(&rs.ID, &rs.Nickname, &rs.Stub, &rs.FallbackURL, &rs.PassSubIDs, &rs.UpdatedAt)
	if err != nil {
		return nil, translateConflict(err)
	}
	rs.Rules = []rules.Rule{}
	return &rs, nil
}

func (p *PostgresStore) UpdateRuleSet(ctx context.Context, id int64, params RuleSetParams) (*rules.RuleSet, error) {
	var rs rules.RuleSet
	err := p.pool.QueryRow(ctx,
		`UPDATE rulesets
		 SET nickname = $2,
		     stub = COALESCE(NULLIF($3, ''), stub),
		     fallback_url = $4,
		     pass_subids = $5,
		     updated_at = now()
		 WHERE id = $1
		 RETURNING `+rulesetColumns,
		id, params.Nickname, params.Stub, params.FallbackURL, params.PassSubIDs,
	).Scan(&rs.ID, &rs.Nickname, &rs.Stub, &rs.FallbackURL, &rs.PassSubIDs, &rs.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, translateConflict(err)
	}

	rs.Rules, err = p.queryRules(ctx, rs.ID)
	if err != nil {
		return nil, err
	}
	return &rs, nil
}

func (p *PostgresStore) DeleteRuleSet(ctx context.Context, id int64) error {
	// Rules go with the ruleset via ON DELETE CASCADE. Idempotent.
	_, err := p.pool.Exec(ctx, `DELETE FROM rulesets WHERE id = $1`, id)
	return err
}

func (p *PostgresStore) AddRule(ctx context.Context, rulesetID int64, params RuleParams) (*rules.Rule, error) {
	var r rules.Rule
	err := p.pool.QueryRow(ctx,
		`INSERT INTO rules (ruleset_id, key, op, value, redirect_to, pass_subids, position)
		 SELECT $1, $2, $3, $4, $5, $6, COALESCE(MAX(position) + 1, 0)
		 FROM rules WHERE ruleset_id = $1
		 RETURNING `+ruleColumns,
		rulesetID, params.Key, params.Op, params.Value, params.RedirectTo, params.PassSubIDs,
	).Scan(&r.ID, &r.RuleSetID, &r.Key, &r.Op, &r.Value, &r.RedirectTo, &r.PassSubIDs, &r.Position)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign key violation
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (p *PostgresStore) DeleteRule(ctx context.Context, rulesetID, ruleID int64) error {
	return p.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM rules WHERE id = $1 AND ruleset_id = $2`, ruleID, rulesetID); err != nil {
			return err
		}
		return renumberRules(ctx, tx, rulesetID)
	})
}

func (p *PostgresStore) ReorderRules(ctx context.Context, rulesetID int64, ruleIDs []int64) error {
	return p.inTx(ctx, func(tx pgx.Tx) error {
		var count int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM rules WHERE ruleset_id = $1`, rulesetID).Scan(&count); err != nil {
			return err
		}
		if count != len(ruleIDs) {
			return fmt.Errorf("reorder needs all %d rule ids, got %d", count, len(ruleIDs))
		}

		// Park positions out of the way first so the unique (ruleset_id,
		// position) constraint never trips mid-renumbering.
		if _, err := tx.Exec(ctx,
			`UPDATE rules SET position = position + $2 WHERE ruleset_id = $1`,
			rulesetID, len(ruleIDs)); err != nil {
			return err
		}
		for pos, id := range ruleIDs {
			tag, err := tx.Exec(ctx,
				`UPDATE rules SET position = $3 WHERE id = $1 AND ruleset_id = $2`,
				id, rulesetID, pos)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("rule %d does not belong to ruleset %d", id, rulesetID)
			}
		}
		return touchRuleSet(ctx, tx, rulesetID)
	})
}

// Close closes the database connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func (p *PostgresStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func renumberRules(ctx context.Context, tx pgx.Tx, rulesetID int64) error {
	if _, err := tx.Exec(ctx,
		`UPDATE rules SET position = numbered.rn - 1
		 FROM (SELECT id, ROW_NUMBER() OVER (ORDER BY position) AS rn
		       FROM rules WHERE ruleset_id = $1) AS numbered
		 WHERE rules.id = numbered.id`, rulesetID); err != nil {
		return err
	}
	return touchRuleSet(ctx, tx, rulesetID)
}

func touchRuleSet(ctx context.Context, tx pgx.Tx, rulesetID int64) error {
	_, err := tx.Exec(ctx, `UPDATE rulesets SET updated_at = now() WHERE id = $1`, rulesetID)
	return err
}

func translateConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique violation
		return ErrConflict
	}
	return err
}
