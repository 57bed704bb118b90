package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shinertx/memev1/internal/domain"
)

// StrategyConfigStore durably mirrors published StrategySpecs (domain
// .StrategyConfigStore), supplementing the volatile Redis strategy_registry
// set across process restarts. Adapted from the teacher's store of the same
// name, which mirrored an arbitrary name/config/enabled tuple; here the
// shape is fixed to spec §3's StrategySpec.
type StrategyConfigStore struct {
	pool *pgxpool.Pool
}

// NewStrategyConfigStore creates a new StrategyConfigStore backed by the
// given connection pool.
func NewStrategyConfigStore(pool *pgxpool.Pool) *StrategyConfigStore {
	return &StrategyConfigStore{pool: pool}
}

// Get retrieves a single strategy spec by id.
func (s *StrategyConfigStore) Get(ctx context.Context, id string) (domain.StrategySpec, error) {
	const query = `SELECT id, family, params_json FROM strategy_specs WHERE id = $1`

	var spec domain.StrategySpec
	var paramsJSON []byte

	err := s.pool.QueryRow(ctx, query, id).Scan(&spec.ID, &spec.Family, &paramsJSON)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.StrategySpec{}, domain.ErrNotFound
		}
		return domain.StrategySpec{}, fmt.Errorf("postgres: get strategy spec %s: %w", id, err)
	}

	if paramsJSON != nil {
		if err := json.Unmarshal(paramsJSON, &spec.Params); err != nil {
			return domain.StrategySpec{}, fmt.Errorf("postgres: unmarshal strategy spec %s: %w", id, err)
		}
	}
	return spec, nil
}

// Upsert inserts or updates a strategy spec. Params is stored as JSONB.
func (s *StrategyConfigStore) Upsert(ctx context.Context, spec domain.StrategySpec) error {
	paramsJSON, err := json.Marshal(spec.Params)
	if err != nil {
		return fmt.Errorf("postgres: marshal strategy spec %s: %w", spec.ID, err)
	}

	const query = `
		INSERT INTO strategy_specs (id, family, params_json, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE SET
			family      = EXCLUDED.family,
			params_json = EXCLUDED.params_json,
			updated_at  = NOW()`

	_, err = s.pool.Exec(ctx, query, spec.ID, spec.Family, paramsJSON)
	if err != nil {
		return fmt.Errorf("postgres: upsert strategy spec %s: %w", spec.ID, err)
	}
	return nil
}

// List returns all strategy specs, ordered by id.
func (s *StrategyConfigStore) List(ctx context.Context) ([]domain.StrategySpec, error) {
	const query = `SELECT id, family, params_json FROM strategy_specs ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list strategy specs: %w", err)
	}
	defer rows.Close()

	var specs []domain.StrategySpec
	for rows.Next() {
		var spec domain.StrategySpec
		var paramsJSON []byte

		if err := rows.Scan(&spec.ID, &spec.Family, &paramsJSON); err != nil {
			return nil, fmt.Errorf("postgres: scan strategy spec: %w", err)
		}
		if paramsJSON != nil {
			if err := json.Unmarshal(paramsJSON, &spec.Params); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal strategy spec: %w", err)
			}
		}
		specs = append(specs, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list strategy specs rows: %w", err)
	}
	return specs, nil
}

var _ domain.StrategyConfigStore = (*StrategyConfigStore)(nil)
