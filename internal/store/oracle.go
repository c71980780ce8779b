package store

import (
	"context"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sentinel-backend/internal/metadata"
)

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Oracle answers unique checks against the entity's backing table.
type Oracle struct {
	pool *pgxpool.Pool
	reg  *metadata.Registry
}

func NewOracle(pool *pgxpool.Pool, reg *metadata.Registry) *Oracle {
	return &Oracle{pool: pool, reg: reg}
}

// IsUnique reports whether no persisted record of the entity already holds
// the value in the given property. The entity's spec names the backing
// table; entities without one fall back to the entity name.
func (o *Oracle) IsUnique(ctx context.Context, entity, property string, value any) (bool, error) {
	table := entity
	if spec := o.reg.Get(entity); spec != nil && spec.Table != "" {
		table = spec.Table
	}
	if !identPattern.MatchString(table) {
		return false, fmt.Errorf("invalid table name %q", table)
	}
	if !identPattern.MatchString(property) {
		return false, fmt.Errorf("invalid column name %q", property)
	}

	sql := fmt.Sprintf("SELECT NOT EXISTS (SELECT 1 FROM %s WHERE %s = $1)",
		pgx.Identifier{table}.Sanitize(), pgx.Identifier{property}.Sanitize())

	var unique bool
	if err := o.pool.QueryRow(ctx, sql, value).Scan(&unique); err != nil {
		return false, fmt.Errorf("uniqueness query %s.%s: %w", table, property, err)
	}
	return unique, nil
}
