package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LoadAll reads all entity validation specs from the database and populates
// the registry.
func LoadAll(ctx context.Context, pool *pgxpool.Pool, reg *Registry) error {
	specs, err := loadValidations(ctx, pool)
	if err != nil {
		return fmt.Errorf("load entity validations: %w", err)
	}

	reg.Load(specs)
	log.Printf("Loaded %d entity validation specs into registry", len(specs))
	return nil
}

// Reload is an alias for LoadAll, called after admin mutations.
func Reload(ctx context.Context, pool *pgxpool.Pool, reg *Registry) error {
	return LoadAll(ctx, pool, reg)
}

func loadValidations(ctx context.Context, pool *pgxpool.Pool) ([]*EntityValidations, error) {
	rows, err := pool.Query(ctx,
		"SELECT name, table_name, definition FROM _entity_validations ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var specs []*EntityValidations
	for rows.Next() {
		var name, table string
		var defJSON []byte
		if err := rows.Scan(&name, &table, &defJSON); err != nil {
			return nil, fmt.Errorf("scan validation row: %w", err)
		}

		var ev EntityValidations
		if err := json.Unmarshal(defJSON, &ev); err != nil {
			log.Printf("WARN: skipping validations for %s (invalid JSON): %v", name, err)
			continue
		}
		ev.Entity = name
		ev.Table = table

		if err := ev.CompilePredicates(); err != nil {
			log.Printf("WARN: skipping validations for %s (bad predicate): %v", name, err)
			continue
		}
		specs = append(specs, &ev)
	}
	return specs, rows.Err()
}
