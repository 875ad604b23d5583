package retention

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGInventory is the Postgres-backed data inventory. The app's sync
// layer registers every deletable record here; the purge engine only
// enumerates and deletes through it.
type PGInventory struct {
	db *pgxpool.Pool
}

func NewPGInventory(db *pgxpool.Pool) *PGInventory {
	return &PGInventory{db: db}
}

func (p *PGInventory) Items(ctx context.Context) ([]Item, error) {
	rows, err := p.db.Query(ctx, `
    SELECT ref, category, recorded_at
    FROM data_inventory
  `)
	if err != nil {
		return nil, fmt.Errorf("inventory query: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.Ref, &item.Category, &item.Timestamp); err != nil {
			return nil, fmt.Errorf("inventory scan: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("inventory rows: %w", err)
	}
	return items, nil
}

func (p *PGInventory) Delete(ctx context.Context, item Item) error {
	if _, err := p.db.Exec(ctx, `
    DELETE FROM data_inventory
    WHERE ref = $1
  `, item.Ref); err != nil {
		return fmt.Errorf("inventory delete %s: %w", item.Ref, err)
	}
	return nil
}
