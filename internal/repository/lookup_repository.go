package repository

import (
	"context"
	"fmt"

	"github.com/segyhp/fleet-charges/internal/domain"

	"github.com/jmoiron/sqlx"
)

type lookupRow struct {
	ID    string `db:"id"`
	Label string `db:"label"`
}

type lookupRepository struct {
	db *sqlx.DB
}

func NewLookupRepository(db *sqlx.DB) LookupRepository {
	return &lookupRepository{db: db}
}

// Load reads every master-data dictionary. The tables are owned by the
// surrounding application; only id and display label are read.
func (r *lookupRepository) Load(ctx context.Context) (domain.Lookups, error) {
	var lookups domain.Lookups

	sources := []struct {
		table  string
		query  string
		target *map[string]string
	}{
		{"categories", `SELECT id, name AS label FROM categories`, &lookups.Categories},
		{"suppliers", `SELECT id, name AS label FROM suppliers`, &lookups.Suppliers},
		{"cities", `SELECT id, name AS label FROM cities`, &lookups.Cities},
		{"ambulances", `SELECT id, plate AS label FROM ambulances`, &lookups.Ambulances},
		{"staff", `SELECT id, full_name AS label FROM staff`, &lookups.Staff},
		{"products", `SELECT id, name AS label FROM products`, &lookups.Products},
	}

	for _, src := range sources {
		var rows []lookupRow
		if err := r.db.SelectContext(ctx, &rows, src.query); err != nil {
			return domain.Lookups{}, fmt.Errorf("load %s: %w", src.table, err)
		}

		dict := make(map[string]string, len(rows))
		for _, row := range rows {
			dict[row.ID] = row.Label
		}
		*src.target = dict
	}

	return lookups, nil
}
