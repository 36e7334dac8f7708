// Package realmlist reads the realm list of the auth database.
package realmlist

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/realmd/internal/common"
	"github.com/dmitrijs2005/realmd/internal/dbx"
)

// flagOffline rows are maintained by hand and never served.
const flagOffline = 3

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns every servable realm ordered by name. A row that cannot be
// scanned is reported as common.ErrCorruptRow.
func (r *PostgresRepository) List(ctx context.Context) ([]Row, error) {
	query := `SELECT id, name, address, local_address, local_subnet_mask, port, icon, flag,
		timezone, allowed_security_level, population, gamebuild
		FROM realmlist
		WHERE flag <> $1
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, flagOffline)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(
			&row.ID, &row.Name, &row.Address, &row.LocalAddress, &row.LocalSubnetMask,
			&row.Port, &row.Icon, &row.Flag, &row.Timezone, &row.AllowedSecurityLevel,
			&row.Population, &row.Build,
		); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrCorruptRow, err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
