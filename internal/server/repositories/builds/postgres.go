// Package builds reads the known client builds from the auth database.
package builds

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/realmd/internal/common"
	"github.com/dmitrijs2005/realmd/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// List returns all known builds ordered by build number.
func (r *PostgresRepository) List(ctx context.Context) ([]Row, error) {
	query := `SELECT build, major_version, minor_version, bugfix_version, hotfix_version,
		win_checksum_seed, mac_checksum_seed
		FROM build_info
		ORDER BY build`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(
			&row.Build, &row.MajorVersion, &row.MinorVersion, &row.BugfixVersion,
			&row.HotfixVersion, &row.WinChecksum, &row.MacChecksum,
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
