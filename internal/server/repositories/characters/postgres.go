// Package characters provides the PostgreSQL repository for the characters
// database: character rows and the per-account data stored next to them.
package characters

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/realmd/internal/dbx"
	"github.com/dmitrijs2005/realmd/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID uint32) ([]models.Character, error) {
	query := `SELECT guid, account, name FROM characters WHERE account = $1 ORDER BY guid`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Character
	for rows.Next() {
		var c models.Character
		if err := rows.Scan(&c.GUID, &c.AccountID, &c.Name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) CountByAccount(ctx context.Context, accountID uint32) (uint32, error) {
	var n uint32
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(guid) FROM characters WHERE account = $1`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Delete removes a character with its items and social links in both
// directions. Run it inside a transaction; the statements are not atomic
// on their own.
func (r *PostgresRepository) Delete(ctx context.Context, guid uint32) error {
	statements := []string{
		`DELETE FROM character_inventory WHERE guid = $1`,
		`DELETE FROM character_social WHERE guid = $1 OR friend = $1`,
		`DELETE FROM characters WHERE guid = $1`,
	}
	for _, q := range statements {
		if _, err := r.db.ExecContext(ctx, q, guid); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) DeleteTutorials(ctx context.Context, accountID uint32) error {
	return r.exec(ctx, `DELETE FROM account_tutorial WHERE account_id = $1`, accountID)
}

func (r *PostgresRepository) DeleteAccountData(ctx context.Context, accountID uint32) error {
	return r.exec(ctx, `DELETE FROM account_data WHERE account_id = $1`, accountID)
}

func (r *PostgresRepository) DeleteCharacterBans(ctx context.Context, accountID uint32) error {
	return r.exec(ctx, `DELETE FROM character_banned WHERE account = $1`, accountID)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
