// Package accounts provides the PostgreSQL repository for accounts and the
// rows the auth database keeps per account: access levels, realm character
// counters, bans and mutes.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/realmd/internal/common"
	"github.com/dmitrijs2005/realmd/internal/cryptox"
	"github.com/dmitrijs2005/realmd/internal/dbx"
	"github.com/dmitrijs2005/realmd/internal/server/models"
)

// PostgresRepository implements account storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the account and fills in its id. A duplicate username
// surfaces as a unique violation (see dbx.IsUniqueViolation).
func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO account (username, salt, verifier, expansion)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		account.Username, account.Salt[:], account.Verifier[:], account.Expansion).Scan(&account.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return account, nil
}

// InitRealmCharacters seeds a zero character counter for every realm the
// account has no counter on yet.
func (r *PostgresRepository) InitRealmCharacters(ctx context.Context, accountID uint32) error {
	query :=
		`INSERT INTO realmcharacters (realmid, acctid, numchars)
		 SELECT r.id, a.id, 0
		 FROM realmlist r CROSS JOIN account a
		 LEFT JOIN realmcharacters rc ON rc.acctid = a.id AND rc.realmid = r.id
		 WHERE a.id = $1 AND rc.acctid IS NULL`

	if _, err := r.db.ExecContext(ctx, query, accountID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uint32) (*models.Account, error) {
	query :=
		`SELECT id, username, salt, verifier, expansion FROM account
		 WHERE id = $1`

	var (
		account        models.Account
		salt, verifier []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&account.ID, &account.Username, &salt, &verifier, &account.Expansion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if len(salt) != cryptox.SaltLength || len(verifier) != cryptox.VerifierLength {
		return nil, fmt.Errorf("%w: account %d has salt of %d bytes and verifier of %d bytes",
			common.ErrCorruptRow, id, len(salt), len(verifier))
	}
	copy(account.Salt[:], salt)
	copy(account.Verifier[:], verifier)

	return &account, nil
}

func (r *PostgresRepository) GetIDByUsername(ctx context.Context, username string) (uint32, error) {
	query := `SELECT id FROM account WHERE username = $1`

	var id uint32
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) GetUsername(ctx context.Context, id uint32) (string, error) {
	query := `SELECT username FROM account WHERE id = $1`

	var username string
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}
	return username, nil
}

func (r *PostgresRepository) UpdateUsername(ctx context.Context, id uint32, username string) error {
	return r.execOne(ctx, `UPDATE account SET username = $1 WHERE id = $2`, username, id)
}

func (r *PostgresRepository) UpdateCredentials(ctx context.Context, id uint32, salt cryptox.Salt, verifier cryptox.Verifier) error {
	return r.execOne(ctx, `UPDATE account SET salt = $1, verifier = $2 WHERE id = $3`, salt[:], verifier[:], id)
}

// GetSecurity returns the highest access level granted to the account on
// any realm, or common.ErrorNotFound when it has none.
func (r *PostgresRepository) GetSecurity(ctx context.Context, id uint32) (models.AccountType, error) {
	query :=
		`SELECT gmlevel FROM account_access
		 WHERE id = $1
		 ORDER BY gmlevel DESC
		 LIMIT 1`

	return r.scanLevel(r.db.QueryRowContext(ctx, query, id))
}

// GetSecurityForRealm is like GetSecurity but only considers rows for
// realmID and rows granted on all realms.
func (r *PostgresRepository) GetSecurityForRealm(ctx context.Context, id uint32, realmID int32) (models.AccountType, error) {
	query :=
		`SELECT gmlevel FROM account_access
		 WHERE id = $1 AND (realm_id = $2 OR realm_id = -1)
		 ORDER BY gmlevel DESC
		 LIMIT 1`

	return r.scanLevel(r.db.QueryRowContext(ctx, query, id, realmID))
}

func (r *PostgresRepository) SetSecurity(ctx context.Context, id uint32, level models.AccountType, realmID int32) error {
	query :=
		`INSERT INTO account_access (id, gmlevel, realm_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id, realm_id) DO UPDATE SET gmlevel = EXCLUDED.gmlevel`

	if _, err := r.db.ExecContext(ctx, query, id, uint8(level), realmID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uint32) error {
	return r.exec(ctx, `DELETE FROM account WHERE id = $1`, id)
}

func (r *PostgresRepository) DeleteAccess(ctx context.Context, id uint32) error {
	return r.exec(ctx, `DELETE FROM account_access WHERE id = $1`, id)
}

func (r *PostgresRepository) DeleteRealmCharacters(ctx context.Context, id uint32) error {
	return r.exec(ctx, `DELETE FROM realmcharacters WHERE acctid = $1`, id)
}

func (r *PostgresRepository) DeleteBans(ctx context.Context, id uint32) error {
	return r.exec(ctx, `DELETE FROM account_banned WHERE id = $1`, id)
}

// ClearMute drops any pending mute expiry of the account.
func (r *PostgresRepository) ClearMute(ctx context.Context, id uint32) error {
	return r.exec(ctx, `DELETE FROM account_muted WHERE guid = $1`, id)
}

func (r *PostgresRepository) scanLevel(row *sql.Row) (models.AccountType, error) {
	var level uint8
	if err := row.Scan(&level); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.SecPlayer, common.ErrorNotFound
		}
		return models.SecPlayer, fmt.Errorf("db error: %w", err)
	}
	return models.AccountType(level), nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) error {
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// execOne runs an update that must touch exactly one account row.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
