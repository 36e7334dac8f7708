// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/realmd/internal/dbx"
	"github.com/dmitrijs2005/realmd/internal/server/migrations"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/builds"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/characters"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/realmlist"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// Realms returns a realmlist.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Realms(db dbx.DBTX) realmlist.Repository {
	return realmlist.NewPostgresRepository(db)
}

// Builds returns a builds.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Builds(db dbx.DBTX) builds.Repository {
	return builds.NewPostgresRepository(db)
}

// Accounts returns an accounts.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db)
}

// Characters returns a characters.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Characters(db dbx.DBTX) characters.Repository {
	return characters.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

func schemaFS(schema Schema) (fs.FS, error) {
	switch schema {
	case SchemaAuth:
		return migrations.Auth, nil
	case SchemaCharacters:
		return migrations.Characters, nil
	default:
		return nil, fmt.Errorf("unknown schema %q", schema)
	}
}

// RunMigrations applies the embedded migrations of schema. Each schema
// keeps its own version table so both may share one database.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB, schema Schema) error {
	fsys, err := schemaFS(schema)
	if err != nil {
		return err
	}

	goose.SetBaseFS(fsys)
	goose.SetTableName(fmt.Sprintf("goose_%s_version", schema))
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, string(schema)); err != nil {
		return fmt.Errorf("migrate %s: %w", schema, err)
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
