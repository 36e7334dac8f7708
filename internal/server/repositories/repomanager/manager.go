package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/realmd/internal/dbx"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/builds"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/characters"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/realmlist"
)

// Schema selects which embedded migration set RunMigrations applies.
type Schema string

const (
	SchemaAuth       Schema = "auth"
	SchemaCharacters Schema = "characters"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB, schema Schema) error
	Realms(db dbx.DBTX) realmlist.Repository
	Builds(db dbx.DBTX) builds.Repository
	Accounts(db dbx.DBTX) accounts.Repository
	Characters(db dbx.DBTX) characters.Repository
}
