// Package migrations embeds the goose SQL migrations of the two databases
// realmd talks to: the auth database (realms, builds, accounts) and the
// characters database of the realm this login server is paired with.
package migrations

import "embed"

//go:embed auth/*.sql
var Auth embed.FS

//go:embed characters/*.sql
var Characters embed.FS
