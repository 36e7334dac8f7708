package builds

import (
	"context"
	"database/sql"
)

// Row is a build_info record. Hotfix and checksum seeds are optional.
type Row struct {
	Build         int64
	MajorVersion  int64
	MinorVersion  int64
	BugfixVersion int64
	HotfixVersion sql.NullString
	WinChecksum   sql.NullString
	MacChecksum   sql.NullString
}

type Repository interface {
	List(ctx context.Context) ([]Row, error)
}
