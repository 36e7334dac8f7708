package realmlist

import "context"

// Row is a realmlist record as stored. Values are kept in their column
// types; range checks and address parsing happen in the realm registry.
type Row struct {
	ID                   int64
	Name                 string
	Address              string
	LocalAddress         string
	LocalSubnetMask      string
	Port                 int64
	Icon                 int64
	Flag                 int64
	Timezone             int64
	AllowedSecurityLevel int64
	Population           float64
	Build                int64
}

type Repository interface {
	List(ctx context.Context) ([]Row, error)
}
