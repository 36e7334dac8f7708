package accounts

import (
	"context"

	"github.com/dmitrijs2005/realmd/internal/cryptox"
	"github.com/dmitrijs2005/realmd/internal/server/models"
)

// AllRealms is the realm id of an access row that applies everywhere.
const AllRealms int32 = -1

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	InitRealmCharacters(ctx context.Context, accountID uint32) error
	GetByID(ctx context.Context, id uint32) (*models.Account, error)
	GetIDByUsername(ctx context.Context, username string) (uint32, error)
	GetUsername(ctx context.Context, id uint32) (string, error)
	UpdateUsername(ctx context.Context, id uint32, username string) error
	UpdateCredentials(ctx context.Context, id uint32, salt cryptox.Salt, verifier cryptox.Verifier) error

	GetSecurity(ctx context.Context, id uint32) (models.AccountType, error)
	GetSecurityForRealm(ctx context.Context, id uint32, realmID int32) (models.AccountType, error)
	SetSecurity(ctx context.Context, id uint32, level models.AccountType, realmID int32) error

	Delete(ctx context.Context, id uint32) error
	DeleteAccess(ctx context.Context, id uint32) error
	DeleteRealmCharacters(ctx context.Context, id uint32) error
	DeleteBans(ctx context.Context, id uint32) error
	ClearMute(ctx context.Context, id uint32) error
}
