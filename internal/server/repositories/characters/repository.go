package characters

import (
	"context"

	"github.com/dmitrijs2005/realmd/internal/server/models"
)

type Repository interface {
	ListByAccount(ctx context.Context, accountID uint32) ([]models.Character, error)
	CountByAccount(ctx context.Context, accountID uint32) (uint32, error)
	Delete(ctx context.Context, guid uint32) error

	DeleteTutorials(ctx context.Context, accountID uint32) error
	DeleteAccountData(ctx context.Context, accountID uint32) error
	DeleteCharacterBans(ctx context.Context, accountID uint32) error
}
