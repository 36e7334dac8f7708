package models

// AccountType is the ordered security tier of an account.
type AccountType uint8

const (
	SecPlayer        AccountType = 0
	SecModerator     AccountType = 1
	SecGameMaster    AccountType = 2
	SecAdministrator AccountType = 3
	SecConsole       AccountType = 4 // must stay the highest tier
)

func (t AccountType) String() string {
	switch t {
	case SecPlayer:
		return "player"
	case SecModerator:
		return "moderator"
	case SecGameMaster:
		return "gamemaster"
	case SecAdministrator:
		return "administrator"
	case SecConsole:
		return "console"
	default:
		return "unknown"
	}
}
