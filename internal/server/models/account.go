package models

import "github.com/dmitrijs2005/realmd/internal/cryptox"

// Account is the persisted identity and SRP6 credential of a player.
// Username is always stored normalized.
type Account struct {
	ID        uint32
	Username  string
	Salt      cryptox.Salt
	Verifier  cryptox.Verifier
	Expansion uint8
}

// Character is the slice of a character row needed to remove it together
// with its owning account.
type Character struct {
	GUID      uint32
	AccountID uint32
	Name      string
}
