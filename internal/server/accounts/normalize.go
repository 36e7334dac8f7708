package accounts

import "github.com/dmitrijs2005/realmd/internal/server/models"

// Normalize upper-cases the ASCII letters a-z of s and leaves every other
// byte untouched, including non-ASCII letters and invalid UTF-8. Account
// names and passwords are always normalized before they are stored or
// hashed, so "Player1" and "player1" are the same account. Stored
// verifiers depend on this exact mapping.
func Normalize(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'a' <= c && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

func IsPlayerAccount(t models.AccountType) bool {
	return t == models.SecPlayer
}

func IsGMAccount(t models.AccountType) bool {
	return t >= models.SecModerator && t <= models.SecConsole
}

func IsAdminAccount(t models.AccountType) bool {
	return t >= models.SecAdministrator && t <= models.SecConsole
}

func IsConsoleAccount(t models.AccountType) bool {
	return t == models.SecConsole
}
