package accounts

import (
	"testing"

	"github.com/dmitrijs2005/realmd/internal/server/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"player1", "PLAYER1"},
		{"Player1", "PLAYER1"},
		{"éclair", "éCLAIR"},
		{"Ωmega", "ΩMEGA"},
		{"имя", "имя"},
		{"ſecret", "ſECRET"},
		{"ıtem", "ıTEM"},
		{"a\xffb", "A\xffB"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "idempotent")
		})
	}
}

func TestNormalize_NoCollisionOutsideASCII(t *testing.T) {
	assert.NotEqual(t, Normalize("secret"), Normalize("ſecret"))
	assert.NotEqual(t, Normalize("item"), Normalize("ıtem"))
	assert.NotEqual(t, Normalize("éclair"), Normalize("Éclair"))
}

func TestSecurityPredicates(t *testing.T) {
	tests := []struct {
		level                      models.AccountType
		player, gm, admin, console bool
	}{
		{models.SecPlayer, true, false, false, false},
		{models.SecModerator, false, true, false, false},
		{models.SecGameMaster, false, true, false, false},
		{models.SecAdministrator, false, true, true, false},
		{models.SecConsole, false, true, true, true},
		{models.AccountType(5), false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.player, IsPlayerAccount(tt.level))
			assert.Equal(t, tt.gm, IsGMAccount(tt.level))
			assert.Equal(t, tt.admin, IsAdminAccount(tt.level))
			assert.Equal(t, tt.console, IsConsoleAccount(tt.level))
		})
	}
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "NameAlreadyExists", NameAlreadyExists.String())
	assert.Equal(t, "Unknown", Result(99).String())
}
