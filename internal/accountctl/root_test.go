package accountctl

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/realmd/internal/server/accounts"
	"github.com/dmitrijs2005/realmd/internal/server/auth"
	"github.com/dmitrijs2005/realmd/internal/server/config"
	"github.com/dmitrijs2005/realmd/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdmin struct {
	names     map[uint32]string
	passwords map[uint32]string
	security  map[uint32]models.AccountType
	realm     int32
}

func newFakeAdmin() *fakeAdmin {
	return &fakeAdmin{
		names:     map[uint32]string{1: "ALICE"},
		passwords: map[uint32]string{1: "secret"},
		security:  map[uint32]models.AccountType{},
	}
}

func (f *fakeAdmin) CreateAccount(_ context.Context, username, password string) (accounts.Result, error) {
	name := accounts.Normalize(username)
	for _, n := range f.names {
		if n == name {
			return accounts.NameAlreadyExists, nil
		}
	}
	id := uint32(len(f.names) + 1)
	f.names[id] = name
	f.passwords[id] = password
	return accounts.Ok, nil
}

func (f *fakeAdmin) DeleteAccount(_ context.Context, id uint32) (accounts.Result, error) {
	delete(f.names, id)
	return accounts.Ok, nil
}

func (f *fakeAdmin) ChangeUsername(_ context.Context, id uint32, username, password string) (accounts.Result, error) {
	f.names[id] = accounts.Normalize(username)
	f.passwords[id] = password
	return accounts.Ok, nil
}

func (f *fakeAdmin) ChangePassword(_ context.Context, id uint32, password string) (accounts.Result, error) {
	if len(password) > accounts.MaxPassStr {
		return accounts.PassTooLong, nil
	}
	f.passwords[id] = password
	return accounts.Ok, nil
}

func (f *fakeAdmin) CheckPassword(_ context.Context, id uint32, password string) bool {
	return f.passwords[id] == password
}

func (f *fakeAdmin) SetSecurity(_ context.Context, id uint32, level models.AccountType, realmID int32) (accounts.Result, error) {
	f.security[id] = level
	f.realm = realmID
	return accounts.Ok, nil
}

func (f *fakeAdmin) GetID(_ context.Context, username string) uint32 {
	for id, n := range f.names {
		if n == accounts.Normalize(username) {
			return id
		}
	}
	return 0
}

func (f *fakeAdmin) GetName(_ context.Context, id uint32) (string, bool) {
	n, ok := f.names[id]
	return n, ok
}

func (f *fakeAdmin) GetSecurity(_ context.Context, id uint32) models.AccountType {
	return f.security[id]
}

func (f *fakeAdmin) GetCharacterCount(context.Context, uint32) uint32 { return 2 }

func run(t *testing.T, admin *fakeAdmin, args ...string) (string, error) {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()

	closed := false
	open := func(context.Context, *config.Config) (AccountAdmin, func() error, error) {
		return admin, func() error { closed = true; return nil }, nil
	}

	cmd := NewRootCommand(cfg, open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	assert.True(t, closed, "databases must be released")
	return out.String(), err
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := readPasswordFn
	readPasswordFn = func(int) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { readPasswordFn = orig })
}

func TestCreate(t *testing.T) {
	admin := newFakeAdmin()
	stubPassword(t, "hunter2")

	out, err := run(t, admin, "create", "bob")
	require.NoError(t, err)
	assert.Contains(t, out, "Enter password:")
	assert.Contains(t, out, "account BOB created")
	assert.Equal(t, "hunter2", admin.passwords[2])

	_, err = run(t, admin, "create", "Bob", "-p", "x")
	assert.EqualError(t, err, accounts.NameAlreadyExists.String())
}

func TestCreate_PromptError(t *testing.T) {
	orig := readPasswordFn
	readPasswordFn = func(int) ([]byte, error) { return nil, errors.New("no tty") }
	t.Cleanup(func() { readPasswordFn = orig })

	_, err := run(t, newFakeAdmin(), "create", "bob")
	assert.EqualError(t, err, "no tty")
}

func TestDelete(t *testing.T) {
	admin := newFakeAdmin()

	out, err := run(t, admin, "delete", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "account ALICE deleted")
	assert.Empty(t, admin.names)

	_, err = run(t, admin, "delete", "alice")
	assert.ErrorContains(t, err, accounts.NameNotExist.String())
}

func TestPasswd(t *testing.T) {
	admin := newFakeAdmin()

	_, err := run(t, admin, "passwd", "alice", "--password", "newpass")
	require.NoError(t, err)
	assert.Equal(t, "newpass", admin.passwords[1])

	_, err = run(t, admin, "passwd", "alice", "--password", strings.Repeat("x", 17))
	assert.EqualError(t, err, accounts.PassTooLong.String())
}

func TestRename(t *testing.T) {
	admin := newFakeAdmin()

	out, err := run(t, admin, "rename", "alice", "alicia", "-p", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "account renamed to ALICIA")
	assert.Equal(t, "ALICIA", admin.names[1])
}

func TestCheck(t *testing.T) {
	admin := newFakeAdmin()

	out, err := run(t, admin, "check", "alice", "-p", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "password ok")

	_, err = run(t, admin, "check", "alice", "-p", "wrong")
	assert.EqualError(t, err, "password mismatch")
}

func TestInfo(t *testing.T) {
	admin := newFakeAdmin()
	admin.security[1] = models.SecModerator

	out, err := run(t, admin, "info", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "username:   ALICE")
	assert.Contains(t, out, "security:   moderator")
	assert.Contains(t, out, "characters: 2")
}

func TestGMLevel(t *testing.T) {
	admin := newFakeAdmin()

	_, err := run(t, admin, "gmlevel", "alice", "3")
	require.NoError(t, err)
	assert.Equal(t, models.SecAdministrator, admin.security[1])
	assert.Equal(t, int32(-1), admin.realm)

	_, err = run(t, admin, "gmlevel", "alice", "2", "--realm", "7")
	require.NoError(t, err)
	assert.Equal(t, int32(7), admin.realm)

	_, err = run(t, admin, "gmlevel", "alice", "9")
	assert.ErrorContains(t, err, "invalid security level")
}

func TestToken(t *testing.T) {
	admin := newFakeAdmin()
	admin.security[1] = models.SecAdministrator

	out, err := run(t, admin, "token", "alice", "--secret", "s3cr3t", "--validity", "1h")
	require.NoError(t, err)

	claims, err := auth.ParseToken(strings.TrimSpace(out), []byte("s3cr3t"))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), claims.AccountID)
	assert.Equal(t, models.SecAdministrator, claims.Security)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)

	_, err = run(t, admin, "token", "alice", "--validity", "0s")
	assert.Error(t, err)
}

func TestOpenerError(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cmd := NewRootCommand(cfg, func(context.Context, *config.Config) (AccountAdmin, func() error, error) {
		return nil, nil, errors.New("connection refused")
	})
	cmd.SetArgs([]string{"info", "alice"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	assert.EqualError(t, cmd.Execute(), "connection refused")
}

func TestDSNFlags(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	var seen *config.Config
	cmd := NewRootCommand(cfg, func(_ context.Context, c *config.Config) (AccountAdmin, func() error, error) {
		seen = c
		return newFakeAdmin(), nil, nil
	})
	cmd.SetArgs([]string{"--auth-dsn", "postgres://a", "--characters-dsn", "postgres://c", "info", "alice"})
	cmd.SetOut(&bytes.Buffer{})

	require.NoError(t, cmd.Execute())
	require.NotNil(t, seen)
	assert.Equal(t, "postgres://a", seen.AuthDatabaseDSN)
	assert.Equal(t, "postgres://c", seen.CharactersDatabaseDSN)
}
