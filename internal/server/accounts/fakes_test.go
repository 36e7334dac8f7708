package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/dmitrijs2005/realmd/internal/common"
	"github.com/dmitrijs2005/realmd/internal/cryptox"
	"github.com/dmitrijs2005/realmd/internal/dbx"
	"github.com/dmitrijs2005/realmd/internal/server/models"
	accountsrepo "github.com/dmitrijs2005/realmd/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/builds"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/characters"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/realmlist"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type accessKey struct {
	id    uint32
	realm int32
}

// fakeAccounts is an in-memory accounts repository. errs forces a method,
// by name, to fail.
type fakeAccounts struct {
	mu       sync.Mutex
	nextID   uint32
	byID     map[uint32]*models.Account
	access   map[accessKey]models.AccountType
	realmCh  map[uint32]bool
	calls    []string
	errs     map[string]error
	createFn func(*models.Account) error
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		nextID:  1,
		byID:    map[uint32]*models.Account{},
		access:  map[accessKey]models.AccountType{},
		realmCh: map[uint32]bool{},
		errs:    map[string]error{},
	}
}

func (f *fakeAccounts) call(name string) error {
	f.calls = append(f.calls, name)
	return f.errs[name]
}

func (f *fakeAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("Create"); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	if f.createFn != nil {
		if err := f.createFn(a); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
	}
	cp := *a
	cp.ID = f.nextID
	f.nextID++
	f.byID[cp.ID] = &cp
	a.ID = cp.ID
	return a, nil
}

func (f *fakeAccounts) InitRealmCharacters(_ context.Context, id uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("InitRealmCharacters"); err != nil {
		return err
	}
	f.realmCh[id] = true
	return nil
}

func (f *fakeAccounts) GetByID(_ context.Context, id uint32) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetByID"); err != nil {
		return nil, err
	}
	a, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) GetIDByUsername(_ context.Context, username string) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetIDByUsername"); err != nil {
		return 0, err
	}
	for id, a := range f.byID {
		if a.Username == username {
			return id, nil
		}
	}
	return 0, common.ErrorNotFound
}

func (f *fakeAccounts) GetUsername(_ context.Context, id uint32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetUsername"); err != nil {
		return "", err
	}
	a, ok := f.byID[id]
	if !ok {
		return "", common.ErrorNotFound
	}
	return a.Username, nil
}

func (f *fakeAccounts) UpdateUsername(_ context.Context, id uint32, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("UpdateUsername"); err != nil {
		return err
	}
	a, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.Username = username
	return nil
}

func (f *fakeAccounts) UpdateCredentials(_ context.Context, id uint32, salt cryptox.Salt, verifier cryptox.Verifier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("UpdateCredentials"); err != nil {
		return err
	}
	a, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	a.Salt, a.Verifier = salt, verifier
	return nil
}

func (f *fakeAccounts) GetSecurity(_ context.Context, id uint32) (models.AccountType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	best, found := models.SecPlayer, false
	for k, v := range f.access {
		if k.id == id && (!found || v > best) {
			best, found = v, true
		}
	}
	if !found {
		return models.SecPlayer, common.ErrorNotFound
	}
	return best, nil
}

func (f *fakeAccounts) GetSecurityForRealm(_ context.Context, id uint32, realmID int32) (models.AccountType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	best, found := models.SecPlayer, false
	for k, v := range f.access {
		if k.id == id && (k.realm == realmID || k.realm == accountsrepo.AllRealms) && (!found || v > best) {
			best, found = v, true
		}
	}
	if !found {
		return models.SecPlayer, common.ErrorNotFound
	}
	return best, nil
}

func (f *fakeAccounts) SetSecurity(_ context.Context, id uint32, level models.AccountType, realmID int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("SetSecurity"); err != nil {
		return err
	}
	f.access[accessKey{id, realmID}] = level
	return nil
}

func (f *fakeAccounts) Delete(_ context.Context, id uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("Delete"); err != nil {
		return err
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeAccounts) DeleteAccess(_ context.Context, id uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteAccess"); err != nil {
		return err
	}
	for k := range f.access {
		if k.id == id {
			delete(f.access, k)
		}
	}
	return nil
}

func (f *fakeAccounts) DeleteRealmCharacters(_ context.Context, id uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteRealmCharacters"); err != nil {
		return err
	}
	delete(f.realmCh, id)
	return nil
}

func (f *fakeAccounts) DeleteBans(context.Context, uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.call("DeleteBans")
}

func (f *fakeAccounts) ClearMute(context.Context, uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.call("ClearMute")
}

func (f *fakeAccounts) callsTo(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

type fakeCharacters struct {
	mu      sync.Mutex
	chars   map[uint32]models.Character
	calls   []string
	listErr error
}

func newFakeCharacters(chars ...models.Character) *fakeCharacters {
	f := &fakeCharacters{chars: map[uint32]models.Character{}}
	for _, c := range chars {
		f.chars[c.GUID] = c
	}
	return f
}

func (f *fakeCharacters) ListByAccount(_ context.Context, accountID uint32) ([]models.Character, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.Character
	for _, c := range f.chars {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCharacters) CountByAccount(ctx context.Context, accountID uint32) (uint32, error) {
	chars, err := f.ListByAccount(ctx, accountID)
	return uint32(len(chars)), err
}

func (f *fakeCharacters) Delete(_ context.Context, guid uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("Delete(%d)", guid))
	delete(f.chars, guid)
	return nil
}

func (f *fakeCharacters) DeleteTutorials(_ context.Context, id uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "DeleteTutorials")
	return nil
}

func (f *fakeCharacters) DeleteAccountData(_ context.Context, id uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "DeleteAccountData")
	return nil
}

func (f *fakeCharacters) DeleteCharacterBans(_ context.Context, id uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "DeleteCharacterBans")
	return nil
}

type fakeRepoManager struct {
	accounts   *fakeAccounts
	characters *fakeCharacters
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB, repomanager.Schema) error {
	return nil
}
func (m *fakeRepoManager) Realms(dbx.DBTX) realmlist.Repository      { return nil }
func (m *fakeRepoManager) Builds(dbx.DBTX) builds.Repository         { return nil }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accountsrepo.Repository { return m.accounts }
func (m *fakeRepoManager) Characters(dbx.DBTX) characters.Repository { return m.characters }

type countingNotifier struct {
	mu      sync.Mutex
	changed []uint32
	failed  []uint32
}

func (n *countingNotifier) OnPasswordChange(_ context.Context, id uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, id)
}

func (n *countingNotifier) OnFailedPasswordChange(_ context.Context, id uint32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, id)
}

// openTxHost returns a database that only serves as a transaction host
// for the fake repositories.
func openTxHost(t *testing.T, name string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", t.Name(), name))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
