package accounts

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/realmd/internal/common"
	"github.com/dmitrijs2005/realmd/internal/cryptox"
	"github.com/dmitrijs2005/realmd/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func filled(b byte) []byte { return bytes.Repeat([]byte{b}, 32) }

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+account\s*\(username,\s*salt,\s*verifier,\s*expansion\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+id$`

	acc := &models.Account{Username: "ALICE", Expansion: 2}
	copy(acc.Salt[:], filled(1))
	copy(acc.Verifier[:], filled(2))

	mock.ExpectQuery(q).
		WithArgs("ALICE", filled(1), filled(2), 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	got, err := repo.Create(context.Background(), acc)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+account`).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Account{Username: "ALICE"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: db down")
}

func TestInitRealmCharacters(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+realmcharacters\s*\(realmid,\s*acctid,\s*numchars\).*WHERE\s+a\.id\s*=\s*\$1\s+AND\s+rc\.acctid\s+IS\s+NULL$`
	mock.ExpectExec(q).WithArgs(7).WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.InitRealmCharacters(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID(t *testing.T) {
	q := `(?s)^SELECT\s+id,\s*username,\s*salt,\s*verifier,\s*expansion\s+FROM\s+account\s+WHERE\s+id\s*=\s*\$1$`
	cols := []string{"id", "username", "salt", "verifier", "expansion"}

	t.Run("found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(q).WithArgs(5).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(5), "ALICE", filled(1), filled(2), int64(2)))

		got, err := repo.GetByID(context.Background(), 5)
		require.NoError(t, err)
		assert.Equal(t, uint32(5), got.ID)
		assert.Equal(t, "ALICE", got.Username)
		assert.Equal(t, filled(1), got.Salt[:])
		assert.Equal(t, filled(2), got.Verifier[:])
		assert.Equal(t, uint8(2), got.Expansion)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(q).WithArgs(9).WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(context.Background(), 9)
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("short verifier", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(q).WithArgs(5).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(5), "ALICE", filled(1), []byte{1, 2}, int64(2)))

		_, err := repo.GetByID(context.Background(), 5)
		assert.ErrorIs(t, err, common.ErrCorruptRow)
	})
}

func TestGetIDByUsername(t *testing.T) {
	q := `(?s)^SELECT\s+id\s+FROM\s+account\s+WHERE\s+username\s*=\s*\$1$`

	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(q).WithArgs("ALICE").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(q).WithArgs("GHOST").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(q).WithArgs("BOB").WillReturnError(errors.New("db err"))

	id, err := repo.GetIDByUsername(context.Background(), "ALICE")
	require.NoError(t, err)
	assert.Equal(t, uint32(3), id)

	_, err = repo.GetIDByUsername(context.Background(), "GHOST")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.GetIDByUsername(context.Background(), "BOB")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: db err")
}

func TestGetUsername(t *testing.T) {
	q := `(?s)^SELECT\s+username\s+FROM\s+account\s+WHERE\s+id\s*=\s*\$1$`

	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(q).WithArgs(3).WillReturnRows(sqlmock.NewRows([]string{"username"}).AddRow("ALICE"))
	mock.ExpectQuery(q).WithArgs(4).WillReturnError(sql.ErrNoRows)

	name, err := repo.GetUsername(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "ALICE", name)

	_, err = repo.GetUsername(context.Background(), 4)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdateUsername(t *testing.T) {
	q := `(?s)^UPDATE\s+account\s+SET\s+username\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2$`

	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(q).WithArgs("CAROL", 4).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("CAROL", 5).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q).WithArgs("CAROL", 6).WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.UpdateUsername(context.Background(), 4, "CAROL"))
	assert.ErrorIs(t, repo.UpdateUsername(context.Background(), 5, "CAROL"), common.ErrorNotFound)
	assert.EqualError(t, repo.UpdateUsername(context.Background(), 6, "CAROL"), "unexpected rows affected: 2")
}

func TestUpdateCredentials(t *testing.T) {
	q := `(?s)^UPDATE\s+account\s+SET\s+salt\s*=\s*\$1,\s*verifier\s*=\s*\$2\s+WHERE\s+id\s*=\s*\$3$`

	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	var salt cryptox.Salt
	var verifier cryptox.Verifier
	copy(salt[:], filled(7))
	copy(verifier[:], filled(8))

	mock.ExpectExec(q).WithArgs(filled(7), filled(8), 4).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateCredentials(context.Background(), 4, salt, verifier))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSecurity(t *testing.T) {
	q := `(?s)^SELECT\s+gmlevel\s+FROM\s+account_access\s+WHERE\s+id\s*=\s*\$1\s+ORDER\s+BY\s+gmlevel\s+DESC\s+LIMIT\s+1$`

	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(q).WithArgs(1).WillReturnRows(sqlmock.NewRows([]string{"gmlevel"}).AddRow(int64(3)))
	mock.ExpectQuery(q).WithArgs(2).WillReturnError(sql.ErrNoRows)

	level, err := repo.GetSecurity(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.SecAdministrator, level)

	level, err = repo.GetSecurity(context.Background(), 2)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	assert.Equal(t, models.SecPlayer, level)
}

func TestGetSecurityForRealm(t *testing.T) {
	q := `(?s)^SELECT\s+gmlevel\s+FROM\s+account_access\s+WHERE\s+id\s*=\s*\$1\s+AND\s+\(realm_id\s*=\s*\$2\s+OR\s+realm_id\s*=\s*-1\)`

	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(q).WithArgs(1, 2).WillReturnRows(sqlmock.NewRows([]string{"gmlevel"}).AddRow(int64(2)))

	level, err := repo.GetSecurityForRealm(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, models.SecGameMaster, level)
}

func TestSetSecurity(t *testing.T) {
	q := `(?s)^INSERT\s+INTO\s+account_access\s*\(id,\s*gmlevel,\s*realm_id\).*ON\s+CONFLICT\s*\(id,\s*realm_id\)\s+DO\s+UPDATE`

	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(q).WithArgs(1, 3, AllRealms).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetSecurity(context.Background(), 1, models.SecAdministrator, AllRealms))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletes(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^DELETE\s+FROM\s+account\s+WHERE\s+id\s*=\s*\$1$`).WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^DELETE\s+FROM\s+account_access\s+WHERE\s+id\s*=\s*\$1$`).WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^DELETE\s+FROM\s+realmcharacters\s+WHERE\s+acctid\s*=\s*\$1$`).WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`^DELETE\s+FROM\s+account_banned\s+WHERE\s+id\s*=\s*\$1$`).WithArgs(8).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^DELETE\s+FROM\s+account_muted\s+WHERE\s+guid\s*=\s*\$1$`).WithArgs(8).WillReturnError(errors.New("boom"))

	ctx := context.Background()
	require.NoError(t, repo.Delete(ctx, 8))
	require.NoError(t, repo.DeleteAccess(ctx, 8))
	require.NoError(t, repo.DeleteRealmCharacters(ctx, 8))
	require.NoError(t, repo.DeleteBans(ctx, 8))

	err := repo.ClearMute(ctx, 8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: boom")
	assert.NoError(t, mock.ExpectationsWereMet())
}
