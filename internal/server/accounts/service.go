// Package accounts implements account management for the login server:
// registration, deletion, renames and password changes on top of SRP6
// salt and verifier pairs, plus the read-only lookups other components
// use (ids, names, security levels, character counts).
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/dmitrijs2005/realmd/internal/common"
	"github.com/dmitrijs2005/realmd/internal/cryptox"
	"github.com/dmitrijs2005/realmd/internal/dbx"
	"github.com/dmitrijs2005/realmd/internal/logging"
	"github.com/dmitrijs2005/realmd/internal/server/metrics"
	"github.com/dmitrijs2005/realmd/internal/server/models"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/realmd/internal/server/sessions"
)

// DefaultExpansion is the expansion granted to new accounts.
const DefaultExpansion uint8 = 2

const kickReason = "account deleted"

var errNameTaken = errors.New("name taken")

type Service struct {
	authDB      *sql.DB
	charDB      *sql.DB
	repomanager repomanager.RepositoryManager

	sessions  sessions.Registry
	notifier  Notifier
	logger    logging.Logger
	metrics   *metrics.Metrics
	expansion uint8
}

type Option func(*Service)

func WithSessions(r sessions.Registry) Option {
	return func(s *Service) { s.sessions = r }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Service) { s.logger = l.With("module", "accounts") }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithExpansion(e uint8) Option {
	return func(s *Service) { s.expansion = e }
}

// NewService builds the service over the auth and characters databases.
func NewService(authDB, charDB *sql.DB, m repomanager.RepositoryManager, opts ...Option) *Service {
	s := &Service{
		authDB:      authDB,
		charDB:      charDB,
		repomanager: m,
		sessions:    sessions.NewMemory(),
		notifier:    nopNotifier{},
		logger:      logging.Nop(),
		expansion:   DefaultExpansion,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) done(op string, r Result, err error) (Result, error) {
	s.metrics.AccountOp(op, r.String())
	return r, err
}

// CreateAccount registers a new account. The existence check, the insert
// and the realm character counters run in one transaction; a concurrent
// registration of the same name loses on the unique index.
func (s *Service) CreateAccount(ctx context.Context, username, password string) (Result, error) {
	username = Normalize(username)
	password = Normalize(password)

	if utf8.RuneCountInString(username) > MaxAccountStr {
		return s.done("create", NameTooLong, nil)
	}
	if utf8.RuneCountInString(password) > MaxPassStr {
		return s.done("create", PassTooLong, nil)
	}

	salt, verifier, err := cryptox.MakeRegistrationData(username, password)
	if err != nil {
		return s.done("create", DBInternalError, err)
	}

	var id uint32
	err = dbx.WithTx(ctx, s.authDB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)

		if _, err := repo.GetIDByUsername(ctx, username); err == nil {
			return errNameTaken
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		acc, err := repo.Create(ctx, &models.Account{
			Username:  username,
			Salt:      salt,
			Verifier:  verifier,
			Expansion: s.expansion,
		})
		if err != nil {
			if dbx.IsUniqueViolation(err) {
				return errNameTaken
			}
			return err
		}
		id = acc.ID

		return repo.InitRealmCharacters(ctx, acc.ID)
	})
	switch {
	case errors.Is(err, errNameTaken):
		return s.done("create", NameAlreadyExists, nil)
	case err != nil:
		s.logger.Error(ctx, "create account failed", "username", username, "error", err)
		return s.done("create", DBInternalError, fmt.Errorf("create account: %w", err))
	}

	s.logger.Info(ctx, "account created", "id", id, "username", username)
	return s.done("create", Ok, nil)
}

// DeleteAccount removes an account together with its characters. Online
// characters are kicked and logged out without saving first.
func (s *Service) DeleteAccount(ctx context.Context, accountID uint32) (Result, error) {
	if _, err := s.repomanager.Accounts(s.authDB).GetUsername(ctx, accountID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return s.done("delete", NameNotExist, nil)
		}
		return s.done("delete", DBInternalError, err)
	}

	chars, err := s.repomanager.Characters(s.charDB).ListByAccount(ctx, accountID)
	if err != nil {
		return s.done("delete", DBInternalError, err)
	}

	for _, c := range chars {
		if sess, ok := s.sessions.FindPlayer(c.GUID); ok {
			sess.Kick(kickReason)
			sess.LogoutPlayer(false)
		}

		// The realm character counters go away with the account below.
		err := dbx.WithTx(ctx, s.charDB, nil, func(ctx context.Context, tx dbx.DBTX) error {
			return s.repomanager.Characters(tx).Delete(ctx, c.GUID)
		})
		if err != nil {
			return s.done("delete", DBInternalError, fmt.Errorf("delete character %d: %w", c.GUID, err))
		}
		s.logger.Info(ctx, "character deleted", "account", accountID, "guid", c.GUID, "name", c.Name)
	}

	err = dbx.WithTx(ctx, s.charDB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Characters(tx)
		if err := repo.DeleteTutorials(ctx, accountID); err != nil {
			return err
		}
		if err := repo.DeleteAccountData(ctx, accountID); err != nil {
			return err
		}
		return repo.DeleteCharacterBans(ctx, accountID)
	})
	if err != nil {
		return s.done("delete", DBInternalError, fmt.Errorf("delete account data: %w", err))
	}

	err = dbx.WithTx(ctx, s.authDB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)
		for _, del := range []func(context.Context, uint32) error{
			repo.Delete,
			repo.DeleteAccess,
			repo.DeleteRealmCharacters,
			repo.DeleteBans,
			repo.ClearMute,
		} {
			if err := del(ctx, accountID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return s.done("delete", DBInternalError, fmt.Errorf("delete account: %w", err))
	}

	s.logger.Info(ctx, "account deleted", "id", accountID, "characters", len(chars))
	return s.done("delete", Ok, nil)
}

// ChangeUsername renames an account. The verifier depends on the name, so
// a new password is required and the credentials are re-derived.
func (s *Service) ChangeUsername(ctx context.Context, accountID uint32, newUsername, newPassword string) (Result, error) {
	if _, err := s.repomanager.Accounts(s.authDB).GetUsername(ctx, accountID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return s.done("rename", NameNotExist, nil)
		}
		return s.done("rename", DBInternalError, err)
	}

	newUsername = Normalize(newUsername)
	newPassword = Normalize(newPassword)

	if utf8.RuneCountInString(newUsername) > MaxAccountStr {
		return s.done("rename", NameTooLong, nil)
	}
	if utf8.RuneCountInString(newPassword) > MaxPassStr {
		return s.done("rename", PassTooLong, nil)
	}

	salt, verifier, err := cryptox.MakeRegistrationData(newUsername, newPassword)
	if err != nil {
		return s.done("rename", DBInternalError, err)
	}

	err = dbx.WithTx(ctx, s.authDB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Accounts(tx)
		if err := repo.UpdateUsername(ctx, accountID, newUsername); err != nil {
			if dbx.IsUniqueViolation(err) {
				return errNameTaken
			}
			return err
		}
		return repo.UpdateCredentials(ctx, accountID, salt, verifier)
	})
	switch {
	case errors.Is(err, errNameTaken):
		return s.done("rename", NameAlreadyExists, nil)
	case errors.Is(err, common.ErrorNotFound):
		return s.done("rename", NameNotExist, nil)
	case err != nil:
		return s.done("rename", DBInternalError, fmt.Errorf("rename account: %w", err))
	}

	s.logger.Info(ctx, "account renamed", "id", accountID, "username", newUsername)
	return s.done("rename", Ok, nil)
}

// ChangePassword re-derives the credentials of an account. Every failure
// is reported to the notifier's failure hook; success to its change hook.
func (s *Service) ChangePassword(ctx context.Context, accountID uint32, newPassword string) (Result, error) {
	username, err := s.repomanager.Accounts(s.authDB).GetUsername(ctx, accountID)
	if err != nil {
		s.notifier.OnFailedPasswordChange(ctx, accountID)
		if errors.Is(err, common.ErrorNotFound) {
			return s.done("passwd", NameNotExist, nil)
		}
		return s.done("passwd", DBInternalError, err)
	}

	newPassword = Normalize(newPassword)
	if utf8.RuneCountInString(newPassword) > MaxPassStr {
		s.notifier.OnFailedPasswordChange(ctx, accountID)
		return s.done("passwd", PassTooLong, nil)
	}

	salt, verifier, err := cryptox.MakeRegistrationData(Normalize(username), newPassword)
	if err == nil {
		err = s.repomanager.Accounts(s.authDB).UpdateCredentials(ctx, accountID, salt, verifier)
	}
	if err != nil {
		s.notifier.OnFailedPasswordChange(ctx, accountID)
		return s.done("passwd", DBInternalError, fmt.Errorf("change password: %w", err))
	}

	s.notifier.OnPasswordChange(ctx, accountID)
	return s.done("passwd", Ok, nil)
}

// CheckPassword reports whether password matches the stored verifier. Any
// lookup failure counts as a mismatch.
func (s *Service) CheckPassword(ctx context.Context, accountID uint32, password string) bool {
	acc, err := s.repomanager.Accounts(s.authDB).GetByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "password check failed", "id", accountID, "error", err)
		}
		return false
	}
	return cryptox.CheckLogin(Normalize(acc.Username), Normalize(password), acc.Salt, acc.Verifier)
}

// SetSecurity grants level on realmID (-1 for every realm).
func (s *Service) SetSecurity(ctx context.Context, accountID uint32, level models.AccountType, realmID int32) (Result, error) {
	repo := s.repomanager.Accounts(s.authDB)
	if _, err := repo.GetUsername(ctx, accountID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return s.done("gmlevel", NameNotExist, nil)
		}
		return s.done("gmlevel", DBInternalError, err)
	}
	if err := repo.SetSecurity(ctx, accountID, level, realmID); err != nil {
		return s.done("gmlevel", DBInternalError, err)
	}
	return s.done("gmlevel", Ok, nil)
}

// GetID returns the id of the account named username, or 0.
func (s *Service) GetID(ctx context.Context, username string) uint32 {
	id, err := s.repomanager.Accounts(s.authDB).GetIDByUsername(ctx, Normalize(username))
	if err != nil {
		return 0
	}
	return id
}

// GetSecurity returns the highest level granted to the account, PLAYER
// when it has none.
func (s *Service) GetSecurity(ctx context.Context, accountID uint32) models.AccountType {
	level, err := s.repomanager.Accounts(s.authDB).GetSecurity(ctx, accountID)
	if err != nil {
		return models.SecPlayer
	}
	return level
}

func (s *Service) GetSecurityForRealm(ctx context.Context, accountID uint32, realmID int32) models.AccountType {
	level, err := s.repomanager.Accounts(s.authDB).GetSecurityForRealm(ctx, accountID, realmID)
	if err != nil {
		return models.SecPlayer
	}
	return level
}

func (s *Service) GetName(ctx context.Context, accountID uint32) (string, bool) {
	username, err := s.repomanager.Accounts(s.authDB).GetUsername(ctx, accountID)
	if err != nil {
		return "", false
	}
	return username, true
}

func (s *Service) GetCharacterCount(ctx context.Context, accountID uint32) uint32 {
	n, err := s.repomanager.Characters(s.charDB).CountByAccount(ctx, accountID)
	if err != nil {
		return 0
	}
	return n
}
