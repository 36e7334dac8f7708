// Package accountctl implements the account console: a cobra command tree
// that manages accounts directly against the auth and characters databases.
package accountctl

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/realmd/internal/dbx"
	"github.com/dmitrijs2005/realmd/internal/server/accounts"
	"github.com/dmitrijs2005/realmd/internal/server/config"
	"github.com/dmitrijs2005/realmd/internal/server/models"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/repomanager"
	"github.com/spf13/cobra"
)

// AccountAdmin is the part of accounts.Service the console drives.
type AccountAdmin interface {
	CreateAccount(ctx context.Context, username, password string) (accounts.Result, error)
	DeleteAccount(ctx context.Context, accountID uint32) (accounts.Result, error)
	ChangeUsername(ctx context.Context, accountID uint32, newUsername, newPassword string) (accounts.Result, error)
	ChangePassword(ctx context.Context, accountID uint32, newPassword string) (accounts.Result, error)
	CheckPassword(ctx context.Context, accountID uint32, password string) bool
	SetSecurity(ctx context.Context, accountID uint32, level models.AccountType, realmID int32) (accounts.Result, error)
	GetID(ctx context.Context, username string) uint32
	GetName(ctx context.Context, accountID uint32) (string, bool)
	GetSecurity(ctx context.Context, accountID uint32) models.AccountType
	GetCharacterCount(ctx context.Context, accountID uint32) uint32
}

// Opener connects to the databases described by cfg. The returned func
// releases them.
type Opener func(ctx context.Context, cfg *config.Config) (AccountAdmin, func() error, error)

// OpenDatabases is the production Opener.
func OpenDatabases(ctx context.Context, cfg *config.Config) (AccountAdmin, func() error, error) {
	authDB, err := dbx.Open(ctx, cfg.AuthDatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("auth db: %w", err)
	}
	charDB, err := dbx.Open(ctx, cfg.CharactersDatabaseDSN)
	if err != nil {
		_ = authDB.Close()
		return nil, nil, fmt.Errorf("characters db: %w", err)
	}

	svc := accounts.NewService(authDB, charDB, repomanager.NewPostgresRepositoryManager(),
		accounts.WithExpansion(cfg.Expansion))

	return svc, func() error { return closeAll(authDB, charDB) }, nil
}

func closeAll(dbs ...*sql.DB) error {
	var first error
	for _, db := range dbs {
		if err := db.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type app struct {
	cfg      *config.Config
	open     Opener
	svc      AccountAdmin
	closeFn  func() error
	password string
	out      io.Writer
}

// NewRootCommand builds the command tree. cfg supplies flag defaults.
func NewRootCommand(cfg *config.Config, open Opener) *cobra.Command {
	a := &app{cfg: cfg, open: open}

	root := &cobra.Command{
		Use:           "accountctl",
		Short:         "Manage realmd accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			svc, closeFn, err := a.open(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			a.svc, a.closeFn = svc, closeFn
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVar(&cfg.AuthDatabaseDSN, "auth-dsn", cfg.AuthDatabaseDSN, "auth database DSN")
	pf.StringVar(&cfg.CharactersDatabaseDSN, "characters-dsn", cfg.CharactersDatabaseDSN, "characters database DSN")
	pf.StringVarP(&a.password, "password", "p", "", "password (prompted without echo when empty)")

	root.AddCommand(
		a.createCmd(),
		a.deleteCmd(),
		a.passwdCmd(),
		a.renameCmd(),
		a.checkCmd(),
		a.infoCmd(),
		a.gmlevelCmd(),
		a.tokenCmd(),
	)
	for _, c := range root.Commands() {
		c.RunE = a.releasing(c.RunE)
	}
	return root
}

// releasing closes the databases once run returns, whatever the outcome.
func (a *app) releasing(run func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if a.closeFn == nil {
				return
			}
			if cerr := a.closeFn(); err == nil {
				err = cerr
			}
			a.closeFn = nil
		}()
		return run(cmd, args)
	}
}

// accountID resolves username or fails with NameNotExist.
func (a *app) accountID(ctx context.Context, username string) (uint32, error) {
	id := a.svc.GetID(ctx, username)
	if id == 0 {
		return 0, fmt.Errorf("%s: %s", accounts.Normalize(username), accounts.NameNotExist)
	}
	return id, nil
}

func (a *app) report(res accounts.Result, err error, done string) error {
	if err != nil {
		return err
	}
	if res != accounts.Ok {
		return fmt.Errorf("%s", res)
	}
	fmt.Fprintln(a.out, done)
	return nil
}

func (a *app) createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := a.readPassword(cmd)
			if err != nil {
				return err
			}
			res, err := a.svc.CreateAccount(cmd.Context(), args[0], pw)
			return a.report(res, err, fmt.Sprintf("account %s created", accounts.Normalize(args[0])))
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete an account and all of its characters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.accountID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := a.svc.DeleteAccount(cmd.Context(), id)
			return a.report(res, err, fmt.Sprintf("account %s deleted", accounts.Normalize(args[0])))
		},
	}
}

func (a *app) passwdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd <username>",
		Short: "Change an account password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.accountID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pw, err := a.readPassword(cmd)
			if err != nil {
				return err
			}
			res, err := a.svc.ChangePassword(cmd.Context(), id, pw)
			return a.report(res, err, "password changed")
		},
	}
}

func (a *app) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <username> <new-username>",
		Short: "Rename an account; the password must be given again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.accountID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pw, err := a.readPassword(cmd)
			if err != nil {
				return err
			}
			res, err := a.svc.ChangeUsername(cmd.Context(), id, args[1], pw)
			return a.report(res, err, fmt.Sprintf("account renamed to %s", accounts.Normalize(args[1])))
		},
	}
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <username>",
		Short: "Verify an account password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.accountID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pw, err := a.readPassword(cmd)
			if err != nil {
				return err
			}
			if !a.svc.CheckPassword(cmd.Context(), id, pw) {
				return fmt.Errorf("password mismatch")
			}
			fmt.Fprintln(a.out, "password ok")
			return nil
		},
	}
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <username>",
		Short: "Show account details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := a.accountID(ctx, args[0])
			if err != nil {
				return err
			}
			name, _ := a.svc.GetName(ctx, id)
			fmt.Fprintf(a.out, "id:         %d\n", id)
			fmt.Fprintf(a.out, "username:   %s\n", name)
			fmt.Fprintf(a.out, "security:   %s\n", a.svc.GetSecurity(ctx, id))
			fmt.Fprintf(a.out, "characters: %d\n", a.svc.GetCharacterCount(ctx, id))
			return nil
		},
	}
}

func (a *app) gmlevelCmd() *cobra.Command {
	var realmID int32
	cmd := &cobra.Command{
		Use:   "gmlevel <username> <level>",
		Short: "Set the security level (0 player .. 4 console)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(args[1])
			if err != nil {
				return err
			}
			id, err := a.accountID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := a.svc.SetSecurity(cmd.Context(), id, level, realmID)
			return a.report(res, err, fmt.Sprintf("security set to %s", level))
		},
	}
	cmd.Flags().Int32Var(&realmID, "realm", -1, "realm id, -1 for all realms")
	return cmd
}

func (a *app) tokenCmd() *cobra.Command {
	var validity time.Duration
	cmd := &cobra.Command{
		Use:   "token <username>",
		Short: "Issue an admin API token for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.accountID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			token, err := issueToken(id, a.svc.GetSecurity(cmd.Context(), id), a.cfg.SecretKey, validity)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&validity, "validity", a.cfg.AccessTokenValidityDuration, "token lifetime")
	cmd.Flags().StringVar(&a.cfg.SecretKey, "secret", a.cfg.SecretKey, "token signing secret")
	return cmd
}
