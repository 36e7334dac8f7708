// Package server wires realmd together: configuration, databases and
// migrations, the realm registry, the account service, and the gRPC and
// admin HTTP servers that run until a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/realmd/internal/dbx"
	"github.com/dmitrijs2005/realmd/internal/logging"
	"github.com/dmitrijs2005/realmd/internal/server/accounts"
	"github.com/dmitrijs2005/realmd/internal/server/config"
	"github.com/dmitrijs2005/realmd/internal/server/metrics"
	"github.com/dmitrijs2005/realmd/internal/server/publisher"
	"github.com/dmitrijs2005/realmd/internal/server/realms"
	"github.com/dmitrijs2005/realmd/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/realmd/internal/server/resolver"
	"github.com/dmitrijs2005/realmd/internal/server/sessions"
	"golang.org/x/sync/errgroup"

	gs "github.com/dmitrijs2005/realmd/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	metrics  *metrics.Metrics
	authDB   *sql.DB
	charDB   *sql.DB
	registry *realms.Registry
	accounts *accounts.Service
	grpc     *gs.GRPCServer
	http     *metrics.Server
}

type appOptions struct {
	sessions sessions.Registry
}

type Option func(*appOptions)

// WithSessions supplies the live world-session registry DeleteAccount kicks
// online characters through. Without it an empty in-memory registry is used.
func WithSessions(r sessions.Registry) Option {
	return func(o *appOptions) { o.sessions = r }
}

func applyOptions(opts []Option) appOptions {
	o := appOptions{sessions: sessions.NewMemory()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// NewApp opens both databases, applies pending migrations and builds every
// component. The databases are closed again if anything fails.
func NewApp(ctx context.Context, c *config.Config, opts ...Option) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	authDB, err := dbx.Open(ctx, c.AuthDatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("auth db: %w", err)
	}
	charDB, err := dbx.Open(ctx, c.CharactersDatabaseDSN)
	if err != nil {
		_ = authDB.Close()
		return nil, fmt.Errorf("characters db: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := migrate(ctx, rm, authDB, charDB); err != nil {
		_ = authDB.Close()
		_ = charDB.Close()
		return nil, err
	}

	app, err := newApp(ctx, c, logger, authDB, charDB, rm, applyOptions(opts))
	if err != nil {
		_ = authDB.Close()
		_ = charDB.Close()
		return nil, err
	}
	return app, nil
}

func migrate(ctx context.Context, rm repomanager.RepositoryManager, authDB, charDB *sql.DB) error {
	if err := rm.RunMigrations(ctx, authDB, repomanager.SchemaAuth); err != nil {
		return err
	}
	return rm.RunMigrations(ctx, charDB, repomanager.SchemaCharacters)
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, authDB, charDB *sql.DB, rm repomanager.RepositoryManager, o appOptions) (*App, error) {
	m := metrics.New()

	res := resolver.New(
		resolver.WithTimeout(c.ResolverTimeout),
		resolver.WithServer(c.ResolverServer),
		resolver.WithLogger(logger),
	)

	opts := []realms.Option{realms.WithMetrics(m)}
	if c.S3Publish {
		client, err := publisher.NewS3Client(ctx, publisher.Settings{
			User:         c.S3RootUser,
			Password:     c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
		if err != nil {
			return nil, err
		}
		var popts []publisher.Option
		if c.S3Archive {
			popts = append(popts, publisher.WithArchive())
		}
		opts = append(opts, realms.WithListener(publisher.New(client, c.S3Bucket, logger, popts...).Listener()))
	}
	registry := realms.NewRegistry(rm.Realms(authDB), rm.Builds(authDB), res, logger, opts...)

	svc := accounts.NewService(authDB, charDB, rm,
		accounts.WithSessions(o.sessions),
		accounts.WithNotifier(accounts.NewAuditNotifier(logger, m)),
		accounts.WithLogger(logger),
		accounts.WithMetrics(m),
		accounts.WithExpansion(c.Expansion),
	)

	return &App{
		config:   c,
		logger:   logger,
		metrics:  m,
		authDB:   authDB,
		charDB:   charDB,
		registry: registry,
		accounts: svc,
		grpc:     gs.NewGRPCServer(c.EndpointAddrGRPC, logger, registry, svc, c.SecretKey),
		http:     metrics.NewServer(c.EndpointAddrHTTP, metrics.NewRouter(m, registry), logger),
	}, nil
}

// Run initializes the realm registry and serves until ctx is done, SIGINT
// or SIGTERM arrives, or one of the servers fails.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	defer app.close()

	app.logger.Info(ctx, "Starting app...")

	if err := app.registry.Initialize(ctx, app.config.RealmsStateUpdateDelay); err != nil {
		return fmt.Errorf("initialize realm registry: %w", err)
	}
	app.grpc.SetServing(true)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.registry.Run(ctx) })
	g.Go(func() error { return app.grpc.Run(ctx) })
	g.Go(func() error { return app.http.Run(ctx) })

	err := g.Wait()
	app.logger.Info(context.Background(), "App stopped")
	return err
}

func (app *App) close() {
	app.registry.Close()
	_ = app.authDB.Close()
	_ = app.charDB.Close()
}
