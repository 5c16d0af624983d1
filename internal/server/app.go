// Package server wires the AccountKeeper components together and runs the
// HTTP server until the process is asked to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/accountkeeper/internal/cryptox"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/mailer"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/memory"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountkeeper/internal/server/rest"
	"github.com/dmitrijs2005/accountkeeper/internal/server/services"
	"github.com/dmitrijs2005/accountkeeper/internal/server/validation"
	"github.com/gin-gonic/gin"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	accounts *services.AccountService
	gates    *validation.Validator
}

// NewApp builds every component from c. An empty DatabaseDSN selects
// in-memory storage.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.NewJSON(os.Stdout, c.LogLevel)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenServiceFromConfig(c)
	if err != nil {
		return nil, fmt.Errorf("token service init error: %w", err)
	}

	hasher, err := cryptox.NewHasher(cryptox.DefaultParams())
	if err != nil {
		return nil, fmt.Errorf("hasher init error: %w", err)
	}

	db, repos, tx, err := openStorage(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := mailer.New(c, logger)
	accounts := services.NewAccountService(repos, tx, tokens, hasher, m, logger)
	gates := validation.NewValidator(tokens, hasher, repos, tx, c.PasswordPolicy)

	return &App{config: c, logger: logger, db: db, accounts: accounts, gates: gates}, nil
}

func openStorage(ctx context.Context, c *config.Config, logger logging.Logger) (*sql.DB, repomanager.RepositoryManager, dbx.Transactor, error) {
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database configured, using in-memory storage")
		return nil, repomanager.NewMemoryRepositoryManager(memory.NewStore()), dbx.NoTx{}, nil
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, err
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return db, repos, dbx.NewSQLTransactor(db, nil), nil
}

// Accounts exposes the account service to operator tooling.
func (app *App) Accounts() *services.AccountService {
	return app.accounts
}

func (app *App) Close() error {
	if app.db == nil {
		return nil
	}
	return app.db.Close()
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	gin.SetMode(gin.ReleaseMode)
	s := rest.NewServer(app.config.EndpointAddrHTTP, app.logger, app.accounts, app.gates)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
