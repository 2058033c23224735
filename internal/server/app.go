// Package server initializes and runs the account server: it opens the
// database, applies migrations, wires services and starts the HTTP API and
// the gRPC health endpoint until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/chantube/internal/filex"
	"github.com/dmitrijs2005/chantube/internal/logging"
	"github.com/dmitrijs2005/chantube/internal/server/config"
	gs "github.com/dmitrijs2005/chantube/internal/server/grpc"
	"github.com/dmitrijs2005/chantube/internal/server/httpapi"
	"github.com/dmitrijs2005/chantube/internal/server/media"
	"github.com/dmitrijs2005/chantube/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/chantube/internal/server/services"
	"github.com/gin-gonic/gin"
)

type runner interface {
	Run(ctx context.Context) error
}

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	servers map[string]runner
}

// openDB and the repository manager constructor are seams for tests.
var (
	openDB         = repomanager.OpenDB
	newRepoManager = repomanager.NewPostgresRepositoryManager
)

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	uploadDir, err := filex.EnsureDir(c.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("upload dir: %w", err)
	}
	c.UploadDir = uploadDir

	db, err := openDB(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := newRepoManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return newApp(c, logger, db, rm), nil
}

func newApp(c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) *App {
	verifier := services.NewCredentialVerifier(db, rm, logger)
	issuer := services.NewTokenIssuer(db, rm, c, logger)
	uploader := media.NewS3Uploader(c, logger)
	accounts := services.NewAccountService(db, rm, verifier, issuer, uploader, logger)
	channels := services.NewChannelService(db, rm, logger)

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(httpapi.NewHandler(accounts, channels, c, logger), logger)

	return &App{
		config: c,
		logger: logger,
		db:     db,
		servers: map[string]runner{
			"http": httpapi.NewServer(c.HTTPAddr, router, logger),
			"grpc": gs.NewHealthServer(c.GRPCAddr, logger),
		},
	}
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

func (app *App) start(ctx context.Context, cancelFunc context.CancelFunc, name string, r runner) {
	if err := r.Run(ctx); err != nil {
		app.logger.Error(ctx, "server stopped with error", "server", name, "error", err)
		cancelFunc()
	}
}

// Run blocks until ctx is cancelled, a signal arrives, or any server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	for name, r := range app.servers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.start(ctx, cancelFunc, name, r)
		}()
	}

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "closing database", "error", err)
		}
	}
	app.logger.Info(ctx, "App stopped")
}
