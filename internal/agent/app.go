package agent

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/fieldops/shiftsync/internal/agent/config"
	"github.com/fieldops/shiftsync/internal/agent/dispatch"
	"github.com/fieldops/shiftsync/internal/agent/service"
	"github.com/fieldops/shiftsync/internal/logging"
)

// App is the device agent: local storage, the shift service and the sync
// dispatcher loop.
type App struct {
	config     *config.Config
	logger     logging.Logger
	repos      *Repositories
	dispatcher *dispatch.Dispatcher
	shifts     *service.ShiftService
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	repos, err := InitDatabase(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	dispatcher := dispatch.New(repos.Queue, cfg.ServerBaseURL, logger)
	dispatcher.SetTimeout(cfg.SyncTimeout)

	shifts := service.NewShiftService(repos.DB, logger, dispatcher.Nudge)

	return &App{
		config:     cfg,
		logger:     logger,
		repos:      repos,
		dispatcher: dispatcher,
		shifts:     shifts,
	}, nil
}

// Shifts exposes the single mutation surface for shift state.
func (app *App) Shifts() *service.ShiftService {
	return app.shifts
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts the dispatcher loop and blocks until the context is cancelled
// or a termination signal arrives. Pending queue items survive shutdown in
// the local database and are drained on the next start.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting agent...",
		"db", app.config.DatabaseDSN, "server", app.config.ServerBaseURL)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.dispatcher.Run(ctx, app.config.SyncInterval)
	}()

	// Catch up on anything left queued from the previous run.
	app.dispatcher.Nudge()

	wg.Wait()

	if err := app.repos.DB.Close(); err != nil {
		app.logger.Error(ctx, "failed to close database", "error", err)
	}
}
