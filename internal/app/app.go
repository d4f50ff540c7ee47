package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/GoArmGo/PlacesApp/internal/config"
	"github.com/GoArmGo/PlacesApp/internal/core/ports"
	"github.com/GoArmGo/PlacesApp/internal/handler"
	"github.com/GoArmGo/PlacesApp/internal/usecase"
)

const (
	ModeServer = "server"
	ModeWorker = "worker"
)

// Closer - ресурс, который нужно закрыть при завершении
type Closer struct {
	Name  string
	Close func() error
}

type App struct {
	Config          *config.Config
	logger          *slog.Logger
	router          http.Handler
	authLimiter     *handler.RateLimiter
	images          usecase.ImageRemover
	cleanupConsumer ports.ImageCleanupConsumer
	closers         []Closer
}

func NewApp(
	cfg *config.Config,
	logger *slog.Logger,
	router http.Handler,
	authLimiter *handler.RateLimiter,
	images usecase.ImageRemover,
	cleanupConsumer ports.ImageCleanupConsumer,
	closers []Closer,
) *App {
	return &App{
		Config:          cfg,
		logger:          logger,
		router:          router,
		authLimiter:     authLimiter,
		images:          images,
		cleanupConsumer: cleanupConsumer,
		closers:         closers,
	}
}

// LoggerIns возвращает основной логгер приложения
func (a *App) LoggerIns() *slog.Logger {
	return a.logger
}

func (a *App) Run(ctx context.Context, mode string) error {
	// канал для graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.logger.Info("starting", "mode", mode)

	var err error
	switch mode {
	case ModeServer:
		err = a.runServer(ctx)
	case ModeWorker:
		err = a.runWorker(ctx)
	default:
		err = fmt.Errorf("неизвестный режим: %s (используйте 'server' или 'worker')", mode)
	}

	// аккуратно закрываем ресурсы
	if closeErr := a.Shutdown(); closeErr != nil {
		a.logger.Error("shutdown finished with errors", "error", closeErr)
	}

	return err
}

// Shutdown закрывает все ресурсы приложения в обратном порядке
func (a *App) Shutdown() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.Name, err))
			continue
		}
		a.logger.Info("resource closed", "resource", c.Name)
	}
	a.closers = nil
	return errors.Join(errs...)
}
