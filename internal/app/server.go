package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	shutdownTimeout     = 30 * time.Second
	limiterCleanupEvery = 5 * time.Minute
)

// newHTTPServer собирает сервер. Ограничено только чтение заголовков,
// обработка запроса по времени не обрывается.
func (a *App) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", a.Config.ServerPort),
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// runServer запускает HTTP сервер и ждет отмены контекста
func (a *App) runServer(ctx context.Context) error {
	server := a.newHTTPServer()
	serverAddr := server.Addr

	go a.cleanupLimiters(ctx)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", "addr", serverAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка при запуске сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutdown signal received, stopping http server")

	ctxServer, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctxServer); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.logger.Info("http server stopped")
	return nil
}

func (a *App) cleanupLimiters(ctx context.Context) {
	if a.authLimiter == nil {
		return
	}
	ticker := time.NewTicker(limiterCleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.authLimiter.Cleanup(limiterCleanupEvery)
		}
	}
}
