package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/GoArmGo/PlacesApp/internal/messaging/payloads"
	"github.com/GoArmGo/PlacesApp/internal/metrics"
)

var errNoQueue = errors.New("worker mode requires RABBITMQ_URL")

// runWorker слушает очередь удаления изображений до отмены контекста
func (a *App) runWorker(ctx context.Context) error {
	if a.cleanupConsumer == nil {
		return errNoQueue
	}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if err := a.cleanupConsumer.StartConsumingImageCleanup(workerCtx, a.handleImageCleanup); err != nil {
		return fmt.Errorf("ошибка при запуске потребителя RabbitMQ: %w", err)
	}

	a.logger.Info("worker started, waiting for image cleanup tasks")
	<-ctx.Done()

	a.logger.Info("worker stopped")
	return nil
}

// handleImageCleanup - одна отложенная попытка удалить изображение
func (a *App) handleImageCleanup(ctx context.Context, payload payloads.ImageCleanupPayload) error {
	if err := a.images.Remove(ctx, payload.Image); err != nil {
		metrics.RecordImageCleanup(false)
		return fmt.Errorf("remove image of place %s: %w", payload.PlaceID, err)
	}

	metrics.RecordImageCleanup(true)
	a.logger.Info("orphaned image removed", "place_id", payload.PlaceID, "image", payload.Image)
	return nil
}
