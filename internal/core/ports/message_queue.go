package ports

import (
	"context"

	"github.com/GoArmGo/PlacesApp/internal/messaging/payloads"
)

// ImageCleanupPublisher публикует задачи на удаление изображений,
// которые не удалось удалить сразу после удаления места
type ImageCleanupPublisher interface {
	PublishImageCleanup(ctx context.Context, payload payloads.ImageCleanupPayload) error
}

// ImageCleanupConsumer используется воркером для получения задач из очереди
type ImageCleanupConsumer interface {
	// StartConsumingImageCleanup начинает прослушивание очереди;
	// handler вызывается для каждого полученного сообщения
	StartConsumingImageCleanup(ctx context.Context, handler func(context.Context, payloads.ImageCleanupPayload) error) error
}
