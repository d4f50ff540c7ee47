package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/GoArmGo/PlacesApp/internal/core/ports"
	"github.com/GoArmGo/PlacesApp/internal/domain"
	"github.com/GoArmGo/PlacesApp/internal/messaging/payloads"
	"github.com/google/uuid"
)

// usersCacheKey - список пользователей с placeCount.
// Места не кэшируются: чтение, начатое до удаления, могло бы вернуть
// удалённое место в кэш уже после инвалидации.
const usersCacheKey = "users:all"

// placeUseCase implements PlaceUseCase
type placeUseCase struct {
	placeStorage ports.PlaceStorage
	userStorage  ports.UserStorage
	geocoder     Geocoder
	images       ImageRemover
	cache        ports.Cache
	cleanup      ports.ImageCleanupPublisher
	logger       *slog.Logger
	now          func() time.Time
}

// NewPlaceUseCase создает новый экземпляр PlaceUseCase
func NewPlaceUseCase(
	placeStorage ports.PlaceStorage,
	userStorage ports.UserStorage,
	geocoder Geocoder,
	images ImageRemover,
	cache ports.Cache,
	cleanup ports.ImageCleanupPublisher,
	logger *slog.Logger,
) PlaceUseCase {
	return &placeUseCase{
		placeStorage: placeStorage,
		userStorage:  userStorage,
		geocoder:     geocoder,
		images:       images,
		cache:        cache,
		cleanup:      cleanup,
		logger:       logger,
		now:          time.Now,
	}
}

var errPlaceNotFound = domain.NewNotFound("Could not find a place for the provided id.", nil)

func (uc *placeUseCase) GetPlaceByID(ctx context.Context, id string) (*domain.Place, error) {
	placeID, err := uuid.Parse(id)
	if err != nil {
		return nil, errPlaceNotFound
	}

	place, err := uc.placeStorage.GetPlaceByID(ctx, placeID)
	if err != nil {
		return nil, domain.NewInternal("Something went wrong, could not find a place.", err)
	}
	if place == nil {
		return nil, errPlaceNotFound
	}

	return place, nil
}

func (uc *placeUseCase) GetPlacesByUserID(ctx context.Context, userID string) ([]domain.Place, error) {
	notFound := domain.NewNotFound("Could not find places for the provided user id.", nil)

	creatorID, err := uuid.Parse(userID)
	if err != nil {
		return nil, notFound
	}

	places, err := uc.placeStorage.ListPlacesByCreator(ctx, creatorID)
	if err != nil {
		return nil, domain.NewInternal("Fetching places failed, please try again later.", err)
	}
	if len(places) == 0 {
		return nil, notFound
	}
	return places, nil
}

func (uc *placeUseCase) CreatePlace(ctx context.Context, in CreatePlaceInput) (*domain.Place, error) {
	// 1. Координаты. Ошибку геокодера отдаём как есть (422/500)
	location, err := uc.geocoder.Resolve(ctx, in.Address)
	if err != nil {
		return nil, err
	}

	// 2. Владелец должен существовать
	creator, err := uc.userStorage.GetUserByID(ctx, in.CreatorID)
	if err != nil {
		return nil, domain.NewInternal("Creating place failed, please try again.", err)
	}
	if creator == nil {
		return nil, domain.NewNotFound("Could not find user for the provided id.", nil)
	}

	// 3. Место + множество владельца в одной транзакции
	place := domain.NewPlace(in.Title, in.Description, in.Address, location, in.Image, creator.ID, uc.now())
	if err := uc.placeStorage.CreatePlace(ctx, place); err != nil {
		if errors.Is(err, ports.ErrUserNotFound) {
			return nil, domain.NewNotFound("Could not find user for the provided id.", err)
		}
		return nil, domain.NewInternal("Creating place failed, please try again.", err)
	}

	uc.invalidate(ctx, usersCacheKey)
	uc.logger.Info("place created", "place_id", place.ID, "creator_id", creator.ID)
	return &place, nil
}

func (uc *placeUseCase) UpdatePlace(ctx context.Context, id string, in UpdatePlaceInput, callerID uuid.UUID) (*domain.Place, error) {
	placeID, err := uuid.Parse(id)
	if err != nil {
		return nil, errPlaceNotFound
	}

	place, err := uc.placeStorage.GetPlaceByID(ctx, placeID)
	if err != nil {
		return nil, domain.NewInternal("Something went wrong, could not update place.", err)
	}
	if place == nil {
		return nil, errPlaceNotFound
	}

	if place.CreatorID != callerID {
		return nil, domain.NewUnauthorized("You are not allowed to edit this place.", nil)
	}

	updated := place.WithDetails(in.Title, in.Description, uc.now())
	if err := uc.placeStorage.UpdatePlace(ctx, updated); err != nil {
		if errors.Is(err, ports.ErrPlaceNotFound) {
			return nil, errPlaceNotFound
		}
		return nil, domain.NewInternal("Something went wrong, could not update place.", err)
	}

	uc.logger.Info("place updated", "place_id", placeID)
	return &updated, nil
}

func (uc *placeUseCase) DeletePlace(ctx context.Context, id string, callerID uuid.UUID) error {
	placeID, err := uuid.Parse(id)
	if err != nil {
		return errPlaceNotFound
	}

	place, err := uc.placeStorage.GetPlaceWithCreator(ctx, placeID)
	if err != nil {
		return domain.NewInternal("Something went wrong, could not delete place.", err)
	}
	if place == nil {
		return errPlaceNotFound
	}

	if place.Creator == nil || place.Creator.ID != callerID {
		return domain.NewUnauthorized("You are not allowed to delete this place.", nil)
	}

	if err := uc.placeStorage.DeletePlace(ctx, *place); err != nil {
		if errors.Is(err, ports.ErrPlaceNotFound) {
			return errPlaceNotFound
		}
		return domain.NewInternal("Something went wrong, could not delete place.", err)
	}

	uc.invalidate(ctx, usersCacheKey)
	uc.logger.Info("place deleted", "place_id", placeID, "creator_id", callerID)

	// Запись уже удалена: ошибку удаления файла только сообщаем
	if err := uc.images.Remove(ctx, place.Image); err != nil {
		uc.logger.Error("failed to delete place image", "place_id", placeID, "image", place.Image, "error", err)
		uc.reportOrphan(ctx, *place, err)
	}
	return nil
}

func (uc *placeUseCase) reportOrphan(ctx context.Context, place domain.Place, cause error) {
	payload := payloads.ImageCleanupPayload{
		Image:   place.Image,
		PlaceID: place.ID.String(),
		Reason:  cause.Error(),
	}
	if err := uc.cleanup.PublishImageCleanup(ctx, payload); err != nil {
		uc.logger.Error("failed to publish image cleanup", "place_id", place.ID, "error", err)
	}
}

func (uc *placeUseCase) invalidate(ctx context.Context, keys ...string) {
	if err := uc.cache.Delete(ctx, keys...); err != nil {
		uc.logger.Warn("cache invalidation failed", "keys", keys, "error", err)
	}
}
