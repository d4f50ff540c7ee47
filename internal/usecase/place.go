package usecase

import (
	"context"

	"github.com/GoArmGo/PlacesApp/internal/domain"
	"github.com/google/uuid"
)

// Geocoder переводит адрес в координаты (Google Geocoding API).
// Возвращает *domain.Error: 422, если адрес не найден, и 500 при сбое запроса.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (domain.Location, error)
}

// ImageRemover удаляет сохранённое изображение по ссылке (URL или локальный путь)
type ImageRemover interface {
	Remove(ctx context.Context, ref string) error
}

// TokenIssuer выпускает сессионный токен для пользователя
type TokenIssuer interface {
	Issue(userID uuid.UUID, email string) (string, error)
}

// CreatePlaceInput - данные для создания места.
// Image уже загружено в хранилище к моменту вызова.
type CreatePlaceInput struct {
	Title       string
	Description string
	Address     string
	Image       string
	CreatorID   uuid.UUID
}

// UpdatePlaceInput - изменяемые поля места.
type UpdatePlaceInput struct {
	Title       string
	Description string
}

// SignupInput - данные регистрации.
type SignupInput struct {
	Name     string
	Email    string
	Password string
	Image    string
}

// PlaceUseCase определяет бизнес-логику работы с местами.
// Единственный владелец связи place.creator <-> user.places.
type PlaceUseCase interface {
	// GetPlaceByID возвращает место или 404
	GetPlaceByID(ctx context.Context, id string) (*domain.Place, error)

	// GetPlacesByUserID возвращает места пользователя.
	// Пустой результат - это 404, а не пустой список.
	GetPlacesByUserID(ctx context.Context, userID string) ([]domain.Place, error)

	// CreatePlace геокодирует адрес, проверяет владельца и в одной транзакции
	// сохраняет место и добавляет его в множество владельца
	CreatePlace(ctx context.Context, in CreatePlaceInput) (*domain.Place, error)

	// UpdatePlace меняет title/description; только для владельца
	UpdatePlace(ctx context.Context, id string, in UpdatePlaceInput, callerID uuid.UUID) (*domain.Place, error)

	// DeletePlace удаляет место (только владелец), затем удаляет изображение.
	// Ошибка удаления изображения не откатывает удаление записи.
	DeletePlace(ctx context.Context, id string, callerID uuid.UUID) error
}

// UserUseCase определяет регистрацию, вход и список пользователей
type UserUseCase interface {
	Signup(ctx context.Context, in SignupInput) (*domain.AuthResult, error)
	Login(ctx context.Context, email, password string) (*domain.AuthResult, error)
	ListUsers(ctx context.Context) ([]domain.UserSummary, error)
}
