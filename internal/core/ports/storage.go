package ports

import (
	"context"
	"errors"
	"io"

	"github.com/GoArmGo/PlacesApp/internal/domain"
	"github.com/google/uuid"
)

// ErrUserNotFound возвращается хранилищем, когда владелец места исчез внутри транзакции.
var ErrUserNotFound = errors.New("user not found")

// ErrPlaceNotFound возвращается при изменении места, которого уже нет.
var ErrPlaceNotFound = errors.New("place not found")

// ErrDuplicateEmail - нарушение уникальности email.
var ErrDuplicateEmail = errors.New("email already registered")

// PlaceStorage определяет методы для взаимодействия с хранилищем мест.
// Get-методы возвращают (nil, nil), если запись не найдена.
type PlaceStorage interface {
	GetPlaceByID(ctx context.Context, id uuid.UUID) (*domain.Place, error)
	// GetPlaceWithCreator загружает место вместе с владельцем
	GetPlaceWithCreator(ctx context.Context, id uuid.UUID) (*domain.Place, error)
	ListPlacesByCreator(ctx context.Context, creatorID uuid.UUID) ([]domain.Place, error)

	// CreatePlace вставляет место и добавляет его в множество владельца одной транзакцией
	CreatePlace(ctx context.Context, place domain.Place) error
	// UpdatePlace перезаписывает title, description и updated_at
	UpdatePlace(ctx context.Context, place domain.Place) error
	// DeletePlace удаляет место и убирает его из множества владельца одной транзакцией
	DeletePlace(ctx context.Context, place domain.Place) error
}

// UserStorage определяет методы для взаимодействия с хранилищем пользователей
type UserStorage interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User) error
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// FileStorage определяет интерфейс для работы с файловым хранилищем (S3/MinIO или локальный диск)
type FileStorage interface {
	// UploadFile сохраняет файл под ключом key и возвращает ссылку на него
	UploadFile(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
	// DeleteFile удаляет файл по ключу
	DeleteFile(ctx context.Context, key string) error
}

// Cache - кэш чтения. Get возвращает false, если ключа нет.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, keys ...string) error
}
