// internal/domain/user.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// User представляет модель пользователя в системе.
// Соответствует таблице 'users' в базе данных.
// PlaceIDs хранит множество мест пользователя и всегда меняется
// в одной транзакции с таблицей places.
type User struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Password  string         `json:"-"`
	Image     string         `json:"image"`
	PlaceIDs  pq.StringArray `json:"places" gorm:"column:place_ids;type:text[]"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserSummary - элемент списка пользователей.
type UserSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Image      string    `json:"image"`
	PlaceCount int       `json:"placeCount"`
}

// Summary строит UserSummary из полной модели.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:         u.ID,
		Name:       u.Name,
		Image:      u.Image,
		PlaceCount: len(u.PlaceIDs),
	}
}

// AuthResult - ответ на signup/login.
type AuthResult struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Token  string    `json:"token"`
}
