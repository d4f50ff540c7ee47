package domain

import (
	"time"

	"github.com/google/uuid"
)

// Location - координаты, полученные от геокодера.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place представляет модель места в системе,
// соответствует таблице places в бд
type Place struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	Location    Location  `json:"location" gorm:"embedded"`
	Image       string    `json:"image"`
	CreatorID   uuid.UUID `json:"creator" gorm:"type:uuid"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Creator заполняется только при загрузке вместе с владельцем (удаление).
	Creator *User `json:"-" gorm:"foreignKey:CreatorID"`
}

func (Place) TableName() string {
	return "places"
}

// NewPlace собирает новое место с новым идентификатором.
func NewPlace(title, description, address string, loc Location, image string, creatorID uuid.UUID, now time.Time) Place {
	return Place{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		Address:     address,
		Location:    loc,
		Image:       image,
		CreatorID:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// WithDetails возвращает копию места с новыми title/description.
func (p Place) WithDetails(title, description string, now time.Time) Place {
	p.Title = title
	p.Description = description
	p.UpdatedAt = now
	p.Creator = nil
	return p
}
