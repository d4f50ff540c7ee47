package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/GoArmGo/PlacesApp/internal/core/ports"
	"github.com/GoArmGo/PlacesApp/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPlaceStorage реализует ports.PlaceStorage с использованием GORM
type GormPlaceStorage struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewGormPlaceStorage создает новый экземпляр GormPlaceStorage
func NewGormPlaceStorage(db *gorm.DB, logger *slog.Logger) *GormPlaceStorage {
	return &GormPlaceStorage{db: db, logger: logger}
}

// GetPlaceByID получает место по ID
func (s *GormPlaceStorage) GetPlaceByID(ctx context.Context, id uuid.UUID) (*domain.Place, error) {
	var place domain.Place
	result := s.db.WithContext(ctx).First(&place, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка при получении места по ID: %w", result.Error)
	}
	return &place, nil
}

// GetPlaceWithCreator получает место вместе с владельцем
func (s *GormPlaceStorage) GetPlaceWithCreator(ctx context.Context, id uuid.UUID) (*domain.Place, error) {
	var place domain.Place
	result := s.db.WithContext(ctx).Preload("Creator").First(&place, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка при получении места с владельцем: %w", result.Error)
	}
	return &place, nil
}

// ListPlacesByCreator получает все места пользователя
func (s *GormPlaceStorage) ListPlacesByCreator(ctx context.Context, creatorID uuid.UUID) ([]domain.Place, error) {
	var places []domain.Place
	result := s.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Find(&places)
	if result.Error != nil {
		return nil, fmt.Errorf("ошибка при получении мест пользователя: %w", result.Error)
	}
	return places, nil
}

// CreatePlace вставляет место и добавляет его id в place_ids владельца.
// Если владельца нет, транзакция откатывается с ports.ErrUserNotFound.
func (s *GormPlaceStorage) CreatePlace(ctx context.Context, place domain.Place) error {
	start := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&place).Error; err != nil {
			return fmt.Errorf("insert place: %w", err)
		}

		res := tx.Model(&domain.User{}).
			Where("id = ?", place.CreatorID).
			Update("place_ids", gorm.Expr("array_append(place_ids, ?)", place.ID.String()))
		if res.Error != nil {
			return fmt.Errorf("append place to user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ports.ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("place stored", "place_id", place.ID, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// UpdatePlace перезаписывает title, description и updated_at
func (s *GormPlaceStorage) UpdatePlace(ctx context.Context, place domain.Place) error {
	res := s.db.WithContext(ctx).
		Model(&domain.Place{}).
		Where("id = ?", place.ID).
		UpdateColumns(map[string]any{
			"title":       place.Title,
			"description": place.Description,
			"updated_at":  place.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("ошибка при обновлении места: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ports.ErrPlaceNotFound
	}
	return nil
}

// DeletePlace удаляет место и убирает его id из place_ids владельца
func (s *GormPlaceStorage) DeletePlace(ctx context.Context, place domain.Place) error {
	start := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", place.ID).Delete(&domain.Place{})
		if res.Error != nil {
			return fmt.Errorf("delete place: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ports.ErrPlaceNotFound
		}

		res = tx.Model(&domain.User{}).
			Where("id = ?", place.CreatorID).
			Update("place_ids", gorm.Expr("array_remove(place_ids, ?)", place.ID.String()))
		if res.Error != nil {
			return fmt.Errorf("remove place from user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ports.ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("place removed", "place_id", place.ID, "duration_ms", time.Since(start).Milliseconds())
	return nil
}
