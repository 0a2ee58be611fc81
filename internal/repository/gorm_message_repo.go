package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if err := r.db.WithContext(ctx).Create(domain.MessageToModel(msg)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(err.Error(), "UNIQUE constraint") ||
			strings.Contains(err.Error(), "duplicate key") ||
			strings.Contains(err.Error(), "Duplicate entry") {
			return ErrMessageExists
		}
		return err
	}
	return nil
}

func (r *GormMessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	var model domain.MessageModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

// Count reports how many messages are stored.
func (r *GormMessageRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.MessageModel{}).Count(&n).Error
	return n, err
}
