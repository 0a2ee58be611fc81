package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Create inserts a user. The unique index on username is the final arbiter
// when two registrations for the same name race.
func (r *GormUserRepository) Create(ctx context.Context, username string) (*domain.User, error) {
	model := &domain.UserModel{Username: username}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, handleUserError(err)
	}
	user := model.ToDomain()
	return &user, nil
}

func (r *GormUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var model domain.UserModel
	result := r.db.WithContext(ctx).First(&model, "username = ?", username)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	user := model.ToDomain()
	return &user, nil
}

func (r *GormUserRepository) List(ctx context.Context) ([]domain.User, error) {
	var models []domain.UserModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(models))
	for i := range models {
		users = append(users, models[i].ToDomain())
	}
	return users, nil
}

// handleUserError converts driver-specific unique violations to domain errors.
func handleUserError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUsernameExists
	}

	errStr := err.Error()
	// PostgreSQL and SQLite
	if strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "UNIQUE constraint") {
		return ErrUsernameExists
	}
	// MySQL
	if strings.Contains(errStr, "Duplicate entry") {
		return ErrUsernameExists
	}
	return err
}
