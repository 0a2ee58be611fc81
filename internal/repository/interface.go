package repository

import (
	"context"
	"errors"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUsernameExists  = errors.New("username already exists")
	ErrMessageNotFound = errors.New("message not found")
	ErrMessageExists   = errors.New("message id already exists")
)

// UserRepository persists the directory of registered names.
type UserRepository interface {
	Create(ctx context.Context, username string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// List returns every registered user in registration order.
	List(ctx context.Context) ([]domain.User, error)
}

// MessageRepository persists relayed messages. Messages are append-only.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
}
