package cache

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// DirectoryCache holds the materialised user list served by GET /users.
type DirectoryCache interface {
	GetUsers(ctx context.Context) ([]domain.User, error)
	SetUsers(ctx context.Context, users []domain.User, ttl time.Duration) error
	Invalidate(ctx context.Context) error
	Close() error
}

// NopCache always misses. It is used when Redis is disabled.
type NopCache struct{}

func (NopCache) GetUsers(context.Context) ([]domain.User, error) { return nil, ErrCacheMiss }

func (NopCache) SetUsers(context.Context, []domain.User, time.Duration) error { return nil }

func (NopCache) Invalidate(context.Context) error { return nil }

func (NopCache) Close() error { return nil }
