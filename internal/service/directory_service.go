package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/wes-io-chat/internal/audit"
	"github.com/weiawesome/wes-io-chat/internal/cache"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/metrics"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/pkg/log"
)

const usersFlightKey = "users"

type directoryServiceImpl struct {
	repo     repository.UserRepository
	cache    cache.DirectoryCache
	cacheTTL time.Duration
	sf       singleflight.Group
}

func NewDirectoryService(
	repo repository.UserRepository,
	dirCache cache.DirectoryCache,
	cacheTTL time.Duration,
) DirectoryService {
	if dirCache == nil {
		dirCache = cache.NopCache{}
	}
	return &directoryServiceImpl{
		repo:     repo,
		cache:    dirCache,
		cacheTTL: cacheTTL,
	}
}

// Register creates the user named in req. Names are compared exactly.
func (s *directoryServiceImpl) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error) {
	l := log.Ctx(ctx)

	name := req.Username
	switch {
	case name == "":
		metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, ErrUsernameRequired
	case len(name) > domain.MaxUsernameLength:
		metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, ErrUsernameTooLong
	}

	if _, err := s.repo.GetByUsername(ctx, name); err == nil {
		metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeTaken).Inc()
		audit.LogWithDetail(ctx, audit.ActionRegisterFailed, name, "duplicate", "registration rejected")
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		l.Error().Err(err).Str(log.FieldUsername, name).Msg("failed to look up user")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	user, err := s.repo.Create(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeTaken).Inc()
			audit.LogWithDetail(ctx, audit.ActionRegisterFailed, name, "duplicate", "registration rejected")
			return nil, ErrUsernameTaken
		}
		metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		l.Error().Err(err).Str(log.FieldUsername, name).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	if err := s.cache.Invalidate(ctx); err != nil {
		l.Warn().Err(err).Msg("failed to invalidate directory cache")
	}

	metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeRegistered).Inc()
	audit.Log(ctx, audit.ActionRegister, name, "user registered")
	return user, nil
}

// ListUsers serves the directory from cache when possible. Concurrent
// misses share one database read.
func (s *directoryServiceImpl) ListUsers(ctx context.Context) ([]domain.User, error) {
	result, err, _ := s.sf.Do(usersFlightKey, func() (interface{}, error) {
		return s.fetchWithCache(ctx)
	})
	if err != nil {
		return nil, err
	}

	users, ok := result.([]domain.User)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return users, nil
}

func (s *directoryServiceImpl) fetchWithCache(ctx context.Context) ([]domain.User, error) {
	l := log.Ctx(ctx)

	cached, err := s.cache.GetUsers(ctx)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l.Warn().Err(err).Msg("cache get error")
	}

	users, err := s.repo.List(ctx)
	if err != nil {
		l.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	if err := s.cache.SetUsers(ctx, users, s.cacheTTL); err != nil {
		l.Warn().Err(err).Msg("cache set error")
	}
	return users, nil
}
