package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-chat/internal/cache"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/pkg/database/dbtest"
)

type memoryCache struct {
	mu          sync.Mutex
	users       []domain.User
	hit         bool
	invalidated int
}

func (c *memoryCache) GetUsers(context.Context) ([]domain.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hit {
		return nil, cache.ErrCacheMiss
	}
	return append([]domain.User(nil), c.users...), nil
}

func (c *memoryCache) SetUsers(_ context.Context, users []domain.User, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = append([]domain.User(nil), users...)
	c.hit = true
	return nil
}

func (c *memoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users, c.hit = nil, false
	c.invalidated++
	return nil
}

func (c *memoryCache) Close() error { return nil }

type countingUserRepo struct {
	repository.UserRepository
	lists atomic.Int32
}

func (r *countingUserRepo) List(ctx context.Context) ([]domain.User, error) {
	r.lists.Add(1)
	return r.UserRepository.List(ctx)
}

type failingUserRepo struct{}

var errDown = errors.New("database is down")

func (failingUserRepo) Create(context.Context, string) (*domain.User, error) { return nil, errDown }

func (failingUserRepo) GetByUsername(context.Context, string) (*domain.User, error) {
	return nil, errDown
}

func (failingUserRepo) List(context.Context) ([]domain.User, error) { return nil, errDown }

func newDirectory(t *testing.T, c cache.DirectoryCache) (DirectoryService, *countingUserRepo) {
	t.Helper()
	repo := &countingUserRepo{
		UserRepository: repository.NewGormUserRepository(dbtest.Open(t, &domain.UserModel{})),
	}
	return NewDirectoryService(repo, c, time.Minute), repo
}

func names(users []domain.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Username)
	}
	return out
}

func TestRegisterOncePerName(t *testing.T) {
	svc, repo := newDirectory(t, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, &domain.RegisterRequest{Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = svc.Register(ctx, &domain.RegisterRequest{Username: "alice"})
	assert.ErrorIs(t, err, ErrUsernameTaken)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, names(users))
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newDirectory(t, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, &domain.RegisterRequest{Username: ""})
	assert.ErrorIs(t, err, ErrUsernameRequired)
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = svc.Register(ctx, &domain.RegisterRequest{Username: strings.Repeat("x", domain.MaxUsernameLength+1)})
	assert.ErrorIs(t, err, ErrUsernameTooLong)
	assert.ErrorIs(t, err, ErrInvalidUsername)

	_, err = svc.Register(ctx, &domain.RegisterRequest{Username: strings.Repeat("x", domain.MaxUsernameLength)})
	assert.NoError(t, err)
}

func TestRegisterConcurrentSameName(t *testing.T) {
	svc, repo := newDirectory(t, nil)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, &domain.RegisterRequest{Username: "alice"})
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrUsernameTaken):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(7), conflicts.Load())

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestListUsersReturnsRegistered(t *testing.T) {
	svc, _ := newDirectory(t, nil)
	ctx := context.Background()

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	for _, name := range []string{"alice", "bob"} {
		_, err := svc.Register(ctx, &domain.RegisterRequest{Username: name})
		require.NoError(t, err)
	}

	users, err = svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, names(users))
}

func TestListUsersUsesCacheAndRegisterInvalidates(t *testing.T) {
	mc := &memoryCache{}
	svc, repo := newDirectory(t, mc)
	ctx := context.Background()

	_, err := svc.Register(ctx, &domain.RegisterRequest{Username: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 1, mc.invalidated)

	for i := 0; i < 3; i++ {
		users, err := svc.ListUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice"}, names(users))
	}
	assert.Equal(t, int32(1), repo.lists.Load(), "later reads are served from cache")

	_, err = svc.Register(ctx, &domain.RegisterRequest{Username: "bob"})
	require.NoError(t, err)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, names(users))
	assert.Equal(t, int32(2), repo.lists.Load())
}

func TestDirectoryStoreErrors(t *testing.T) {
	svc := NewDirectoryService(failingUserRepo{}, nil, time.Minute)
	ctx := context.Background()

	_, err := svc.Register(ctx, &domain.RegisterRequest{Username: "alice"})
	assert.ErrorIs(t, err, ErrStore)

	_, err = svc.ListUsers(ctx)
	assert.ErrorIs(t, err, ErrStore)
}
