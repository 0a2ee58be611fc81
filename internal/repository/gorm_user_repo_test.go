package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/pkg/database/dbtest"
)

func TestUserCreateAndGet(t *testing.T) {
	repo := NewGormUserRepository(dbtest.Open(t, &domain.UserModel{}))
	ctx := context.Background()

	user, err := repo.Create(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.CreatedAt.IsZero())

	got, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = repo.GetByUsername(ctx, "bob")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserCreateDuplicate(t *testing.T) {
	db := dbtest.Open(t, &domain.UserModel{})
	repo := NewGormUserRepository(db)
	ctx := context.Background()

	_, err := repo.Create(ctx, "alice")
	require.NoError(t, err)

	_, err = repo.Create(ctx, "alice")
	assert.ErrorIs(t, err, ErrUsernameExists)

	var n int64
	require.NoError(t, db.Model(&domain.UserModel{}).Where("username = ?", "alice").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestUserNamesAreCaseSensitive(t *testing.T) {
	repo := NewGormUserRepository(dbtest.Open(t, &domain.UserModel{}))
	ctx := context.Background()

	_, err := repo.Create(ctx, "alice")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "Alice")
	assert.NoError(t, err)
}

func TestUserListInRegistrationOrder(t *testing.T) {
	repo := NewGormUserRepository(dbtest.Open(t, &domain.UserModel{}))
	ctx := context.Background()

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	for _, name := range []string{"carol", "alice", "bob"} {
		_, err := repo.Create(ctx, name)
		require.NoError(t, err)
	}

	users, err = repo.List(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	assert.Equal(t, []string{"carol", "alice", "bob"}, names)
}
