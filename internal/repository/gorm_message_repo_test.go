package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/pkg/database/dbtest"
)

func TestMessageCreateAndGet(t *testing.T) {
	repo := NewGormMessageRepository(dbtest.Open(t, &domain.MessageModel{}))
	ctx := context.Background()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := domain.NewMessage("100", "alice", "bob", "hi", now)
	require.NoError(t, repo.Create(ctx, msg))

	got, err := repo.GetByID(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Sender)
	assert.Equal(t, "bob", got.Receiver)
	assert.Equal(t, "hi", got.Content)
	assert.Equal(t, domain.StatusSent, got.Status)
	assert.True(t, now.Equal(got.Timestamp))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMessageCreateDuplicateID(t *testing.T) {
	repo := NewGormMessageRepository(dbtest.Open(t, &domain.MessageModel{}))
	ctx := context.Background()

	msg := domain.NewMessage("100", "alice", "bob", "hi", time.Now())
	require.NoError(t, repo.Create(ctx, msg))
	assert.ErrorIs(t, repo.Create(ctx, msg), ErrMessageExists)
}

func TestMessageGetMissing(t *testing.T) {
	repo := NewGormMessageRepository(dbtest.Open(t, &domain.MessageModel{}))
	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}
