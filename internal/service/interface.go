package service

import (
	"context"

	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/hub"
)

// DirectoryService registers names and lists the registered ones.
type DirectoryService interface {
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// RelayService binds connections to identities and routes messages
// between their delivery groups.
type RelayService interface {
	HandleJoin(ctx context.Context, client *hub.Client, username string) error
	HandleSendMessage(ctx context.Context, client *hub.Client, evt *domain.SendMessageEvent) error
	HandleDisconnect(ctx context.Context, client *hub.Client)
}
