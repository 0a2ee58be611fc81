package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weiawesome/wes-io-chat/internal/audit"
	"github.com/weiawesome/wes-io-chat/internal/config"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/hub"
	"github.com/weiawesome/wes-io-chat/internal/idgen"
	"github.com/weiawesome/wes-io-chat/internal/kafka"
	"github.com/weiawesome/wes-io-chat/internal/metrics"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/pkg/log"
)

const storeTimeout = 5 * time.Second

type relayService struct {
	hub       *hub.Hub
	messages  repository.MessageRepository
	ids       idgen.Generator
	publisher kafka.MessagePublisher
	cfg       config.RelayConfig
	now       func() time.Time
}

func NewRelayService(
	h *hub.Hub,
	messages repository.MessageRepository,
	ids idgen.Generator,
	publisher kafka.MessagePublisher,
	cfg config.RelayConfig,
) RelayService {
	if publisher == nil {
		publisher = kafka.NoopPublisher{}
	}
	return &relayService{
		hub:       h,
		messages:  messages,
		ids:       ids,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// HandleJoin binds the connection to username and adds it to that
// delivery group. In replace mode any previous binding is dropped first.
func (s *relayService) HandleJoin(ctx context.Context, c *hub.Client, username string) error {
	if username == "" {
		return c.SendMessage(domain.NewErrorMessage(domain.ErrCodeBadRequest, "username is required"))
	}

	if s.cfg.JoinMode != config.JoinModeAdd {
		for _, previous := range c.Session.Identities() {
			if previous == username {
				continue
			}
			s.hub.Leave(c, previous)
			c.Session.Unbind(previous)
		}
	}

	s.hub.Join(c, username)
	c.Session.Bind(username)

	audit.Log(ctx, audit.ActionJoin, username, "connection joined")
	return c.SendMessage(domain.NewJoinedMessage(username))
}

// HandleSendMessage persists the message and only then delivers it to the
// receiver's group and acknowledges it to the sender's group. Failures are
// reported to the sending connection alone.
func (s *relayService) HandleSendMessage(ctx context.Context, c *hub.Client, evt *domain.SendMessageEvent) error {
	l := log.Ctx(ctx)

	if evt.Sender == "" || evt.Receiver == "" || evt.Content == "" {
		s.reject(ctx, c, evt, domain.ErrCodeBadRequest, "sender, receiver and content are required")
		return ErrInvalidMessage
	}

	if s.cfg.RequireJoinedSender && !c.Session.IsBoundTo(evt.Sender) {
		s.reject(ctx, c, evt, domain.ErrCodeNotJoined, "join as the sender before sending")
		return ErrNotJoined
	}

	id, err := s.ids.Generate()
	if err != nil {
		l.Error().Err(err).Msg("failed to generate message id")
		s.reject(ctx, c, evt, domain.ErrCodeInternalError, "failed to generate message id")
		return fmt.Errorf("generate message id: %w", err)
	}

	msg := domain.NewMessage(id, evt.Sender, evt.Receiver, evt.Content, s.now())

	storeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	err = s.messages.Create(storeCtx, msg)
	cancel()
	if err != nil {
		l.Error().Err(err).Str(log.FieldMessageID, msg.ID).Msg("failed to persist message")
		s.reject(ctx, c, evt, domain.ErrCodeStoreError, "failed to store message")
		return fmt.Errorf("%w: %v", ErrStore, err)
	}

	if err := s.hub.SendToGroup(msg.Receiver, domain.NewReceiveMessage(msg)); err != nil {
		l.Error().Err(err).Str(log.FieldMessageID, msg.ID).Msg("failed to deliver message")
	}
	if err := s.hub.SendToGroup(msg.Sender, domain.NewMessageStatus(msg, evt.ClientRef)); err != nil {
		l.Error().Err(err).Str(log.FieldMessageID, msg.ID).Msg("failed to acknowledge message")
	}

	if err := s.publisher.Publish(ctx, msg); err != nil {
		l.Warn().Err(err).Str(log.FieldMessageID, msg.ID).Msg("failed to publish message")
	}

	l.Debug().
		Str(log.FieldMessageID, msg.ID).
		Str(log.FieldSender, msg.Sender).
		Str(log.FieldReceiver, msg.Receiver).
		Int(log.FieldGroupSize, s.hub.GroupSize(msg.Receiver)).
		Msg("message relayed")
	metrics.MessagesTotal.WithLabelValues(metrics.OutcomeSent).Inc()
	audit.LogWithDetail(ctx, audit.ActionSendMessage, msg.Sender, msg.ID, "message sent")
	return nil
}

// HandleDisconnect drops every binding the connection holds. Peers are not
// notified.
func (s *relayService) HandleDisconnect(ctx context.Context, c *hub.Client) {
	identities := c.Session.Clear()
	for _, identity := range identities {
		s.hub.Leave(c, identity)
	}

	for _, identity := range identities {
		audit.Log(ctx, audit.ActionDisconnect, identity, "connection closed")
	}
}

func (s *relayService) reject(ctx context.Context, c *hub.Client, evt *domain.SendMessageEvent, code, message string) {
	metrics.MessagesTotal.WithLabelValues(code).Inc()
	audit.LogWithDetail(ctx, audit.ActionSendFailed, evt.Sender, code, message)

	err := c.SendMessage(domain.NewErrorMessage(code, message).WithClientRef(evt.ClientRef))
	if err != nil && !errors.Is(err, hub.ErrClientClosed) {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldConnID, c.ID).Msg("failed to report send failure")
	}
}
