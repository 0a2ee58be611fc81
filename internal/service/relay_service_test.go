package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-chat/internal/config"
	"github.com/weiawesome/wes-io-chat/internal/domain"
	"github.com/weiawesome/wes-io-chat/internal/hub"
	"github.com/weiawesome/wes-io-chat/internal/metrics"
	"github.com/weiawesome/wes-io-chat/internal/repository"
	"github.com/weiawesome/wes-io-chat/pkg/database/dbtest"
)

type sequenceIDs struct{ n atomic.Int64 }

func (g *sequenceIDs) Generate() (string, error) {
	return fmt.Sprintf("m%d", g.n.Add(1)), nil
}

func (g *sequenceIDs) Validate(string) (bool, string) { return true, "" }

type failingMessageRepo struct{}

func (failingMessageRepo) Create(context.Context, *domain.Message) error { return errDown }

func (failingMessageRepo) GetByID(context.Context, string) (*domain.Message, error) {
	return nil, repository.ErrMessageNotFound
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*domain.Message
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, msg *domain.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type relayFixture struct {
	hub       *hub.Hub
	svc       RelayService
	repo      *repository.GormMessageRepository
	publisher *recordingPublisher
	n         int
}

func newRelay(t *testing.T, cfg config.RelayConfig) *relayFixture {
	t.Helper()
	return newRelayWithRepo(t, cfg, nil)
}

func newRelayWithRepo(t *testing.T, cfg config.RelayConfig, messages repository.MessageRepository) *relayFixture {
	t.Helper()

	h := hub.NewHub(config.WebSocketConfig{SendBuffer: 64})
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})

	f := &relayFixture{hub: h, publisher: &recordingPublisher{}}
	if messages == nil {
		f.repo = repository.NewGormMessageRepository(dbtest.Open(t, &domain.MessageModel{}))
		messages = f.repo
	}
	if cfg.JoinMode == "" {
		cfg.JoinMode = config.JoinModeReplace
	}
	f.svc = NewRelayService(h, messages, &sequenceIDs{}, f.publisher, cfg)
	return f
}

func (f *relayFixture) connect(t *testing.T) *hub.Client {
	t.Helper()
	f.n++
	c := hub.NewClient(fmt.Sprintf("conn-%d", f.n), f.hub, nil, config.WebSocketConfig{SendBuffer: 64})
	f.hub.Register(c)
	require.Eventually(t, func() bool { return f.hub.ClientCount() >= f.n }, time.Second, 5*time.Millisecond)
	return c
}

func (f *relayFixture) join(t *testing.T, c *hub.Client, name string) {
	t.Helper()
	require.NoError(t, f.svc.HandleJoin(context.Background(), c, name))
	evt := next(t, c)
	require.Equal(t, domain.MsgTypeJoined, evt["type"])
	require.Equal(t, name, evt["username"])
}

func (f *relayFixture) send(t *testing.T, c *hub.Client, sender, receiver, content, ref string) error {
	t.Helper()
	err := f.svc.HandleSendMessage(context.Background(), c, &domain.SendMessageEvent{
		Type:      domain.MsgTypeSendMessage,
		Sender:    sender,
		Receiver:  receiver,
		Content:   content,
		ClientRef: ref,
	})
	require.NoError(t, f.hub.Flush(context.Background()))
	return err
}

func (f *relayFixture) stored(t *testing.T) int64 {
	t.Helper()
	n, err := f.repo.Count(context.Background())
	require.NoError(t, err)
	return n
}

func next(t *testing.T, c *hub.Client) map[string]interface{} {
	t.Helper()
	select {
	case data := <-c.Send:
		var v map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &v))
		return v
	case <-time.After(time.Second):
		t.Fatalf("%s received nothing", c.ID)
		return nil
	}
}

func assertSilent(t *testing.T, clients ...*hub.Client) {
	t.Helper()
	for _, c := range clients {
		assert.Empty(t, c.Send, "%s should not receive anything", c.ID)
	}
}

func TestSendDeliversAndAcknowledges(t *testing.T) {
	f := newRelay(t, config.RelayConfig{})
	alice, bob := f.connect(t), f.connect(t)
	f.join(t, alice, "alice")
	f.join(t, bob, "bob")

	require.NoError(t, f.send(t, alice, "alice", "bob", "hi", "ref-1"))

	received := next(t, bob)
	assert.Equal(t, domain.MsgTypeReceiveMessage, received["type"])
	msg := received["message"].(map[string]interface{})
	assert.Equal(t, "alice", msg["sender"])
	assert.Equal(t, "bob", msg["receiver"])
	assert.Equal(t, "hi", msg["content"])
	assert.Equal(t, "sent", msg["status"])
	assert.NotEmpty(t, msg["timestamp"])

	status := next(t, alice)
	assert.Equal(t, domain.MsgTypeMessageStatus, status["type"])
	assert.Equal(t, msg["id"], status["messageId"])
	assert.Equal(t, "sent", status["status"])
	assert.Equal(t, "ref-1", status["clientRef"])

	assertSilent(t, alice, bob)
	assert.Equal(t, int64(1), f.stored(t))

	stored, err := f.repo.GetByID(context.Background(), msg["id"].(string))
	require.NoError(t, err)
	assert.Equal(t, "hi", stored.Content)

	require.Len(t, f.publisher.msgs, 1)
	assert.Equal(t, msg["id"], f.publisher.msgs[0].ID)
}

func TestSendToOfflineReceiver(t *testing.T) {
	f := newRelay(t, config.RelayConfig{})
	alice, carol := f.connect(t), f.connect(t)
	f.join(t, alice, "alice")
	f.join(t, carol, "carol")

	require.NoError(t, f.send(t, alice, "alice", "bob", "are you there", ""))

	status := next(t, alice)
	assert.Equal(t, domain.MsgTypeMessageStatus, status["type"])
	_, hasRef := status["clientRef"]
	assert.False(t, hasRef)

	assertSilent(t, alice, carol)
	assert.Equal(t, int64(1), f.stored(t))
}

func TestSendFansOutToEveryReceiverConnection(t *testing.T) {
	f := newRelay(t, config.RelayConfig{})
	alice, carol1, carol2 := f.connect(t), f.connect(t), f.connect(t)
	f.join(t, alice, "alice")
	f.join(t, carol1, "carol")
	f.join(t, carol2, "carol")

	require.NoError(t, f.send(t, alice, "alice", "carol", "hello both", ""))

	for _, c := range []*hub.Client{carol1, carol2} {
		evt := next(t, c)
		assert.Equal(t, domain.MsgTypeReceiveMessage, evt["type"])
	}
	next(t, alice)
	assertSilent(t, alice, carol1, carol2)
}

func TestSendAcknowledgesEverySenderConnection(t *testing.T) {
	f := newRelay(t, config.RelayConfig{})
	alice1, alice2, bob := f.connect(t), f.connect(t), f.connect(t)
	f.join(t, alice1, "alice")
	f.join(t, alice2, "alice")
	f.join(t, bob, "bob")

	require.NoError(t, f.send(t, alice1, "alice", "bob", "hi", "r"))

	assert.Equal(t, domain.MsgTypeMessageStatus, next(t, alice1)["type"])
	assert.Equal(t, domain.MsgTypeMessageStatus, next(t, alice2)["type"])
	assert.Equal(t, domain.MsgTypeReceiveMessage, next(t, bob)["type"])
}

func TestDisconnectStopsDelivery(t *testing.T) {
	f := newRelay(t, config.RelayConfig{})
	alice, dave := f.connect(t), f.connect(t)
	f.join(t, alice, "alice")
	f.join(t, dave, "dave")

	f.svc.HandleDisconnect(context.Background(), dave)
	assert.False(t, dave.Session.IsBound())
	assert.Equal(t, 0, f.hub.GroupSize("dave"))

	require.NoError(t, f.send(t, alice, "alice", "dave", "gone?", ""))

	next(t, alice)
	assertSilent(t, dave)
	assert.Equal(t, int64(1), f.stored(t))
}

func TestJoinTwiceDeliversOnce(t *testing.T) {
	f := newRelay(t, config.RelayConfig{})
	alice, bob := f.connect(t), f.connect(t)
	f.join(t, alice, "alice")
	f.join(t, alice, "alice")
	f.join(t, bob, "bob")
	assert.Equal(t, 1, f.hub.GroupSize("alice"))

	require.NoError(t, f.send(t, bob, "bob", "alice", "once", ""))

	assert.Equal(t, domain.MsgTypeReceiveMessage, next(t, alice)["type"])
	assertSilent(t, alice)
}

func TestJoinReplaceMode(t *testing.T) {
	f := newRelay(t, config.RelayConfig{JoinMode: config.JoinModeReplace})
	c, bob := f.connect(t), f.connect(t)
	f.join(t, c, "alice")
	f.join(t, c, "mallory")
	f.join(t, bob, "bob")

	assert.Equal(t, []string{"mallory"}, c.Session.Identities())
	assert.Equal(t, 0, f.hub.GroupSize("alice"))

	require.NoError(t, f.send(t, bob, "bob", "alice", "for alice", ""))
	next(t, bob)
	assertSilent(t, c)
}

func TestJoinAddMode(t *testing.T) {
	f := newRelay(t, config.RelayConfig{JoinMode: config.JoinModeAdd})
	c, bob := f.connect(t), f.connect(t)
	f.join(t, c, "alice")
	f.join(t, c, "mallory")
	f.join(t, bob, "bob")

	assert.Equal(t, []string{"alice", "mallory"}, c.Session.Identities())

	require.NoError(t, f.send(t, bob, "bob", "alice", "for alice", ""))
	assert.Equal(t, domain.MsgTypeReceiveMessage, next(t, c)["type"])
}

func TestJoinEmptyUsername(t *testing.T) {
	f := newRelay(t, config.RelayConfig{})
	c := f.connect(t)

	require.NoError(t, f.svc.HandleJoin(context.Background(), c, ""))
	evt := next(t, c)
	assert.Equal(t, domain.MsgTypeError, evt["type"])
	assert.Equal(t, domain.ErrCodeBadRequest, evt["code"])
	assert.False(t, c.Session.IsBound())
}

func TestSendStoreFailure(t *testing.T) {
	f := newRelayWithRepo(t, config.RelayConfig{}, failingMessageRepo{})
	alice, bob := f.connect(t), f.connect(t)
	f.join(t, alice, "alice")
	f.join(t, bob, "bob")

	failures := metrics.MessagesTotal.WithLabelValues(domain.ErrCodeStoreError)
	before := testutil.ToFloat64(failures)

	err := f.send(t, alice, "alice", "bob", "hi", "ref-9")
	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, before+1, testutil.ToFloat64(failures))

	evt := next(t, alice)
	assert.Equal(t, domain.MsgTypeError, evt["type"])
	assert.Equal(t, domain.ErrCodeStoreError, evt["code"])
	assert.Equal(t, "ref-9", evt["clientRef"])

	assertSilent(t, alice, bob)
	assert.Empty(t, f.publisher.msgs)
}

func TestSendRequiresJoinedSender(t *testing.T) {
	f := newRelay(t, config.RelayConfig{RequireJoinedSender: true})
	alice, bob := f.connect(t), f.connect(t)
	f.join(t, alice, "alice")
	f.join(t, bob, "bob")

	err := f.send(t, alice, "bob", "alice", "spoofed", "x")
	assert.ErrorIs(t, err, ErrNotJoined)

	evt := next(t, alice)
	assert.Equal(t, domain.ErrCodeNotJoined, evt["code"])
	assertSilent(t, alice, bob)
	assert.Equal(t, int64(0), f.stored(t))
}

func TestSendWithoutJoinAllowedByDefault(t *testing.T) {
	f := newRelay(t, config.RelayConfig{})
	anon, bob := f.connect(t), f.connect(t)
	f.join(t, bob, "bob")

	require.NoError(t, f.send(t, anon, "alice", "bob", "hi", ""))
	assert.Equal(t, domain.MsgTypeReceiveMessage, next(t, bob)["type"])
	assertSilent(t, anon)
}

func TestSendRejectsEmptyFields(t *testing.T) {
	f := newRelay(t, config.RelayConfig{})
	alice := f.connect(t)

	err := f.send(t, alice, "alice", "bob", "", "r")
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.Equal(t, domain.ErrCodeBadRequest, next(t, alice)["code"])
	assert.Equal(t, int64(0), f.stored(t))
}

func TestPublishFailureDoesNotAffectSender(t *testing.T) {
	f := newRelay(t, config.RelayConfig{})
	f.publisher.err = errors.New("broker unavailable")
	alice := f.connect(t)
	f.join(t, alice, "alice")

	require.NoError(t, f.send(t, alice, "alice", "bob", "hi", ""))
	assert.Equal(t, domain.MsgTypeMessageStatus, next(t, alice)["type"])
}
