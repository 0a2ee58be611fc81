package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/weiawesome/wes-io-chat/internal/domain"
)

const createMessagesTable = `
	CREATE TABLE IF NOT EXISTS messages_by_id (
		message_id text PRIMARY KEY,
		sender     text,
		receiver   text,
		content    text,
		created_at timestamp,
		status     text
	)`

// CassandraMessageRepository stores messages in a wide-column table keyed
// by message id.
type CassandraMessageRepository struct {
	session *gocql.Session
}

func NewCassandraMessageRepository(session *gocql.Session) *CassandraMessageRepository {
	return &CassandraMessageRepository{session: session}
}

// EnsureSchema creates the messages table in the session keyspace.
func (r *CassandraMessageRepository) EnsureSchema(ctx context.Context) error {
	if err := r.session.Query(createMessagesTable).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to create messages table: %w", err)
	}
	return nil
}

// Create inserts the message with a lightweight transaction so an id is
// never overwritten.
func (r *CassandraMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages_by_id (
			message_id, sender, receiver, content, created_at, status
		) VALUES (?, ?, ?, ?, ?, ?) IF NOT EXISTS`

	existing := map[string]interface{}{}
	applied, err := r.session.Query(query,
		msg.ID,
		msg.Sender,
		msg.Receiver,
		msg.Content,
		msg.Timestamp,
		string(msg.Status),
	).WithContext(ctx).MapScanCAS(existing)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	if !applied {
		return ErrMessageExists
	}
	return nil
}

func (r *CassandraMessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	query := `
		SELECT message_id, sender, receiver, content, created_at, status
		FROM messages_by_id WHERE message_id = ?`

	var (
		msg       domain.Message
		createdAt time.Time
		status    string
	)
	err := r.session.Query(query, id).WithContext(ctx).
		Scan(&msg.ID, &msg.Sender, &msg.Receiver, &msg.Content, &createdAt, &status)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to load message: %w", err)
	}

	msg.Timestamp = createdAt.UTC()
	msg.Status = domain.MessageStatus(status)
	return &msg, nil
}
