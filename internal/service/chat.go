package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sinkapp/sink/internal/model"
	"github.com/sinkapp/sink/internal/storage"
)

// EventChatMessage is published for every new chat message.
const EventChatMessage = "chat_message"

// MessageStore persists chat messages.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *model.ChatMessage) error
	ListMessages(ctx context.Context, code string, limit int) ([]*model.ChatMessage, error)
}

// Broadcaster pushes an event to the connected members of an apartment.
type Broadcaster interface {
	Publish(ctx context.Context, code, event string, payload any) error
}

// ChatService manages the apartment group chat.
type ChatService struct {
	messages    MessageStore
	broadcaster Broadcaster
	logger      *slog.Logger
	now         func() time.Time
}

// NewChatService creates a ChatService. broadcaster may be nil.
func NewChatService(messages MessageStore, broadcaster Broadcaster, logger *slog.Logger) *ChatService {
	return &ChatService{
		messages:    messages,
		broadcaster: broadcaster,
		logger:      logger.With("component", "chat"),
		now:         nowUTC,
	}
}

// PostMessageInput defines input for posting a message.
type PostMessageInput struct {
	Text           string
	AttachmentKey  string
	AttachmentType string
	AttachmentName string
}

// PostMessage stores a message and pushes it to connected members.
func (s *ChatService) PostMessage(ctx context.Context, code, sender string, input PostMessageInput) (*model.ChatMessage, error) {
	text := clean(input.Text)
	if tooLong(text, maxMessageLength) {
		return nil, ErrMessageTooLong
	}
	if text == "" && input.AttachmentKey == "" {
		return nil, ErrMessageEmpty
	}
	if err := checkAttachmentKey(input.AttachmentKey, code); err != nil {
		return nil, err
	}

	msg := &model.ChatMessage{
		ID:            generateULID(),
		ApartmentCode: code,
		Sender:        sender,
		Text:          text,
		CreatedAt:     s.now(),
	}
	if input.AttachmentKey != "" {
		contentType := strings.ToLower(clean(input.AttachmentType))
		if _, ok := storage.AllowedTypes[contentType]; !ok {
			return nil, storage.ErrUnsupportedType
		}
		msg.AttachmentKey = input.AttachmentKey
		msg.AttachmentType = contentType
		msg.AttachmentName = clean(input.AttachmentName)
	}

	if err := s.messages.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	if s.broadcaster != nil {
		if err := s.broadcaster.Publish(ctx, code, EventChatMessage, msg); err != nil {
			s.logger.Warn("chat_broadcast_failed", "code", code, "message_id", msg.ID, "error", err)
		}
	}
	return msg, nil
}

// ListMessages returns the latest messages in chronological order.
func (s *ChatService) ListMessages(ctx context.Context, code string, limit int) ([]*model.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	limit = min(limit, MaxMessageLimit)

	msgs, err := s.messages.ListMessages(ctx, code, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}
