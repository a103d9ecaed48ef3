package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/yourorg/ephemeral-chats/internal/bus"
	"github.com/yourorg/ephemeral-chats/internal/crypto"
	"github.com/yourorg/ephemeral-chats/internal/entity"
	"github.com/yourorg/ephemeral-chats/internal/events"
	"github.com/yourorg/ephemeral-chats/internal/pagination"
	"github.com/yourorg/ephemeral-chats/internal/store"
	apperrors "github.com/yourorg/ephemeral-chats/pkg/errors"
)

// ChatAccess is the slice of ChatsService the messages flow needs.
type ChatAccess interface {
	CheckChatMembership(ctx context.Context, userID, chatID string) (*entity.Profile, error)
	UncheckedChatByID(ctx context.Context, chatID string) (*entity.Chat, error)
}

type MessagesService struct {
	messages *store.Repository[*entity.Message]
	chats    ChatAccess
	enc      *crypto.Encryptor
	notifier notifier
}

func NewMessagesService(
	st *store.Store,
	b *bus.Bus,
	stream *events.Producer,
	chats ChatAccess,
	enc *crypto.Encryptor,
	log *zap.SugaredLogger,
) *MessagesService {
	return &MessagesService{
		messages: store.NewRepository(st, entity.MessageSchema()),
		chats:    chats,
		enc:      enc,
		notifier: notifier{bus: b, stream: stream, log: log},
	}
}

func (s *MessagesService) CreateIndexes(ctx context.Context) error {
	return s.messages.CreateIndex(ctx)
}

// CreateMessage encrypts the body with the chat's key before the write and
// restores the plaintext on the returned and published message afterwards.
// Ciphertext never leaves the service on the success path.
func (s *MessagesService) CreateMessage(ctx context.Context, userID, chatID, body string) (*entity.Message, error) {
	profile, err := s.chats.CheckChatMembership(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	chat, err := s.chats.UncheckedChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	key, err := s.enc.MasterDecrypt(chat.ChatKey)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	cipher, err := crypto.Encrypt(body, key)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	ttl := profile.Expiration()
	if ttl <= 0 {
		return nil, apperrors.Unauthorized("Chat does not exist or you are not a member")
	}
	message := entity.NewMessage(cipher, profile.ID, chatID, userID, ttl)
	if err := saveEntity(ctx, s.messages, message, ttl); err != nil {
		return nil, err
	}

	message.Body = body
	s.publishMessageChange(ctx, message, bus.ChangeNew)
	return message, nil
}

func (s *MessagesService) UpdateMessage(ctx context.Context, userID, chatID, messageID, body string) (*entity.Message, error) {
	profile, err := s.chats.CheckChatMembership(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	message, err := s.messageByAuthor(ctx, profile.ID, messageID)
	if err != nil {
		return nil, err
	}
	chat, err := s.chats.UncheckedChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	key, err := s.enc.MasterDecrypt(chat.ChatKey)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	cipher, err := crypto.Encrypt(body, key)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	message.Body = cipher
	if err := saveEntity(ctx, s.messages, message, message.Expiration()); err != nil {
		return nil, err
	}

	message.Body = body
	s.publishMessageChange(ctx, message, bus.ChangeUpdate)
	return message, nil
}

func (s *MessagesService) RemoveMessage(ctx context.Context, userID, chatID, messageID string) error {
	profile, err := s.chats.CheckChatMembership(ctx, userID, chatID)
	if err != nil {
		return err
	}
	message, err := s.messageByAuthor(ctx, profile.ID, messageID)
	if err != nil {
		return err
	}
	if err := s.messages.Remove(ctx, message.ID); err != nil {
		return err
	}
	s.publishMessageChange(ctx, message, bus.ChangeDelete)
	return nil
}

func (s *MessagesService) MessageByID(ctx context.Context, userID, chatID, messageID string) (*entity.Message, error) {
	if _, err := s.chats.CheckChatMembership(ctx, userID, chatID); err != nil {
		return nil, err
	}
	message, found, err := s.messages.Fetch(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !found || message.ChatID != chatID {
		return nil, apperrors.NotFound("Message not found")
	}
	chat, err := s.chats.UncheckedChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	key, err := s.enc.MasterDecrypt(chat.ChatKey)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	body, err := crypto.Decrypt(message.Body, key)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	message.Body = body
	return message, nil
}

type FilterMessagesQuery struct {
	ChatID string
	First  int
	After  string
}

func (s *MessagesService) FilterChatMessages(ctx context.Context, userID string, q FilterMessagesQuery) (*pagination.Page[*entity.Message], error) {
	if _, err := s.chats.CheckChatMembership(ctx, userID, q.ChatID); err != nil {
		return nil, err
	}
	chat, err := s.chats.UncheckedChatByID(ctx, q.ChatID)
	if err != nil {
		return nil, err
	}
	return s.PaginatedMessages(ctx, chat, q.First, q.After)
}

// PaginatedMessages pages newest-first and decrypts each page in place.
func (s *MessagesService) PaginatedMessages(ctx context.Context, chat *entity.Chat, first int, after string) (*pagination.Page[*entity.Message], error) {
	page, err := pagination.Paginate(ctx, s.messages, "createdAt", first, store.OrderDESC,
		func(sr *store.Search[*entity.Message]) *store.Search[*entity.Message] {
			return sr.Where("chatId").Equals(chat.ID)
		}, after, pagination.CursorDate)
	if err != nil {
		return nil, err
	}

	key, err := s.enc.MasterDecrypt(chat.ChatKey)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	for _, edge := range page.Edges {
		body, err := crypto.Decrypt(edge.Node.Body, key)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		edge.Node.Body = body
	}
	return page, nil
}

// DeleteChatMessages is the chat-removal cascade; no per-message events,
// the chat's own DELETE covers it.
func (s *MessagesService) DeleteChatMessages(ctx context.Context, chatID string) error {
	messages, err := s.messages.Search().Where("chatId").Equals(chatID).All(ctx)
	if err != nil {
		return err
	}
	for _, message := range messages {
		if err := s.messages.Remove(ctx, message.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *MessagesService) DeleteUserMessages(ctx context.Context, userID string) error {
	messages, err := s.messages.Search().Where("userId").Equals(userID).All(ctx)
	if err != nil {
		return err
	}
	for _, message := range messages {
		if err := s.messages.Remove(ctx, message.ID); err != nil {
			return err
		}
		s.publishMessageChange(ctx, message, bus.ChangeDelete)
	}
	return nil
}

// Author checks compare profile ids, not user ids.
func (s *MessagesService) messageByAuthor(ctx context.Context, profileID, messageID string) (*entity.Message, error) {
	message, found, err := s.messages.Fetch(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !found || message.ProfileID != profileID {
		return nil, apperrors.NotFound("Message not found")
	}
	return message, nil
}

func (s *MessagesService) publishMessageChange(ctx context.Context, message *entity.Message, t bus.ChangeType) {
	s.notifier.publish(ctx, bus.MessagesTopic(message.ChatID), message, message.CreatedAt, t)
}
