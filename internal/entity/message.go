package entity

import "github.com/yourorg/ephemeral-chats/internal/store"

// Message bodies are persisted encrypted with the owning chat's key. The
// author of record is the profile, not the raw user.
type Message struct {
	Base
	Body      string `json:"body" validate:"required"`
	ProfileID string `json:"profileId" validate:"required,len=26"`
	ChatID    string `json:"chatId" validate:"required,len=26"`
	UserID    string `json:"userId" validate:"required"`
}

func NewMessage(body, profileID, chatID, userID string, ttlSeconds int64) *Message {
	return &Message{
		Base:      NewBase(ttlSeconds),
		Body:      body,
		ProfileID: profileID,
		ChatID:    chatID,
		UserID:    userID,
	}
}

func MessageSchema() *store.Schema[*Message] {
	return store.NewSchema[*Message]("message", "chatId", "userId", "profileId")
}
