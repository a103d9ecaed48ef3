package entity

import "github.com/yourorg/ephemeral-chats/internal/store"

type ChatType string

const (
	ChatTypePublic  ChatType = "PUBLIC"
	ChatTypePrivate ChatType = "PRIVATE"
)

type Chat struct {
	Base
	Name       string   `json:"name" validate:"required,min=3,max=100"`
	Slug       string   `json:"slug" validate:"required,min=3,max=109"`
	ChatType   ChatType `json:"chatType" validate:"required,oneof=PUBLIC PRIVATE"`
	Invitation string   `json:"invitation" validate:"required,uuid4"`
	UserID     string   `json:"userId" validate:"required"`
	ChatKey    string   `json:"chatKey,omitempty" validate:"required"`
}

// Sanitized returns a copy safe to hand to clients: the encrypted chat key
// stays inside the service.
func (c *Chat) Sanitized() *Chat {
	cp := *c
	cp.ChatKey = ""
	return &cp
}

func NewChat(name, slug string, chatType ChatType, userID, invitation, chatKey string, ttlSeconds int64) *Chat {
	return &Chat{
		Base:       NewBase(ttlSeconds),
		Name:       name,
		Slug:       slug,
		ChatType:   chatType,
		Invitation: invitation,
		UserID:     userID,
		ChatKey:    chatKey,
	}
}

func ChatSchema() *store.Schema[*Chat] {
	return store.NewSchema[*Chat]("chat", "name", "slug", "chatType", "invitation", "userId")
}
