package entity

import "github.com/yourorg/ephemeral-chats/internal/store"

// Profile is a user's membership record inside one chat, distinct from the
// global user identity. Exactly one profile may exist per (userId, chatId).
type Profile struct {
	Base
	Nickname string `json:"nickname" validate:"required,min=3,max=100"`
	Slug     string `json:"slug" validate:"required,min=3,max=109"`
	UserID   string `json:"userId" validate:"required"`
	ChatID   string `json:"chatId" validate:"required,len=26"`
}

func NewProfile(nickname, slug, userID, chatID string, ttlSeconds int64) *Profile {
	return &Profile{
		Base:     NewBase(ttlSeconds),
		Nickname: nickname,
		Slug:     slug,
		UserID:   userID,
		ChatID:   chatID,
	}
}

func ProfileSchema() *store.Schema[*Profile] {
	return store.NewSchema[*Profile]("profile", "userId", "chatId", "nickname", "slug")
}
