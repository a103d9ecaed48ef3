package entity

import "github.com/yourorg/ephemeral-chats/internal/store"

type InviteStatus string

const (
	InvitePending  InviteStatus = "PENDING"
	InviteAccepted InviteStatus = "ACCEPTED"
	InviteDeclined InviteStatus = "DECLINED"
)

// Invite references its chat through the chat's invitation token rather than
// the chat id, so holding an invite alone does not reveal the chat.
type Invite struct {
	Base
	Status      InviteStatus `json:"status" validate:"required,oneof=PENDING ACCEPTED DECLINED"`
	Invitation  string       `json:"invitation" validate:"required,uuid4"`
	RecipientID string       `json:"recipientId" validate:"required"`
	SenderID    string       `json:"senderId" validate:"required"`
}

func NewInvite(invitation, recipientID, senderID string, ttlSeconds int64) *Invite {
	return &Invite{
		Base:        NewBase(ttlSeconds),
		Status:      InvitePending,
		Invitation:  invitation,
		RecipientID: recipientID,
		SenderID:    senderID,
	}
}

func InviteSchema() *store.Schema[*Invite] {
	return store.NewSchema[*Invite]("invite", "recipientId", "senderId", "invitation", "status")
}
