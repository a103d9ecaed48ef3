package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yourorg/ephemeral-chats/internal/bus"
	"github.com/yourorg/ephemeral-chats/internal/entity"
	"github.com/yourorg/ephemeral-chats/internal/events"
	"github.com/yourorg/ephemeral-chats/internal/pagination"
	"github.com/yourorg/ephemeral-chats/internal/store"
	apperrors "github.com/yourorg/ephemeral-chats/pkg/errors"
)

// ChatMembership is the slice of ChatsService the invites flow needs.
type ChatMembership interface {
	ChatByInvitation(ctx context.Context, invitation string) (*entity.Chat, error)
	CheckProfileExistence(ctx context.Context, userID, chatID string) (bool, error)
	CreateProfile(ctx context.Context, userID, invitation string) (*entity.Profile, error)
}

// InviteMailer sends the invite notification. Delivery is fire-and-forget;
// failures never surface to the caller.
type InviteMailer interface {
	SendInviteEmail(ctx context.Context, toEmail, senderName, chatName string)
}

type InvitesService struct {
	invites  *store.Repository[*entity.Invite]
	chats    ChatMembership
	users    UserDirectory
	mailer   InviteMailer
	notifier notifier
}

func NewInvitesService(
	st *store.Store,
	b *bus.Bus,
	stream *events.Producer,
	chats ChatMembership,
	users UserDirectory,
	mailer InviteMailer,
	log *zap.SugaredLogger,
) *InvitesService {
	return &InvitesService{
		invites:  store.NewRepository(st, entity.InviteSchema()),
		chats:    chats,
		users:    users,
		mailer:   mailer,
		notifier: notifier{bus: b, stream: stream, log: log},
	}
}

func (s *InvitesService) CreateIndexes(ctx context.Context) error {
	return s.invites.CreateIndex(ctx)
}

// CreateInvite lets a member invite an outside user. The pending-invite
// uniqueness check is check-then-insert and can race.
func (s *InvitesService) CreateInvite(ctx context.Context, userID, invitation, recipientID string) (*entity.Invite, error) {
	recipient, err := s.users.UserByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	chat, err := s.chats.ChatByInvitation(ctx, invitation)
	if err != nil {
		return nil, err
	}

	member, err := s.chats.CheckProfileExistence(ctx, userID, chat.ID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperrors.NotFound("Chat does not exist or you are not a member of it")
	}
	recipientMember, err := s.chats.CheckProfileExistence(ctx, recipientID, chat.ID)
	if err != nil {
		return nil, err
	}
	if recipientMember {
		return nil, apperrors.BadRequest("User is already a member of this chat")
	}

	count, err := s.invites.Search().
		Where("recipientId").Equals(recipientID).
		And("invitation").Equals(invitation).
		Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperrors.Conflict("User already received an invite for this chat")
	}

	ttl := chat.Expiration()
	if ttl <= 0 {
		return nil, apperrors.NotFound("Chat not found")
	}
	invite := entity.NewInvite(invitation, recipientID, userID, ttl)
	if err := saveEntity(ctx, s.invites, invite, ttl); err != nil {
		return nil, err
	}

	s.publishInviteChange(ctx, invite, bus.ChangeNew)
	if s.mailer != nil {
		// Delivery is never awaited; a lost email does not fail the invite.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			sender, err := s.users.UserByID(ctx, userID)
			senderName := ""
			if err == nil {
				senderName = sender.Name
			}
			s.mailer.SendInviteEmail(ctx, recipient.Email, senderName, chat.Name)
		}()
	}
	return invite, nil
}

// AcceptInvite moves PENDING to ACCEPTED and joins the recipient to the
// chat. The profile is created before the invite save, matching the
// operation's dependent-write order.
func (s *InvitesService) AcceptInvite(ctx context.Context, userID, invitation string) (*entity.Invite, error) {
	invite, err := s.InviteByInvitation(ctx, userID, invitation)
	if err != nil {
		return nil, err
	}
	if invite.Status != entity.InvitePending {
		return nil, apperrors.BadRequest("Invite already answered")
	}
	invite.Status = entity.InviteAccepted
	if _, err := s.chats.CreateProfile(ctx, userID, invitation); err != nil {
		return nil, err
	}
	if err := saveEntity(ctx, s.invites, invite, invite.Expiration()); err != nil {
		return nil, err
	}
	s.publishInviteChange(ctx, invite, bus.ChangeUpdate)
	return invite, nil
}

func (s *InvitesService) DeclineInvite(ctx context.Context, userID, invitation string) (*entity.Invite, error) {
	invite, err := s.InviteByInvitation(ctx, userID, invitation)
	if err != nil {
		return nil, err
	}
	if invite.Status != entity.InvitePending {
		return nil, apperrors.BadRequest("Invite already answered")
	}
	invite.Status = entity.InviteDeclined
	if err := saveEntity(ctx, s.invites, invite, invite.Expiration()); err != nil {
		return nil, err
	}
	s.publishInviteChange(ctx, invite, bus.ChangeUpdate)
	return invite, nil
}

// UpdateRejectedInvite is the one override out of a terminal state:
// DECLINED becomes ACCEPTED. An accepted invite stays accepted and a
// pending one must be answered through AcceptInvite.
func (s *InvitesService) UpdateRejectedInvite(ctx context.Context, userID, invitation string) (*entity.Invite, error) {
	invite, err := s.InviteByInvitation(ctx, userID, invitation)
	if err != nil {
		return nil, err
	}
	if invite.Status == entity.InviteAccepted {
		return nil, apperrors.BadRequest("Invite already accepted")
	}
	if invite.Status != entity.InviteDeclined {
		return nil, apperrors.BadRequest("Invite has not been declined")
	}
	invite.Status = entity.InviteAccepted
	if _, err := s.chats.CreateProfile(ctx, userID, invitation); err != nil {
		return nil, err
	}
	if err := saveEntity(ctx, s.invites, invite, invite.Expiration()); err != nil {
		return nil, err
	}
	s.publishInviteChange(ctx, invite, bus.ChangeUpdate)
	return invite, nil
}

func (s *InvitesService) DeleteInvite(ctx context.Context, userID, inviteID string) error {
	invite, found, err := s.invites.Fetch(ctx, inviteID)
	if err != nil {
		return err
	}
	if !found || invite.SenderID != userID {
		return apperrors.NotFound("Invite not found or you are not the sender")
	}
	if invite.Status != entity.InvitePending {
		return apperrors.BadRequest("You can not delete answered invites")
	}
	if err := s.invites.Remove(ctx, invite.ID); err != nil {
		return err
	}
	s.publishInviteChange(ctx, invite, bus.ChangeDelete)
	return nil
}

func (s *InvitesService) InviteByID(ctx context.Context, userID, inviteID string) (*entity.Invite, error) {
	invite, found, err := s.invites.Fetch(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if !found || invite.RecipientID != userID {
		return nil, apperrors.NotFound("Invite not found or you are not the recipient")
	}
	return invite, nil
}

func (s *InvitesService) SentInviteByID(ctx context.Context, userID, inviteID string) (*entity.Invite, error) {
	invite, found, err := s.invites.Fetch(ctx, inviteID)
	if err != nil {
		return nil, err
	}
	if !found || invite.SenderID != userID {
		return nil, apperrors.NotFound("Invite not found or you are not the sender")
	}
	return invite, nil
}

func (s *InvitesService) InviteByInvitation(ctx context.Context, userID, invitation string) (*entity.Invite, error) {
	invite, found, err := s.invites.Search().
		Where("recipientId").Equals(userID).
		And("invitation").Equals(invitation).
		First(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound("Invite not found or you are not the recipient")
	}
	return invite, nil
}

func (s *InvitesService) SentInviteByInvitation(ctx context.Context, userID, invitation string) (*entity.Invite, error) {
	invite, found, err := s.invites.Search().
		Where("senderId").Equals(userID).
		And("invitation").Equals(invitation).
		First(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound("Invite not found or you are not the sender")
	}
	return invite, nil
}

type FilterInvitesQuery struct {
	Status entity.InviteStatus
	First  int
	After  string
}

func (s *InvitesService) FilterReceivedInvites(ctx context.Context, userID string, q FilterInvitesQuery) (*pagination.Page[*entity.Invite], error) {
	return s.filterInvites(ctx, "recipientId", userID, q)
}

func (s *InvitesService) FilterSentInvites(ctx context.Context, userID string, q FilterInvitesQuery) (*pagination.Page[*entity.Invite], error) {
	return s.filterInvites(ctx, "senderId", userID, q)
}

func (s *InvitesService) filterInvites(ctx context.Context, field, userID string, q FilterInvitesQuery) (*pagination.Page[*entity.Invite], error) {
	return pagination.Paginate(ctx, s.invites, "createdAt", q.First, store.OrderDESC,
		func(sr *store.Search[*entity.Invite]) *store.Search[*entity.Invite] {
			sr.Where(field).Equals(userID)
			if q.Status != "" {
				sr.And("status").Equals(q.Status)
			}
			return sr
		}, q.After, pagination.CursorDate)
}

// DeleteChatInvites removes every invite minted from the chat's invitation
// token. Called by the chat-removal cascade.
func (s *InvitesService) DeleteChatInvites(ctx context.Context, invitation string) error {
	invites, err := s.invites.Search().Where("invitation").Equals(invitation).All(ctx)
	if err != nil {
		return err
	}
	for _, invite := range invites {
		if err := s.invites.Remove(ctx, invite.ID); err != nil {
			return err
		}
		s.publishInviteChange(ctx, invite, bus.ChangeDelete)
	}
	return nil
}

func (s *InvitesService) DeleteUserInvites(ctx context.Context, userID string) error {
	invites, err := s.invites.Search().
		Where("senderId").Equals(userID).
		Or("recipientId").Equals(userID).
		All(ctx)
	if err != nil {
		return err
	}
	for _, invite := range invites {
		if err := s.invites.Remove(ctx, invite.ID); err != nil {
			return err
		}
		s.publishInviteChange(ctx, invite, bus.ChangeDelete)
	}
	return nil
}

// Invite changes go to both parties' topics.
func (s *InvitesService) publishInviteChange(ctx context.Context, invite *entity.Invite, t bus.ChangeType) {
	s.notifier.publish(ctx, bus.InviteTopic(invite.RecipientID), invite, invite.CreatedAt, t)
	s.notifier.publish(ctx, bus.InviteTopic(invite.SenderID), invite, invite.CreatedAt, t)
}
