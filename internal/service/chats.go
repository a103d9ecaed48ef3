package service

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourorg/ephemeral-chats/internal/bus"
	"github.com/yourorg/ephemeral-chats/internal/crypto"
	"github.com/yourorg/ephemeral-chats/internal/entity"
	"github.com/yourorg/ephemeral-chats/internal/events"
	"github.com/yourorg/ephemeral-chats/internal/pagination"
	"github.com/yourorg/ephemeral-chats/internal/store"
	apperrors "github.com/yourorg/ephemeral-chats/pkg/errors"
)

const (
	minChatMinutes = 5
	maxChatMinutes = 1440
)

// MessageCascade and InviteCascade are the narrow surfaces ChatsService needs
// from its sibling services when a chat is removed. They are attached by the
// composition root after all services exist, which keeps construction
// acyclic.
type MessageCascade interface {
	DeleteChatMessages(ctx context.Context, chatID string) error
}

type InviteCascade interface {
	DeleteChatInvites(ctx context.Context, invitation string) error
}

type ChatsService struct {
	chats    *store.Repository[*entity.Chat]
	profiles *store.Repository[*entity.Profile]
	enc      *crypto.Encryptor
	users    UserDirectory
	notifier notifier
	messages MessageCascade
	invites  InviteCascade
}

func NewChatsService(
	st *store.Store,
	b *bus.Bus,
	stream *events.Producer,
	enc *crypto.Encryptor,
	users UserDirectory,
	log *zap.SugaredLogger,
) *ChatsService {
	return &ChatsService{
		chats:    store.NewRepository(st, entity.ChatSchema()),
		profiles: store.NewRepository(st, entity.ProfileSchema()),
		enc:      enc,
		users:    users,
		notifier: notifier{bus: b, stream: stream, log: log},
	}
}

// Attach wires the cascade collaborators once every service is constructed.
func (s *ChatsService) Attach(messages MessageCascade, invites InviteCascade) {
	s.messages = messages
	s.invites = invites
}

// CreateIndexes is the idempotent startup step registering this service's
// schemas.
func (s *ChatsService) CreateIndexes(ctx context.Context) error {
	if err := s.chats.CreateIndex(ctx); err != nil {
		return err
	}
	return s.profiles.CreateIndex(ctx)
}

type CreateChatInput struct {
	Name     string
	ChatType entity.ChatType
	Time     int64 // minutes
}

// CreateChat creates the chat, its owner's profile, and announces it. The
// name-count slug suffix is check-then-insert: concurrent creations of the
// same name can race.
func (s *ChatsService) CreateChat(ctx context.Context, userID string, in CreateChatInput) (*entity.Chat, error) {
	if in.Time < minChatMinutes || in.Time > maxChatMinutes {
		return nil, apperrors.Invalid("time must be between 5 and 1440 minutes")
	}
	name := FormatTitle(in.Name)
	chatSlug := PointSlug(name)

	count, err := s.chats.Search().Where("name").Equals(name).Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		chatSlug += strconv.FormatInt(count, 10)
	}

	chatKey, err := s.enc.GenerateChatKey()
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	ttl := in.Time * 60
	chat := entity.NewChat(name, chatSlug, in.ChatType, userID, uuid.NewString(), chatKey, ttl)
	if err := saveEntity(ctx, s.chats, chat, ttl); err != nil {
		return nil, err
	}

	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	nickname := FormatTitle(user.Name)
	profile := entity.NewProfile(nickname, UniqueSlug(nickname), userID, chat.ID, ttl)
	if err := saveEntity(ctx, s.profiles, profile, ttl); err != nil {
		return nil, err
	}

	s.publishChatChange(ctx, chat, bus.ChangeNew)
	return chat, nil
}

// CreateProfile joins a user to the chat behind an invitation token. Children
// inherit the chat's remaining lifetime, never a longer one.
func (s *ChatsService) CreateProfile(ctx context.Context, userID, invitation string) (*entity.Profile, error) {
	chat, err := s.ChatByInvitation(ctx, invitation)
	if err != nil {
		return nil, err
	}
	count, err := s.profiles.Search().
		Where("chatId").Equals(chat.ID).
		And("userId").Equals(userID).
		Count(ctx)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, apperrors.Conflict("Profile already exists")
	}

	ttl := chat.Expiration()
	if ttl <= 0 {
		return nil, apperrors.NotFound("Chat not found")
	}
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	nickname := FormatTitle(user.Name)
	profile := entity.NewProfile(nickname, UniqueSlug(nickname), userID, chat.ID, ttl)
	if err := saveEntity(ctx, s.profiles, profile, ttl); err != nil {
		return nil, err
	}

	s.publishProfileChange(ctx, profile, bus.ChangeNew)
	return profile, nil
}

type SearchQuery struct {
	Search string
	First  int
	After  string
	Order  store.Order
	Cursor QueryCursor
}

func (s *ChatsService) FilterPublicChats(ctx context.Context, q SearchQuery) (*pagination.Page[*entity.Chat], error) {
	return pagination.Paginate(ctx, s.chats, q.Cursor.Field(), q.First, q.Order,
		func(sr *store.Search[*entity.Chat]) *store.Search[*entity.Chat] {
			sr.Where("chatType").Equals(entity.ChatTypePublic)
			if q.Search != "" {
				sr.And("name").Contains(FormatSearch(q.Search))
			}
			return sr
		}, q.After, q.Cursor.Type())
}

func (s *ChatsService) ChatByID(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	chat, found, err := s.chats.Fetch(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound("Chat not found")
	}
	if err := s.checkChatType(ctx, userID, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *ChatsService) ChatBySlug(ctx context.Context, userID, chatSlug string) (*entity.Chat, error) {
	chat, found, err := s.chats.Search().Where("slug").Equals(chatSlug).First(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound("Chat not found")
	}
	if err := s.checkChatType(ctx, userID, chat); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *ChatsService) ChatByInvitation(ctx context.Context, invitation string) (*entity.Chat, error) {
	chat, found, err := s.chats.Search().Where("invitation").Equals(invitation).First(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound("Chat not found")
	}
	return chat, nil
}

type FilterProfilesQuery struct {
	ChatID   string
	Nickname string
	First    int
	After    string
}

func (s *ChatsService) FilterProfiles(ctx context.Context, userID string, q FilterProfilesQuery) (*pagination.Page[*entity.Profile], error) {
	if _, err := s.CheckChatMembership(ctx, userID, q.ChatID); err != nil {
		return nil, err
	}
	return s.PaginatedProfiles(ctx, q.ChatID, q.First, q.Nickname, q.After)
}

func (s *ChatsService) PaginatedProfiles(ctx context.Context, chatID string, first int, nickname, after string) (*pagination.Page[*entity.Profile], error) {
	return pagination.Paginate(ctx, s.profiles, "slug", first, store.OrderASC,
		func(sr *store.Search[*entity.Profile]) *store.Search[*entity.Profile] {
			sr.Where("chatId").Equals(chatID)
			if nickname != "" {
				sr.And("nickname").Contains(FormatSearch(nickname))
			}
			return sr
		}, after, pagination.CursorString)
}

func (s *ChatsService) CountProfiles(ctx context.Context, chatID string) (int64, error) {
	return s.profiles.Search().Where("chatId").Equals(chatID).Count(ctx)
}

func (s *ChatsService) ProfileByID(ctx context.Context, userID, chatID, profileID string) (*entity.Profile, error) {
	userProfile, err := s.CheckChatMembership(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if userProfile.ID == profileID {
		return userProfile, nil
	}
	profile, found, err := s.profiles.Fetch(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !found || profile.ChatID != chatID {
		return nil, apperrors.NotFound("Profile not found")
	}
	return profile, nil
}

func (s *ChatsService) ProfileBySlug(ctx context.Context, userID, chatID, profileSlug string) (*entity.Profile, error) {
	userProfile, err := s.CheckChatMembership(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	if userProfile.Slug == profileSlug {
		return userProfile, nil
	}
	profile, found, err := s.profiles.Search().
		Where("slug").Equals(profileSlug).
		And("chatId").Equals(chatID).
		First(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound("Profile not found")
	}
	return profile, nil
}

type UpdateChatInput struct {
	ChatID   string
	Name     string
	ChatType entity.ChatType
}

func (s *ChatsService) UpdateChat(ctx context.Context, userID string, in UpdateChatInput) (*entity.Chat, error) {
	chat, err := s.chatByOwner(ctx, userID, in.ChatID)
	if err != nil {
		return nil, err
	}
	if in.Name != "" {
		chat.Name = FormatTitle(in.Name)
	}
	if in.ChatType != "" {
		chat.ChatType = in.ChatType
	}
	if err := saveEntity(ctx, s.chats, chat, chat.Expiration()); err != nil {
		return nil, err
	}
	s.publishChatChange(ctx, chat, bus.ChangeUpdate)
	return chat, nil
}

// RemoveChat deletes the chat and explicitly walks its children — profiles,
// messages, invites — before announcing the deletion. TTL expiry is not
// relied on here.
func (s *ChatsService) RemoveChat(ctx context.Context, userID, chatID string) error {
	chat, err := s.chatByOwner(ctx, userID, chatID)
	if err != nil {
		return err
	}
	if err := s.chats.Remove(ctx, chat.ID); err != nil {
		return err
	}
	if err := s.deleteProfiles(ctx, chatID); err != nil {
		return err
	}
	if s.messages != nil {
		if err := s.messages.DeleteChatMessages(ctx, chatID); err != nil {
			return err
		}
	}
	if s.invites != nil {
		if err := s.invites.DeleteChatInvites(ctx, chat.Invitation); err != nil {
			return err
		}
	}
	s.publishChatChange(ctx, chat, bus.ChangeDelete)
	return nil
}

func (s *ChatsService) UpdateOwnNickname(ctx context.Context, userID, chatID, nickname string) (*entity.Profile, error) {
	profile, err := s.CheckChatMembership(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	nickname = FormatTitle(nickname)
	profile.Nickname = nickname
	profile.Slug = UniqueSlug(nickname)
	if err := saveEntity(ctx, s.profiles, profile, profile.Expiration()); err != nil {
		return nil, err
	}
	s.publishProfileChange(ctx, profile, bus.ChangeUpdate)
	return profile, nil
}

func (s *ChatsService) UpdateProfileNickname(ctx context.Context, userID, chatID, profileID, nickname string) (*entity.Profile, error) {
	if _, err := s.checkChatOwnership(ctx, userID, chatID); err != nil {
		return nil, err
	}
	profile, found, err := s.profiles.Fetch(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !found || profile.ChatID != chatID {
		return nil, apperrors.NotFound("Profile not found")
	}
	nickname = FormatTitle(nickname)
	profile.Nickname = nickname
	profile.Slug = UniqueSlug(nickname)
	if err := saveEntity(ctx, s.profiles, profile, profile.Expiration()); err != nil {
		return nil, err
	}
	s.publishProfileChange(ctx, profile, bus.ChangeUpdate)
	return profile, nil
}

func (s *ChatsService) LeaveChat(ctx context.Context, userID, chatID string) error {
	profileID, found, err := s.profiles.Search().
		Where("userId").Equals(userID).
		And("chatId").Equals(chatID).
		FirstID(ctx)
	if err != nil {
		return err
	}
	if !found {
		return apperrors.Unauthorized("Chat does not exist or you are not a member")
	}
	return s.profiles.Remove(ctx, profileID)
}

func (s *ChatsService) RemoveProfile(ctx context.Context, userID, chatID, profileID string) error {
	if _, err := s.checkChatOwnership(ctx, userID, chatID); err != nil {
		return err
	}
	profile, found, err := s.profiles.Fetch(ctx, profileID)
	if err != nil {
		return err
	}
	if !found || profile.ChatID != chatID {
		return apperrors.NotFound("Profile not found")
	}
	if profile.UserID == userID {
		return apperrors.BadRequest("You cannot remove yourself")
	}
	if err := s.profiles.Remove(ctx, profileID); err != nil {
		return err
	}
	s.publishProfileChange(ctx, profile, bus.ChangeDelete)
	return nil
}

// CheckChatMembership authorizes by profile lookup. Absence reads the same
// whether the chat is missing or the user is not a member.
func (s *ChatsService) CheckChatMembership(ctx context.Context, userID, chatID string) (*entity.Profile, error) {
	profile, found, err := s.profiles.Search().
		Where("userId").Equals(userID).
		And("chatId").Equals(chatID).
		First(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.Unauthorized("Chat does not exist or you are not a member")
	}
	return profile, nil
}

func (s *ChatsService) CheckProfileExistence(ctx context.Context, userID, chatID string) (bool, error) {
	count, err := s.profiles.Search().
		Where("chatId").Equals(chatID).
		And("userId").Equals(userID).
		Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *ChatsService) UncheckedChatByID(ctx context.Context, chatID string) (*entity.Chat, error) {
	chat, found, err := s.chats.Fetch(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound("Chat not found")
	}
	return chat, nil
}

func (s *ChatsService) UncheckedProfileByID(ctx context.Context, profileID string) (*entity.Profile, error) {
	profile, found, err := s.profiles.Fetch(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound("Profile not found")
	}
	return profile, nil
}

// MemberChats returns every chat the user holds a profile in. Chats whose
// TTL already fired are skipped.
func (s *ChatsService) MemberChats(ctx context.Context, userID string) ([]*entity.Chat, error) {
	profiles, err := s.profiles.Search().Where("userId").Equals(userID).All(ctx)
	if err != nil {
		return nil, err
	}
	chats := make([]*entity.Chat, 0, len(profiles))
	for _, profile := range profiles {
		chat, found, err := s.chats.Fetch(ctx, profile.ChatID)
		if err != nil {
			return nil, err
		}
		if found {
			chats = append(chats, chat)
		}
	}
	return chats, nil
}

func (s *ChatsService) UserChats(ctx context.Context, userID string) ([]*entity.Chat, error) {
	return s.chats.Search().Where("userId").Equals(userID).All(ctx)
}

func (s *ChatsService) deleteProfiles(ctx context.Context, chatID string) error {
	profiles, err := s.profiles.Search().Where("chatId").Equals(chatID).All(ctx)
	if err != nil {
		return err
	}
	for _, profile := range profiles {
		if err := s.profiles.Remove(ctx, profile.ID); err != nil {
			return err
		}
	}
	return nil
}

// chatByOwner and checkChatOwnership phrase failure identically whether the
// chat is missing or the caller is not the owner.
func (s *ChatsService) chatByOwner(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	chat, found, err := s.chats.Fetch(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !found || chat.UserID != userID {
		return nil, apperrors.Unauthorized("Chat does not exist or you are not the author")
	}
	return chat, nil
}

func (s *ChatsService) checkChatOwnership(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	return s.chatByOwner(ctx, userID, chatID)
}

func (s *ChatsService) checkChatType(ctx context.Context, userID string, chat *entity.Chat) error {
	if chat.ChatType == entity.ChatTypePrivate && chat.UserID != userID {
		member, err := s.CheckProfileExistence(ctx, userID, chat.ID)
		if err != nil {
			return err
		}
		if !member {
			return apperrors.NotFound("Chat not found")
		}
	}
	return nil
}

func (s *ChatsService) publishChatChange(ctx context.Context, chat *entity.Chat, t bus.ChangeType) {
	s.notifier.publish(ctx, bus.ChatTopic(chat.ID), chat.Sanitized(), chat.CreatedAt, t)
}

func (s *ChatsService) publishProfileChange(ctx context.Context, profile *entity.Profile, t bus.ChangeType) {
	s.notifier.publish(ctx, bus.ProfilesTopic(profile.ChatID), profile, profile.Slug, t)
}
