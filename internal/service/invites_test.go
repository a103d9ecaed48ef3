package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/ephemeral-chats/internal/entity"
	"github.com/yourorg/ephemeral-chats/internal/service"
	apperrors "github.com/yourorg/ephemeral-chats/pkg/errors"
)

func invite(t *testing.T, e *env, chat *entity.Chat, senderID, recipientID string) *entity.Invite {
	t.Helper()
	inv, err := e.invites.CreateInvite(context.Background(), senderID, chat.Invitation, recipientID)
	require.NoError(t, err)
	return inv
}

func TestCreateInvite(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	chat := createChat(t, e, "userA", "Book Club", entity.ChatTypePublic)
	inv := invite(t, e, chat, "userA", "userB")

	assert.Equal(t, entity.InvitePending, inv.Status)
	assert.Equal(t, "userA", inv.SenderID)
	assert.Equal(t, "userB", inv.RecipientID)
	assert.Equal(t, chat.Invitation, inv.Invitation)

	// only one pending invite per recipient and chat
	_, err := e.invites.CreateInvite(ctx, "userA", chat.Invitation, "userB")
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
}

func TestCreateInviteRequiresSenderMembership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	chat := createChat(t, e, "userA", "Book Club", entity.ChatTypePublic)

	_, err := e.invites.CreateInvite(ctx, "userC", chat.Invitation, "userB")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestCreateInviteRejectsExistingMember(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	chat := createChat(t, e, "userA", "Book Club", entity.ChatTypePublic)
	_, err := e.chats.CreateProfile(ctx, "userB", chat.Invitation)
	require.NoError(t, err)

	_, err = e.invites.CreateInvite(ctx, "userA", chat.Invitation, "userB")
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
}

func TestAcceptInviteJoinsChat(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	chat := createChat(t, e, "userA", "Book Club", entity.ChatTypePublic)
	invite(t, e, chat, "userA", "userB")

	inv, err := e.invites.AcceptInvite(ctx, "userB", chat.Invitation)
	require.NoError(t, err)
	assert.Equal(t, entity.InviteAccepted, inv.Status)

	_, err = e.chats.CheckChatMembership(ctx, "userB", chat.ID)
	require.NoError(t, err)
}

func TestAnsweredInviteCannotBeAnsweredAgain(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	chat := createChat(t, e, "userA", "Book Club", entity.ChatTypePublic)
	invite(t, e, chat, "userA", "userB")

	_, err := e.invites.DeclineInvite(ctx, "userB", chat.Invitation)
	require.NoError(t, err)

	_, err = e.invites.DeclineInvite(ctx, "userB", chat.Invitation)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
	assert.Equal(t, "Invite already answered", apperrors.MessageOf(err))

	_, err = e.invites.AcceptInvite(ctx, "userB", chat.Invitation)
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
}

func TestUpdateRejectedInvite(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	chat := createChat(t, e, "userA", "Book Club", entity.ChatTypePublic)
	invite(t, e, chat, "userA", "userB")

	_, err := e.invites.DeclineInvite(ctx, "userB", chat.Invitation)
	require.NoError(t, err)

	// the override path reopens a declined invite
	inv, err := e.invites.UpdateRejectedInvite(ctx, "userB", chat.Invitation)
	require.NoError(t, err)
	assert.Equal(t, entity.InviteAccepted, inv.Status)
	_, err = e.chats.CheckChatMembership(ctx, "userB", chat.ID)
	require.NoError(t, err)

	// but never an accepted one
	_, err = e.invites.UpdateRejectedInvite(ctx, "userB", chat.Invitation)
	require.Error(t, err)
	assert.Equal(t, "Invite already accepted", apperrors.MessageOf(err))
}

// The override only applies to a declined invite; a pending one goes
// through the regular accept path.
func TestUpdateRejectedInviteRequiresDeclined(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	chat := createChat(t, e, "userA", "Book Club", entity.ChatTypePublic)
	invite(t, e, chat, "userA", "userB")

	_, err := e.invites.UpdateRejectedInvite(ctx, "userB", chat.Invitation)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
	assert.Equal(t, "Invite has not been declined", apperrors.MessageOf(err))

	inv, err := e.invites.InviteByInvitation(ctx, "userB", chat.Invitation)
	require.NoError(t, err)
	assert.Equal(t, entity.InvitePending, inv.Status)
}

func TestOnlyRecipientMayAnswer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	chat := createChat(t, e, "userA", "Book Club", entity.ChatTypePublic)
	invite(t, e, chat, "userA", "userB")

	_, err := e.invites.AcceptInvite(ctx, "userC", chat.Invitation)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestDeleteInvite(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	chat := createChat(t, e, "userA", "Book Club", entity.ChatTypePublic)
	inv := invite(t, e, chat, "userA", "userB")

	// only the sender may delete
	err := e.invites.DeleteInvite(ctx, "userB", inv.ID)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	require.NoError(t, e.invites.DeleteInvite(ctx, "userA", inv.ID))
	_, err = e.invites.SentInviteByID(ctx, "userA", inv.ID)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestDeleteAnsweredInviteFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	chat := createChat(t, e, "userA", "Book Club", entity.ChatTypePublic)
	inv := invite(t, e, chat, "userA", "userB")
	_, err := e.invites.AcceptInvite(ctx, "userB", chat.Invitation)
	require.NoError(t, err)

	err = e.invites.DeleteInvite(ctx, "userA", inv.ID)
	assert.Equal(t, apperrors.CodeBadRequest, apperrors.CodeOf(err))
}

func TestInviteLookups(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	chat := createChat(t, e, "userA", "Book Club", entity.ChatTypePublic)
	inv := invite(t, e, chat, "userA", "userB")

	got, err := e.invites.InviteByID(ctx, "userB", inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)
	_, err = e.invites.InviteByID(ctx, "userA", inv.ID)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))

	got, err = e.invites.SentInviteByInvitation(ctx, "userA", chat.Invitation)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)
	_, err = e.invites.SentInviteByInvitation(ctx, "userB", chat.Invitation)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.CodeOf(err))
}

func TestFilterInvitesByStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	chatA := createChat(t, e, "userA", "Book Club", entity.ChatTypePublic)
	chatB := createChat(t, e, "userA", "Chess Club", entity.ChatTypePublic)
	invite(t, e, chatA, "userA", "userB")
	invite(t, e, chatB, "userA", "userB")
	_, err := e.invites.DeclineInvite(ctx, "userB", chatA.Invitation)
	require.NoError(t, err)

	page, err := e.invites.FilterReceivedInvites(ctx, "userB", service.FilterInvitesQuery{First: 10})
	require.NoError(t, err)
	assert.Len(t, page.Edges, 2)

	page, err = e.invites.FilterReceivedInvites(ctx, "userB", service.FilterInvitesQuery{
		Status: entity.InvitePending, First: 10,
	})
	require.NoError(t, err)
	require.Len(t, page.Edges, 1)
	assert.Equal(t, chatB.Invitation, page.Edges[0].Node.Invitation)

	page, err = e.invites.FilterSentInvites(ctx, "userA", service.FilterInvitesQuery{First: 10})
	require.NoError(t, err)
	assert.Len(t, page.Edges, 2)
}

func TestRemoveChatDeletesItsInvites(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	chat := createChat(t, e, "userA", "Book Club", entity.ChatTypePublic)
	invite(t, e, chat, "userA", "userB")
	invite(t, e, chat, "userA", "userC")

	require.NoError(t, e.chats.RemoveChat(ctx, "userA", chat.ID))

	page, err := e.invites.FilterReceivedInvites(ctx, "userB", service.FilterInvitesQuery{First: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Edges)
}

func TestDeleteUserInvites(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	chat := createChat(t, e, "userA", "Book Club", entity.ChatTypePublic)
	invite(t, e, chat, "userA", "userB")

	require.NoError(t, e.invites.DeleteUserInvites(ctx, "userB"))

	page, err := e.invites.FilterSentInvites(ctx, "userA", service.FilterInvitesQuery{First: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Edges)
}
