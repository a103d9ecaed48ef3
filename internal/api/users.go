package api

import (
	"github.com/gofiber/fiber/v2"
)

// deleteUserData is the account-deletion cleanup hook the identity service
// calls when a user is removed: the user's own chats go away with their full
// cascade, then every remaining profile, invite and message they left
// behind.
func (s *Server) deleteUserData(c *fiber.Ctx) error {
	uid := userID(c)
	ctx := c.Context()

	owned, err := s.chats.UserChats(ctx, uid)
	if err != nil {
		return s.fail(c, err)
	}
	for _, chat := range owned {
		if err := s.chats.RemoveChat(ctx, uid, chat.ID); err != nil {
			return s.fail(c, err)
		}
	}

	member, err := s.chats.MemberChats(ctx, uid)
	if err != nil {
		return s.fail(c, err)
	}
	for _, chat := range member {
		if err := s.chats.LeaveChat(ctx, uid, chat.ID); err != nil {
			return s.fail(c, err)
		}
	}

	if err := s.messages.DeleteUserMessages(ctx, uid); err != nil {
		return s.fail(c, err)
	}
	if err := s.invites.DeleteUserInvites(ctx, uid); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "User data deleted successfully"})
}
