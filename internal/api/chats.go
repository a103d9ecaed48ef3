package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/ephemeral-chats/internal/entity"
	"github.com/yourorg/ephemeral-chats/internal/service"
)

type createChatReq struct {
	Name     string `json:"name"`
	ChatType string `json:"chatType"`
	Time     int64  `json:"time"`
}

func (s *Server) createChat(c *fiber.Ctx) error {
	var req createChatReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	chat, err := s.chats.CreateChat(c.Context(), userID(c), service.CreateChatInput{
		Name:     req.Name,
		ChatType: entity.ChatType(req.ChatType),
		Time:     req.Time,
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(chat.Sanitized())
}

func (s *Server) filterPublicChats(c *fiber.Ctx) error {
	page, err := s.chats.FilterPublicChats(c.Context(), service.SearchQuery{
		Search: c.Query("search"),
		First:  parseFirst(c),
		After:  c.Query("after"),
		Order:  parseOrder(c),
		Cursor: parseCursor(c),
	})
	if err != nil {
		return s.fail(c, err)
	}
	for i := range page.Edges {
		page.Edges[i].Node = page.Edges[i].Node.Sanitized()
	}
	return c.JSON(page)
}

func (s *Server) memberChats(c *fiber.Ctx) error {
	chats, err := s.chats.MemberChats(c.Context(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"chats": sanitizeChats(chats)})
}

func (s *Server) userChats(c *fiber.Ctx) error {
	chats, err := s.chats.UserChats(c.Context(), userID(c))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"chats": sanitizeChats(chats)})
}

func sanitizeChats(chats []*entity.Chat) []*entity.Chat {
	out := make([]*entity.Chat, len(chats))
	for i, chat := range chats {
		out[i] = chat.Sanitized()
	}
	return out
}

func (s *Server) chatByID(c *fiber.Ctx) error {
	chat, err := s.chats.ChatByID(c.Context(), userID(c), c.Params("chat_id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(chat.Sanitized())
}

func (s *Server) chatBySlug(c *fiber.Ctx) error {
	chat, err := s.chats.ChatBySlug(c.Context(), userID(c), c.Params("slug"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(chat.Sanitized())
}

func (s *Server) chatByInvitation(c *fiber.Ctx) error {
	chat, err := s.chats.ChatByInvitation(c.Context(), c.Params("invitation"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(chat.Sanitized())
}

type updateChatReq struct {
	Name     string `json:"name"`
	ChatType string `json:"chatType"`
}

func (s *Server) updateChat(c *fiber.Ctx) error {
	var req updateChatReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	chat, err := s.chats.UpdateChat(c.Context(), userID(c), service.UpdateChatInput{
		ChatID:   c.Params("chat_id"),
		Name:     req.Name,
		ChatType: entity.ChatType(req.ChatType),
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(chat.Sanitized())
}

func (s *Server) removeChat(c *fiber.Ctx) error {
	if err := s.chats.RemoveChat(c.Context(), userID(c), c.Params("chat_id")); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Chat deleted successfully"})
}

func (s *Server) leaveChat(c *fiber.Ctx) error {
	if err := s.chats.LeaveChat(c.Context(), userID(c), c.Params("chat_id")); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Chat left successfully"})
}

type createProfileReq struct {
	Invitation string `json:"invitation"`
}

func (s *Server) createProfile(c *fiber.Ctx) error {
	var req createProfileReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	profile, err := s.chats.CreateProfile(c.Context(), userID(c), req.Invitation)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(profile)
}

func (s *Server) filterProfiles(c *fiber.Ctx) error {
	page, err := s.chats.FilterProfiles(c.Context(), userID(c), service.FilterProfilesQuery{
		ChatID:   c.Params("chat_id"),
		Nickname: c.Query("nickname"),
		First:    parseFirst(c),
		After:    c.Query("after"),
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(page)
}

func (s *Server) profileByID(c *fiber.Ctx) error {
	profile, err := s.chats.ProfileByID(c.Context(), userID(c), c.Params("chat_id"), c.Params("profile_id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(profile)
}

func (s *Server) profileBySlug(c *fiber.Ctx) error {
	profile, err := s.chats.ProfileBySlug(c.Context(), userID(c), c.Params("chat_id"), c.Params("slug"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(profile)
}

type nicknameReq struct {
	Nickname string `json:"nickname"`
}

func (s *Server) updateOwnNickname(c *fiber.Ctx) error {
	var req nicknameReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	profile, err := s.chats.UpdateOwnNickname(c.Context(), userID(c), c.Params("chat_id"), req.Nickname)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(profile)
}

func (s *Server) updateProfileNickname(c *fiber.Ctx) error {
	var req nicknameReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	profile, err := s.chats.UpdateProfileNickname(
		c.Context(), userID(c), c.Params("chat_id"), c.Params("profile_id"), req.Nickname)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(profile)
}

func (s *Server) removeProfile(c *fiber.Ctx) error {
	if err := s.chats.RemoveProfile(c.Context(), userID(c), c.Params("chat_id"), c.Params("profile_id")); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Profile deleted successfully"})
}
