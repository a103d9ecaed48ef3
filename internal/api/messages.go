package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/ephemeral-chats/internal/service"
)

type messageBodyReq struct {
	Body string `json:"body"`
}

func (s *Server) createMessage(c *fiber.Ctx) error {
	var req messageBodyReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	message, err := s.messages.CreateMessage(c.Context(), userID(c), c.Params("chat_id"), req.Body)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}

func (s *Server) updateMessage(c *fiber.Ctx) error {
	var req messageBodyReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	message, err := s.messages.UpdateMessage(
		c.Context(), userID(c), c.Params("chat_id"), c.Params("message_id"), req.Body)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(message)
}

func (s *Server) removeMessage(c *fiber.Ctx) error {
	if err := s.messages.RemoveMessage(c.Context(), userID(c), c.Params("chat_id"), c.Params("message_id")); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Message deleted successfully"})
}

func (s *Server) messageByID(c *fiber.Ctx) error {
	message, err := s.messages.MessageByID(c.Context(), userID(c), c.Params("chat_id"), c.Params("message_id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(message)
}

func (s *Server) filterChatMessages(c *fiber.Ctx) error {
	page, err := s.messages.FilterChatMessages(c.Context(), userID(c), service.FilterMessagesQuery{
		ChatID: c.Params("chat_id"),
		First:  parseFirst(c),
		After:  c.Query("after"),
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(page)
}
