package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yourorg/ephemeral-chats/internal/entity"
	"github.com/yourorg/ephemeral-chats/internal/service"
)

type createInviteReq struct {
	Invitation  string `json:"invitation"`
	RecipientID string `json:"recipientId"`
}

func (s *Server) createInvite(c *fiber.Ctx) error {
	var req createInviteReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	invite, err := s.invites.CreateInvite(c.Context(), userID(c), req.Invitation, req.RecipientID)
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(invite)
}

type answerInviteReq struct {
	Invitation string `json:"invitation"`
}

func (s *Server) acceptInvite(c *fiber.Ctx) error {
	var req answerInviteReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	invite, err := s.invites.AcceptInvite(c.Context(), userID(c), req.Invitation)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(invite)
}

func (s *Server) declineInvite(c *fiber.Ctx) error {
	var req answerInviteReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	invite, err := s.invites.DeclineInvite(c.Context(), userID(c), req.Invitation)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(invite)
}

func (s *Server) updateRejectedInvite(c *fiber.Ctx) error {
	var req answerInviteReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	invite, err := s.invites.UpdateRejectedInvite(c.Context(), userID(c), req.Invitation)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(invite)
}

func (s *Server) deleteInvite(c *fiber.Ctx) error {
	if err := s.invites.DeleteInvite(c.Context(), userID(c), c.Params("invite_id")); err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"message": "Invite deleted successfully"})
}

func (s *Server) inviteByID(c *fiber.Ctx) error {
	invite, err := s.invites.InviteByID(c.Context(), userID(c), c.Params("invite_id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(invite)
}

func (s *Server) sentInviteByID(c *fiber.Ctx) error {
	invite, err := s.invites.SentInviteByID(c.Context(), userID(c), c.Params("invite_id"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(invite)
}

func (s *Server) filterReceivedInvites(c *fiber.Ctx) error {
	page, err := s.invites.FilterReceivedInvites(c.Context(), userID(c), service.FilterInvitesQuery{
		Status: entity.InviteStatus(c.Query("status")),
		First:  parseFirst(c),
		After:  c.Query("after"),
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(page)
}

func (s *Server) filterSentInvites(c *fiber.Ctx) error {
	page, err := s.invites.FilterSentInvites(c.Context(), userID(c), service.FilterInvitesQuery{
		Status: entity.InviteStatus(c.Query("status")),
		First:  parseFirst(c),
		After:  c.Query("after"),
	})
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(page)
}
