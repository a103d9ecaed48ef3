package api

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/yourorg/ephemeral-chats/pkg/errors"
)

// fail translates a domain error into an HTTP response. Internal causes are
// logged and never echoed to the client.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeInternal || code == apperrors.CodeUnknown {
		s.log.Errorw("request failed", "path", c.Path(), "error", err)
	}
	return c.Status(statusOf(code)).JSON(fiber.Map{
		"code":  code,
		"error": apperrors.MessageOf(err),
	})
}

func statusOf(code apperrors.Code) int {
	switch code {
	case apperrors.CodeInvalid, apperrors.CodeBadRequest:
		return fiber.StatusBadRequest
	case apperrors.CodeNotFound:
		return fiber.StatusNotFound
	case apperrors.CodeConflict:
		return fiber.StatusConflict
	case apperrors.CodeUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}
